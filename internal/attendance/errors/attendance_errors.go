package attendanceerrors

import (
	"net/http"

	"go-presence/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"from must be on or before to",
		http.StatusBadRequest,
	)
	ErrAttendanceNotFound = apperror.New(
		apperror.CodeNotFound,
		"attendance not found",
		http.StatusNotFound,
	)
	ErrAlreadyCheckedOut = apperror.New(
		"ALREADY_CHECKED_OUT",
		"already checked out for today",
		http.StatusConflict,
	)
	ErrCheckOutBeforeCheckIn = apperror.New(
		apperror.CodeInvalidState,
		"check-out must be after check-in",
		http.StatusConflict,
	)
	// ErrPunchConflict marks a lost race on (employee, date); the punch is retried.
	ErrPunchConflict = apperror.New(
		apperror.CodeConflict,
		"attendance was modified concurrently, please retry",
		http.StatusConflict,
	)
	ErrPunchBusy = apperror.New(
		apperror.CodeConflict,
		"another punch for this employee is in progress",
		http.StatusConflict,
	)
)
