package employeeerrors

import (
	"go-presence/internal/shared/apperror"
	"net/http"
)

var (
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"Employee not found",
		http.StatusNotFound,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid employee ID",
		http.StatusBadRequest,
	)
	ErrEmptyStaffCode = apperror.New(
		apperror.CodeInvalidInput,
		"Staff code is required",
		http.StatusBadRequest,
	)
)
