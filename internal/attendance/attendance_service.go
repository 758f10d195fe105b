package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	attendanceerrors "go-presence/internal/attendance/errors"
	"go-presence/internal/employee"
	"go-presence/internal/events"
	"go-presence/internal/messaging/kafka"
	"go-presence/internal/shared/contextutil"
	"go-presence/internal/shared/database"
	"go-presence/internal/shared/keylock"
	"go-presence/internal/shift"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const maxPunchAttempts = 2

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	IngestDevice(ctx context.Context, serial string, body []byte) DeviceReport
	WebPunch(ctx context.Context, actor Actor, req WebPunchRequest) (PunchResult, error)
	GetAll(ctx context.Context, companyID, actorID string, canReadAll bool, filter ListFilter) ([]AttendanceResponse, error)
}

type Options struct {
	// WebCooldown is the minimum gap between a check-in and a check-out.
	WebCooldown time.Duration
	Now         func() time.Time
}

type service struct {
	tx        database.TxRunner
	repo      Repository
	outbox    kafka.OutboxRepository
	directory employee.Directory
	shifts    shift.Provider
	locker    keylock.Locker
	cooldown  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(
	tx database.TxRunner,
	repo Repository,
	outbox kafka.OutboxRepository,
	directory employee.Directory,
	shifts shift.Provider,
	locker keylock.Locker,
	opts Options,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("attendance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.service")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        tx,
		repo:      repo,
		outbox:    outbox,
		directory: directory,
		shifts:    shifts,
		locker:    locker,
		cooldown:  opts.WebCooldown,
		now:       now,
		logger:    l,
	}
}

type punchInput struct {
	source     string
	companyID  uuid.UUID
	employeeID uuid.UUID
	at         time.Time
	policy     shift.Policy
	deviceSN   *string
	ipAddress  *string
	recordedBy *uuid.UUID
	notes      *string
}

type punchOutcome struct {
	changed   bool
	punchType PunchType
	record    Attendance
	rejected  bool
	guard     Guard
	reason    string
}

func (s *service) IngestDevice(ctx context.Context, serial string, body []byte) DeviceReport {
	log := contextutil.GetLogger(ctx, s.logger)

	punches, skipped := ParseDeviceFeed(body, serial)
	report := DeviceReport{
		DeviceSN: normalizeSerial(serial),
		Lines:    len(punches) + skipped,
		Skipped:  skipped,
	}
	if skipped > 0 {
		log.Debug("device lines skipped", zap.String("device_sn", report.DeviceSN), zap.Int("skipped", skipped))
	}

	for _, p := range punches {
		outcome, err := s.applyDevicePunch(ctx, p)
		if err != nil {
			report.Failed++
			log.Error("device punch failed",
				zap.String("staff_id", p.StaffCode),
				zap.String("device_sn", p.DeviceSN),
				zap.Int("line", p.Line),
				zap.String("timestamp", p.Timestamp),
				zap.Error(err),
			)
			continue
		}
		if !outcome.changed {
			report.Ignored++
			log.Debug("device punch ignored",
				zap.String("staff_id", p.StaffCode),
				zap.Int("line", p.Line),
				zap.String("reason", outcome.reason),
			)
			continue
		}
		report.Applied++
	}

	log.Info("device upload processed",
		zap.String("device_sn", report.DeviceSN),
		zap.Int("lines", report.Lines),
		zap.Int("applied", report.Applied),
		zap.Int("ignored", report.Ignored),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}

// applyDevicePunch contains panics so one bad line cannot abort the batch.
func (s *service) applyDevicePunch(ctx context.Context, p DevicePunch) (outcome punchOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("device punch panic: %v", r)
		}
	}()

	emp, err := s.directory.ByStaffCode(ctx, p.StaffCode)
	if err != nil {
		return punchOutcome{}, fmt.Errorf("resolve staff code: %w", err)
	}

	policy, err := s.shifts.EffectivePolicy(ctx, emp.CompanyID.String(), emp.ID.String())
	if err != nil {
		return punchOutcome{}, err
	}

	at, err := policy.ParseTimestamp(p.Timestamp)
	if err != nil {
		return punchOutcome{}, err
	}

	sn := p.DeviceSN
	return s.punch(ctx, punchInput{
		source:     SourceDevice,
		companyID:  emp.CompanyID,
		employeeID: emp.ID,
		at:         at,
		policy:     policy,
		deviceSN:   &sn,
	})
}

func (s *service) WebPunch(ctx context.Context, actor Actor, req WebPunchRequest) (PunchResult, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	companyID, err := uuid.Parse(actor.CompanyID)
	if err != nil {
		return PunchResult{}, attendanceerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actor.EmployeeID); err != nil {
		return PunchResult{}, attendanceerrors.ErrInvalidActorID
	}

	emp, err := s.directory.ByID(ctx, actor.CompanyID, actor.EmployeeID)
	if err != nil {
		return PunchResult{}, err
	}

	policy, err := s.shifts.EffectivePolicy(ctx, actor.CompanyID, actor.EmployeeID)
	if err != nil {
		log.Error("web punch load shift failed", zap.String("employee_id", actor.EmployeeID), zap.Error(err))
		return PunchResult{}, err
	}

	in := punchInput{
		source:     SourceWeb,
		companyID:  companyID,
		employeeID: emp.ID,
		at:         s.now(),
		policy:     policy,
		notes:      trimNotes(req.Notes),
	}
	if ip := strings.TrimSpace(actor.IPAddress); ip != "" {
		in.ipAddress = &ip
	}
	if uid, err := uuid.Parse(actor.UserID); err == nil {
		in.recordedBy = &uid
	}

	outcome, err := s.punch(ctx, in)
	if err != nil {
		return PunchResult{}, err
	}

	if outcome.rejected {
		log.Info("web punch rejected",
			zap.String("employee_id", actor.EmployeeID),
			zap.String("guard", string(outcome.guard)),
		)
		return PunchResult{
			Type:       outcome.punchType,
			Attendance: mapToResponse(outcome.record),
			Rejected:   true,
			Guard:      outcome.guard,
			Reason:     outcome.reason,
		}, nil
	}

	log.Info("web punch recorded",
		zap.String("attendance_id", outcome.record.ID.String()),
		zap.String("employee_id", actor.EmployeeID),
		zap.String("type", string(outcome.punchType)),
		zap.String("status", outcome.record.Status),
	)
	return PunchResult{Type: outcome.punchType, Attendance: mapToResponse(outcome.record)}, nil
}

// punch serializes on (employee, date) and retries once after a lost race.
func (s *service) punch(ctx context.Context, in punchInput) (punchOutcome, error) {
	date := in.policy.LocalDate(in.at)

	unlock, err := s.locker.Acquire(ctx, lockKey(in.employeeID, date))
	if err != nil {
		if errors.Is(err, keylock.ErrNotAcquired) {
			return punchOutcome{}, attendanceerrors.ErrPunchBusy
		}
		return punchOutcome{}, fmt.Errorf("acquire punch lock: %w", err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		outcome, err := s.resolve(ctx, in, date)
		if errors.Is(err, attendanceerrors.ErrPunchConflict) && attempt < maxPunchAttempts {
			contextutil.GetLogger(ctx, s.logger).Warn("punch conflict, retrying",
				zap.String("employee_id", in.employeeID.String()),
				zap.String("date", date.Format(dateLayout)),
			)
			continue
		}
		return outcome, err
	}
}

func (s *service) resolve(ctx context.Context, in punchInput, date time.Time) (punchOutcome, error) {
	var out punchOutcome

	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		existing, err := qtx.FindByEmployeeAndDate(ctx, in.employeeID.String(), date)
		if err != nil {
			if !errors.Is(err, attendanceerrors.ErrAttendanceNotFound) {
				return err
			}
			existing = nil
		}

		at := in.at.UTC()
		switch decide(existing, in.at) {
		case decideCheckIn:
			row := &Attendance{
				ID:             uuid.New(),
				CompanyID:      in.companyID,
				EmployeeID:     in.employeeID,
				AttendanceDate: date,
				ClockIn:        at,
				Status:         DeriveStatus(in.at, in.policy),
				Source:         in.source,
				DeviceSN:       in.deviceSN,
				IPAddress:      in.ipAddress,
				RecordedBy:     in.recordedBy,
				Notes:          in.notes,
			}
			created, err := qtx.InsertIfAbsent(ctx, row)
			if err != nil {
				return err
			}
			if !created {
				return attendanceerrors.ErrPunchConflict
			}
			out = punchOutcome{changed: true, punchType: PunchCheckIn, record: *row}

		case decideCheckOut:
			if in.source == SourceWeb {
				if guard, reason, blocked := webCheckOutGuard(*existing, in.at, in.policy, s.cooldown); blocked {
					out = punchOutcome{punchType: PunchCheckOut, record: *existing, rejected: true, guard: guard, reason: reason}
					return nil
				}
			} else if s.cooldown > 0 && in.at.Sub(existing.ClockIn) < s.cooldown {
				out = punchOutcome{record: *existing, reason: "repeated punch"}
				return nil
			}

			closed, err := qtx.CloseOpen(ctx, existing.ID, at, in.notes)
			if err != nil {
				return err
			}
			if !closed {
				return attendanceerrors.ErrPunchConflict
			}
			row := *existing
			row.ClockOut = &at
			if in.notes != nil {
				row.Notes = in.notes
			}
			out = punchOutcome{changed: true, punchType: PunchCheckOut, record: row}

		case decideClosed:
			if in.source == SourceWeb {
				return attendanceerrors.ErrAlreadyCheckedOut
			}
			out = punchOutcome{record: *existing, reason: "already checked out"}
			return nil

		case decideNotAfterCheckIn:
			if in.source == SourceWeb {
				if s.cooldown > 0 && existing.ClockIn.Sub(in.at) < s.cooldown {
					out = punchOutcome{punchType: PunchCheckOut, record: *existing, rejected: true, guard: GuardCooldown, reason: cooldownReason}
					return nil
				}
				return attendanceerrors.ErrCheckOutBeforeCheckIn
			}
			out = punchOutcome{record: *existing, reason: "not after check-in"}
			return nil
		}

		return s.enqueuePunched(ctx, tx, out)
	})
	if err != nil {
		return punchOutcome{}, err
	}
	return out, nil
}

// enqueuePunched writes the AttendancePunched event in the punch transaction.
func (s *service) enqueuePunched(ctx context.Context, tx *sql.Tx, out punchOutcome) error {
	rec := out.record
	event := events.AttendancePunchedEvent{
		EventID:        ulid.Make().String(),
		EventType:      events.AttendancePunchedEventType,
		RequestID:      contextutil.GetRequestID(ctx),
		PunchType:      string(out.punchType),
		Source:         rec.Source,
		AttendanceID:   rec.ID.String(),
		CompanyID:      rec.CompanyID.String(),
		EmployeeID:     rec.EmployeeID.String(),
		AttendanceDate: rec.AttendanceDate.Format(dateLayout),
		ClockIn:        rec.ClockIn,
		ClockOut:       rec.ClockOut,
		Status:         rec.Status,
		OccurredAt:     s.now().UTC(),
	}
	if rec.DeviceSN != nil {
		event.DeviceSN = *rec.DeviceSN
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode attendance event: %w", err)
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "attendance",
		AggregateID:   event.AttendanceID,
		EventType:     events.AttendancePunchedEventType,
		Topic:         events.AttendancePunchedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) GetAll(ctx context.Context, companyID, actorID string, canReadAll bool, filter ListFilter) ([]AttendanceResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, attendanceerrors.ErrInvalidCompanyID
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, attendanceerrors.ErrInvalidDateRange
	}

	var (
		rows []Attendance
		err  error
	)
	if canReadAll {
		rows, err = s.repo.FindAllByCompany(ctx, companyID, filter)
	} else {
		if _, parseErr := uuid.Parse(actorID); parseErr != nil {
			return nil, attendanceerrors.ErrInvalidActorID
		}
		rows, err = s.repo.FindAllByCompanyAndEmployee(ctx, companyID, actorID, filter)
	}
	if err != nil {
		return nil, err
	}

	res := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, nil
}

func lockKey(employeeID uuid.UUID, date time.Time) string {
	return "lock:attendance:" + employeeID.String() + ":" + date.Format(dateLayout)
}

func normalizeSerial(serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return UnknownDevice
	}
	return serial
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}

func mapToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:             a.ID.String(),
		CompanyID:      a.CompanyID.String(),
		EmployeeID:     a.EmployeeID.String(),
		AttendanceDate: a.AttendanceDate.Format(dateLayout),
		ClockIn:        a.ClockIn.Format(time.RFC3339),
		Status:         a.Status,
		Source:         a.Source,
		DeviceSN:       a.DeviceSN,
		Notes:          a.Notes,
	}
	if a.Employee != nil {
		resp.EmployeeName = a.Employee.FullName
	}
	if a.ClockOut != nil {
		v := a.ClockOut.Format(time.RFC3339)
		resp.ClockOut = &v
	}
	if a.RecordedBy != nil {
		v := a.RecordedBy.String()
		resp.RecordedBy = &v
	}
	return resp
}
