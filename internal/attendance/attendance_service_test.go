package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	attendanceerrors "go-presence/internal/attendance/errors"
	"go-presence/internal/employee"
	employeeerrors "go-presence/internal/employee/errors"
	"go-presence/internal/events"
	"go-presence/internal/messaging/kafka"
	kafkamock "go-presence/internal/messaging/kafka/mock"
	"go-presence/internal/shared/keylock"
	"go-presence/internal/shift"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

type memRepo struct {
	mu   sync.Mutex
	rows map[string]*Attendance
	// beforeInsert runs before InsertIfAbsent takes the lock.
	beforeInsert func(r *memRepo, a *Attendance)
	inserts      int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]*Attendance{}}
}

func memKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(dateLayout)
}

func (r *memRepo) WithTx(*sql.Tx) Repository { return r }

func (r *memRepo) FindByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) (*Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[memKey(employeeID, date)]
	if !ok {
		return nil, attendanceerrors.ErrAttendanceNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memRepo) InsertIfAbsent(_ context.Context, a *Attendance) (bool, error) {
	if hook := r.beforeInsert; hook != nil {
		r.beforeInsert = nil
		hook(r, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memKey(a.EmployeeID.String(), a.AttendanceDate)
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	cp := *a
	r.rows[key] = &cp
	r.inserts++
	return true, nil
}

func (r *memRepo) CloseOpen(_ context.Context, id uuid.UUID, clockOut time.Time, notes *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id && row.ClockOut == nil {
			v := clockOut
			row.ClockOut = &v
			if notes != nil {
				row.Notes = notes
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) FindAllByCompany(_ context.Context, companyID string, _ ListFilter) ([]Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Attendance
	for _, row := range r.rows {
		if row.CompanyID.String() == companyID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memRepo) FindAllByCompanyAndEmployee(_ context.Context, companyID, employeeID string, _ ListFilter) ([]Attendance, error) {
	all, _ := r.FindAllByCompany(context.Background(), companyID, ListFilter{})
	var out []Attendance
	for _, row := range all {
		if row.EmployeeID.String() == employeeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRepo) only(t *testing.T) Attendance {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.rows, 1)
	for _, row := range r.rows {
		return *row
	}
	return Attendance{}
}

type memOutbox struct {
	mu     sync.Mutex
	events []kafka.OutboxEvent
	err    error
}

func (o *memOutbox) WithTx(*sql.Tx) kafka.OutboxRepository { return o }

func (o *memOutbox) Create(_ context.Context, event kafka.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, event)
	return nil
}

func (o *memOutbox) ListPending(context.Context, int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (o *memOutbox) MarkSent(context.Context, string) error {
	return nil
}

func (o *memOutbox) MarkFailed(context.Context, string, string) error {
	return nil
}

func (o *memOutbox) punched(t *testing.T) []events.AttendancePunchedEvent {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]events.AttendancePunchedEvent, 0, len(o.events))
	for _, e := range o.events {
		var ev events.AttendancePunchedEvent
		require.NoError(t, json.Unmarshal(e.Payload, &ev))
		out = append(out, ev)
	}
	return out
}

type fakeDirectory struct {
	byCode map[string]employee.Employee
}

func (d *fakeDirectory) ByStaffCode(_ context.Context, code string) (employee.Employee, error) {
	e, ok := d.byCode[code]
	if !ok {
		return employee.Employee{}, employeeerrors.ErrEmployeeNotFound
	}
	return e, nil
}

func (d *fakeDirectory) ByID(_ context.Context, companyID, id string) (employee.Employee, error) {
	for _, e := range d.byCode {
		if e.ID.String() == id && e.CompanyID.String() == companyID {
			return e, nil
		}
	}
	return employee.Employee{}, employeeerrors.ErrEmployeeNotFound
}

type fixedShift struct{ policy shift.Policy }

func (f fixedShift) EffectivePolicy(context.Context, string, string) (shift.Policy, error) {
	return f.policy, nil
}

type noLock struct{}

func (noLock) Acquire(context.Context, string) (keylock.Unlock, error) { return func() {}, nil }

type busyLock struct{}

func (busyLock) Acquire(context.Context, string) (keylock.Unlock, error) {
	return nil, keylock.ErrNotAcquired
}

type fixture struct {
	svc     Service
	repo    *memRepo
	outbox  *memOutbox
	company uuid.UUID
	emp1    employee.Employee
	emp2    employee.Employee
	now     time.Time
	mu      sync.Mutex
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) actor() Actor {
	return Actor{
		CompanyID:  f.company.String(),
		EmployeeID: f.emp1.ID.String(),
		UserID:     uuid.NewString(),
		IPAddress:  "10.0.0.7",
	}
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	locker keylock.Locker
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{locker: keylock.NewLocalLocker()}
	for _, o := range opts {
		o(&cfg)
	}

	policy, err := shift.NewPolicy("08:00", "17:00", 10, "UTC")
	require.NoError(t, err)

	company := uuid.New()
	f := &fixture{
		repo:    newMemRepo(),
		outbox:  &memOutbox{},
		company: company,
		emp1:    employee.Employee{ID: uuid.New(), CompanyID: company, EmployeeNumber: "EMP1"},
		emp2:    employee.Employee{ID: uuid.New(), CompanyID: company, EmployeeNumber: "EMP2"},
		now:     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	dir := &fakeDirectory{byCode: map[string]employee.Employee{"EMP1": f.emp1, "EMP2": f.emp2}}
	f.svc = NewService(inlineTx{}, f.repo, f.outbox, dir, fixedShift{policy: policy}, cfg.locker,
		Options{WebCooldown: time.Minute, Now: f.clock}, zap.NewNop())
	return f
}

func TestIngestDevice_InOrderBatchOpensAndClosesDay(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "SN-1",
		[]byte("EMP1\t2024-01-01 08:05:00\t0\t1\nEMP1\t2024-01-01 17:00:00\t1\t1\n"))

	assert.Equal(t, 2, report.Applied)
	assert.Zero(t, report.Failed)

	row := f.repo.only(t)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 5, 0, 0, time.UTC), row.ClockIn)
	require.NotNil(t, row.ClockOut)
	assert.Equal(t, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), *row.ClockOut)
	assert.Equal(t, StatusPresent, row.Status)
	assert.Equal(t, SourceDevice, row.Source)
	require.NotNil(t, row.DeviceSN)
	assert.Equal(t, "SN-1", *row.DeviceSN)
	assert.Nil(t, row.RecordedBy)

	evs := f.outbox.punched(t)
	require.Len(t, evs, 2)
	assert.Equal(t, string(PunchCheckIn), evs[0].PunchType)
	assert.Equal(t, string(PunchCheckOut), evs[1].PunchType)
	assert.Equal(t, "SN-1", evs[1].DeviceSN)
	assert.NotEqual(t, evs[0].EventID, evs[1].EventID)
}

func TestIngestDevice_OutOfOrderBatchTreatsFirstLineAsOpening(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "SN-1",
		[]byte("EMP1 2024-01-01 17:00 1 1\nEMP1 2024-01-01 08:05 0 1\n"))

	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, report.Ignored)

	row := f.repo.only(t)
	assert.Equal(t, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), row.ClockIn)
	assert.Nil(t, row.ClockOut)
	assert.Equal(t, StatusLate, row.Status)
	assert.Len(t, f.outbox.punched(t), 1)
}

func TestIngestDevice_MalformedLineTolerance(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "",
		[]byte("EMP1 2024-01-01 08:00 1 1\ngarbage\nEMP2 2024-01-01 08:05 1 1"))

	assert.Equal(t, 3, report.Lines)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, UnknownDevice, report.DeviceSN)
	assert.Equal(t, 2, f.repo.inserts)
}

func TestIngestDevice_CarriageReturnSeparatedBatch(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "SN",
		[]byte("EMP1 2024-01-01 08:05 1 1\rEMP2 2024-01-01 08:06 1 1\r"))

	assert.Equal(t, 2, report.Lines)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 2, f.repo.inserts)
	assert.Len(t, f.outbox.punched(t), 2)
}

func TestIngestDevice_UnknownStaffDoesNotStopBatch(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "SN-1",
		[]byte("GHOST 2024-01-01 08:00\nEMP1 2024-01-01 99:99\nEMP2 2024-01-01 08:05"))

	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Applied)
	row := f.repo.only(t)
	assert.Equal(t, f.emp2.ID, row.EmployeeID)
}

func TestIngestDevice_ReplayedBatchIsIdempotent(t *testing.T) {
	f := newFixture(t)
	body := []byte("EMP1 2024-01-01 08:05\nEMP1 2024-01-01 17:00\n")

	first := f.svc.IngestDevice(context.Background(), "SN-1", body)
	second := f.svc.IngestDevice(context.Background(), "SN-1", body)

	assert.Equal(t, 2, first.Applied)
	assert.Zero(t, second.Applied)
	assert.Equal(t, 2, second.Ignored)
	f.repo.only(t)
	assert.Len(t, f.outbox.punched(t), 2)
}

func TestIngestDevice_RepeatedTapWithinCooldownIsNoOp(t *testing.T) {
	f := newFixture(t)

	report := f.svc.IngestDevice(context.Background(), "SN-1",
		[]byte("EMP1 2024-01-01 08:05:00\nEMP1 2024-01-01 08:05:20\n"))

	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, report.Ignored)
	assert.Nil(t, f.repo.only(t).ClockOut)
}

func TestIngestDevice_StatusAssignedOnce(t *testing.T) {
	tests := []struct {
		name    string
		checkIn string
		want    string
	}{
		{name: "inside grace", checkIn: "08:09", want: StatusPresent},
		{name: "after grace", checkIn: "08:11", want: StatusLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.svc.IngestDevice(context.Background(), "SN-1", []byte("EMP1 2024-01-01 "+tt.checkIn))
			assert.Equal(t, tt.want, f.repo.only(t).Status)

			f.svc.IngestDevice(context.Background(), "SN-1", []byte("EMP1 2024-01-01 23:59"))
			row := f.repo.only(t)
			require.NotNil(t, row.ClockOut)
			assert.Equal(t, tt.want, row.Status)
		})
	}
}

func TestIngestDevice_RetriesAfterLostInsertRace(t *testing.T) {
	f := newFixture(t)
	f.repo.beforeInsert = func(r *memRepo, a *Attendance) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows[memKey(a.EmployeeID.String(), a.AttendanceDate)] = &Attendance{
			ID:             uuid.New(),
			CompanyID:      a.CompanyID,
			EmployeeID:     a.EmployeeID,
			AttendanceDate: a.AttendanceDate,
			ClockIn:        time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			Status:         StatusPresent,
			Source:         SourceWeb,
		}
	}

	report := f.svc.IngestDevice(context.Background(), "SN-1", []byte("EMP1 2024-01-01 17:30"))

	assert.Equal(t, 1, report.Applied)
	row := f.repo.only(t)
	require.NotNil(t, row.ClockOut)
	assert.Equal(t, SourceWeb, row.Source)
	evs := f.outbox.punched(t)
	require.Len(t, evs, 1)
	assert.Equal(t, string(PunchCheckOut), evs[0].PunchType)
}

func TestWebPunch_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notes := "  working from site B "

	f.setNow(time.Date(2024, 1, 1, 8, 20, 0, 0, time.UTC))
	res, err := f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{Notes: &notes})
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.Equal(t, PunchCheckIn, res.Type)
	assert.Equal(t, StatusLate, res.Attendance.Status)
	require.NotNil(t, res.Attendance.Notes)
	assert.Equal(t, "working from site B", *res.Attendance.Notes)
	require.NotNil(t, res.Attendance.RecordedBy)

	f.setNow(time.Date(2024, 1, 1, 8, 20, 30, 0, time.UTC))
	res, err = f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, GuardCooldown, res.Guard)

	f.setNow(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	res, err = f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, GuardEarlyCheckout, res.Guard)
	assert.Nil(t, f.repo.only(t).ClockOut)

	f.setNow(time.Date(2024, 1, 1, 17, 5, 0, 0, time.UTC))
	res, err = f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.Equal(t, PunchCheckOut, res.Type)
	require.NotNil(t, res.Attendance.ClockOut)
	assert.Equal(t, StatusLate, res.Attendance.Status)

	f.setNow(time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC))
	_, err = f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrAlreadyCheckedOut))

	assert.Len(t, f.outbox.punched(t), 2)
	row := f.repo.only(t)
	assert.Equal(t, SourceWeb, row.Source)
	require.NotNil(t, row.IPAddress)
	assert.Equal(t, "10.0.0.7", *row.IPAddress)
}

func TestWebPunch_EarlyCheckoutDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.setNow(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	_, err := f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	require.NoError(t, err)
	before := f.repo.only(t)

	f.setNow(time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC))
	res, err := f.svc.WebPunch(ctx, f.actor(), WebPunchRequest{})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, GuardEarlyCheckout, res.Guard)
	assert.NotEmpty(t, res.Reason)

	assert.Equal(t, before, f.repo.only(t))
	assert.Len(t, f.outbox.punched(t), 1)
}

func TestWebPunch_CheckOutBeforeCheckInIsError(t *testing.T) {
	f := newFixture(t)

	f.svc.IngestDevice(context.Background(), "SN-1", []byte("EMP1 2024-01-01 09:00"))

	f.setNow(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC))
	_, err := f.svc.WebPunch(context.Background(), f.actor(), WebPunchRequest{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrCheckOutBeforeCheckIn))
}

func TestWebPunch_InvalidActor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.WebPunch(context.Background(), Actor{CompanyID: "nope", EmployeeID: f.emp1.ID.String()}, WebPunchRequest{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrInvalidCompanyID))

	_, err = f.svc.WebPunch(context.Background(), Actor{CompanyID: f.company.String(), EmployeeID: "nope"}, WebPunchRequest{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrInvalidActorID))

	_, err = f.svc.WebPunch(context.Background(), Actor{CompanyID: uuid.NewString(), EmployeeID: f.emp1.ID.String()}, WebPunchRequest{})
	assert.True(t, errors.Is(err, employeeerrors.ErrEmployeeNotFound))
}

func TestWebPunch_LockBusy(t *testing.T) {
	f := newFixture(t, func(c *fixtureConfig) { c.locker = busyLock{} })

	_, err := f.svc.WebPunch(context.Background(), f.actor(), WebPunchRequest{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrPunchBusy))
}

func TestWebPunch_OutboxFailureSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	outbox := kafkamock.NewMockOutboxRepository(ctrl)

	policy, err := shift.NewPolicy("08:00", "17:00", 10, "UTC")
	require.NoError(t, err)
	company := uuid.New()
	emp := employee.Employee{ID: uuid.New(), CompanyID: company, EmployeeNumber: "EMP1"}

	outbox.EXPECT().WithTx(gomock.Any()).Return(outbox)
	outbox.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e kafka.OutboxEvent) error {
		assert.Equal(t, events.AttendancePunchedTopic, e.Topic)
		assert.Equal(t, kafka.OutboxStatusPending, e.Status)
		return errors.New("outbox unavailable")
	})

	svc := NewService(inlineTx{}, newMemRepo(), outbox,
		&fakeDirectory{byCode: map[string]employee.Employee{"EMP1": emp}},
		fixedShift{policy: policy}, keylock.NewLocalLocker(), Options{}, zap.NewNop())

	_, err = svc.WebPunch(context.Background(), Actor{CompanyID: company.String(), EmployeeID: emp.ID.String()}, WebPunchRequest{})
	assert.ErrorContains(t, err, "outbox unavailable")
}

func TestWebPunch_ConcurrentFirstPunch(t *testing.T) {
	lockers := map[string]keylock.Locker{
		"local lock":    keylock.NewLocalLocker(),
		"atomic insert": noLock{},
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, func(c *fixtureConfig) { c.locker = locker })
			f.setNow(time.Date(2024, 1, 1, 7, 58, 0, 0, time.UTC))

			const n = 8
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				results []PunchResult
				errs    []error
			)
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					res, err := f.svc.WebPunch(context.Background(), f.actor(), WebPunchRequest{})
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					results = append(results, res)
				}()
			}
			close(start)
			wg.Wait()

			checkIns := 0
			for _, res := range results {
				if !res.Rejected && res.Type == PunchCheckIn {
					checkIns++
				}
			}
			for _, err := range errs {
				assert.True(t, errors.Is(err, attendanceerrors.ErrPunchConflict), "unexpected error: %v", err)
			}

			assert.Equal(t, 1, checkIns)
			assert.Equal(t, 1, f.repo.inserts)
			assert.Nil(t, f.repo.only(t).ClockOut)
			assert.Len(t, f.outbox.punched(t), 1)
		})
	}
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.IngestDevice(ctx, "SN-1", []byte("EMP1 2024-01-01 08:00\nEMP2 2024-01-01 08:30"))

	all, err := f.svc.GetAll(ctx, f.company.String(), f.emp1.ID.String(), true, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.GetAll(ctx, f.company.String(), f.emp1.ID.String(), false, ListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.emp1.ID.String(), own[0].EmployeeID)
	assert.Equal(t, "2024-01-01", own[0].AttendanceDate)

	_, err = f.svc.GetAll(ctx, f.company.String(), "", false, ListFilter{})
	assert.True(t, errors.Is(err, attendanceerrors.ErrInvalidActorID))

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.GetAll(ctx, f.company.String(), "", true, ListFilter{From: &from, To: &to})
	assert.True(t, errors.Is(err, attendanceerrors.ErrInvalidDateRange))
}

func TestLockKey(t *testing.T) {
	id := uuid.MustParse("3b9c6f0a-77a4-4c1a-9d55-2a5a8fd64c11")
	assert.Equal(t, "lock:attendance:3b9c6f0a-77a4-4c1a-9d55-2a5a8fd64c11:2024-01-01",
		lockKey(id, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}
