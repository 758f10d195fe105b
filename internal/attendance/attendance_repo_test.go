package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-presence/internal/attendance"
	attendanceerrors "go-presence/internal/attendance/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func newRow() *attendance.Attendance {
	return &attendance.Attendance{
		CompanyID:      uuid.New(),
		EmployeeID:     uuid.New(),
		AttendanceDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ClockIn:        time.Date(2024, 1, 1, 8, 5, 0, 0, time.UTC),
		Status:         attendance.StatusPresent,
		Source:         attendance.SourceDevice,
	}
}

func TestRepository_InsertIfAbsent_Created(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)

	row := newRow()
	mock.ExpectQuery(`INSERT INTO attendances .* ON CONFLICT \(employee_id, attendance_date\) DO NOTHING RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	created, err := repo.InsertIfAbsent(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertIfAbsent_Exists(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)

	mock.ExpectQuery(`INSERT INTO attendances`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	created, err := repo.InsertIfAbsent(context.Background(), newRow())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRepository_InsertIfAbsent_UniqueViolation(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)

	mock.ExpectQuery(`INSERT INTO attendances`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: attendance.UniqueEmployeeDateConstraint})

	_, err := repo.InsertIfAbsent(context.Background(), newRow())
	assert.True(t, errors.Is(err, attendanceerrors.ErrPunchConflict))
}

func TestRepository_InsertIfAbsent_InTx(t *testing.T) {
	db, mock := newMockGorm(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO attendances`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	tx, err := sqlDB.Begin()
	require.NoError(t, err)

	created, err := attendance.NewRepository(db).WithTx(tx).InsertIfAbsent(context.Background(), newRow())
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CloseOpen(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "attendances" SET .* WHERE id = \$\d+ AND clock_out IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "attendances"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := repo.CloseOpen(context.Background(), id, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repo.CloseOpen(context.Background(), id, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByEmployeeAndDate_NotFound(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "attendances" WHERE employee_id = \$1 AND attendance_date = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.FindByEmployeeAndDate(context.Background(), uuid.NewString(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, attendanceerrors.ErrAttendanceNotFound))
}

func TestRepository_FindAllByCompany_WithFilter(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := attendance.NewRepository(db)

	companyID := uuid.New()
	employeeID := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "company_id", "employee_id", "attendance_date", "clock_in", "status", "source"}).
		AddRow(uuid.NewString(), companyID.String(), employeeID.String(), from, from.Add(8*time.Hour), attendance.StatusLate, attendance.SourceWeb)
	mock.ExpectQuery(`SELECT \* FROM "attendances" WHERE attendance_date >= \$1 AND attendance_date <= \$2 AND "attendances"."company_id" = \$3`).
		WithArgs("2024-01-01", "2024-01-31", companyID.String()).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT \* FROM "employees" WHERE "employees"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name"}).AddRow(employeeID.String(), "Ayu Lestari"))

	got, err := repo.FindAllByCompany(context.Background(), companyID.String(), attendance.ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, attendance.StatusLate, got[0].Status)
	require.NotNil(t, got[0].Employee)
	assert.Equal(t, "Ayu Lestari", got[0].Employee.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
