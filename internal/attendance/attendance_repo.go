package attendance

import (
	"context"
	"database/sql"
	"time"

	"go-presence/internal/shared/database"
	"go-presence/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)
	// InsertIfAbsent creates the day's record unless one exists already.
	InsertIfAbsent(ctx context.Context, a *Attendance) (bool, error)
	// CloseOpen sets clock_out on a still-open record.
	CloseOpen(ctx context.Context, id uuid.UUID, clockOut time.Time, notes *string) (bool, error)
	FindAllByCompany(ctx context.Context, companyID string, filter ListFilter) ([]Attendance, error)
	FindAllByCompanyAndEmployee(ctx context.Context, companyID, employeeID string, filter ListFilter) ([]Attendance, error)
}

type returnedID struct {
	ID uuid.UUID
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return database.BindTx(r.db, r.tx).WithContext(ctx)
}

func (r *repository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error) {
	var a Attendance
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Where("attendance_date = ?", date.Format(dateLayout)).
		First(&a).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &a, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, a *Attendance) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	query := `
INSERT INTO attendances (
	id, company_id, employee_id, attendance_date, clock_in, status, source,
	device_sn, ip_address, recorded_by, notes, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (employee_id, attendance_date) DO NOTHING
RETURNING id
`
	var inserted returnedID
	res := r.conn(ctx).Raw(query,
		a.ID, a.CompanyID, a.EmployeeID, a.AttendanceDate.Format(dateLayout), a.ClockIn, a.Status, a.Source,
		a.DeviceSN, a.IPAddress, a.RecordedBy, a.Notes, a.CreatedAt, a.UpdatedAt,
	).Scan(&inserted)
	if res.Error != nil {
		return false, mapRepositoryError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CloseOpen(ctx context.Context, id uuid.UUID, clockOut time.Time, notes *string) (bool, error) {
	updates := map[string]any{
		"clock_out":  clockOut,
		"updated_at": time.Now().UTC(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := r.conn(ctx).
		Model(&Attendance{}).
		Where("id = ? AND clock_out IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, mapRepositoryError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string, filter ListFilter) ([]Attendance, error) {
	var rows []Attendance
	err := applyFilter(r.conn(ctx), filter).
		Preload("Employee").
		Scopes(tenant.Scope(companyID)).
		Order("attendance_date DESC, clock_in DESC").
		Find(&rows).Error
	return rows, mapRepositoryError(err)
}

func (r *repository) FindAllByCompanyAndEmployee(ctx context.Context, companyID, employeeID string, filter ListFilter) ([]Attendance, error) {
	var rows []Attendance
	err := applyFilter(r.conn(ctx), filter).
		Preload("Employee").
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Order("attendance_date DESC, clock_in DESC").
		Find(&rows).Error
	return rows, mapRepositoryError(err)
}

func applyFilter(db *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.From != nil {
		db = db.Where("attendance_date >= ?", filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		db = db.Where("attendance_date <= ?", filter.To.Format(dateLayout))
	}
	return db
}
