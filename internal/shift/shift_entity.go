package shift

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shift is a company working schedule. Rows with EmployeeID set override the
// company default for that employee.
type Shift struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID   *uuid.UUID     `gorm:"column:employee_id;type:uuid;index"`
	Name         string         `gorm:"column:name;type:varchar(100);not null"`
	StartTime    string         `gorm:"column:start_time;type:varchar(8);not null"`
	EndTime      string         `gorm:"column:end_time;type:varchar(8);not null"`
	GraceMinutes int            `gorm:"column:grace_minutes;not null;default:0"`
	Timezone     string         `gorm:"column:timezone;type:varchar(64);not null;default:UTC"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Shift) TableName() string {
	return "shifts"
}

func (s Shift) Policy() (Policy, error) {
	return NewPolicy(s.StartTime, s.EndTime, s.GraceMinutes, s.Timezone)
}
