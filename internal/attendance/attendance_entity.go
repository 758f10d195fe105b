package attendance

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPresent = "PRESENT"
	StatusLate    = "LATE"
	// StatusAbsent is written by the end-of-day job, never by a punch.
	StatusAbsent = "ABSENT"

	SourceDevice = "DEVICE"
	SourceWeb    = "WEB"

	UniqueEmployeeDateConstraint = "uq_attendance_employee_date"
)

type PunchType string

const (
	PunchCheckIn  PunchType = "check-in"
	PunchCheckOut PunchType = "check-out"
)

type Attendance struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID    `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID     uuid.UUID    `gorm:"column:employee_id;type:uuid;not null;uniqueIndex:uq_attendance_employee_date,priority:1"`
	AttendanceDate time.Time    `gorm:"column:attendance_date;type:date;not null;uniqueIndex:uq_attendance_employee_date,priority:2"`
	ClockIn        time.Time    `gorm:"column:clock_in;type:timestamptz;not null"`
	ClockOut       *time.Time   `gorm:"column:clock_out;type:timestamptz"`
	Status         string       `gorm:"column:status;type:varchar(20);not null;default:PRESENT"`
	Source         string       `gorm:"column:source;type:varchar(10);not null"`
	DeviceSN       *string      `gorm:"column:device_sn;type:varchar(100)"`
	IPAddress      *string      `gorm:"column:ip_address;type:varchar(45)"`
	RecordedBy     *uuid.UUID   `gorm:"column:recorded_by;type:uuid"`
	Notes          *string      `gorm:"column:notes;type:text"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
	Employee       *EmployeeRef `gorm:"foreignKey:EmployeeID;references:ID"`
}

func (Attendance) TableName() string {
	return "attendances"
}

// IsOpen reports a checked-in day without a check-out.
func (a Attendance) IsOpen() bool {
	return a.ClockOut == nil
}

type EmployeeRef struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName string    `gorm:"column:full_name"`
}

func (EmployeeRef) TableName() string {
	return "employees"
}
