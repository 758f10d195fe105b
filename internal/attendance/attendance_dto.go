package attendance

import "time"

// Actor is the authenticated caller of a web punch.
type Actor struct {
	CompanyID  string
	EmployeeID string
	UserID     string
	IPAddress  string
}

type WebPunchRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=255"`
}

type ListAttendanceQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ListFilter bounds a listing by attendance date, both ends inclusive.
type ListFilter struct {
	From *time.Time
	To   *time.Time
}

type AttendanceResponse struct {
	ID             string  `json:"id"`
	CompanyID      string  `json:"company_id"`
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name,omitempty"`
	AttendanceDate string  `json:"attendance_date"`
	ClockIn        string  `json:"clock_in"`
	ClockOut       *string `json:"clock_out,omitempty"`
	Status         string  `json:"status"`
	Source         string  `json:"source"`
	DeviceSN       *string `json:"device_sn,omitempty"`
	RecordedBy     *string `json:"recorded_by,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type PunchResponse struct {
	Type       PunchType          `json:"type"`
	Attendance AttendanceResponse `json:"attendance"`
}

// PunchResult is the outcome of a web punch. Rejected results carry the guard
// that fired and no attendance change.
type PunchResult struct {
	Type       PunchType
	Attendance AttendanceResponse
	Rejected   bool
	Guard      Guard
	Reason     string
}

// DeviceReport summarizes one device upload; it never affects the device reply.
type DeviceReport struct {
	DeviceSN string
	Lines    int
	Skipped  int
	Applied  int
	Ignored  int
	Failed   int
}
