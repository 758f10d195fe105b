package events

import "time"

const (
	AttendancePunchedTopic     = "hr.attendance.punched.v1"
	AttendancePunchedEventType = "attendance_punched"
)

// AttendancePunchedEvent is emitted once per genuine check-in or check-out.
type AttendancePunchedEvent struct {
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	RequestID      string     `json:"request_id,omitempty"`
	PunchType      string     `json:"punch_type"`
	Source         string     `json:"source"`
	AttendanceID   string     `json:"attendance_id"`
	CompanyID      string     `json:"company_id"`
	EmployeeID     string     `json:"employee_id"`
	AttendanceDate string     `json:"attendance_date"`
	ClockIn        time.Time  `json:"clock_in"`
	ClockOut       *time.Time `json:"clock_out,omitempty"`
	Status         string     `json:"status"`
	DeviceSN       string     `json:"device_sn,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
