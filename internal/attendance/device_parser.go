package attendance

import (
	"strings"
)

const UnknownDevice = "Unknown-Device"

// Firmware variants end lines with LF, CRLF or a bare CR.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// DevicePunch is one ADMS attendance line: "<staff> <date> <time> [status verify ...]".
type DevicePunch struct {
	StaffCode string
	Timestamp string
	DeviceSN  string
	Line      int
}

// parseDeviceLine needs at least the staff code, the date and the time.
func parseDeviceLine(raw string) (staffCode, timestamp string, ok bool) {
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return "", "", false
	}
	return fields[0], fields[1] + " " + fields[2], true
}

// ParseDeviceFeed splits a device upload into punches in line order. Short
// lines are dropped; the second result counts them.
func ParseDeviceFeed(body []byte, serial string) ([]DevicePunch, int) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		serial = UnknownDevice
	}

	lines := strings.Split(lineBreaks.Replace(string(body)), "\n")
	punches := make([]DevicePunch, 0, len(lines))
	skipped := 0
	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		staff, ts, ok := parseDeviceLine(raw)
		if !ok {
			skipped++
			continue
		}
		punches = append(punches, DevicePunch{
			StaffCode: staff,
			Timestamp: ts,
			DeviceSN:  serial,
			Line:      i + 1,
		})
	}
	return punches, skipped
}
