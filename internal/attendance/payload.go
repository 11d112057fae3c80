package attendance

import "strings"

// payloadFields is the number of comma-separated values in a QR payload.
const payloadFields = 5

// Payload is the content encoded into a session's QR code:
// date,semester,slot,subject,attendance_type with no escaping.
type Payload struct {
	Date           string
	Semester       string
	Slot           string
	Subject        string
	AttendanceType string
}

// String renders the wire form.
func (p Payload) String() string {
	return strings.Join([]string{p.Date, p.Semester, p.Slot, p.Subject, p.AttendanceType}, ",")
}

func (p Payload) validate() error {
	fields := []string{p.Date, p.Semester, p.Slot, p.Subject, p.AttendanceType}
	for _, f := range fields {
		if f == "" {
			return ErrMissingFields
		}
	}
	for _, f := range fields {
		if strings.Contains(f, ",") {
			return ErrCommaInField
		}
	}
	return nil
}

// ParsePayload splits scanned QR text into its five fields. Surrounding
// whitespace from the scanner is ignored; any other field count is rejected.
func ParsePayload(raw string) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != payloadFields {
		return Payload{}, ErrInvalidPayload
	}
	return Payload{
		Date:           parts[0],
		Semester:       parts[1],
		Slot:           parts[2],
		Subject:        parts[3],
		AttendanceType: parts[4],
	}, nil
}

func (s Session) payload() Payload {
	return Payload{Date: s.Date, Semester: s.Semester, Slot: s.Slot, Subject: s.Subject, AttendanceType: s.AttendanceType}
}
