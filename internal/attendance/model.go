package attendance

import (
	"errors"
	"time"
)

// User is a registered student or staff member. Admin status lives in the
// separate admins table and is filled in by the repository.
type User struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	Phone              string `json:"phone_number"`
	Department         string `json:"department"`
	Semester           int    `json:"semester"`
	RegistrationNumber string `json:"university_registration_number"`
	Gender             string `json:"gender"`
	PasswordHash       string `json:"-"`
	IsAdmin            bool   `json:"is_admin"`
}

// Session is a scheduled class attendance event, not a login session.
type Session struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Semester       string `json:"semester"`
	Slot           string `json:"slot"`
	Subject        string `json:"subject"`
	AttendanceType string `json:"attendance_type"`
	CreatedBy      int64  `json:"created_by"`
}

// Record ties a user to a session they checked in to.
type Record struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SessionID int64     `json:"session_id"`
	MarkedOn  time.Time `json:"marked_on"`
}

// Entry is one row of the admin overview.
type Entry struct {
	ID             int64
	Username       string
	Date           string
	Subject        string
	AttendanceType string
}

// SubjectEntry is one row of the per-subject attendance listing.
type SubjectEntry struct {
	Username string
	Date     string
	Slot     string
	MarkedOn time.Time
}

// ReportRow is one line of the filtered CSV export.
type ReportRow struct {
	UserID         int64
	UserName       string
	SessionID      int64
	MarkedOn       time.Time
	Semester       string
	Slot           string
	Subject        string
	AttendanceType string
}

// Filter selects export rows. Date matches the day the check-in happened.
type Filter struct {
	Date           string
	Semester       string
	Slot           string
	Subject        string
	AttendanceType string
}

func (f Filter) complete() bool {
	return f.Date != "" && f.Semester != "" && f.Slot != "" && f.Subject != "" && f.AttendanceType != ""
}

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidSemester    = errors.New("semester must be a positive number")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrCommaInField       = errors.New("field contains a comma")
	ErrInvalidPayload     = errors.New("invalid qr payload")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoRecords          = errors.New("no matching records")
)
