package attendance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"attendvault/internal/auth"
	"attendvault/internal/logger"
	"attendvault/internal/store"
)

// minPasswordLen is the shortest accepted password.
const minPasswordLen = 8

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, u User) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	CreateSession(ctx context.Context, s *Session) error
	FindSession(ctx context.Context, p Payload) (*Session, error)
	SessionsByCreator(ctx context.Context, userID int64) ([]Session, error)
	InsertRecord(ctx context.Context, userID, sessionID int64, at time.Time) (Record, bool, error)
	ListEntries(ctx context.Context) ([]Entry, error)
	Subjects(ctx context.Context) ([]string, error)
	SubjectAttendance(ctx context.Context, subject string) ([]SubjectEntry, error)
	Report(ctx context.Context, f Filter) ([]ReportRow, error)
}

// Service implements registration, login, session issuance, check-in and
// reporting on top of a Store.
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Registration is the sign-up form.
type Registration struct {
	Username           string
	Email              string
	Phone              string
	Department         string
	Semester           string
	RegistrationNumber string
	Gender             string
	Password           string
	Confirmation       string
}

// Register validates r and creates the user. Nothing is written when any
// check fails.
func (s *Service) Register(ctx context.Context, r Registration) (User, error) {
	for _, v := range []string{r.Username, r.Email, r.Phone, r.Department, r.Semester, r.RegistrationNumber, r.Gender, r.Password, r.Confirmation} {
		if v == "" {
			return User{}, ErrMissingFields
		}
	}
	if r.Password != r.Confirmation {
		return User{}, ErrPasswordMismatch
	}
	if len(r.Password) < minPasswordLen {
		return User{}, ErrPasswordTooShort
	}
	semester, err := strconv.Atoi(r.Semester)
	if err != nil || semester <= 0 {
		return User{}, ErrInvalidSemester
	}

	if err := s.ensureUnique(ctx, 0, r.Username, r.Email); err != nil {
		return User{}, err
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Username:           r.Username,
		Email:              r.Email,
		Phone:              r.Phone,
		Department:         r.Department,
		Semester:           semester,
		RegistrationNumber: r.RegistrationNumber,
		Gender:             r.Gender,
		PasswordHash:       hash,
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, s.duplicateCause(ctx, 0, r.Username)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	logger.FromContext(ctx).Info("user registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// ensureUnique checks username and email against every user except selfID.
func (s *Service) ensureUnique(ctx context.Context, selfID int64, username, email string) error {
	byName, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup username: %w", err)
	}
	if byName != nil && byName.ID != selfID {
		return ErrUsernameTaken
	}
	byEmail, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if byEmail != nil && byEmail.ID != selfID {
		return ErrEmailTaken
	}
	return nil
}

// duplicateCause decides which unique column a lost insert race hit.
func (s *Service) duplicateCause(ctx context.Context, selfID int64, username string) error {
	if u, err := s.repo.UserByUsername(ctx, username); err == nil && u != nil && u.ID != selfID {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, ErrMissingFields
	}
	u, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		auth.CheckPassword(password, "")
		return User{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// User returns the user with id, with its admin flag.
func (s *Service) User(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.UserByID(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

// IsAdmin reports whether userID is an admin.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.repo.IsAdmin(ctx, userID)
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	Username   string
	Email      string
	Phone      string
	Department string
	Gender     string
}

// UpdateProfile changes the profile of user id. Username and email are required.
func (s *Service) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (User, error) {
	if p.Username == "" || p.Email == "" {
		return User{}, ErrMissingFields
	}
	u, err := s.User(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.ensureUnique(ctx, id, p.Username, p.Email); err != nil {
		return User{}, err
	}
	u.Username, u.Email, u.Phone, u.Department, u.Gender = p.Username, p.Email, p.Phone, p.Department, p.Gender
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, s.duplicateCause(ctx, id, p.Username)
		}
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// IssueSession records a class session created by adminID and returns it
// with the payload to encode into its QR code. Fields may not contain commas
// so every issued payload parses back into the same five values.
func (s *Service) IssueSession(ctx context.Context, adminID int64, p Payload) (Session, error) {
	p = Payload{
		Date:           strings.TrimSpace(p.Date),
		Semester:       strings.TrimSpace(p.Semester),
		Slot:           strings.TrimSpace(p.Slot),
		Subject:        strings.TrimSpace(p.Subject),
		AttendanceType: strings.TrimSpace(p.AttendanceType),
	}
	if err := p.validate(); err != nil {
		return Session{}, err
	}
	sess := Session{
		Date:           p.Date,
		Semester:       p.Semester,
		Slot:           p.Slot,
		Subject:        p.Subject,
		AttendanceType: p.AttendanceType,
		CreatedBy:      adminID,
	}
	if err := s.repo.CreateSession(ctx, &sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	logger.FromContext(ctx).Info("session issued", zap.Int64("session_id", sess.ID), zap.String("payload", p.String()))
	return sess, nil
}

// SessionQR renders the QR image of an issued session.
func (s *Service) SessionQR(sess Session) ([]byte, error) {
	return RenderQR(sess.payload())
}

// CheckIn is the outcome of a successful check-in.
type CheckIn struct {
	Record    Record  `json:"record"`
	Session   Session `json:"session"`
	Duplicate bool    `json:"duplicate"`
}

// CheckIn parses scanned QR text and records userID's attendance for the
// matching session. A second check-in for the same session returns the
// original record with Duplicate set.
func (s *Service) CheckIn(ctx context.Context, userID int64, raw string) (CheckIn, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		return CheckIn{}, err
	}
	sess, err := s.repo.FindSession(ctx, p)
	if err != nil {
		return CheckIn{}, fmt.Errorf("find session: %w", err)
	}
	if sess == nil {
		return CheckIn{}, ErrSessionNotFound
	}
	rec, inserted, err := s.repo.InsertRecord(ctx, userID, sess.ID, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return CheckIn{}, fmt.Errorf("insert attendance: %w", err)
	}
	return CheckIn{Record: rec, Session: *sess, Duplicate: !inserted}, nil
}

// Overview holds what the admin page lists.
type Overview struct {
	Sessions []Session
	Entries  []Entry
}

// AdminOverview returns the sessions adminID created and every check-in.
func (s *Service) AdminOverview(ctx context.Context, adminID int64) (Overview, error) {
	sessions, err := s.repo.SessionsByCreator(ctx, adminID)
	if err != nil {
		return Overview{}, fmt.Errorf("list sessions: %w", err)
	}
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list attendance: %w", err)
	}
	return Overview{Sessions: sessions, Entries: entries}, nil
}

// Subjects lists the distinct session subjects.
func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	return s.repo.Subjects(ctx)
}

// SubjectAttendance lists check-ins for subject.
func (s *Service) SubjectAttendance(ctx context.Context, subject string) ([]SubjectEntry, error) {
	if subject == "" {
		return nil, ErrMissingFields
	}
	return s.repo.SubjectAttendance(ctx, subject)
}

// Export runs a filtered report. All filters are required; an empty result
// is ErrNoRecords rather than an empty file.
func (s *Service) Export(ctx context.Context, f Filter) (Export, error) {
	if !f.complete() {
		return Export{}, ErrMissingFields
	}
	rows, err := s.repo.Report(ctx, f)
	if err != nil {
		return Export{}, fmt.Errorf("report: %w", err)
	}
	if len(rows) == 0 {
		return Export{}, ErrNoRecords
	}
	return Export{Filename: exportFilename(rows[0]), Rows: rows}, nil
}
