package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendvault/internal/store"
)

// Repository persists users, class sessions and check-ins.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, email, phone_number, department, semester, university_registration_number, gender, hash`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Department, &u.Semester, &u.RegistrationNumber, &u.Gender, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u and sets its ID.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO users (username, email, phone_number, department, semester, university_registration_number, gender, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), u.Username, u.Email, u.Phone, u.Department, u.Semester, u.RegistrationNumber, u.Gender, u.PasswordHash)
	return row.Scan(&u.ID)
}

// UserByEmail returns nil when no user has that email.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*User, error) {
	return r.userWhere(ctx, `email = ?`, email)
}

// UserByUsername returns nil when no user has that username.
func (r *Repository) UserByUsername(ctx context.Context, username string) (*User, error) {
	return r.userWhere(ctx, `username = ?`, username)
}

// UserByID returns nil when the user does not exist.
func (r *Repository) UserByID(ctx context.Context, id int64) (*User, error) {
	return r.userWhere(ctx, `id = ?`, id)
}

func (r *Repository) userWhere(ctx context.Context, cond string, arg any) (*User, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE `+cond), arg)
	u, err := scanUser(row)
	if err != nil || u == nil {
		return u, err
	}
	if u.IsAdmin, err = r.IsAdmin(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile rewrites the editable profile columns of u.
func (r *Repository) UpdateProfile(ctx context.Context, u User) error {
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		UPDATE users
		SET username = ?, email = ?, phone_number = ?, department = ?, gender = ?
		WHERE id = ?
	`), u.Username, u.Email, u.Phone, u.Department, u.Gender, u.ID)
	return err
}

// IsAdmin reports whether userID is listed in the admins table.
func (r *Repository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`SELECT 1 FROM admins WHERE user_id = ?`), userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GrantAdmin adds userID to the admins table.
func (r *Repository) GrantAdmin(ctx context.Context, userID int64) error {
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO admins (user_id) VALUES (?)
		ON CONFLICT (user_id) DO NOTHING
	`), userID)
	return err
}

// RevokeAdmin removes userID from the admins table.
func (r *Repository) RevokeAdmin(ctx context.Context, userID int64) error {
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`DELETE FROM admins WHERE user_id = ?`), userID)
	return err
}

// ListAdmins returns every admin ordered by username.
func (r *Repository) ListAdmins(ctx context.Context) ([]User, error) {
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.phone_number, u.department, u.semester,
		       u.university_registration_number, u.gender, u.hash
		FROM users u
		JOIN admins a ON a.user_id = u.id
		ORDER BY u.username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.IsAdmin = true
		res = append(res, *u)
	}
	return res, rows.Err()
}

// CreateSession inserts s and sets its ID.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO sessions (date, semester, slot, subject, attendance_type, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), s.Date, s.Semester, s.Slot, s.Subject, s.AttendanceType, s.CreatedBy)
	return row.Scan(&s.ID)
}

// FindSession matches all five payload fields exactly. The earliest session
// wins when the same fields were issued twice; nil means no match.
func (r *Repository) FindSession(ctx context.Context, p Payload) (*Session, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, date, semester, slot, subject, attendance_type, created_by
		FROM sessions
		WHERE date = ? AND semester = ? AND slot = ? AND subject = ? AND attendance_type = ?
		ORDER BY id
		LIMIT 1
	`), p.Date, p.Semester, p.Slot, p.Subject, p.AttendanceType)
	var s Session
	if err := row.Scan(&s.ID, &s.Date, &s.Semester, &s.Slot, &s.Subject, &s.AttendanceType, &s.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SessionsByCreator lists the sessions an admin issued, newest date first.
func (r *Repository) SessionsByCreator(ctx context.Context, userID int64) ([]Session, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.db.Rebind(`
		SELECT id, date, semester, slot, subject, attendance_type, created_by
		FROM sessions
		WHERE created_by = ?
		ORDER BY date DESC, id DESC
	`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Date, &s.Semester, &s.Slot, &s.Subject, &s.AttendanceType, &s.CreatedBy); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// InsertRecord writes a check-in. When the user already checked in to the
// session, inserted is false and the existing record is returned.
func (r *Repository) InsertRecord(ctx context.Context, userID, sessionID int64, at time.Time) (Record, bool, error) {
	rec := Record{UserID: userID, SessionID: sessionID, MarkedOn: at}
	err := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO attendance (user_id, session_id, marked_on)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, session_id) DO NOTHING
		RETURNING id
	`), userID, sessionID, at).Scan(&rec.ID)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, err
	}

	existing, err := r.RecordFor(ctx, userID, sessionID)
	if err != nil {
		return Record{}, false, err
	}
	if existing == nil {
		return Record{}, false, errors.New("check-in conflict without existing record")
	}
	return *existing, false, nil
}

// RecordFor returns the user's check-in for a session, or nil.
func (r *Repository) RecordFor(ctx context.Context, userID, sessionID int64) (*Record, error) {
	var rec Record
	err := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, user_id, session_id, marked_on
		FROM attendance
		WHERE user_id = ? AND session_id = ?
	`), userID, sessionID).Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.MarkedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListEntries returns every check-in joined with user and session details.
func (r *Repository) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT a.id, u.username, s.date, s.subject, s.attendance_type
		FROM attendance a
		JOIN users u ON a.user_id = u.id
		JOIN sessions s ON a.session_id = s.id
		ORDER BY s.date DESC, a.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.Date, &e.Subject, &e.AttendanceType); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Subjects lists the distinct subjects of all sessions.
func (r *Repository) Subjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.Client.QueryContext(ctx, `SELECT DISTINCT subject FROM sessions ORDER BY subject`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SubjectAttendance lists check-ins for every session of subject.
func (r *Repository) SubjectAttendance(ctx context.Context, subject string) ([]SubjectEntry, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.db.Rebind(`
		SELECT u.username, s.date, s.slot, a.marked_on
		FROM attendance a
		JOIN users u ON a.user_id = u.id
		JOIN sessions s ON a.session_id = s.id
		WHERE s.subject = ?
		ORDER BY a.marked_on
	`), subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []SubjectEntry
	for rows.Next() {
		var e SubjectEntry
		if err := rows.Scan(&e.Username, &e.Date, &e.Slot, &e.MarkedOn); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Report returns the check-ins matching f, oldest first.
func (r *Repository) Report(ctx context.Context, f Filter) ([]ReportRow, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.db.Rebind(`
		SELECT a.user_id, u.username, a.session_id, a.marked_on,
		       s.semester, s.slot, s.subject, s.attendance_type
		FROM attendance a
		JOIN sessions s ON a.session_id = s.id
		JOIN users u ON a.user_id = u.id
		WHERE DATE(a.marked_on) = ?
		  AND s.semester = ?
		  AND s.slot = ?
		  AND s.subject = ?
		  AND s.attendance_type = ?
		ORDER BY a.marked_on, a.id
	`), f.Date, f.Semester, f.Slot, f.Subject, f.AttendanceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.UserID, &row.UserName, &row.SessionID, &row.MarkedOn,
			&row.Semester, &row.Slot, &row.Subject, &row.AttendanceType); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
