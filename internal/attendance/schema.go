package attendance

import "attendvault/internal/store"

// Schema is the attendance database layout.
var Schema = store.Schema{
	SQLite: `
	CREATE TABLE IF NOT EXISTS users (
		id                             INTEGER PRIMARY KEY AUTOINCREMENT,
		username                       TEXT NOT NULL UNIQUE,
		email                          TEXT NOT NULL UNIQUE,
		phone_number                   TEXT NOT NULL DEFAULT '',
		department                     TEXT NOT NULL DEFAULT '',
		semester                       INTEGER NOT NULL DEFAULT 0,
		university_registration_number TEXT NOT NULL DEFAULT '',
		gender                         TEXT NOT NULL DEFAULT '',
		hash                           TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		user_id INTEGER PRIMARY KEY REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		date            TEXT NOT NULL,
		semester        TEXT NOT NULL,
		slot            TEXT NOT NULL,
		subject         TEXT NOT NULL,
		attendance_type TEXT NOT NULL,
		created_by      INTEGER NOT NULL REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		marked_on  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_user_session ON attendance(user_id, session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_lookup ON sessions(date, semester, slot, subject, attendance_type);
	CREATE INDEX IF NOT EXISTS idx_attendance_marked_on ON attendance(marked_on);
	`,
	Postgres: `
	CREATE TABLE IF NOT EXISTS users (
		id                             BIGSERIAL PRIMARY KEY,
		username                       TEXT NOT NULL UNIQUE,
		email                          TEXT NOT NULL UNIQUE,
		phone_number                   TEXT NOT NULL DEFAULT '',
		department                     TEXT NOT NULL DEFAULT '',
		semester                       INTEGER NOT NULL DEFAULT 0,
		university_registration_number TEXT NOT NULL DEFAULT '',
		gender                         TEXT NOT NULL DEFAULT '',
		hash                           TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		user_id BIGINT PRIMARY KEY REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id              BIGSERIAL PRIMARY KEY,
		date            TEXT NOT NULL,
		semester        TEXT NOT NULL,
		slot            TEXT NOT NULL,
		subject         TEXT NOT NULL,
		attendance_type TEXT NOT NULL,
		created_by      BIGINT NOT NULL REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		session_id BIGINT NOT NULL REFERENCES sessions(id),
		marked_on  TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_user_session ON attendance(user_id, session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_lookup ON sessions(date, semester, slot, subject, attendance_type);
	CREATE INDEX IF NOT EXISTS idx_attendance_marked_on ON attendance(marked_on);
	`,
}
