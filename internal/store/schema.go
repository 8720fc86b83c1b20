package store

import (
	"context"
	"database/sql"
)

// Migrate applies the schema. Statements are idempotent so startup can run
// them unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		prn           TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		class_name    TEXT NOT NULL DEFAULT '',
		department    TEXT NOT NULL DEFAULT '',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS class_sessions (
		id          TEXT PRIMARY KEY,
		subject     TEXT NOT NULL,
		class_name  TEXT NOT NULL,
		department  TEXT NOT NULL,
		division    TEXT,
		date        DATE NOT NULL,
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		teacher_id  TEXT NOT NULL REFERENCES users(id),
		roll_start  INTEGER,
		roll_end    INTEGER,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		class_session_id TEXT NOT NULL REFERENCES class_sessions(id),
		status           TEXT NOT NULL DEFAULT 'present',
		recorded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		recorded_by      TEXT REFERENCES users(id),
		notes            TEXT,
		UNIQUE (user_id, class_session_id)
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_class_dept      ON users(class_name, department);
	CREATE INDEX IF NOT EXISTS idx_sessions_teacher_date ON class_sessions(teacher_id, date);
	CREATE INDEX IF NOT EXISTS idx_records_session       ON attendance_records(class_session_id);
	CREATE INDEX IF NOT EXISTS idx_records_user          ON attendance_records(user_id);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}
