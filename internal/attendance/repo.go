package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/model"
)

const sessionColumns = "id, subject, class_name, department, division, date, start_time, end_time, teacher_id, roll_start, roll_end, is_active, created_at"
const recordColumns = "id, user_id, class_session_id, status, recorded_at, recorded_by, notes"

// Repository persists class sessions and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateSessionWithRoster inserts the session and one attendance record per
// student matching the session's (class_name, department) at this moment, all
// in one transaction. Returns the enrolled student ids. A failure anywhere
// leaves no rows behind.
func (r *Repository) CreateSessionWithRoster(ctx context.Context, s *model.ClassSession) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO class_sessions (id, subject, class_name, department, division, date, start_time, end_time, teacher_id, roll_start, roll_end, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at
	`, s.ID, s.Subject, s.ClassName, s.Department, s.Division, s.Date, s.StartTime, s.EndTime, s.TeacherID, s.RollStart, s.RollEnd, s.IsActive)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return nil, err
	}

	// Enrollment snapshot: every student of the class, active or not, with an
	// exact case-sensitive match on class and department.
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM users
		WHERE role = $1 AND class_name = $2 AND department = $3
	`, model.RoleStudent, s.ClassName, s.Department)
	if err != nil {
		return nil, err
	}
	var studentIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		studentIDs = append(studentIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, user_id, class_session_id, status, recorded_by)
			VALUES ($1,$2,$3,$4,$5)
		`, uuid.NewString(), studentID, s.ID, model.StatusPresent, s.TeacherID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return studentIDs, nil
}

// GetSession returns a session, or nil when absent.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.ClassSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM class_sessions WHERE id = $1`, id)
	var s model.ClassSession
	if err := row.Scan(&s.ID, &s.Subject, &s.ClassName, &s.Department, &s.Division, &s.Date, &s.StartTime, &s.EndTime, &s.TeacherID, &s.RollStart, &s.RollEnd, &s.IsActive, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// StatusUpdate is one targeted change to an enrolled student's record.
type StatusUpdate struct {
	UserID string       `json:"user_id"`
	Status model.Status `json:"status"`
	Notes  *string      `json:"notes,omitempty"`
}

// UpdateStatuses overwrites status and notes for each listed student's record
// in the session. Entries without an existing record are skipped; only
// pre-enrolled students can be updated. All changes commit together. Returns
// the ids of the students whose records were touched.
func (r *Repository) UpdateStatuses(ctx context.Context, sessionID string, updates []StatusUpdate) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var applied []string
	for _, u := range updates {
		res, err := tx.ExecContext(ctx, `
			UPDATE attendance_records
			SET status = $3, notes = $4, recorded_at = NOW()
			WHERE user_id = $1 AND class_session_id = $2
		`, u.UserID, sessionID, u.Status, u.Notes)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			applied = append(applied, u.UserID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}

// GetRecord returns one student's record for a session, or nil when absent.
func (r *Repository) GetRecord(ctx context.Context, userID, sessionID string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE user_id = $1 AND class_session_id = $2
	`, userID, sessionID)
	var rec model.AttendanceRecord
	if err := scanRecord(row.Scan, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListSessionRecords returns every record of a session.
func (r *Repository) ListSessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE class_session_id = $1
		ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// HistoryFilter narrows a student's attendance history.
type HistoryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Subject   string
}

// ListStudentRecords returns a student's records, newest first, optionally
// constrained by session date and subject.
func (r *Repository) ListStudentRecords(ctx context.Context, userID string, f HistoryFilter) ([]model.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.user_id, a.class_session_id, a.status, a.recorded_at, a.recorded_by, a.notes
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE a.user_id = $1`
	args := []any{userID}
	if f.StartDate != nil {
		query += " AND s.date >= $" + itoa(len(args)+1)
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		query += " AND s.date <= $" + itoa(len(args)+1)
		args = append(args, *f.EndDate)
	}
	if f.Subject != "" {
		query += " AND s.subject = $" + itoa(len(args)+1)
		args = append(args, f.Subject)
	}
	query += " ORDER BY a.recorded_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

type scanFunc func(dest ...any) error

func scanRecord(scan scanFunc, rec *model.AttendanceRecord) error {
	return scan(&rec.ID, &rec.UserID, &rec.ClassSessionID, &rec.Status, &rec.RecordedAt, &rec.RecordedBy, &rec.Notes)
}

func collectRecords(rows *sql.Rows) ([]model.AttendanceRecord, error) {
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := scanRecord(rows.Scan, &rec); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
