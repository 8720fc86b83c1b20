package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rollcall/internal/model"
)

// StatusCounts aggregates a set of attendance records by status.
type StatusCounts struct {
	Total   int
	Present int
	Absent  int
	Late    int
}

// TrendRow is one grouped bucket (by session date) of the ledger.
type TrendRow struct {
	Date    time.Time
	Total   int
	Present int
}

// SubjectRow is one grouped bucket (by subject) of the ledger.
type SubjectRow struct {
	Subject string
	Total   int
	Present int
}

// Repository runs the read-only aggregate queries over the ledger.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentStatusCounts counts one student's records by status within the date
// range (inclusive).
func (r *Repository) StudentStatusCounts(ctx context.Context, userID string, start, end time.Time) (StatusCounts, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'present'),
		       COUNT(a.id) FILTER (WHERE a.status = 'absent'),
		       COUNT(a.id) FILTER (WHERE a.status = 'late')
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE a.user_id = $1 AND s.date >= $2 AND s.date <= $3
	`, userID, start, end)
	var c StatusCounts
	if err := row.Scan(&c.Total, &c.Present, &c.Absent, &c.Late); err != nil {
		return StatusCounts{}, err
	}
	return c, nil
}

// TeacherSessionCount counts sessions the teacher owns in the range,
// optionally narrowed by class and department.
func (r *Repository) TeacherSessionCount(ctx context.Context, teacherID string, start, end time.Time, className, department string) (int, error) {
	query := `SELECT COUNT(*) FROM class_sessions WHERE teacher_id = $1 AND date >= $2 AND date <= $3`
	args := []any{teacherID, start, end}
	if className != "" {
		args = append(args, className)
		query += ` AND class_name = $` + itoa(len(args))
	}
	if department != "" {
		args = append(args, department)
		query += ` AND department = $` + itoa(len(args))
	}
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// TeacherRosterCounts aggregates every record of the teacher's sessions in
// the range: total enrolled plus present/absent splits.
func (r *Repository) TeacherRosterCounts(ctx context.Context, teacherID string, start, end time.Time, className, department string) (StatusCounts, error) {
	query := `
		SELECT COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'present'),
		       COUNT(a.id) FILTER (WHERE a.status = 'absent'),
		       COUNT(a.id) FILTER (WHERE a.status = 'late')
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE s.teacher_id = $1 AND s.date >= $2 AND s.date <= $3`
	args := []any{teacherID, start, end}
	if className != "" {
		args = append(args, className)
		query += ` AND s.class_name = $` + itoa(len(args))
	}
	if department != "" {
		args = append(args, department)
		query += ` AND s.department = $` + itoa(len(args))
	}
	var c StatusCounts
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.Total, &c.Present, &c.Absent, &c.Late); err != nil {
		return StatusCounts{}, err
	}
	return c, nil
}

// StudentTrend groups one student's records by session date, ascending.
func (r *Repository) StudentTrend(ctx context.Context, userID string, start, end time.Time) ([]TrendRow, error) {
	return r.trend(ctx, `a.user_id`, userID, start, end)
}

// TeacherTrend groups all records of the teacher's sessions by date,
// ascending.
func (r *Repository) TeacherTrend(ctx context.Context, teacherID string, start, end time.Time) ([]TrendRow, error) {
	return r.trend(ctx, `s.teacher_id`, teacherID, start, end)
}

func (r *Repository) trend(ctx context.Context, ownerColumn, ownerID string, start, end time.Time) ([]TrendRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.date,
		       COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'present')
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE `+ownerColumn+` = $1 AND s.date >= $2 AND s.date <= $3
		GROUP BY s.date
		ORDER BY s.date
	`, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TrendRow
	for rows.Next() {
		var t TrendRow
		if err := rows.Scan(&t.Date, &t.Total, &t.Present); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// StudentSubjects groups one student's records by subject since the cutoff.
func (r *Repository) StudentSubjects(ctx context.Context, userID string, since time.Time) ([]SubjectRow, error) {
	return r.subjects(ctx, `a.user_id`, userID, since)
}

// TeacherSubjects groups all records of the teacher's sessions by subject
// since the cutoff.
func (r *Repository) TeacherSubjects(ctx context.Context, teacherID string, since time.Time) ([]SubjectRow, error) {
	return r.subjects(ctx, `s.teacher_id`, teacherID, since)
}

func (r *Repository) subjects(ctx context.Context, ownerColumn, ownerID string, since time.Time) ([]SubjectRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.subject,
		       COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'present')
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE `+ownerColumn+` = $1 AND s.date >= $2
		GROUP BY s.subject
	`, ownerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SubjectRow
	for rows.Next() {
		var sr SubjectRow
		if err := rows.Scan(&sr.Subject, &sr.Total, &sr.Present); err != nil {
			return nil, err
		}
		res = append(res, sr)
	}
	return res, rows.Err()
}

// RecentStudentRecords returns the student's latest records since the cutoff,
// newest session first.
func (r *Repository) RecentStudentRecords(ctx context.Context, userID string, since time.Time, limit int) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.class_session_id, a.status, a.recorded_at, a.recorded_by, a.notes
		FROM attendance_records a
		JOIN class_sessions s ON s.id = a.class_session_id
		WHERE a.user_id = $1 AND s.date >= $2
		ORDER BY s.date DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ClassSessionID, &rec.Status, &rec.RecordedAt, &rec.RecordedBy, &rec.Notes); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// RecentTeacherSessions returns the teacher's latest sessions since the
// cutoff, newest first.
func (r *Repository) RecentTeacherSessions(ctx context.Context, teacherID string, since time.Time, limit int) ([]model.ClassSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, class_name, department, division, date, start_time, end_time, teacher_id, roll_start, roll_end, is_active, created_at
		FROM class_sessions
		WHERE teacher_id = $1 AND date >= $2
		ORDER BY date DESC
		LIMIT $3
	`, teacherID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.ClassSession
	for rows.Next() {
		var s model.ClassSession
		if err := rows.Scan(&s.ID, &s.Subject, &s.ClassName, &s.Department, &s.Division, &s.Date, &s.StartTime, &s.EndTime, &s.TeacherID, &s.RollStart, &s.RollEnd, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
