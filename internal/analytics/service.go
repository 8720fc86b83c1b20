// Package analytics computes the read-only aggregates over the attendance
// ledger: per-actor summaries, per-date trends and per-subject analysis.
package analytics

import (
	"context"
	"math"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

const (
	dateFormat = "2006-01-02"
	// defaultRangeDays is the trailing window applied when the caller gives
	// no explicit range.
	defaultRangeDays = 30
	// subjectWindowDays is fixed: subject analysis ignores caller-supplied
	// ranges. Kept asymmetric with the dashboard on purpose; flagged for
	// product review rather than silently unified.
	subjectWindowDays = 30
	// warningThreshold marks students whose percentage needs attention.
	warningThreshold = 75.0
	recentWindowDays = 7
	recentLimit      = 5
)

// Store is the aggregate-query surface the service needs.
type Store interface {
	StudentStatusCounts(ctx context.Context, userID string, start, end time.Time) (StatusCounts, error)
	TeacherSessionCount(ctx context.Context, teacherID string, start, end time.Time, className, department string) (int, error)
	TeacherRosterCounts(ctx context.Context, teacherID string, start, end time.Time, className, department string) (StatusCounts, error)
	StudentTrend(ctx context.Context, userID string, start, end time.Time) ([]TrendRow, error)
	TeacherTrend(ctx context.Context, teacherID string, start, end time.Time) ([]TrendRow, error)
	StudentSubjects(ctx context.Context, userID string, since time.Time) ([]SubjectRow, error)
	TeacherSubjects(ctx context.Context, teacherID string, since time.Time) ([]SubjectRow, error)
	RecentStudentRecords(ctx context.Context, userID string, since time.Time, limit int) ([]model.AttendanceRecord, error)
	RecentTeacherSessions(ctx context.Context, teacherID string, since time.Time, limit int) ([]model.ClassSession, error)
}

// Service is the aggregation engine. It holds no mutable state; the store
// and the actor arrive as explicit parameters.
type Service struct {
	store Store
	cache *Cache
	now   func() time.Time
}

// NewService creates a service. cache may be nil to disable caching.
func NewService(store Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache, now: time.Now}
}

// Percent returns present/total*100 rounded half away from zero to two
// decimals, and 0 when total is zero.
func Percent(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

// resolveRange parses the optional bounds, defaulting to the trailing 30
// days ending today.
func (s *Service) resolveRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := s.now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -defaultRangeDays)
	if startStr != "" {
		parsed, err := time.Parse(dateFormat, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.New(apperr.Validation, "start_date must be YYYY-MM-DD")
		}
		start = parsed
	}
	if endStr != "" {
		parsed, err := time.Parse(dateFormat, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.New(apperr.Validation, "end_date must be YYYY-MM-DD")
		}
		end = parsed
	}
	return start, end, nil
}

// StudentSummary is the per-student aggregate over a date range.
type StudentSummary struct {
	TotalSessions        int     `json:"total_sessions"`
	Present              int     `json:"present"`
	Absent               int     `json:"absent"`
	Late                 int     `json:"late"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// TeacherSummary is the per-teacher aggregate over a date range.
type TeacherSummary struct {
	TotalSessions     int     `json:"total_sessions"`
	TotalStudents     int     `json:"total_students"`
	TotalPresent      int     `json:"total_present"`
	TotalAbsent       int     `json:"total_absent"`
	AverageAttendance float64 `json:"average_attendance"`
}

// StudentStats aggregates one student's records within the range.
func (s *Service) StudentStats(ctx context.Context, userID, startStr, endStr string) (*StudentSummary, error) {
	start, end, err := s.resolveRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.StudentStatusCounts(ctx, userID, start, end)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "student status counts", err)
	}
	return &StudentSummary{
		TotalSessions:        counts.Total,
		Present:              counts.Present,
		Absent:               counts.Absent,
		Late:                 counts.Late,
		AttendancePercentage: Percent(counts.Present, counts.Total),
	}, nil
}

// TeacherStats aggregates the teacher's owned sessions within the range,
// optionally narrowed by class and department.
func (s *Service) TeacherStats(ctx context.Context, teacherID, startStr, endStr, className, department string) (*TeacherSummary, error) {
	start, end, err := s.resolveRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.TeacherSessionCount(ctx, teacherID, start, end, className, department)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "teacher session count", err)
	}
	counts, err := s.store.TeacherRosterCounts(ctx, teacherID, start, end, className, department)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "teacher roster counts", err)
	}
	return &TeacherSummary{
		TotalSessions:     sessions,
		TotalStudents:     counts.Total,
		TotalPresent:      counts.Present,
		TotalAbsent:       counts.Absent,
		AverageAttendance: Percent(counts.Present, counts.Total),
	}, nil
}

// StudentDashboard is the student summary plus recency and the low-attendance
// warning flag.
type StudentDashboard struct {
	StudentSummary
	RecentAttendances []model.AttendanceRecord `json:"recent_attendances"`
	Warning           bool                     `json:"warning"`
}

// TeacherDashboard is the teacher summary plus recent sessions.
type TeacherDashboard struct {
	TeacherSummary
	RecentSessions []model.ClassSession `json:"recent_sessions"`
}

// StudentDashboard builds the student dashboard. Default-range reads go
// through the cache; explicit ranges always hit the store.
func (s *Service) StudentDashboard(ctx context.Context, userID, startStr, endStr string) (*StudentDashboard, error) {
	cacheable := startStr == "" && endStr == ""
	if cacheable {
		var cached StudentDashboard
		if s.cache.Get(ctx, StatsKey(userID), &cached) {
			return &cached, nil
		}
	}

	summary, err := s.StudentStats(ctx, userID, startStr, endStr)
	if err != nil {
		return nil, err
	}
	_, end, err := s.resolveRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentStudentRecords(ctx, userID, end.AddDate(0, 0, -recentWindowDays), recentLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "recent records", err)
	}

	dash := &StudentDashboard{
		StudentSummary:    *summary,
		RecentAttendances: recent,
		Warning:           summary.AttendancePercentage < warningThreshold,
	}
	if cacheable {
		s.cache.Set(ctx, StatsKey(userID), dash)
	}
	return dash, nil
}

// TeacherDashboard builds the teacher dashboard. Same caching rule as the
// student dashboard.
func (s *Service) TeacherDashboard(ctx context.Context, teacherID, startStr, endStr string) (*TeacherDashboard, error) {
	cacheable := startStr == "" && endStr == ""
	if cacheable {
		var cached TeacherDashboard
		if s.cache.Get(ctx, StatsKey(teacherID), &cached) {
			return &cached, nil
		}
	}

	summary, err := s.TeacherStats(ctx, teacherID, startStr, endStr, "", "")
	if err != nil {
		return nil, err
	}
	_, end, err := s.resolveRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentTeacherSessions(ctx, teacherID, end.AddDate(0, 0, -recentWindowDays), recentLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "recent sessions", err)
	}

	dash := &TeacherDashboard{
		TeacherSummary: *summary,
		RecentSessions: recent,
	}
	if cacheable {
		s.cache.Set(ctx, StatsKey(teacherID), dash)
	}
	return dash, nil
}

// TrendPoint is one date's bucket of the attendance trend.
type TrendPoint struct {
	Date       string  `json:"date"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Percentage float64 `json:"percentage"`
}

// Trend groups the actor's records by session date, ascending. Students see
// their own ledger; teachers see the ledger of sessions they own.
func (s *Service) Trend(ctx context.Context, actor model.User, startStr, endStr string) ([]TrendPoint, error) {
	start, end, err := s.resolveRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	var rows []TrendRow
	switch actor.Role {
	case model.RoleStudent:
		rows, err = s.store.StudentTrend(ctx, actor.ID, start, end)
	case model.RoleTeacher:
		rows, err = s.store.TeacherTrend(ctx, actor.ID, start, end)
	default:
		return nil, apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "trend query", err)
	}

	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, TrendPoint{
			Date:       row.Date.Format(dateFormat),
			Total:      row.Total,
			Present:    row.Present,
			Percentage: Percent(row.Present, row.Total),
		})
	}
	return points, nil
}

// StudentSubjectStat is one subject's bucket for a student.
type StudentSubjectStat struct {
	Subject              string  `json:"subject"`
	TotalSessions        int     `json:"total_sessions"`
	PresentSessions      int     `json:"present_sessions"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// TeacherSubjectStat is one subject's bucket across a teacher's sessions.
type TeacherSubjectStat struct {
	Subject              string  `json:"subject"`
	TotalAttendances     int     `json:"total_attendances"`
	PresentAttendances   int     `json:"present_attendances"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// StudentSubjectAnalysis groups a student's last 30 days by subject. The
// window is fixed, not caller-parameterized.
func (s *Service) StudentSubjectAnalysis(ctx context.Context, userID string) ([]StudentSubjectStat, error) {
	since := s.now().AddDate(0, 0, -subjectWindowDays)
	rows, err := s.store.StudentSubjects(ctx, userID, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "subject query", err)
	}
	stats := make([]StudentSubjectStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, StudentSubjectStat{
			Subject:              row.Subject,
			TotalSessions:        row.Total,
			PresentSessions:      row.Present,
			AttendancePercentage: Percent(row.Present, row.Total),
		})
	}
	return stats, nil
}

// TeacherSubjectAnalysis groups a teacher's last 30 days by subject.
func (s *Service) TeacherSubjectAnalysis(ctx context.Context, teacherID string) ([]TeacherSubjectStat, error) {
	since := s.now().AddDate(0, 0, -subjectWindowDays)
	rows, err := s.store.TeacherSubjects(ctx, teacherID, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "subject query", err)
	}
	stats := make([]TeacherSubjectStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, TeacherSubjectStat{
			Subject:              row.Subject,
			TotalAttendances:     row.Total,
			PresentAttendances:   row.Present,
			AttendancePercentage: Percent(row.Present, row.Total),
		})
	}
	return stats, nil
}
