package analytics

import (
	"context"
	"testing"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

type fakeStore struct {
	counts       StatusCounts
	sessionCount int
	trend        []TrendRow
	subjects     []SubjectRow
	recentRecs   []model.AttendanceRecord
	recentSess   []model.ClassSession

	subjectSince time.Time
	rangeStart   time.Time
	rangeEnd     time.Time
}

func (f *fakeStore) StudentStatusCounts(_ context.Context, _ string, start, end time.Time) (StatusCounts, error) {
	f.rangeStart, f.rangeEnd = start, end
	return f.counts, nil
}

func (f *fakeStore) TeacherSessionCount(_ context.Context, _ string, start, end time.Time, _, _ string) (int, error) {
	f.rangeStart, f.rangeEnd = start, end
	return f.sessionCount, nil
}

func (f *fakeStore) TeacherRosterCounts(_ context.Context, _ string, _, _ time.Time, _, _ string) (StatusCounts, error) {
	return f.counts, nil
}

func (f *fakeStore) StudentTrend(_ context.Context, _ string, _, _ time.Time) ([]TrendRow, error) {
	return f.trend, nil
}

func (f *fakeStore) TeacherTrend(_ context.Context, _ string, _, _ time.Time) ([]TrendRow, error) {
	return f.trend, nil
}

func (f *fakeStore) StudentSubjects(_ context.Context, _ string, since time.Time) ([]SubjectRow, error) {
	f.subjectSince = since
	return f.subjects, nil
}

func (f *fakeStore) TeacherSubjects(_ context.Context, _ string, since time.Time) ([]SubjectRow, error) {
	f.subjectSince = since
	return f.subjects, nil
}

func (f *fakeStore) RecentStudentRecords(_ context.Context, _ string, _ time.Time, _ int) ([]model.AttendanceRecord, error) {
	return f.recentRecs, nil
}

func (f *fakeStore) RecentTeacherSessions(_ context.Context, _ string, _ time.Time, _ int) ([]model.ClassSession, error) {
	return f.recentSess, nil
}

func newTestService(store *fakeStore, at time.Time) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestPercent(t *testing.T) {
	cases := []struct {
		present, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 10, 0},
		{10, 10, 100},
		{9, 10, 90},
		{2, 3, 66.67},
		{1, 3, 33.33},
		{1, 8, 12.5},
		{5, 8, 62.5},
	}
	for _, tc := range cases {
		if got := Percent(tc.present, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tc.present, tc.total, got, tc.want)
		}
	}
}

func TestStudentStats(t *testing.T) {
	store := &fakeStore{counts: StatusCounts{Total: 20, Present: 15, Absent: 3, Late: 2}}
	svc := newTestService(store, time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC))

	summary, err := svc.StudentStats(context.Background(), "s1", "", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if summary.TotalSessions != 20 || summary.Present != 15 || summary.Absent != 3 || summary.Late != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.AttendancePercentage != 75 {
		t.Fatalf("percentage = %v, want 75", summary.AttendancePercentage)
	}

	// Default range is the trailing 30 days ending today.
	wantEnd := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	if !store.rangeEnd.Equal(wantEnd) {
		t.Fatalf("range end = %v, want %v", store.rangeEnd, wantEnd)
	}
	if !store.rangeStart.Equal(wantEnd.AddDate(0, 0, -30)) {
		t.Fatalf("range start = %v, want %v", store.rangeStart, wantEnd.AddDate(0, 0, -30))
	}
}

func TestStudentStatsExplicitRange(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, time.Now())

	if _, err := svc.StudentStats(context.Background(), "s1", "2026-01-01", "2026-01-31"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := store.rangeStart.Format("2006-01-02"); got != "2026-01-01" {
		t.Fatalf("range start = %s", got)
	}
	if got := store.rangeEnd.Format("2006-01-02"); got != "2026-01-31" {
		t.Fatalf("range end = %s", got)
	}

	if _, err := svc.StudentStats(context.Background(), "s1", "31-01-2026", ""); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected Validation for bad start_date, got %v", err)
	}
}

func TestStudentStatsZeroSessions(t *testing.T) {
	svc := newTestService(&fakeStore{}, time.Now())
	summary, err := svc.StudentStats(context.Background(), "s1", "", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if summary.AttendancePercentage != 0 {
		t.Fatalf("empty ledger percentage = %v, want 0", summary.AttendancePercentage)
	}
}

func TestStudentDashboardWarning(t *testing.T) {
	cases := []struct {
		name    string
		counts  StatusCounts
		warning bool
	}{
		{"below threshold", StatusCounts{Total: 10, Present: 7}, true},
		{"at threshold", StatusCounts{Total: 4, Present: 3}, false},
		{"above threshold", StatusCounts{Total: 10, Present: 9}, false},
		{"no sessions", StatusCounts{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(&fakeStore{counts: tc.counts}, time.Now())
			dash, err := svc.StudentDashboard(context.Background(), "s1", "", "")
			if err != nil {
				t.Fatalf("dashboard: %v", err)
			}
			if dash.Warning != tc.warning {
				t.Fatalf("warning = %v, want %v (%+v)", dash.Warning, tc.warning, tc.counts)
			}
		})
	}
}

func TestTeacherStats(t *testing.T) {
	store := &fakeStore{
		sessionCount: 4,
		counts:       StatusCounts{Total: 120, Present: 100, Absent: 20},
	}
	svc := newTestService(store, time.Now())

	summary, err := svc.TeacherStats(context.Background(), "t1", "", "", "", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if summary.TotalSessions != 4 || summary.TotalStudents != 120 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.AverageAttendance != 83.33 {
		t.Fatalf("average = %v, want 83.33", summary.AverageAttendance)
	}
}

func TestTrend(t *testing.T) {
	store := &fakeStore{trend: []TrendRow{
		{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Total: 2, Present: 2},
		{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Total: 3, Present: 1},
	}}
	svc := newTestService(store, time.Now())

	points, err := svc.Trend(context.Background(), model.User{ID: "s1", Role: model.RoleStudent}, "", "")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Date != "2026-03-01" || points[0].Percentage != 100 {
		t.Fatalf("first point = %+v", points[0])
	}
	if points[1].Percentage != 33.33 {
		t.Fatalf("second point percentage = %v, want 33.33", points[1].Percentage)
	}

	if _, err := svc.Trend(context.Background(), model.User{Role: "admin"}, "", ""); !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied for unknown role, got %v", err)
	}
}

func TestSubjectAnalysisWindowIsFixed(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{subjects: []SubjectRow{
		{Subject: "Mathematics", Total: 8, Present: 6},
		{Subject: "Physics", Total: 4, Present: 4},
	}}
	svc := newTestService(store, now)

	stats, err := svc.StudentSubjectAnalysis(context.Background(), "s1")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d, want 2", len(stats))
	}
	if stats[0].AttendancePercentage != 75 || stats[1].AttendancePercentage != 100 {
		t.Fatalf("percentages = %v, %v", stats[0].AttendancePercentage, stats[1].AttendancePercentage)
	}
	if want := now.AddDate(0, 0, -30); !store.subjectSince.Equal(want) {
		t.Fatalf("window since = %v, want %v", store.subjectSince, want)
	}

	teacherStats, err := svc.TeacherSubjectAnalysis(context.Background(), "t1")
	if err != nil {
		t.Fatalf("teacher analysis: %v", err)
	}
	if teacherStats[0].TotalAttendances != 8 || teacherStats[0].PresentAttendances != 6 {
		t.Fatalf("teacher bucket = %+v", teacherStats[0])
	}
}
