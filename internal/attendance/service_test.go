package attendance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/queue"
)

// fakeStore enrolls from an in-memory user set the way the SQL repo does:
// role=student with an exact (class_name, department) match.
type fakeStore struct {
	users    []model.User
	sessions map[string]model.ClassSession
	records  map[string]map[string]model.AttendanceRecord // session -> student -> record
	nextID   int
}

func newFakeStore(users ...model.User) *fakeStore {
	return &fakeStore{
		users:    users,
		sessions: make(map[string]model.ClassSession),
		records:  make(map[string]map[string]model.AttendanceRecord),
	}
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("id%d", f.nextID)
}

func (f *fakeStore) CreateSessionWithRoster(_ context.Context, s *model.ClassSession) ([]string, error) {
	if s.ID == "" {
		s.ID = f.id()
	}
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = *s

	f.records[s.ID] = make(map[string]model.AttendanceRecord)
	var enrolled []string
	for _, u := range f.users {
		if u.Role != model.RoleStudent || u.ClassName != s.ClassName || u.Department != s.Department {
			continue
		}
		teacherID := s.TeacherID
		f.records[s.ID][u.ID] = model.AttendanceRecord{
			ID:             f.id(),
			UserID:         u.ID,
			ClassSessionID: s.ID,
			Status:         model.StatusPresent,
			RecordedAt:     time.Now(),
			RecordedBy:     &teacherID,
		}
		enrolled = append(enrolled, u.ID)
	}
	return enrolled, nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.ClassSession, error) {
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeStore) UpdateStatuses(_ context.Context, sessionID string, updates []StatusUpdate) ([]string, error) {
	var applied []string
	for _, u := range updates {
		rec, ok := f.records[sessionID][u.UserID]
		if !ok {
			continue
		}
		rec.Status = u.Status
		rec.Notes = u.Notes
		rec.RecordedAt = time.Now()
		f.records[sessionID][u.UserID] = rec
		applied = append(applied, u.UserID)
	}
	return applied, nil
}

func (f *fakeStore) GetRecord(_ context.Context, userID, sessionID string) (*model.AttendanceRecord, error) {
	if rec, ok := f.records[sessionID][userID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeStore) ListSessionRecords(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var res []model.AttendanceRecord
	for _, rec := range f.records[sessionID] {
		res = append(res, rec)
	}
	return res, nil
}

func (f *fakeStore) ListStudentRecords(_ context.Context, userID string, _ HistoryFilter) ([]model.AttendanceRecord, error) {
	var res []model.AttendanceRecord
	for _, byUser := range f.records {
		if rec, ok := byUser[userID]; ok {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func classOf(n int) []model.User {
	users := make([]model.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, model.User{
			ID:         fmt.Sprintf("s%d", i+1),
			Role:       model.RoleStudent,
			ClassName:  "FY",
			Department: "CSE",
		})
	}
	return users
}

var teacher = model.User{ID: "t1", Role: model.RoleTeacher, ClassName: "FY", Department: "CSE"}

func validInput() CreateSessionInput {
	rollStart, rollEnd := 1, 60
	return CreateSessionInput{
		Subject:    "Mathematics",
		ClassName:  "FY",
		Department: "CSE",
		Date:       "2026-09-01",
		StartTime:  "09:00",
		EndTime:    "10:00",
		RollStart:  &rollStart,
		RollEnd:    &rollEnd,
	}
}

func TestCreateSessionEnrollsSnapshot(t *testing.T) {
	store := newFakeStore(classOf(10)...)
	svc := NewService(store, store, nil)

	session, count, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if count != 10 {
		t.Fatalf("students_count = %d, want 10", count)
	}
	records := store.records[session.ID]
	if len(records) != 10 {
		t.Fatalf("records = %d, want 10", len(records))
	}
	for _, rec := range records {
		if rec.Status != model.StatusPresent {
			t.Fatalf("record %s status = %q, want present", rec.ID, rec.Status)
		}
		if rec.RecordedBy == nil || *rec.RecordedBy != teacher.ID {
			t.Fatalf("record %s recorded_by = %v, want %s", rec.ID, rec.RecordedBy, teacher.ID)
		}
	}
	if session.TeacherID != teacher.ID {
		t.Fatalf("session teacher = %s, want %s", session.TeacherID, teacher.ID)
	}
}

func TestCreateSessionSkipsOtherClasses(t *testing.T) {
	users := append(classOf(3),
		model.User{ID: "x1", Role: model.RoleStudent, ClassName: "SY", Department: "CSE"},
		model.User{ID: "x2", Role: model.RoleStudent, ClassName: "FY", Department: "Mech"},
		model.User{ID: "x3", Role: model.RoleTeacher, ClassName: "FY", Department: "CSE"},
	)
	store := newFakeStore(users...)
	svc := NewService(store, store, nil)

	_, count, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if count != 3 {
		t.Fatalf("students_count = %d, want 3", count)
	}
}

func TestCreateSessionDeniedForStudents(t *testing.T) {
	store := newFakeStore(classOf(2)...)
	svc := NewService(store, store, nil)

	student := model.User{ID: "s1", Role: model.RoleStudent}
	_, _, err := svc.CreateSession(context.Background(), student, validInput())
	if !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if len(store.sessions) != 0 {
		t.Fatal("denied create left a session behind")
	}
}

func TestCreateSessionValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, store, nil)

	cases := []struct {
		name   string
		mutate func(*CreateSessionInput)
	}{
		{"missing subject", func(in *CreateSessionInput) { in.Subject = "" }},
		{"missing class", func(in *CreateSessionInput) { in.ClassName = "" }},
		{"missing rollStart", func(in *CreateSessionInput) { in.RollStart = nil }},
		{"bad date", func(in *CreateSessionInput) { in.Date = "01-09-2026" }},
		{"bad start time", func(in *CreateSessionInput) { in.StartTime = "9am" }},
		{"bad end time", func(in *CreateSessionInput) { in.EndTime = "25:99" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, _, err := svc.CreateSession(context.Background(), teacher, in)
			if !apperr.IsKind(err, apperr.Validation) {
				t.Fatalf("expected Validation, got %v", err)
			}
		})
	}
	if len(store.sessions) != 0 {
		t.Fatal("validation failure left a session behind")
	}
}

func TestUpdateAttendance(t *testing.T) {
	store := newFakeStore(classOf(10)...)
	svc := NewService(store, store, nil)

	session, _, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	updated, err := svc.UpdateAttendance(context.Background(), teacher, session.ID, []StatusUpdate{
		{UserID: "s1", Status: model.StatusAbsent},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}

	rec := store.records[session.ID]["s1"]
	if rec.Status != model.StatusAbsent {
		t.Fatalf("status = %q, want absent", rec.Status)
	}
	// Identity never changes on update.
	if rec.UserID != "s1" || rec.ClassSessionID != session.ID {
		t.Fatalf("record identity changed: %+v", rec)
	}
}

func TestUpdateAttendanceSkipsUnenrolled(t *testing.T) {
	store := newFakeStore(classOf(2)...)
	svc := NewService(store, store, nil)

	session, _, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	updated, err := svc.UpdateAttendance(context.Background(), teacher, session.ID, []StatusUpdate{
		{UserID: "s1", Status: model.StatusLate},
		{UserID: "ghost", Status: model.StatusAbsent},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1 (unenrolled entry skipped)", updated)
	}
	if _, ok := store.records[session.ID]["ghost"]; ok {
		t.Fatal("update created a record for an unenrolled user")
	}
}

func TestUpdateAttendanceOwnershipAndValidation(t *testing.T) {
	store := newFakeStore(classOf(2)...)
	svc := NewService(store, store, nil)

	session, _, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	other := model.User{ID: "t2", Role: model.RoleTeacher}
	if _, err := svc.UpdateAttendance(context.Background(), other, session.ID, []StatusUpdate{
		{UserID: "s1", Status: model.StatusAbsent},
	}); !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied for non-owner, got %v", err)
	}

	if _, err := svc.UpdateAttendance(context.Background(), teacher, "missing", []StatusUpdate{
		{UserID: "s1", Status: model.StatusAbsent},
	}); !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	if _, err := svc.UpdateAttendance(context.Background(), teacher, session.ID, []StatusUpdate{
		{UserID: "s1", Status: "vanished"},
	}); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected Validation for bad status, got %v", err)
	}

	if _, err := svc.UpdateAttendance(context.Background(), teacher, session.ID, nil); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected Validation for empty updates, got %v", err)
	}
}

func TestSessionAttendanceVisibility(t *testing.T) {
	store := newFakeStore(classOf(3)...)
	svc := NewService(store, store, nil)

	session, _, err := svc.CreateSession(context.Background(), teacher, validInput())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Owning teacher sees the full ledger.
	_, records, err := svc.SessionAttendance(context.Background(), teacher, session.ID)
	if err != nil {
		t.Fatalf("teacher read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("teacher sees %d records, want 3", len(records))
	}

	// A student sees exactly their own record.
	student := model.User{ID: "s2", Role: model.RoleStudent, ClassName: "FY", Department: "CSE"}
	_, records, err = svc.SessionAttendance(context.Background(), student, session.ID)
	if err != nil {
		t.Fatalf("student read: %v", err)
	}
	if len(records) != 1 || records[0].UserID != "s2" {
		t.Fatalf("student records = %+v, want only own", records)
	}

	// Another teacher is denied outright, not given an empty list.
	other := model.User{ID: "t2", Role: model.RoleTeacher}
	if _, _, err := svc.SessionAttendance(context.Background(), other, session.ID); !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestStudentAttendanceAccess(t *testing.T) {
	store := newFakeStore(classOf(2)...)
	svc := NewService(store, store, nil)

	if _, _, err := svc.CreateSession(context.Background(), teacher, validInput()); err != nil {
		t.Fatalf("create session: %v", err)
	}

	studentA := model.User{ID: "s1", Role: model.RoleStudent, ClassName: "FY", Department: "CSE"}
	if _, _, err := svc.StudentAttendance(context.Background(), studentA, "s2", HistoryFilter{}); !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("student reading another student's record: expected PermissionDenied, got %v", err)
	}

	_, records, err := svc.StudentAttendance(context.Background(), studentA, "s1", HistoryFilter{})
	if err != nil {
		t.Fatalf("self read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	if _, _, err := svc.StudentAttendance(context.Background(), teacher, "t1", HistoryFilter{}); !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("non-student target: expected NotFound, got %v", err)
	}
}

func TestCreateSessionPublishesChangeEvent(t *testing.T) {
	store := newFakeStore(classOf(2)...)
	q := queue.NewMemory(4)
	svc := NewService(store, store, q)

	ctx := context.Background()
	if _, _, err := svc.CreateSession(ctx, teacher, validInput()); err != nil {
		t.Fatalf("create session: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != EventSessionCreated {
			t.Fatalf("event type = %q, want %q", msg.Type, EventSessionCreated)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}
