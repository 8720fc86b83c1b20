package attendance

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"rollcall/internal/access"
	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/queue"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

// Queue event types consumed by the worker.
const (
	EventSessionCreated    = "session.created"
	EventAttendanceUpdated = "attendance.updated"
)

// ChangeEvent is the queue payload describing who is affected by a write.
type ChangeEvent struct {
	SessionID string   `json:"session_id"`
	TeacherID string   `json:"teacher_id"`
	UserIDs   []string `json:"user_ids"`
}

// Store is the persistence surface the service needs.
type Store interface {
	CreateSessionWithRoster(ctx context.Context, s *model.ClassSession) ([]string, error)
	GetSession(ctx context.Context, id string) (*model.ClassSession, error)
	UpdateStatuses(ctx context.Context, sessionID string, updates []StatusUpdate) ([]string, error)
	GetRecord(ctx context.Context, userID, sessionID string) (*model.AttendanceRecord, error)
	ListSessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListStudentRecords(ctx context.Context, userID string, f HistoryFilter) ([]model.AttendanceRecord, error)
}

// UserDirectory looks up users for target checks.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Service implements the session registry and attendance ledger operations.
type Service struct {
	store Store
	users UserDirectory
	q     queue.Queue
}

// NewService creates a service. q may be nil when no worker is running.
func NewService(store Store, users UserDirectory, q queue.Queue) *Service {
	return &Service{store: store, users: users, q: q}
}

// CreateSessionInput carries the fields for a new class session. Field names
// match the client payload.
type CreateSessionInput struct {
	Subject    string  `json:"subject"`
	ClassName  string  `json:"class"`
	Department string  `json:"dept"`
	Division   *string `json:"division"`
	Date       string  `json:"date"`
	StartTime  string  `json:"timeStart"`
	EndTime    string  `json:"timeEnd"`
	RollStart  *int    `json:"rollStart"`
	RollEnd    *int    `json:"rollEnd"`
}

func (in CreateSessionInput) validate() (time.Time, error) {
	required := []struct {
		field string
		ok    bool
	}{
		{"subject", in.Subject != ""},
		{"class", in.ClassName != ""},
		{"dept", in.Department != ""},
		{"date", in.Date != ""},
		{"timeStart", in.StartTime != ""},
		{"timeEnd", in.EndTime != ""},
		{"rollStart", in.RollStart != nil},
		{"rollEnd", in.RollEnd != nil},
	}
	for _, r := range required {
		if !r.ok {
			return time.Time{}, apperr.Newf(apperr.Validation, "%s is required", r.field)
		}
	}
	date, err := time.Parse(dateFormat, in.Date)
	if err != nil {
		return time.Time{}, apperr.New(apperr.Validation, "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(timeFormat, in.StartTime); err != nil {
		return time.Time{}, apperr.New(apperr.Validation, "timeStart must be HH:MM")
	}
	if _, err := time.Parse(timeFormat, in.EndTime); err != nil {
		return time.Time{}, apperr.New(apperr.Validation, "timeEnd must be HH:MM")
	}
	return date, nil
}

// CreateSession records a new class session and enrolls every student
// currently matching its class and department, all defaulting to present.
// The whole operation is atomic; the enrollment is a snapshot, so students
// registered later are not retroactively added.
func (s *Service) CreateSession(ctx context.Context, actor model.User, in CreateSessionInput) (*model.ClassSession, int, error) {
	if err := access.CanRecordAttendance(actor); err != nil {
		return nil, 0, err
	}
	date, err := in.validate()
	if err != nil {
		return nil, 0, err
	}

	session := &model.ClassSession{
		Subject:    in.Subject,
		ClassName:  in.ClassName,
		Department: in.Department,
		Division:   in.Division,
		Date:       date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		TeacherID:  actor.ID,
		RollStart:  in.RollStart,
		RollEnd:    in.RollEnd,
		IsActive:   true,
	}
	enrolled, err := s.store.CreateSessionWithRoster(ctx, session)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Store, "create session", err)
	}

	s.publish(ctx, EventSessionCreated, ChangeEvent{
		SessionID: session.ID,
		TeacherID: actor.ID,
		UserIDs:   enrolled,
	})
	return session, len(enrolled), nil
}

// UpdateAttendance overwrites status and notes for the listed students of a
// session owned by the actor. Entries for students not enrolled in the
// session are skipped without error. Returns how many records changed.
func (s *Service) UpdateAttendance(ctx context.Context, actor model.User, sessionID string, updates []StatusUpdate) (int, error) {
	if sessionID == "" || len(updates) == 0 {
		return 0, apperr.New(apperr.Validation, "class session id and attendance updates are required")
	}
	for _, u := range updates {
		if u.UserID == "" {
			return 0, apperr.New(apperr.Validation, "user_id is required for every update")
		}
		if !u.Status.Valid() {
			return 0, apperr.Newf(apperr.Validation, "invalid status %q", u.Status)
		}
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Store, "load session", err)
	}
	if session == nil {
		return 0, apperr.New(apperr.NotFound, "class session not found")
	}
	if err := access.CanMutateSession(actor, *session); err != nil {
		return 0, err
	}

	applied, err := s.store.UpdateStatuses(ctx, sessionID, updates)
	if err != nil {
		return 0, apperr.Wrap(apperr.Store, "update attendance", err)
	}

	s.publish(ctx, EventAttendanceUpdated, ChangeEvent{
		SessionID: sessionID,
		TeacherID: session.TeacherID,
		UserIDs:   applied,
	})
	return len(applied), nil
}

// SessionAttendance returns a session and its visible records: the whole
// ledger for the owning teacher, the actor's own record for a student.
func (s *Service) SessionAttendance(ctx context.Context, actor model.User, sessionID string) (*model.ClassSession, []model.AttendanceRecord, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Store, "load session", err)
	}
	if session == nil {
		return nil, nil, apperr.New(apperr.NotFound, "class session not found")
	}
	if err := access.CanReadSessionAttendance(actor, *session); err != nil {
		return nil, nil, err
	}

	if actor.Role == model.RoleStudent {
		rec, err := s.store.GetRecord(ctx, actor.ID, sessionID)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.Store, "load record", err)
		}
		if rec == nil {
			return nil, nil, apperr.New(apperr.NotFound, "attendance record not found")
		}
		return session, []model.AttendanceRecord{*rec}, nil
	}

	records, err := s.store.ListSessionRecords(ctx, sessionID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Store, "list records", err)
	}
	return session, records, nil
}

// StudentAttendance returns one student's history, newest first.
func (s *Service) StudentAttendance(ctx context.Context, actor model.User, studentID string, f HistoryFilter) (*model.User, []model.AttendanceRecord, error) {
	if err := access.CanReadStudentAttendance(actor, studentID); err != nil {
		return nil, nil, err
	}
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Store, "lookup student", err)
	}
	if student == nil || student.Role != model.RoleStudent {
		return nil, nil, apperr.New(apperr.NotFound, "student not found")
	}
	records, err := s.store.ListStudentRecords(ctx, studentID, f)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Store, "list records", err)
	}
	return student, records, nil
}

func (s *Service) publish(ctx context.Context, eventType string, evt ChangeEvent) {
	if s.q == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("marshal %s event failed: %v", eventType, err)
		return
	}
	if err := s.q.Publish(ctx, queue.Message{Type: eventType, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
