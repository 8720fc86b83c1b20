package access

import (
	"testing"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

var (
	teacher = model.User{ID: "t1", Role: model.RoleTeacher, ClassName: "FY", Department: "CSE"}
	student = model.User{ID: "s1", Role: model.RoleStudent, ClassName: "FY", Department: "CSE"}
	session = model.ClassSession{ID: "cs1", TeacherID: "t1", ClassName: "FY", Department: "CSE"}
)

func wantDenied(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected PermissionDenied, got nil")
	}
	if !apperr.IsKind(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestCanRecordAttendance(t *testing.T) {
	if err := CanRecordAttendance(teacher); err != nil {
		t.Fatalf("teacher denied: %v", err)
	}
	wantDenied(t, CanRecordAttendance(student))
	wantDenied(t, CanRecordAttendance(model.User{Role: "admin"}))
}

func TestCanMutateSession(t *testing.T) {
	if err := CanMutateSession(teacher, session); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	other := model.User{ID: "t2", Role: model.RoleTeacher}
	wantDenied(t, CanMutateSession(other, session))
	wantDenied(t, CanMutateSession(student, session))
}

func TestCanReadSessionAttendance(t *testing.T) {
	if err := CanReadSessionAttendance(teacher, session); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	other := model.User{ID: "t2", Role: model.RoleTeacher}
	wantDenied(t, CanReadSessionAttendance(other, session))
	// Students pass the gate; the caller narrows them to their own record.
	if err := CanReadSessionAttendance(student, session); err != nil {
		t.Fatalf("student denied: %v", err)
	}
}

func TestCanReadStudentAttendance(t *testing.T) {
	if err := CanReadStudentAttendance(student, "s1"); err != nil {
		t.Fatalf("self read denied: %v", err)
	}
	wantDenied(t, CanReadStudentAttendance(student, "s2"))
	if err := CanReadStudentAttendance(teacher, "s2"); err != nil {
		t.Fatalf("teacher read denied: %v", err)
	}
}

func TestCanReadUser(t *testing.T) {
	if err := CanReadUser(student, student); err != nil {
		t.Fatalf("self read denied: %v", err)
	}
	otherStudent := model.User{ID: "s2", Role: model.RoleStudent, ClassName: "FY", Department: "CSE"}
	wantDenied(t, CanReadUser(student, otherStudent))

	if err := CanReadUser(teacher, otherStudent); err != nil {
		t.Fatalf("teacher read of own-class student denied: %v", err)
	}
	foreign := model.User{ID: "s3", Role: model.RoleStudent, ClassName: "SY", Department: "CSE"}
	wantDenied(t, CanReadUser(teacher, foreign))
}

func TestCanUpdateUser(t *testing.T) {
	if err := CanUpdateUser(student, student); err != nil {
		t.Fatalf("self update denied: %v", err)
	}
	other := model.User{ID: "s2", Role: model.RoleStudent}
	wantDenied(t, CanUpdateUser(student, other))
	if err := CanUpdateUser(teacher, other); err != nil {
		t.Fatalf("teacher update denied: %v", err)
	}
}

func TestCanManageAccounts(t *testing.T) {
	if err := CanManageAccounts(teacher); err != nil {
		t.Fatalf("teacher denied: %v", err)
	}
	wantDenied(t, CanManageAccounts(student))
}
