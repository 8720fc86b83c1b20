// Package access holds the authorization predicate. Every rule is a pure
// function over the actor and the target; a denied check always surfaces as
// a PermissionDenied error, never as an empty result. Switches over Role are
// exhaustive so an unknown role denies rather than falling through.
package access

import (
	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// CanRecordAttendance allows only teachers to create sessions and bulk-enroll
// attendance.
func CanRecordAttendance(actor model.User) error {
	switch actor.Role {
	case model.RoleTeacher:
		return nil
	case model.RoleStudent:
		return apperr.New(apperr.PermissionDenied, "only teachers can record attendance")
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanMutateSession allows the owning teacher to update a session's records.
func CanMutateSession(actor model.User, session model.ClassSession) error {
	switch actor.Role {
	case model.RoleTeacher:
		if session.TeacherID != actor.ID {
			return apperr.New(apperr.PermissionDenied, "you can only update attendance for your own classes")
		}
		return nil
	case model.RoleStudent:
		return apperr.New(apperr.PermissionDenied, "only teachers can update attendance")
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanReadSessionAttendance gates reads of a session's ledger. Teachers see
// only sessions they own; students see only their own record, which the
// caller fetches separately.
func CanReadSessionAttendance(actor model.User, session model.ClassSession) error {
	switch actor.Role {
	case model.RoleTeacher:
		if session.TeacherID != actor.ID {
			return apperr.New(apperr.PermissionDenied, "access denied")
		}
		return nil
	case model.RoleStudent:
		return nil
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanReadStudentAttendance gates reads of one student's history. A student
// may read only their own; a teacher may read any student's.
func CanReadStudentAttendance(actor model.User, studentID string) error {
	switch actor.Role {
	case model.RoleTeacher:
		return nil
	case model.RoleStudent:
		if actor.ID != studentID {
			return apperr.New(apperr.PermissionDenied, "access denied")
		}
		return nil
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanReadUser gates single-user reads. Students see only themselves; a
// teacher sees students of their own class and department, plus themselves.
func CanReadUser(actor, target model.User) error {
	switch actor.Role {
	case model.RoleStudent:
		if actor.ID != target.ID {
			return apperr.New(apperr.PermissionDenied, "access denied")
		}
		return nil
	case model.RoleTeacher:
		if target.Role == model.RoleStudent &&
			(target.ClassName != actor.ClassName || target.Department != actor.Department) {
			return apperr.New(apperr.PermissionDenied, "access denied")
		}
		return nil
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanUpdateUser gates profile updates. Students may update only themselves.
func CanUpdateUser(actor, target model.User) error {
	switch actor.Role {
	case model.RoleStudent:
		if actor.ID != target.ID {
			return apperr.New(apperr.PermissionDenied, "access denied")
		}
		return nil
	case model.RoleTeacher:
		return nil
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}

// CanManageAccounts allows only teachers to activate or deactivate accounts.
func CanManageAccounts(actor model.User) error {
	switch actor.Role {
	case model.RoleTeacher:
		return nil
	case model.RoleStudent:
		return apperr.New(apperr.PermissionDenied, "access denied")
	default:
		return apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role)
	}
}
