// Package model holds the persistent entities shared by the feature packages.
// Relationships are plain foreign-key fields; queries reconstruct joins
// explicitly instead of traversing an object graph.
package model

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher:
		return true
	}
	return false
}

// Status is the closed set of attendance states.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// User is an identity row. PRN is the immutable enrollment/staff number.
type User struct {
	ID           string    `json:"id"`
	PRN          string    `json:"prn"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	ClassName    string    `json:"class_name"`
	Department   string    `json:"department"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClassSession is one scheduled class meeting. The roll range is display
// metadata only; enrollment is resolved from (class_name, department).
type ClassSession struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	ClassName  string    `json:"class_name"`
	Department string    `json:"department"`
	Division   *string   `json:"division,omitempty"`
	Date       time.Time `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	TeacherID  string    `json:"teacher_id"`
	RollStart  *int      `json:"roll_start,omitempty"`
	RollEnd    *int      `json:"roll_end,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttendanceRecord is one row per (student, session). user_id is the student
// the row is about; recorded_by is the teacher who took attendance.
type AttendanceRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ClassSessionID string    `json:"class_session_id"`
	Status         Status    `json:"status"`
	RecordedAt     time.Time `json:"recorded_at"`
	RecordedBy     *string   `json:"recorded_by,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}
