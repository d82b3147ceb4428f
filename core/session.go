package core

import "strings"

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

// RoleFromString normalises a stored or claimed role. Anything unknown is a student.
func RoleFromString(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleTeacher:
		return r
	default:
		return RoleStudent
	}
}

// Session identifies the caller of an operation. It is built per request and passed explicitly.
type Session struct {
	UserID string
	Email  string
	Role   string
}

func (s Session) IsAuthenticated() bool { return s.UserID != "" }
func (s Session) IsAdmin() bool         { return s.Role == RoleAdmin }
func (s Session) IsTeacher() bool       { return s.Role == RoleTeacher }
func (s Session) IsStudent() bool       { return s.IsAuthenticated() && s.Role == RoleStudent }

// IsStaff reports whether the caller may manage school data (admin or teacher).
func (s Session) IsStaff() bool { return s.IsAdmin() || s.IsTeacher() }
