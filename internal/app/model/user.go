package model

type UserRole string // 사용자 권한 타입

const (
	RoleUser  UserRole = "user"  // 일반 사용자 권한
	RoleAdmin UserRole = "admin" // 관리자 권한
)

type SessionUser struct {
	ID    string   `json:"_id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

// Session is the remote auth check result. User is nil for anonymous visitors.
type Session struct {
	User *SessionUser `json:"user"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.User.Role == RoleAdmin
}
