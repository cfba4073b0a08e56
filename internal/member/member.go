package member

import "time"

// Role is the authorization-significant member role. It is assigned by
// the club backend and is never writable from this service.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Member is the club backend's profile record for one provider identity.
// IdentityID is unique: the backend holds at most one member per identity.
type Member struct {
	ID         int64     `json:"id"`
	IdentityID string    `json:"user_id"`
	Name       string    `json:"name"`
	Handle     string    `json:"handle,omitempty"`
	Points     int       `json:"points"`
	BooksRead  int       `json:"books_read"`
	Clubs      []string  `json:"clubs,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// NewMember is the creation payload for first-ever sign-ins.
type NewMember struct {
	Name       string `json:"name"`
	Points     int    `json:"points"`
	BooksRead  int    `json:"books_read"`
	IdentityID string `json:"user_id"`
}

func (m *Member) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}
