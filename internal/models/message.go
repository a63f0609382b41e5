package models

import "time"

type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// ValidRole reports whether r is one of the known participant roles.
func ValidRole(r Role) bool {
	return r == RoleLeader || r == RoleMember
}

type Message struct {
	// ID is assigned by the repository at insert time, never by clients.
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomCode string `gorm:"type:varchar(12);not null;index" json:"room_code"`

	// Author is the display name at send time. Renames do not rewrite history.
	Author  string `gorm:"type:varchar(100);not null" json:"author"`
	Content string `gorm:"type:text;not null" json:"content"`

	// Timestamp is the primary ordering key; ID breaks ties.
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
}
