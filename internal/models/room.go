package models

import "time"

type Room struct {
	Code      string    `gorm:"type:varchar(12);primaryKey" json:"code"`
	CreatedBy string    `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	// Active=false means the room is logically deleted. The row stays so
	// the code can never be handed out again.
	Active bool `gorm:"not null;default:true;index" json:"active"`
}
