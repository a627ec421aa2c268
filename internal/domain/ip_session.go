package domain

import (
	"time"

	"github.com/google/uuid"
)

// IPSession binds a user to a recently seen public IP.
type IPSession struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_ip_sessions_user_ip" json:"user_id"`
	IPAddress  string    `gorm:"size:64;not null;uniqueIndex:ux_ip_sessions_user_ip" json:"ip_address"`
	LastActive time.Time `gorm:"not null;index" json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (IPSession) TableName() string { return "ip_sessions" }

// FreshAt reports whether the record was active strictly less than window
// before now.
func (s *IPSession) FreshAt(now time.Time, window time.Duration) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.LastActive) < window
}
