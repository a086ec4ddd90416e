package domain

import "time"

const (
	ScanStatusQueued = "queued"
	ScanStatusFailed = "dispatch_failed"
)

type ScanRequest struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	Target    string      `gorm:"not null;size:253" json:"target"`
	IsIP      bool        `gorm:"not null;default:false" json:"is_ip"`
	Warnings  WarningList `gorm:"type:text" json:"warnings,omitempty"`
	Status    string      `gorm:"not null;size:32;default:'queued'" json:"status"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}
