package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusPending = "pending"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	RecipientClient = "client"
	RecipientAdmin  = "admin"
)

// NotificationRecord is the audit trail of every send attempt.
type NotificationRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	LicenseID        uint      `gorm:"index;not null" json:"license_id"`
	UserID           *uint     `gorm:"index" json:"user_id,omitempty"`
	NotificationType string    `gorm:"size:20;not null" json:"notification_type"` // 30_days, 1_day, expired...
	Channel          string    `gorm:"size:10;not null;default:'email'" json:"channel"`
	Recipient        string    `gorm:"size:191" json:"recipient"`
	RecipientType    string    `gorm:"size:10" json:"recipient_type"`
	NotifyDate       string    `gorm:"size:10;index" json:"notify_date"`
	EmailSentAt      time.Time `json:"email_sent_at"`
	EmailStatus      string    `gorm:"size:10;not null" json:"email_status"` // sent, failed
	Subject          string    `json:"subject"`
	Body             string    `gorm:"type:text" json:"body"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message,omitempty"`
}

func (NotificationRecord) TableName() string {
	return "email_notifications"
}

// NotificationClaim reserves one (license, notification type, day) slot
// before anything is sent. The unique index makes the reservation atomic.
type NotificationClaim struct {
	ID               uint      `gorm:"primaryKey"`
	LicenseID        uint      `gorm:"not null;uniqueIndex:idx_claim_license_type_date,priority:1"`
	NotificationType string    `gorm:"size:20;not null;uniqueIndex:idx_claim_license_type_date,priority:2"`
	NotifyDate       string    `gorm:"size:10;not null;uniqueIndex:idx_claim_license_type_date,priority:3"`
	Status           string    `gorm:"size:10;not null"` // pending, sent, failed
	Token            string    `gorm:"size:36;not null"`
	ClaimedAt        time.Time `gorm:"not null"`
	CompletedAt      *time.Time
}

type NotificationSettings struct {
	ID               uint                     `gorm:"primaryKey" json:"id"`
	UserID           uint                     `gorm:"uniqueIndex;not null" json:"user_id"`
	Enabled          bool                     `gorm:"not null;default:true" json:"enabled"`
	NotificationDays datatypes.JSONSlice[int] `json:"notification_days"`
	NotificationTime string                   `gorm:"size:5;not null;default:'09:00'" json:"notification_time"`
	Timezone         string                   `gorm:"size:64;not null;default:'Asia/Kolkata'" json:"timezone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}
