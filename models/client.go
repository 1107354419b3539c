package models

import (
	"time"

	"gorm.io/gorm"
)

type Client struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        *uint  `gorm:"index" json:"user_id,omitempty"`
	Name          string `gorm:"not null" json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `gorm:"size:191;index" json:"email"`
	Phone         string `json:"phone"`
	Address       string `gorm:"type:text" json:"address"`
	GSTNumber     string `gorm:"column:gst_number" json:"gst_number"`
	PANNumber     string `gorm:"column:pan_number" json:"pan_number"`

	Licenses []License `gorm:"foreignKey:ClientID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName is the name used to greet the client in notifications.
func (c *Client) DisplayName() string {
	if c.ContactPerson != "" {
		return c.ContactPerson
	}
	return c.Name
}
