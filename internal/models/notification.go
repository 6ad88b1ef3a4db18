package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a created-only record handed off to the notification
// collaborator. The payload carries session identity, lesson/group titles and
// a pre-built join URL so the consumer never has to re-derive them.
type Notification struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID uint           `gorm:"not null;index" json:"recipient_id"`
	Type        string         `gorm:"size:30;not null" json:"type"` // session_reminder, session_started
	Message     string         `gorm:"size:500;not null" json:"message"`
	SessionID   string         `gorm:"size:64;not null;index" json:"session_id"`
	Payload     datatypes.JSON `gorm:"type:json" json:"payload"`
	Read        bool           `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notification"
}

// NotificationPayload is the JSON body stored on a notification
type NotificationPayload struct {
	SessionID   string    `json:"session_id"`
	Title       string    `json:"title"`
	LessonTitle string    `json:"lesson_title"`
	GroupName   string    `json:"group_name"`
	StartsAt    time.Time `json:"starts_at"`
	JoinURL     string    `json:"join_url"`
}
