package services

import (
	"encoding/json"
	"time"

	"liveclass/internal/models"

	"gorm.io/gorm"
)

// createNotification writes one notification row for the recipient. The
// payload carries everything the notification collaborator needs so it never
// has to query session state itself.
func createNotification(db *gorm.DB, recipientID uint, notifType, message string, payload models.NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	notif := models.Notification{
		RecipientID: recipientID,
		Type:        notifType,
		Message:     message,
		SessionID:   payload.SessionID,
		Payload:     body,
		CreatedAt:   time.Now(),
		Read:        false,
	}
	return db.Create(&notif).Error
}
