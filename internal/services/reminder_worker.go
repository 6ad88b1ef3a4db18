package services

import (
	"fmt"
	"log"
	"time"

	"liveclass/internal/models"

	"gorm.io/gorm"
)

// ReminderWorker dispatches a one-time notification ahead of each scheduled
// session start. It polls on a fixed period; the persisted reminder_sent flag
// is the only durable dedupe, so restarts can never double-send and sessions
// scheduled while the process was down are picked up by the next sweep.
type ReminderWorker struct {
	db           *gorm.DB
	emailService *EmailService
	lead         time.Duration
	interval     time.Duration
	stop         chan struct{}
}

func NewReminderWorker(db *gorm.DB, emailService *EmailService, lead, interval time.Duration) *ReminderWorker {
	return &ReminderWorker{
		db:           db,
		emailService: emailService,
		lead:         lead,
		interval:     interval,
		stop:         make(chan struct{}),
	}
}

func (w *ReminderWorker) Start() {
	go w.run()
}

func (w *ReminderWorker) Stop() {
	close(w.stop)
}

func (w *ReminderWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkUpcomingSessions()
		case <-w.stop:
			return
		}
	}
}

// checkUpcomingSessions finds scheduled sessions whose start falls inside the
// lead window and whose reminder has not been sent yet
func (w *ReminderWorker) checkUpcomingSessions() {
	now := time.Now()

	var sessions []models.Session
	err := w.db.Where("status = ? AND reminder_sent = ? AND scheduled_start > ? AND scheduled_start <= ?",
		models.SessionScheduled, false, now, now.Add(w.lead)).
		Find(&sessions).Error
	if err != nil {
		log.Printf("Error: reminder sweep query failed: %v", err)
		return
	}

	for _, session := range sessions {
		// Claim the session by flipping the flag first; the guarded update
		// makes the reminder at-most-once even with overlapping sweeps
		result := w.db.Model(&models.Session{}).
			Where("id = ? AND reminder_sent = ?", session.ID, false).
			Update("reminder_sent", true)
		if result.Error != nil {
			log.Printf("Error: failed to claim reminder for session %s: %v", session.ID, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		w.dispatchReminder(session)
	}
}

// dispatchReminder notifies the leader and every confirmed student. Failures
// are logged and not retried; the flag stays set because session timing is
// authoritative and notification is best effort.
func (w *ReminderWorker) dispatchReminder(session models.Session) {
	var lesson models.Lesson
	if err := w.db.First(&lesson, session.LessonID).Error; err != nil {
		log.Printf("Warning: reminder for session %s missing lesson: %v", session.ID, err)
	}
	var group models.ClassGroup
	if err := w.db.First(&group, session.GroupID).Error; err != nil {
		log.Printf("Warning: reminder for session %s missing group: %v", session.ID, err)
	}

	var enrollments []models.Enrollment
	err := w.db.Where("group_id = ? AND status = ?", session.GroupID, models.EnrollmentConfirmed).
		Find(&enrollments).Error
	if err != nil {
		log.Printf("Warning: failed to load enrollments for reminder: %v", err)
		return
	}

	recipients := make([]uint, 0, len(enrollments)+1)
	recipients = append(recipients, session.LeaderID)
	for _, e := range enrollments {
		recipients = append(recipients, e.StudentID)
	}

	msg := fmt.Sprintf("'%s' starts at %s", session.Title, session.ScheduledStart.Format("15:04"))
	for _, recipientID := range recipients {
		joinURL := fmt.Sprintf("/join/%s/participant/%d", session.ID, recipientID)
		if recipientID == session.LeaderID {
			joinURL = fmt.Sprintf("/join/%s/leader/%d", session.ID, recipientID)
		}

		payload := models.NotificationPayload{
			SessionID:   session.ID,
			Title:       session.Title,
			LessonTitle: lesson.Title,
			GroupName:   group.Name,
			StartsAt:    session.ScheduledStart,
			JoinURL:     joinURL,
		}
		if err := createNotification(w.db, recipientID, "session_reminder", msg, payload); err != nil {
			log.Printf("Warning: failed to create reminder notification for account %d: %v", recipientID, err)
			continue
		}
		if w.emailService != nil {
			var account models.Account
			if err := w.db.First(&account, recipientID).Error; err == nil {
				if err := w.emailService.SendSessionReminder(account, session, lesson.Title, joinURL); err != nil {
					log.Printf("Warning: failed to send reminder email to %s: %v", account.Email, err)
				}
			}
		}
	}

	remindersDispatched.Inc()
	log.Printf("Sent reminder for session %s to %d recipients", session.ID, len(recipients))
}
