package services

import (
	"context"
	"log"
	"time"

	"liveclass/internal/models"

	"gorm.io/gorm"
)

// ReconcileWorker keeps local session state consistent with the conference
// server, which can end sessions on its own. Each sweep checks every locally
// active session; failures are isolated per session so one broken check never
// aborts the rest.
type ReconcileWorker struct {
	db       *gorm.DB
	meetings *MeetingService
	interval time.Duration
	timeout  time.Duration
	stop     chan struct{}
}

func NewReconcileWorker(db *gorm.DB, meetings *MeetingService, interval, timeout time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		db:       db,
		meetings: meetings,
		interval: interval,
		timeout:  timeout,
		stop:     make(chan struct{}),
	}
}

func (w *ReconcileWorker) Start() {
	go w.run()
}

func (w *ReconcileWorker) Stop() {
	close(w.stop)
}

func (w *ReconcileWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

func (w *ReconcileWorker) sweep() {
	var sessions []models.Session
	if err := w.db.Where("status = ?", models.SessionActive).Find(&sessions).Error; err != nil {
		log.Printf("Error: reconcile sweep query failed: %v", err)
		return
	}

	for _, session := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		closed, err := w.meetings.Reconcile(ctx, session.ID)
		cancel()
		if err != nil {
			log.Printf("Warning: reconcile check failed for session %s: %v", session.ID, err)
			continue
		}
		if closed {
			log.Printf("Session %s ended remotely, closed and finalized attendance", session.ID)
		}
	}
}
