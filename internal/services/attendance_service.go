package services

import (
	"errors"
	"sort"
	"time"

	"liveclass/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttendanceService derives and persists per-participant attendance from
// join/leave timing. All writes go through the (session, participant) unique
// index with on-conflict semantics; there is no application-level locking.
type AttendanceService struct {
	db    *gorm.DB
	grace time.Duration
}

func NewAttendanceService(db *gorm.DB, grace time.Duration) *AttendanceService {
	return &AttendanceService{db: db, grace: grace}
}

// GraceWindow returns the configured lateness allowance
func (s *AttendanceService) GraceWindow() time.Duration {
	return s.grace
}

// VerifyEnrollment checks that the student has a confirmed enrollment in the group
func (s *AttendanceService) VerifyEnrollment(groupID, studentID uint) error {
	var count int64
	err := s.db.Model(&models.Enrollment{}).
		Where("group_id = ? AND student_id = ? AND status = ?", groupID, studentID, models.EnrollmentConfirmed).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotEnrolled
	}
	return nil
}

// RecordLeaderJoin upserts the leader's presence record. A repeated leader
// join keeps the original row untouched.
func (s *AttendanceService) RecordLeaderJoin(sessionID string, leaderID uint, at time.Time) error {
	rec := models.AttendanceRecord{
		SessionID:     sessionID,
		ParticipantID: leaderID,
		Status:        models.AttendanceLeaderJoined,
		JoinTime:      &at,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
		DoNothing: true,
	}).Create(&rec).Error
}

// LeaderPresent reports whether the leader's presence record exists
func (s *AttendanceService) LeaderPresent(sessionID string, leaderID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.AttendanceRecord{}).
		Where("session_id = ? AND participant_id = ? AND status = ?",
			sessionID, leaderID, models.AttendanceLeaderJoined).
		Count(&count).Error
	return count > 0, err
}

// RecordParticipantJoin upserts the participant's attendance row, classifying
// the join as present or late against the scheduled start and the grace
// window. Concurrent joins by the same participant collapse onto one row; a
// rejoin keeps the first join's timing and status.
func (s *AttendanceService) RecordParticipantJoin(session *models.Session, participantID uint, at time.Time) (models.AttendanceStatus, error) {
	status := models.AttendancePresent
	if at.After(session.ScheduledStart.Add(s.grace)) {
		status = models.AttendanceLate
	}

	rec := models.AttendanceRecord{
		SessionID:     session.ID,
		ParticipantID: participantID,
		Status:        status,
		JoinTime:      &at,
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
		DoNothing: true,
	}).Create(&rec)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		// Rejoin: report the status already on record
		var existing models.AttendanceRecord
		if err := s.db.Where("session_id = ? AND participant_id = ?", session.ID, participantID).
			First(&existing).Error; err != nil {
			return "", err
		}
		return existing.Status, nil
	}
	return status, nil
}

// Finalize stamps a leave time on every open attendance row of the session
// and downgrades participants who attended less than half of it. Rows that
// already carry a leave time are left untouched, so re-finalizing is a no-op.
func (s *AttendanceService) Finalize(session *models.Session, endTime time.Time) error {
	var open []models.AttendanceRecord
	if err := s.db.Where("session_id = ? AND leave_time IS NULL", session.ID).Find(&open).Error; err != nil {
		return err
	}

	for i := range open {
		rec := &open[i]
		rec.LeaveTime = &endTime
		if rec.JoinTime != nil {
			rec.DurationMinutes = int(endTime.Sub(*rec.JoinTime).Minutes())
			if rec.DurationMinutes < 0 {
				rec.DurationMinutes = 0
			}
		}
		if !rec.IsManuallyMarked && session.DurationMinutes > 0 &&
			(rec.Status == models.AttendancePresent || rec.Status == models.AttendanceLate) {
			if float64(rec.DurationMinutes)/float64(session.DurationMinutes) < 0.5 {
				rec.Status = models.AttendanceLeftEarly
			}
		}
		err := s.db.Model(rec).Select("leave_time", "duration_minutes", "status").
			Updates(models.AttendanceRecord{
				LeaveTime:       rec.LeaveTime,
				DurationMinutes: rec.DurationMinutes,
				Status:          rec.Status,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkManually lets the session's leader overwrite a participant's status.
// A missing row is created first with a default of absent.
func (s *AttendanceService) MarkManually(session *models.Session, participantID uint, status models.AttendanceStatus, markerID uint, notes string) error {
	if markerID != session.LeaderID {
		return ErrForbidden
	}

	var rec models.AttendanceRecord
	err := s.db.Where("session_id = ? AND participant_id = ?", session.ID, participantID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.AttendanceRecord{
			SessionID:     session.ID,
			ParticipantID: participantID,
			Status:        models.AttendanceAbsent,
		}
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
			DoNothing: true,
		}).Create(&rec).Error; err != nil {
			return err
		}
		if err := s.db.Where("session_id = ? AND participant_id = ?", session.ID, participantID).First(&rec).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	now := time.Now()
	return s.db.Model(&rec).Select("status", "is_manually_marked", "marked_by", "marked_at", "notes").
		Updates(models.AttendanceRecord{
			Status:           status,
			IsManuallyMarked: true,
			MarkedBy:         &markerID,
			MarkedAt:         &now,
			Notes:            notes,
		}).Error
}

// SimpleReport left-joins the group's confirmed enrollment against the
// session's attendance rows, synthesizing absent entries for students with no
// row. The summary buckets always partition the enrollment exactly.
func (s *AttendanceService) SimpleReport(session *models.Session) (*models.AttendanceReport, error) {
	var enrollments []models.Enrollment
	err := s.db.Where("group_id = ? AND status = ?", session.GroupID, models.EnrollmentConfirmed).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	// Deduplicate by student
	seen := make(map[uint]bool, len(enrollments))
	studentIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			studentIDs = append(studentIDs, e.StudentID)
		}
	}

	accounts := make(map[uint]models.Account, len(studentIDs))
	if len(studentIDs) > 0 {
		var accountRows []models.Account
		if err := s.db.Where("id IN ?", studentIDs).Find(&accountRows).Error; err != nil {
			return nil, err
		}
		for _, a := range accountRows {
			accounts[a.ID] = a
		}
	}

	var records []models.AttendanceRecord
	err = s.db.Where("session_id = ? AND status <> ?", session.ID, models.AttendanceLeaderJoined).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// Deduplicate by participant, keeping the latest join time on conflict
	byParticipant := make(map[uint]models.AttendanceRecord, len(records))
	for _, r := range records {
		prev, ok := byParticipant[r.ParticipantID]
		if !ok {
			byParticipant[r.ParticipantID] = r
			continue
		}
		if r.JoinTime != nil && (prev.JoinTime == nil || r.JoinTime.After(*prev.JoinTime)) {
			byParticipant[r.ParticipantID] = r
		}
	}

	sort.Slice(studentIDs, func(i, j int) bool { return studentIDs[i] < studentIDs[j] })

	report := &models.AttendanceReport{SessionID: session.ID}
	report.Summary.Total = len(studentIDs)
	for _, id := range studentIDs {
		row := models.ReportRow{StudentID: id, Status: models.AttendanceAbsent}
		if acc, ok := accounts[id]; ok {
			row.FullName = acc.FullName
			row.Email = acc.Email
		}
		if rec, ok := byParticipant[id]; ok {
			row.Status = rec.Status
			row.JoinTime = rec.JoinTime
			row.LeaveTime = rec.LeaveTime
			row.DurationMinutes = rec.DurationMinutes
			row.Notes = rec.Notes
		}
		switch row.Status {
		case models.AttendancePresent:
			report.Summary.Present++
		case models.AttendanceLate:
			report.Summary.Late++
		case models.AttendanceLeftEarly:
			// Left-early is an overlay: the row still counts in the bucket
			// its join timing implies, so Present+Late+Absent stays a
			// partition of the enrollment.
			report.Summary.LeftEarly++
			switch {
			case row.JoinTime == nil:
				report.Summary.Absent++
			case row.JoinTime.After(session.ScheduledStart.Add(s.grace)):
				report.Summary.Late++
			default:
				report.Summary.Present++
			}
		default:
			report.Summary.Absent++
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}
