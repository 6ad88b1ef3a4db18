package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"liveclass/internal/conference"
	"liveclass/internal/models"
	"liveclass/internal/timeparse"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConferenceClient is the narrow contract the meeting service needs from the
// conferencing backend. *conference.Client satisfies it; tests substitute a
// stub.
type ConferenceClient interface {
	Create(ctx context.Context, req conference.CreateRequest) (conference.CreateResponse, error)
	IsRunning(ctx context.Context, meetingID string) (bool, error)
	End(ctx context.Context, meetingID, moderatorPW string) error
	JoinURL(meetingID, fullName, password string) string
}

// MeetingService owns the session state machine and the join gate
type MeetingService struct {
	db         *gorm.DB
	conf       ConferenceClient
	attendance *AttendanceService
	email      *EmailService
}

func NewMeetingService(db *gorm.DB, conf ConferenceClient, attendance *AttendanceService, email *EmailService) *MeetingService {
	return &MeetingService{db: db, conf: conf, attendance: attendance, email: email}
}

// ScheduleInput carries a scheduling request after binding. Either
// Date (+ Time + DateFormat) or the legacy combined Start string is set.
type ScheduleInput struct {
	Title           string
	LessonID        uint
	GroupID         uint
	LeaderID        uint
	Date            string
	Time            string
	DateFormat      timeparse.DateFormat
	Start           string
	DurationMinutes int
}

// Schedule validates timing, provisions the remote session and persists the
// local record. The remote call happens first: a conferencing failure must
// leave no local state behind.
func (s *MeetingService) Schedule(ctx context.Context, in ScheduleInput) (*models.Session, error) {
	if err := timeparse.ValidateDuration(in.DurationMinutes); err != nil {
		return nil, err
	}

	var start time.Time
	var err error
	if in.Start != "" {
		start, err = timeparse.NormalizeLegacy(in.Start)
	} else {
		format := in.DateFormat
		if format == "" {
			format = timeparse.FormatDMY
		}
		start, err = timeparse.Normalize(in.Date, in.Time, format)
	}
	if err != nil {
		return nil, err
	}

	var lesson models.Lesson
	if err := s.db.First(&lesson, in.LessonID).Error; err != nil {
		return nil, fmt.Errorf("%w: lesson %d", ErrNotFound, in.LessonID)
	}
	var group models.ClassGroup
	if err := s.db.First(&group, in.GroupID).Error; err != nil {
		return nil, fmt.Errorf("%w: group %d", ErrNotFound, in.GroupID)
	}
	var leader models.Account
	if err := s.db.First(&leader, in.LeaderID).Error; err != nil {
		return nil, fmt.Errorf("%w: leader account %d", ErrNotFound, in.LeaderID)
	}

	// At most one live session per (lesson, group)
	var liveCount int64
	err = s.db.Model(&models.Session{}).
		Where("lesson_id = ? AND group_id = ? AND status IN ?",
			in.LessonID, in.GroupID, []models.SessionStatus{models.SessionScheduled, models.SessionActive}).
		Count(&liveCount).Error
	if err != nil {
		return nil, err
	}
	if liveCount > 0 {
		return nil, ErrDuplicateSession
	}

	sessionID := uuid.NewString()
	attendeePW := uuid.NewString()
	moderatorPW := uuid.NewString()

	created, err := s.conf.Create(ctx, conference.CreateRequest{
		MeetingID:   sessionID,
		Name:        in.Title,
		AttendeePW:  attendeePW,
		ModeratorPW: moderatorPW,
		Duration:    in.DurationMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	now := time.Now()
	session := models.Session{
		ID:              created.MeetingID,
		Title:           in.Title,
		LessonID:        in.LessonID,
		GroupID:         in.GroupID,
		LeaderID:        in.LeaderID,
		Status:          models.SessionScheduled,
		ScheduledStart:  start,
		DurationMinutes: in.DurationMinutes,
		AttendeePW:      attendeePW,
		ModeratorPW:     moderatorPW,
		JoinURLs: models.JoinURLPair{
			Leader:      fmt.Sprintf("/join/%s/leader/%d", created.MeetingID, in.LeaderID),
			Participant: fmt.Sprintf("/join/%s/participant/", created.MeetingID),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if timeparse.IsImmediate(start, now) {
		session.Status = models.SessionActive
		session.ActualStart = &now
	}

	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}
	s.logEvent(session.ID, in.LeaderID, "scheduled")
	return &session, nil
}

// Get resolves a session by ID
func (s *MeetingService) Get(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, err
	}
	return &session, nil
}

// RequestJoin is the join gate. It enforces leader-before-participant,
// records the join attempt and returns the signed external join link.
func (s *MeetingService) RequestJoin(ctx context.Context, sessionID string, participantID uint, role models.Role) (string, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		joinsDenied.WithLabelValues("not_found").Inc()
		return "", err
	}
	if session.Status.IsTerminal() {
		joinsDenied.WithLabelValues("session_over").Inc()
		return "", fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}

	var account models.Account
	if err := s.db.First(&account, participantID).Error; err != nil {
		joinsDenied.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("%w: account %d", ErrNotFound, participantID)
	}

	now := time.Now()
	switch role {
	case models.JoinLeader:
		if participantID != session.LeaderID {
			joinsDenied.WithLabelValues("forbidden").Inc()
			return "", fmt.Errorf("%w: only the session leader may join as leader", ErrForbidden)
		}
		if err := s.attendance.RecordLeaderJoin(session.ID, participantID, now); err != nil {
			return "", err
		}
		if session.Status == models.SessionScheduled {
			if err := s.activate(session, now); err != nil {
				return "", err
			}
			s.notifySessionStarted(session)
		}

	case models.JoinParticipant:
		if err := s.attendance.VerifyEnrollment(session.GroupID, participantID); err != nil {
			joinsDenied.WithLabelValues("not_enrolled").Inc()
			return "", err
		}

		present, err := s.attendance.LeaderPresent(session.ID, session.LeaderID)
		if err != nil {
			return "", err
		}
		if !present {
			// The leader may have opened the room on the conference server
			// without going through this gate
			running, err := s.conf.IsRunning(ctx, session.ID)
			if err != nil {
				log.Printf("Warning: is-running check failed for session %s: %v", session.ID, err)
			}
			if err != nil || !running {
				joinsDenied.WithLabelValues("leader_absent").Inc()
				return "", ErrLeaderAbsent
			}
			if session.Status == models.SessionScheduled {
				if err := s.activate(session, now); err != nil {
					return "", err
				}
			}
		}

		if _, err := s.attendance.RecordParticipantJoin(session, participantID, now); err != nil {
			return "", err
		}

	default:
		joinsDenied.WithLabelValues("bad_role").Inc()
		return "", fmt.Errorf("%w: unknown role", ErrForbidden)
	}

	joinsGranted.WithLabelValues(string(role)).Inc()
	return s.conf.JoinURL(session.ID, account.FullName, role.Password(session)), nil
}

// activate transitions scheduled → active, guarded on current status so a
// concurrent transition wins exactly once.
func (s *MeetingService) activate(session *models.Session, at time.Time) error {
	result := s.db.Model(&models.Session{}).
		Where("id = ? AND status = ?", session.ID, models.SessionScheduled).
		Updates(map[string]interface{}{"status": models.SessionActive, "actual_start": at, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		session.Status = models.SessionActive
		session.ActualStart = &at
		s.logEvent(session.ID, session.LeaderID, "started")
	} else {
		// Lost the race; reload so callers see current state
		refreshed, err := s.Get(session.ID)
		if err != nil {
			return err
		}
		*session = *refreshed
	}
	return nil
}

// End terminates an active session. Only the leader may end it unless forced.
// The remote end call is best effort: local state is authoritative for
// attendance and the remote side times out on its own.
func (s *MeetingService) End(ctx context.Context, sessionID string, requesterID uint, force bool) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionActive {
		return fmt.Errorf("%w: cannot end a %s session", ErrInvalidState, session.Status)
	}
	if !force && requesterID != session.LeaderID {
		return fmt.Errorf("%w: only the session leader may end it", ErrForbidden)
	}

	if err := s.conf.End(ctx, session.ID, session.ModeratorPW); err != nil {
		log.Printf("Warning: remote end failed for session %s: %v", session.ID, err)
	}
	return s.close(session, time.Now(), requesterID, "ended")
}

// Cancel aborts a scheduled or active session. The reminder flag is set
// defensively so a later sweep can never fire for a cancelled session.
func (s *MeetingService) Cancel(ctx context.Context, sessionID string, requesterID uint) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel a %s session", ErrInvalidState, session.Status)
	}
	if requesterID != session.LeaderID {
		return fmt.Errorf("%w: only the session leader may cancel it", ErrForbidden)
	}

	wasActive := session.Status == models.SessionActive
	result := s.db.Model(&models.Session{}).
		Where("id = ? AND status IN ?", session.ID,
			[]models.SessionStatus{models.SessionScheduled, models.SessionActive}).
		Updates(map[string]interface{}{
			"status":        models.SessionCancelled,
			"reminder_sent": true,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session already closed", ErrInvalidState)
	}

	if wasActive {
		if err := s.conf.End(ctx, session.ID, session.ModeratorPW); err != nil {
			log.Printf("Warning: remote end failed for cancelled session %s: %v", session.ID, err)
		}
	}
	s.logEvent(session.ID, requesterID, "cancelled")
	return nil
}

// Reconcile checks one locally-active session against the conference server
// and closes it if the remote session has ended. Returns true when the
// session was closed by this call.
func (s *MeetingService) Reconcile(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return false, err
	}
	if session.Status != models.SessionActive {
		return false, nil
	}

	running, err := s.conf.IsRunning(ctx, session.ID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if running {
		return false, nil
	}

	if err := s.close(session, time.Now(), session.LeaderID, "auto_closed"); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Someone else closed it between the check and the transition
			return false, nil
		}
		return false, err
	}
	sessionsAutoClosed.Inc()
	return true, nil
}

// close transitions active → ended, guarded on current status, then finalizes
// attendance for the session.
func (s *MeetingService) close(session *models.Session, endTime time.Time, actorID uint, eventType string) error {
	result := s.db.Model(&models.Session{}).
		Where("id = ? AND status = ?", session.ID, models.SessionActive).
		Updates(map[string]interface{}{
			"status":     models.SessionEnded,
			"actual_end": endTime,
			"updated_at": endTime,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session already closed", ErrInvalidState)
	}
	session.Status = models.SessionEnded
	session.ActualEnd = &endTime
	s.logEvent(session.ID, actorID, eventType)
	return s.attendance.Finalize(session, endTime)
}

// notifySessionStarted hands one notification per confirmed student to the
// notification collaborator. Best effort: a failure is logged and never
// blocks the leader's join.
func (s *MeetingService) notifySessionStarted(session *models.Session) {
	var lesson models.Lesson
	if err := s.db.First(&lesson, session.LessonID).Error; err != nil {
		log.Printf("Warning: failed to load lesson for start notice: %v", err)
		return
	}
	var group models.ClassGroup
	if err := s.db.First(&group, session.GroupID).Error; err != nil {
		log.Printf("Warning: failed to load group for start notice: %v", err)
		return
	}

	var enrollments []models.Enrollment
	err := s.db.Where("group_id = ? AND status = ?", session.GroupID, models.EnrollmentConfirmed).
		Find(&enrollments).Error
	if err != nil {
		log.Printf("Warning: failed to load enrollments for start notice: %v", err)
		return
	}

	msg := fmt.Sprintf("'%s' is live now", session.Title)
	for _, e := range enrollments {
		payload := models.NotificationPayload{
			SessionID:   session.ID,
			Title:       session.Title,
			LessonTitle: lesson.Title,
			GroupName:   group.Name,
			StartsAt:    session.ScheduledStart,
			JoinURL:     fmt.Sprintf("/join/%s/participant/%d", session.ID, e.StudentID),
		}
		if err := createNotification(s.db, e.StudentID, "session_started", msg, payload); err != nil {
			log.Printf("Warning: failed to create start notification for student %d: %v", e.StudentID, err)
			continue
		}
		if s.email != nil {
			var student models.Account
			if err := s.db.First(&student, e.StudentID).Error; err == nil {
				if err := s.email.SendSessionStarted(student, *session, lesson.Title, payload.JoinURL); err != nil {
					log.Printf("Warning: failed to send start email to %s: %v", student.Email, err)
				}
			}
		}
	}
}

// LeaderContext returns the leader name and lesson title for join-denial
// bodies so clients can render a wait screen.
func (s *MeetingService) LeaderContext(session *models.Session) (leaderName, lessonTitle string) {
	var leader models.Account
	if err := s.db.First(&leader, session.LeaderID).Error; err == nil {
		leaderName = leader.FullName
	}
	var lesson models.Lesson
	if err := s.db.First(&lesson, session.LessonID).Error; err == nil {
		lessonTitle = lesson.Title
	}
	return leaderName, lessonTitle
}

func (s *MeetingService) logEvent(sessionID string, actorID uint, eventType string) {
	event := models.SessionEvent{
		SessionID: sessionID,
		ActorID:   actorID,
		EventType: eventType,
		Timestamp: time.Now(),
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("Warning: failed to log session event: %v", err)
	}
}
