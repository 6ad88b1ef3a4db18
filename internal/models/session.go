package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus represents the lifecycle state of a live session
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are legal from this state
func (s SessionStatus) IsTerminal() bool {
	return s == SessionEnded || s == SessionCancelled
}

// Role is the closed set of join roles. Participants may only join once the
// leader's presence has been established.
type Role string

const (
	JoinLeader      Role = "leader"
	JoinParticipant Role = "participant"
)

// ParseRole validates a raw role string from the join path
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case JoinLeader:
		return JoinLeader, nil
	case JoinParticipant:
		return JoinParticipant, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Password returns the conferencing credential scoped to this role
func (r Role) Password(s *Session) string {
	if r == JoinLeader {
		return s.ModeratorPW
	}
	return s.AttendeePW
}

// JoinURLPair holds the pre-built role-scoped join link templates
type JoinURLPair struct {
	Leader      string `json:"leader"`
	Participant string `json:"participant"`
}

// Implement driver.Valuer and sql.Scanner
func (p JoinURLPair) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *JoinURLPair) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("failed to unmarshal JoinURLPair: %v", value)
	}
}

// Session represents one scheduled or live video meeting bound to a lesson and group
type Session struct {
	ID              string        `gorm:"primaryKey;size:64" json:"id"`
	Title           string        `gorm:"size:200;not null" json:"title"`
	LessonID        uint          `gorm:"not null;index" json:"lesson_id"`
	GroupID         uint          `gorm:"not null;index" json:"group_id"`
	LeaderID        uint          `gorm:"not null;index" json:"leader_id"`
	Status          SessionStatus `gorm:"size:16;not null;index" json:"status"`
	ScheduledStart  time.Time     `gorm:"not null;index" json:"scheduled_start"`
	ActualStart     *time.Time    `json:"actual_start"`
	ActualEnd       *time.Time    `json:"actual_end"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	ReminderSent    bool          `gorm:"not null;default:false" json:"reminder_sent"`
	AttendeePW      string        `gorm:"size:64" json:"-"`
	ModeratorPW     string        `gorm:"size:64" json:"-"`
	JoinURLs        JoinURLPair   `gorm:"type:json" json:"join_urls"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the Session model
func (Session) TableName() string {
	return "session"
}

// SessionEvent is an append-only audit entry for session lifecycle changes
type SessionEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	ActorID   uint      `gorm:"not null" json:"actor_id"`
	EventType string    `gorm:"size:30;not null" json:"event_type"` // scheduled, started, ended, cancelled, auto_closed, manual_mark
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for the SessionEvent model
func (SessionEvent) TableName() string {
	return "session_event"
}

// ScheduleSessionRequest represents the data needed to schedule a session.
// Either date (+ optional time and date_format) or the legacy combined start
// string must be provided.
type ScheduleSessionRequest struct {
	Title           string `json:"title" binding:"required,min=2,max=200"`
	LessonID        uint   `json:"lesson_id" binding:"required"`
	GroupID         uint   `json:"group_id" binding:"required"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DateFormat      string `json:"date_format" binding:"omitempty,oneof=DD/MM/YYYY MM/DD/YYYY"`
	Start           string `json:"start"` // legacy combined ISO string
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

// MarkAttendanceRequest represents a manual attendance override by the leader
type MarkAttendanceRequest struct {
	StudentID uint   `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=present late absent left-early"`
	Notes     string `json:"notes"`
}
