package models

import "time"

// AttendanceStatus values for a participant's attendance record
type AttendanceStatus string

const (
	AttendancePresent      AttendanceStatus = "present"
	AttendanceLate         AttendanceStatus = "late"
	AttendanceAbsent       AttendanceStatus = "absent"
	AttendanceLeftEarly    AttendanceStatus = "left-early"
	AttendanceLeaderJoined AttendanceStatus = "leader-joined"
)

// AttendanceRecord tracks one participant's presence in one session. The
// composite unique index is what guarantees a single row per participant;
// writers upsert against it instead of locking.
type AttendanceRecord struct {
	ID               uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string           `gorm:"size:64;not null;uniqueIndex:idx_session_participant" json:"session_id"`
	ParticipantID    uint             `gorm:"not null;uniqueIndex:idx_session_participant" json:"participant_id"`
	Status           AttendanceStatus `gorm:"size:20;not null" json:"status"`
	JoinTime         *time.Time       `json:"join_time"`
	LeaveTime        *time.Time       `json:"leave_time"`
	DurationMinutes  int              `gorm:"not null;default:0" json:"duration_minutes"`
	IsManuallyMarked bool             `gorm:"not null;default:false" json:"is_manually_marked"`
	MarkedBy         *uint            `json:"marked_by"`
	MarkedAt         *time.Time       `json:"marked_at"`
	Notes            string           `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the AttendanceRecord model
func (AttendanceRecord) TableName() string {
	return "attendance_record"
}

// ReportRow is one line of the simple attendance report. Enrolled students
// with no attendance row appear as synthesized absent entries.
type ReportRow struct {
	StudentID       uint             `json:"student_id"`
	FullName        string           `json:"full_name"`
	Email           string           `json:"email"`
	Status          AttendanceStatus `json:"status"`
	JoinTime        *time.Time       `json:"join_time"`
	LeaveTime       *time.Time       `json:"leave_time"`
	DurationMinutes int              `json:"duration_minutes"`
	Notes           string           `json:"notes"`
}

// ReportSummary partitions the confirmed enrollment of the session's group.
// Present + Late + Absent always equals Total; LeftEarly counts the subset of
// those rows that were downgraded for leaving early.
type ReportSummary struct {
	Total     int `json:"total"`
	Present   int `json:"present"`
	Late      int `json:"late"`
	Absent    int `json:"absent"`
	LeftEarly int `json:"left_early"`
}

// AttendanceReport is the assembled per-session report
type AttendanceReport struct {
	SessionID string        `json:"session_id"`
	Rows      []ReportRow   `json:"rows"`
	Summary   ReportSummary `json:"summary"`
}
