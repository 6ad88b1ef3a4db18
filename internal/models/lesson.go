package models

import "time"

// Lesson represents a unit of course content that live sessions are bound to
type Lesson struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the Lesson model
func (Lesson) TableName() string {
	return "lesson"
}

// ClassGroup represents a cohort of students that attends sessions together
type ClassGroup struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the ClassGroup model
func (ClassGroup) TableName() string {
	return "class_group"
}

// EnrollmentStatus values for a student's membership in a class group
const (
	EnrollmentPending   = "pending"
	EnrollmentConfirmed = "confirmed"
	EnrollmentRejected  = "rejected"
)

// Enrollment represents a student's membership in a class group.
// Only confirmed enrollments count for join gating and attendance reports.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_student" json:"group_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_group_student" json:"student_id"`
	Status    string    `gorm:"size:20;not null;default:pending" json:"status"`
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the Enrollment model
func (Enrollment) TableName() string {
	return "enrollment"
}

// CreateLessonRequest represents the data needed to create a lesson
type CreateLessonRequest struct {
	Title       string `json:"title" binding:"required,min=2,max=200"`
	Description string `json:"description"`
}

// CreateGroupRequest represents the data needed to create a class group
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,min=2,max=120"`
}

// EnrollRequest represents the data needed to enroll a student in a group
type EnrollRequest struct {
	StudentID uint `json:"student_id" binding:"required"`
}
