package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"liveclass/internal/conference"
	"liveclass/internal/database"
	"liveclass/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database and migrates the schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// stubConference is a controllable in-memory ConferenceClient
type stubConference struct {
	running   bool
	runErr    error
	createErr error
	endErr    error
	endCalls  int
}

func (s *stubConference) Create(ctx context.Context, req conference.CreateRequest) (conference.CreateResponse, error) {
	if s.createErr != nil {
		return conference.CreateResponse{}, s.createErr
	}
	return conference.CreateResponse{MeetingID: req.MeetingID}, nil
}

func (s *stubConference) IsRunning(ctx context.Context, meetingID string) (bool, error) {
	return s.running, s.runErr
}

func (s *stubConference) End(ctx context.Context, meetingID, moderatorPW string) error {
	s.endCalls++
	return s.endErr
}

func (s *stubConference) JoinURL(meetingID, fullName, password string) string {
	return fmt.Sprintf("https://conf.example/api/join?meetingID=%s&fullName=%s&password=%s", meetingID, fullName, password)
}

// fixtures holds the seeded accounts and course structure most tests need
type fixtures struct {
	instructor models.Account
	students   []models.Account
	lesson     models.Lesson
	group      models.ClassGroup
}

// seedFixtures creates an instructor, n students with confirmed enrollments,
// one lesson and one group
func seedFixtures(t *testing.T, db *gorm.DB, n int) fixtures {
	t.Helper()

	f := fixtures{
		instructor: models.Account{FullName: "Grace Hopper", Email: "grace@example.org", HashedPass: "x", Role: models.RoleInstructor},
		lesson:     models.Lesson{Title: "Linear Algebra", CreatedAt: time.Now(), UpdatedAt: time.Now()},
		group:      models.ClassGroup{Name: "Cohort A", CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	require.NoError(t, db.Create(&f.instructor).Error)
	require.NoError(t, db.Create(&f.lesson).Error)
	require.NoError(t, db.Create(&f.group).Error)

	for i := 0; i < n; i++ {
		student := models.Account{
			FullName:   fmt.Sprintf("Student %d", i+1),
			Email:      fmt.Sprintf("student%d@example.org", i+1),
			HashedPass: "x",
			Role:       models.RoleStudent,
		}
		require.NoError(t, db.Create(&student).Error)
		require.NoError(t, db.Create(&models.Enrollment{
			GroupID:   f.group.ID,
			StudentID: student.ID,
			Status:    models.EnrollmentConfirmed,
			JoinedAt:  time.Now(),
			UpdatedAt: time.Now(),
		}).Error)
		f.students = append(f.students, student)
	}
	return f
}

// newTestMeetingService wires a meeting service over the test database
func newTestMeetingService(db *gorm.DB, conf ConferenceClient) (*MeetingService, *AttendanceService) {
	attendance := NewAttendanceService(db, 10*time.Minute)
	return NewMeetingService(db, conf, attendance, nil), attendance
}

// scheduleFuture creates a session one hour out through the service
func scheduleFuture(t *testing.T, svc *MeetingService, f fixtures) *models.Session {
	t.Helper()
	session, err := svc.Schedule(context.Background(), ScheduleInput{
		Title:           "Week 3 live session",
		LessonID:        f.lesson.ID,
		GroupID:         f.group.ID,
		LeaderID:        f.instructor.ID,
		Start:           time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	return session
}
