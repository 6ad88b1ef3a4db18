package services

import (
	"testing"
	"time"

	"liveclass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// makeSession inserts a session row directly so tests can control the
// scheduled start independently of the wall clock
func makeSession(t *testing.T, db *gorm.DB, f fixtures, start time.Time, durationMinutes int) *models.Session {
	t.Helper()
	now := time.Now()
	session := models.Session{
		ID:              "sess-" + t.Name(),
		Title:           "Timed session",
		LessonID:        f.lesson.ID,
		GroupID:         f.group.ID,
		LeaderID:        f.instructor.ID,
		Status:          models.SessionActive,
		ScheduledStart:  start,
		ActualStart:     &start,
		DurationMinutes: durationMinutes,
		AttendeePW:      "ap",
		ModeratorPW:     "mp",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&session).Error)
	return &session
}

func TestRecordParticipantJoinClassification(t *testing.T) {
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want models.AttendanceStatus
	}{
		{"before start", start.Add(-2 * time.Minute), models.AttendancePresent},
		{"within grace", start.Add(9 * time.Minute), models.AttendancePresent},
		{"exactly at grace boundary", start.Add(10 * time.Minute), models.AttendancePresent},
		{"one second past grace", start.Add(10*time.Minute + time.Second), models.AttendanceLate},
		{"well past grace", start.Add(25 * time.Minute), models.AttendanceLate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			f := seedFixtures(t, db, 1)
			svc := NewAttendanceService(db, 10*time.Minute)
			session := makeSession(t, db, f, start, 60)

			status, err := svc.RecordParticipantJoin(session, f.students[0].ID, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestRecordParticipantJoinIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	first, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, first)

	// A rejoin past the grace window keeps the original classification
	second, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, second)

	var count int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).
		Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var rec models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).First(&rec).Error)
	require.NotNil(t, rec.JoinTime)
	assert.True(t, rec.JoinTime.Equal(start.Add(5*time.Minute)))
}

func TestRecordLeaderJoinKeepsFirstRow(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	require.NoError(t, svc.RecordLeaderJoin(session.ID, f.instructor.ID, start))
	require.NoError(t, svc.RecordLeaderJoin(session.ID, f.instructor.ID, start.Add(10*time.Minute)))

	var count int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).
		Where("session_id = ? AND participant_id = ?", session.ID, f.instructor.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	present, err := svc.LeaderPresent(session.ID, f.instructor.ID)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestFinalizeDowngradesShortAttendance(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 2)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	end := start.Add(60 * time.Minute)
	session := makeSession(t, db, f, start, 60)

	// Student 1 attends 55 of 60 minutes, student 2 only 20
	_, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(5*time.Minute))
	require.NoError(t, err)
	_, err = svc.RecordParticipantJoin(session, f.students[1].ID, start.Add(40*time.Minute))
	require.NoError(t, err)

	require.NoError(t, svc.Finalize(session, end))

	var full models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).First(&full).Error)
	assert.Equal(t, models.AttendancePresent, full.Status)
	assert.Equal(t, 55, full.DurationMinutes)

	var short models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[1].ID).First(&short).Error)
	assert.Equal(t, models.AttendanceLeftEarly, short.Status)
	assert.Equal(t, 20, short.DurationMinutes)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	_, err := svc.RecordParticipantJoin(session, f.students[0].ID, start)
	require.NoError(t, err)

	require.NoError(t, svc.Finalize(session, start.Add(60*time.Minute)))
	// A second pass with a later end time must not touch closed rows
	require.NoError(t, svc.Finalize(session, start.Add(90*time.Minute)))

	var rec models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).First(&rec).Error)
	assert.Equal(t, 60, rec.DurationMinutes)
	require.NotNil(t, rec.LeaveTime)
	assert.True(t, rec.LeaveTime.Equal(start.Add(60*time.Minute)))
}

func TestFinalizeSkipsManualMarks(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	// Joined for 10 of 60 minutes but manually confirmed present
	_, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(50*time.Minute))
	require.NoError(t, err)
	require.NoError(t, svc.MarkManually(session, f.students[0].ID, models.AttendancePresent, f.instructor.ID, "verified in person"))

	require.NoError(t, svc.Finalize(session, start.Add(60*time.Minute)))

	var rec models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).First(&rec).Error)
	assert.Equal(t, models.AttendancePresent, rec.Status)
	assert.True(t, rec.IsManuallyMarked)
}

func TestMarkManuallyRequiresLeader(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 2)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	err := svc.MarkManually(session, f.students[0].ID, models.AttendancePresent, f.students[1].ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkManuallyCreatesMissingRow(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	require.NoError(t, svc.MarkManually(session, f.students[0].ID, models.AttendanceLate, f.instructor.ID, "joined by phone"))

	var rec models.AttendanceRecord
	require.NoError(t, db.Where("session_id = ? AND participant_id = ?", session.ID, f.students[0].ID).First(&rec).Error)
	assert.Equal(t, models.AttendanceLate, rec.Status)
	assert.True(t, rec.IsManuallyMarked)
	require.NotNil(t, rec.MarkedBy)
	assert.Equal(t, f.instructor.ID, *rec.MarkedBy)
	assert.Equal(t, "joined by phone", rec.Notes)
	assert.Nil(t, rec.JoinTime)
}

func TestVerifyEnrollmentRejectsPending(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)

	pending := models.Account{FullName: "Pending Student", Email: "pending@example.org", HashedPass: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&pending).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		GroupID:   f.group.ID,
		StudentID: pending.ID,
		Status:    models.EnrollmentPending,
		JoinedAt:  time.Now(),
		UpdatedAt: time.Now(),
	}).Error)

	assert.NoError(t, svc.VerifyEnrollment(f.group.ID, f.students[0].ID))
	assert.ErrorIs(t, svc.VerifyEnrollment(f.group.ID, pending.ID), ErrNotEnrolled)
}

// TestReportFullScenario walks a whole session: a punctual student, a late
// one and a no-show, finalized at the scheduled end.
func TestReportFullScenario(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 3)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	end := start.Add(60 * time.Minute)
	session := makeSession(t, db, f, start, 60)

	require.NoError(t, svc.RecordLeaderJoin(session.ID, f.instructor.ID, start.Add(-time.Minute)))

	status, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, status)

	status, err = svc.RecordParticipantJoin(session, f.students[1].ID, start.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, status)

	// Student 3 never joins

	require.NoError(t, svc.Finalize(session, end))

	report, err := svc.SimpleReport(session)
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Present)
	assert.Equal(t, 1, report.Summary.Late)
	assert.Equal(t, 1, report.Summary.Absent)
	assert.Equal(t, 0, report.Summary.LeftEarly)
	assert.Equal(t, report.Summary.Total,
		report.Summary.Present+report.Summary.Late+report.Summary.Absent)

	byStudent := make(map[uint]models.ReportRow, len(report.Rows))
	for _, row := range report.Rows {
		byStudent[row.StudentID] = row
	}

	punctual := byStudent[f.students[0].ID]
	assert.Equal(t, models.AttendancePresent, punctual.Status)
	assert.Equal(t, 55, punctual.DurationMinutes)
	assert.Equal(t, "Student 1", punctual.FullName)

	late := byStudent[f.students[1].ID]
	assert.Equal(t, models.AttendanceLate, late.Status)
	assert.Equal(t, 40, late.DurationMinutes)

	absent := byStudent[f.students[2].ID]
	assert.Equal(t, models.AttendanceAbsent, absent.Status)
	assert.Nil(t, absent.JoinTime)
	assert.Zero(t, absent.DurationMinutes)

	// The leader's presence row never surfaces in the report
	for _, row := range report.Rows {
		assert.NotEqual(t, f.instructor.ID, row.StudentID)
	}
}

// TestReportCountsLeftEarlyWithinNamedBuckets covers downgraded rows: the
// Present/Late/Absent counts must still partition the enrollment, with
// LeftEarly tracking the downgrades separately.
func TestReportCountsLeftEarlyWithinNamedBuckets(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 3)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	// Punctual joiner leaves at +28, late joiner arrives at +45: both end up
	// below the half-session threshold. Student 3 never joins.
	_, err := svc.RecordParticipantJoin(session, f.students[0].ID, start.Add(5*time.Minute))
	require.NoError(t, err)
	require.NoError(t, svc.Finalize(session, start.Add(28*time.Minute)))

	_, err = svc.RecordParticipantJoin(session, f.students[1].ID, start.Add(45*time.Minute))
	require.NoError(t, err)
	require.NoError(t, svc.Finalize(session, start.Add(60*time.Minute)))

	report, err := svc.SimpleReport(session)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Present)
	assert.Equal(t, 1, report.Summary.Late)
	assert.Equal(t, 1, report.Summary.Absent)
	assert.Equal(t, report.Summary.Total,
		report.Summary.Present+report.Summary.Late+report.Summary.Absent)

	// Both short stays were downgraded; the rows keep the left-early status
	assert.Equal(t, 2, report.Summary.LeftEarly)
	byStudent := make(map[uint]models.ReportRow, len(report.Rows))
	for _, row := range report.Rows {
		byStudent[row.StudentID] = row
	}
	assert.Equal(t, models.AttendanceLeftEarly, byStudent[f.students[0].ID].Status)
	assert.Equal(t, models.AttendanceLeftEarly, byStudent[f.students[1].ID].Status)
	assert.Equal(t, models.AttendanceAbsent, byStudent[f.students[2].ID].Status)
}

func TestReportExcludesUnenrolledAttendance(t *testing.T) {
	db := newTestDB(t)
	f := seedFixtures(t, db, 1)
	svc := NewAttendanceService(db, 10*time.Minute)
	start := time.Date(2025, 9, 20, 14, 0, 0, 0, time.UTC)
	session := makeSession(t, db, f, start, 60)

	// An attendance row for someone outside the group must not inflate the report
	outsider := models.Account{FullName: "Crasher", Email: "crasher@example.org", HashedPass: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&outsider).Error)
	_, err := svc.RecordParticipantJoin(session, outsider.ID, start)
	require.NoError(t, err)

	report, err := svc.SimpleReport(session)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, f.students[0].ID, report.Rows[0].StudentID)
	assert.Equal(t, 1, report.Summary.Total)
}
