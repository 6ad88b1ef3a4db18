package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"liveclass/internal/auth"
	"liveclass/internal/models"
	"liveclass/internal/services"
	"liveclass/internal/timeparse"

	"github.com/gin-gonic/gin"
)

// ScheduleSession handles the creation of a new live session
func ScheduleSession(c *gin.Context) {
	var request models.ScheduleSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Printf("Error: Invalid input: %s", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	leaderID := auth.AccountID(c)
	if leaderID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "error": "Not authenticated"})
		return
	}

	session, err := meetings.Schedule(c.Request.Context(), services.ScheduleInput{
		Title:           request.Title,
		LessonID:        request.LessonID,
		GroupID:         request.GroupID,
		LeaderID:        leaderID,
		Date:            request.Date,
		Time:            request.Time,
		DateFormat:      timeparse.DateFormat(request.DateFormat),
		Start:           request.Start,
		DurationMinutes: request.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession handles fetching a single session's details by ID
func GetSession(c *gin.Context) {
	session, err := meetings.Get(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListSessions handles listing sessions with filtering and pagination
func ListSessions(c *gin.Context) {
	var sessions []models.Session
	query := db.Model(&models.Session{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if lessonID := c.Query("lesson_id"); lessonID != "" {
		query = query.Where("lesson_id = ?", lessonID)
	}
	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}
	if leaderID := c.Query("leader_id"); leaderID != "" {
		query = query.Where("leader_id = ?", leaderID)
	}
	if from := c.Query("from"); from != "" {
		query = query.Where("scheduled_start >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("scheduled_start <= ?", to)
	}

	query = query.Order("scheduled_start asc")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	if err := query.Limit(limit).Offset(offset).Find(&sessions).Error; err != nil {
		log.Printf("Error: Failed to fetch sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// EndSession handles a leader ending their active session. force skips the
// leader-ownership check; it is the manual override path for sessions whose
// leader is unreachable, and the route group restricts it to instructors.
func EndSession(c *gin.Context) {
	force := c.Query("force") == "true"
	if err := meetings.End(c.Request.Context(), c.Param("session_id"), auth.AccountID(c), force); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}

// CancelSession handles a leader cancelling a session before or during it
func CancelSession(c *gin.Context) {
	if err := meetings.Cancel(c.Request.Context(), c.Param("session_id"), auth.AccountID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session cancelled"})
}

// CheckSession runs the reconciliation check for one session on demand.
// Only the session's leader may trigger it.
func CheckSession(c *gin.Context) {
	session, err := meetings.Get(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if auth.AccountID(c) != session.LeaderID {
		respondError(c, fmt.Errorf("%w: only the session leader may run this check", services.ErrForbidden))
		return
	}

	closed, err := meetings.Reconcile(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	session, err = meetings.Get(session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": closed, "status": session.Status})
}

// ListSessionEvents returns the audit trail for one session
func ListSessionEvents(c *gin.Context) {
	var events []models.SessionEvent
	err := db.Where("session_id = ?", c.Param("session_id")).
		Order("timestamp asc").Find(&events).Error
	if err != nil {
		log.Printf("Error: Failed to fetch session events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session events"})
		return
	}
	c.JSON(http.StatusOK, events)
}
