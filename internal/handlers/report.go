package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"liveclass/internal/auth"
	"liveclass/internal/models"

	"github.com/gin-gonic/gin"
)

// GetAttendanceReport returns the per-session attendance list and summary
func GetAttendanceReport(c *gin.Context) {
	session, err := meetings.Get(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := attendance.SimpleReport(session)
	if err != nil {
		log.Printf("Error: Failed to assemble report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assemble report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportAttendanceCSV streams the attendance report as a CSV file with fixed
// columns: name, email, status, join time, leave time, duration minutes, notes
func ExportAttendanceCSV(c *gin.Context) {
	session, err := meetings.Get(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := attendance.SimpleReport(session)
	if err != nil {
		log.Printf("Error: Failed to assemble report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assemble report"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%s.csv", session.ID))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"name", "email", "status", "join_time", "leave_time", "duration_minutes", "notes"})
	for _, row := range report.Rows {
		_ = w.Write([]string{
			row.FullName,
			row.Email,
			string(row.Status),
			formatTime(row.JoinTime),
			formatTime(row.LeaveTime),
			strconv.Itoa(row.DurationMinutes),
			row.Notes,
		})
	}
	w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// MarkAttendance lets the session's leader manually override a participant's status
func MarkAttendance(c *gin.Context) {
	var request models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Printf("Error: Invalid input: %s", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	session, err := meetings.Get(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	markerID := auth.AccountID(c)
	err = attendance.MarkManually(session, request.StudentID,
		models.AttendanceStatus(request.Status), markerID, request.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated"})
}
