package handlers

import (
	"errors"
	"log"
	"net/http"

	"liveclass/internal/config"
	"liveclass/internal/services"
	"liveclass/internal/timeparse"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	db         *gorm.DB
	meetings   *services.MeetingService
	attendance *services.AttendanceService
	cfg        config.App
)

// Init wires the handler package to its collaborators. Called once from main
// (and from handler tests with their own database).
func Init(database *gorm.DB, m *services.MeetingService, a *services.AttendanceService, c config.App) {
	db = database
	meetings = m
	attendance = a
	cfg = c
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "LiveClass session service")
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// errorCode maps a service error to an HTTP status and a stable machine code
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, services.ErrDuplicateSession):
		return http.StatusConflict, "DUPLICATE_SESSION"
	case errors.Is(err, services.ErrNotEnrolled):
		return http.StatusForbidden, "NOT_ENROLLED"
	case errors.Is(err, services.ErrLeaderAbsent):
		return http.StatusForbidden, "LEADER_NOT_PRESENT"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, services.ErrExternalService):
		return http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR"
	case errors.Is(err, timeparse.ErrInvalidDateFormat):
		return http.StatusBadRequest, "INVALID_DATE_FORMAT"
	case errors.Is(err, timeparse.ErrInvalidDuration):
		return http.StatusBadRequest, "INVALID_DURATION"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// respondError writes the structured error body every denial uses
func respondError(c *gin.Context, err error) {
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("Error: %v", err)
		c.JSON(status, gin.H{"code": code, "error": "internal error"})
		return
	}
	log.Printf("Error: %v", err)
	c.JSON(status, gin.H{"code": code, "error": err.Error()})
}
