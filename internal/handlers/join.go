package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"liveclass/internal/models"
	"liveclass/internal/services"
	"liveclass/internal/utils"

	"github.com/gin-gonic/gin"
)

// JoinSession is the join gate endpoint. Identity is carried in the path; on
// success the caller is redirected to the signed external join link, on
// denial they get a JSON body with a stable machine code.
func JoinSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	roleStr := c.Param("role")
	if q := c.Query("role"); q != "" {
		// Legacy clients passed the role as a query parameter
		roleStr = q
	}
	role, err := models.ParseRole(roleStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ROLE", "error": err.Error()})
		return
	}

	participantID, err := strconv.ParseUint(c.Param("participant_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "error": "participant id must be numeric"})
		return
	}

	joinURL, err := meetings.RequestJoin(c.Request.Context(), sessionID, uint(participantID), role)
	if err != nil {
		if errors.Is(err, services.ErrLeaderAbsent) {
			// Enough context for the client to render a wait screen
			session, getErr := meetings.Get(sessionID)
			if getErr == nil {
				leaderName, lessonTitle := meetings.LeaderContext(session)
				c.JSON(http.StatusForbidden, gin.H{
					"code":         "LEADER_NOT_PRESENT",
					"error":        err.Error(),
					"leader_name":  leaderName,
					"lesson_title": lessonTitle,
				})
				return
			}
		}
		respondError(c, err)
		return
	}

	log.Printf("Join granted: session %s, account %d, role %s, ip %s",
		sessionID, participantID, role, utils.GetRealClientIP(c))
	c.Redirect(http.StatusFound, joinURL)
}
