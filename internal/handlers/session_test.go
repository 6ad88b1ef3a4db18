package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"liveclass/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asAccount returns a middleware that stamps an authenticated instructor
// onto the request context, the way the bearer middleware does
func asAccount(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("account_id", id)
		c.Set("role", "instructor")
		c.Next()
	}
}

func post(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func sessionRouter(accountID uint) *gin.Engine {
	router := gin.New()
	router.Use(asAccount(accountID))
	router.POST("/sessions/:session_id/check", CheckSession)
	router.POST("/sessions/:session_id/end", EndSession)
	return router
}

func TestCheckSessionRequiresLeader(t *testing.T) {
	f := setupJoinTest(t)

	otherInstructor := models.Account{FullName: "Edsger Dijkstra", Email: "edsger@example.org", HashedPass: "x", Role: models.RoleInstructor}
	require.NoError(t, f.db.Create(&otherInstructor).Error)

	rec := post(sessionRouter(otherInstructor.ID),
		fmt.Sprintf("/sessions/%s/check", f.session.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = post(sessionRouter(f.instructor.ID),
		fmt.Sprintf("/sessions/%s/check", f.session.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"closed":false`)
	assert.Contains(t, rec.Body.String(), string(models.SessionScheduled))
}

func TestEndSessionForceIsInstructorOverride(t *testing.T) {
	f := setupJoinTest(t)

	// Activate the session through the leader's join
	rec := f.get(fmt.Sprintf("/join/%s/leader/%d", f.session.ID, f.instructor.ID))
	require.Equal(t, http.StatusFound, rec.Code)

	otherInstructor := models.Account{FullName: "Barbara Liskov", Email: "barbara@example.org", HashedPass: "x", Role: models.RoleInstructor}
	require.NoError(t, f.db.Create(&otherInstructor).Error)
	router := sessionRouter(otherInstructor.ID)

	// Without force the ownership check holds
	rec = post(router, fmt.Sprintf("/sessions/%s/end", f.session.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(router, fmt.Sprintf("/sessions/%s/end?force=true", f.session.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var session models.Session
	require.NoError(t, f.db.Where("id = ?", f.session.ID).First(&session).Error)
	assert.Equal(t, models.SessionEnded, session.Status)
}
