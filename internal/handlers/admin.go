package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"liveclass/internal/auth"
	"liveclass/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateAccount handles the creation of a new account
func CreateAccount(c *gin.Context) {
	var request models.CreateAccountRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Printf("Error: Invalid input: %s", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error: Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	role := models.AccountRole(request.Role)
	if role == "" {
		role = models.RoleStudent
	}
	account := models.Account{
		FullName:   request.FullName,
		Email:      request.Email,
		HashedPass: string(hashed),
		Role:       role,
	}
	if err := db.Create(&account).Error; err != nil {
		log.Printf("Error: Failed to create account: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create account"})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// Login verifies credentials and issues a bearer token
func Login(c *gin.Context) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	var account models.Account
	if err := db.Where("email = ?", request.Email).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPass), []byte(request.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, exp, err := auth.Issue(account.ID, string(account.Role), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
	if err != nil {
		log.Printf("Error: Failed to issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_at":   exp.Unix(),
		"account_id":   account.ID,
		"role":         account.Role,
	})
}

// CreateLesson handles the creation of a lesson
func CreateLesson(c *gin.Context) {
	var request models.CreateLessonRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	now := time.Now()
	lesson := models.Lesson{Title: request.Title, Description: request.Description, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&lesson).Error; err != nil {
		log.Printf("Error: Failed to create lesson: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lesson"})
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

// ListLessons handles listing all lessons
func ListLessons(c *gin.Context) {
	var lessons []models.Lesson
	if err := db.Order("id asc").Find(&lessons).Error; err != nil {
		log.Printf("Error: Failed to fetch lessons: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch lessons"})
		return
	}
	c.JSON(http.StatusOK, lessons)
}

// CreateGroup handles the creation of a class group
func CreateGroup(c *gin.Context) {
	var request models.CreateGroupRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	now := time.Now()
	group := models.ClassGroup{Name: request.Name, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&group).Error; err != nil {
		log.Printf("Error: Failed to create group: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// GetGroup handles fetching a single group with its enrollments
func GetGroup(c *gin.Context) {
	var group models.ClassGroup
	if err := db.First(&group, c.Param("group_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	var enrollments []models.Enrollment
	if err := db.Where("group_id = ?", group.ID).Find(&enrollments).Error; err != nil {
		log.Printf("Error: Failed to fetch enrollments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch enrollments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "enrollments": enrollments})
}

// EnrollStudent handles adding a student to a group with pending status
func EnrollStudent(c *gin.Context) {
	var request models.EnrollRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid input: %s", err.Error())})
		return
	}

	var group models.ClassGroup
	if err := db.First(&group, c.Param("group_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	var student models.Account
	if err := db.First(&student, request.StudentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var existing models.Enrollment
	err := db.Where("group_id = ? AND student_id = ?", group.ID, request.StudentID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already enrolled"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error: Failed to check enrollment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check enrollment"})
		return
	}

	now := time.Now()
	enrollment := models.Enrollment{
		GroupID:   group.ID,
		StudentID: request.StudentID,
		Status:    models.EnrollmentPending,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := db.Create(&enrollment).Error; err != nil {
		log.Printf("Error: Failed to enroll student: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll student"})
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// ConfirmEnrollment handles confirming a pending enrollment
func ConfirmEnrollment(c *gin.Context) {
	var enrollment models.Enrollment
	err := db.Where("group_id = ? AND student_id = ?", c.Param("group_id"), c.Param("student_id")).
		First(&enrollment).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	if err := db.Model(&enrollment).Updates(map[string]interface{}{
		"status":     models.EnrollmentConfirmed,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Error: Failed to confirm enrollment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm enrollment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Enrollment confirmed"})
}
