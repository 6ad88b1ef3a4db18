package services

import (
	"fmt"

	"liveclass/internal/config"
	"liveclass/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	enabled   bool
}

func NewEmailService(cfg config.App) *EmailService {
	return &EmailService{
		client:    sendgrid.NewSendClient(cfg.SendgridAPIKey),
		fromEmail: cfg.SendgridFromEmail,
		fromName:  cfg.SendgridFromName,
		enabled:   cfg.SendgridAPIKey != "" && cfg.SendgridFromEmail != "",
	}
}

// SendSessionReminder emails one recipient that their session starts soon
func (s *EmailService) SendSessionReminder(account models.Account, session models.Session, lessonTitle, joinURL string) error {
	if !s.enabled {
		return nil
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(account.FullName, account.Email)
	subject := fmt.Sprintf("Reminder: %s starts at %s", session.Title, session.ScheduledStart.Format("15:04"))
	plainContent := fmt.Sprintf("Your session '%s' (%s) starts at %s. Join link: %s",
		session.Title, lessonTitle, session.ScheduledStart.Format("2006-01-02 15:04 MST"), joinURL)
	htmlContent := fmt.Sprintf("<p>Your session '<strong>%s</strong>' (%s) starts at %s.</p><p><a href=%q>Join session</a></p>",
		session.Title, lessonTitle, session.ScheduledStart.Format("2006-01-02 15:04 MST"), joinURL)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	_, err := s.client.Send(message)
	return err
}

// SendSessionStarted emails one recipient that the leader has opened the room
func (s *EmailService) SendSessionStarted(account models.Account, session models.Session, lessonTitle, joinURL string) error {
	if !s.enabled {
		return nil
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(account.FullName, account.Email)
	subject := fmt.Sprintf("%s has started", session.Title)
	plainContent := fmt.Sprintf("Your session '%s' (%s) is live now. Join link: %s", session.Title, lessonTitle, joinURL)
	htmlContent := fmt.Sprintf("<p>Your session '<strong>%s</strong>' (%s) is live now.</p><p><a href=%q>Join session</a></p>",
		session.Title, lessonTitle, joinURL)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	_, err := s.client.Send(message)
	return err
}
