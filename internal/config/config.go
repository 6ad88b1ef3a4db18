package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	HTTPPort string

	// Database. DATABASE_URL wins when set, otherwise the discrete DB_* vars
	// are assembled into a DSN by the database package.
	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	DBSSLMode   string

	// Conferencing backend (signed-GET API).
	ConferenceURL     string
	ConferenceSecret  string
	ConferenceTimeout time.Duration
	ConferenceRetries int

	// Session timing knobs.
	ReminderLead  time.Duration
	ReminderPoll  time.Duration
	ReconcilePoll time.Duration
	GraceWindow   time.Duration

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration

	SendgridAPIKey    string
	SendgridFromEmail string
	SendgridFromName  string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "liveclass"),
		DBPassword:  getEnv("DB_PASSWORD", "liveclass"),
		DBName:      getEnv("DB_NAME", "liveclass"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBSSLMode:   getEnv("DB_SSL_MODE", "disable"),

		ConferenceURL:     getEnv("CONFERENCE_URL", "http://localhost:8090/bigbluebutton"),
		ConferenceSecret:  os.Getenv("CONFERENCE_SECRET"),
		ConferenceTimeout: durationEnv("CONFERENCE_TIMEOUT", 10*time.Second),
		ConferenceRetries: intEnv("CONFERENCE_RETRIES", 2),

		ReminderLead:  durationEnv("REMINDER_LEAD", 30*time.Minute),
		ReminderPoll:  durationEnv("REMINDER_POLL", time.Minute),
		ReconcilePoll: durationEnv("RECONCILE_POLL", time.Minute),
		GraceWindow:   durationEnv("GRACE_WINDOW", 10*time.Minute),

		JWTIssuer:     getEnv("JWT_ISSUER", "liveclass"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:     durationEnv("ACCESS_TTL", 12*time.Hour),

		SendgridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendgridFromEmail: os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL"),
		SendgridFromName:  getEnv("SENDGRID_FROM_NAME", "LiveClass"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
