package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Clinic backend
	ClinicAPIBaseURL string
	ClinicAPITimeout time.Duration

	// Durable client-side state
	StoreBackend   string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	RedisKeyPrefix string
	DatabaseURL    string

	// Speech gateway
	SpeechGatewayURL   string
	SpeechGatewayToken string
	SpeechLanguage     string

	// Voice coordinator timing
	WakeWords          []string
	AutoSendDelay      time.Duration
	CommandStartDelay  time.Duration
	ResumeDelay        time.Duration
	StartRetryDelay    time.Duration
	WakeStartRetry     time.Duration
	WakeRebuildBackoff time.Duration

	HistoryLimit int
	SlotCapacity int

	// Booking notifications go to this Zalo number and, when SendGrid is
	// configured, to this inbox.
	BookingNotifyPhone string
	BookingNotifyEmail string
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string

	// Per-client limit on chat endpoints
	ChatRateLimit float64
	ChatRateBurst int

	// Page context reported to the chat endpoint
	PageURL   string
	PageTitle string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		ClinicAPIBaseURL: getEnv("CLINIC_API_BASE_URL", "http://localhost:5000"),
		ClinicAPITimeout: getEnvAsDuration("CLINIC_API_TIMEOUT", 15*time.Second),

		StoreBackend:   strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "clinic-assistant:"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		SpeechGatewayURL:   getEnv("SPEECH_GATEWAY_URL", ""),
		SpeechGatewayToken: getEnv("SPEECH_GATEWAY_TOKEN", ""),
		SpeechLanguage:     getEnv("SPEECH_LANGUAGE", "vi-VN"),

		WakeWords:          getEnvAsList("WAKE_WORDS", nil),
		AutoSendDelay:      getEnvAsDuration("AUTO_SEND_DELAY", time.Second),
		CommandStartDelay:  getEnvAsDuration("COMMAND_START_DELAY", 500*time.Millisecond),
		ResumeDelay:        getEnvAsDuration("RESUME_DELAY", 500*time.Millisecond),
		StartRetryDelay:    getEnvAsDuration("START_RETRY_DELAY", 100*time.Millisecond),
		WakeStartRetry:     getEnvAsDuration("WAKE_START_RETRY", 2*time.Second),
		WakeRebuildBackoff: getEnvAsDuration("WAKE_REBUILD_BACKOFF", time.Second),

		HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 20),
		SlotCapacity: getEnvAsInt("SLOT_CAPACITY", 3),

		BookingNotifyPhone: getEnv("BOOKING_NOTIFY_PHONE", "0858838616"),
		BookingNotifyEmail: getEnv("BOOKING_NOTIFY_EMAIL", ""),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", ""),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 2),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 5),

		PageURL:   getEnv("PAGE_URL", "/index.html"),
		PageTitle: getEnv("PAGE_TITLE", "Phòng khám Đại Anh"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
