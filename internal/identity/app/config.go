package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer  string // Required: issuer claim for tokens
	BaseURL string // Required: public base URL, used in emails and SSO callback URLs

	NumKeys        int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	KeyStorageMode string        // Optional: key storage mode (ephemeral, persistent) (default: persistent)
	KeyGracePeriod time.Duration // Optional: grace period for retired keys (default: 30 days)
	MasterKeyPath  string        // Optional: path to master encryption key file (for persistent keys)
	DatabaseURL    string        // Required: PostgreSQL DSN
	PepperFile     string        // Optional: path to file containing pepper for password hashing (default: ./pepper)

	SMTPHost     string // Optional: SMTP relay host; mail is discarded when unset
	SMTPPort     int    // Optional: SMTP relay port (default: 587)
	SMTPFrom     string // Optional: From address for transactional mail
	SMTPUsername string // Optional: SMTP auth username
	SMTPPassword string // Optional: SMTP auth password
	SMTPTLSMode  string // Optional: starttls, ssl or none (default: starttls)

	MFAIssuer         string // Optional: otpauth issuer shown in authenticator apps (default: Issuer)
	VerifyCNAMETarget string // Optional: zone verification CNAMEs point into (default: verify.corvidmail.com.)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("IDENTITY_ISSUER", "corvid-identity"),
		BaseURL:        getEnvOrDefault("IDENTITY_BASE_URL", "http://localhost:8080"),
		KeyStorageMode: getEnvOrDefault("IDENTITY_KEY_STORAGE_MODE", "persistent"),
		KeyGracePeriod: getEnvDurationOrDefault("IDENTITY_KEY_GRACE_PERIOD", 30*24*time.Hour),
		MasterKeyPath:  os.Getenv("IDENTITY_MASTER_KEY_PATH"),
		DatabaseURL:    os.Getenv("IDENTITY_DATABASE_URL"),
		PepperFile:     getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),

		SMTPHost:     os.Getenv("IDENTITY_SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("IDENTITY_SMTP_PORT", 587),
		SMTPFrom:     os.Getenv("IDENTITY_SMTP_FROM"),
		SMTPUsername: os.Getenv("IDENTITY_SMTP_USERNAME"),
		SMTPPassword: os.Getenv("IDENTITY_SMTP_PASSWORD"),
		SMTPTLSMode:  getEnvOrDefault("IDENTITY_SMTP_TLS_MODE", "starttls"),

		MFAIssuer:         os.Getenv("IDENTITY_MFA_ISSUER"),
		VerifyCNAMETarget: getEnvOrDefault("IDENTITY_VERIFY_CNAME_TARGET", "verify.corvidmail.com."),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if numKeysStr := os.Getenv("IDENTITY_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
		// If parsing fails, NumKeys remains 0 (will use default in KeyManager)
	}

	if cfg.MFAIssuer == "" {
		cfg.MFAIssuer = cfg.Issuer
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
