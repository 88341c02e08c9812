package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Forum    ForumConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret        string
	TokenExpiry      time.Duration
	SessionTTL       time.Duration
	LoginWindow      time.Duration // sliding window for login attempts
	LoginMaxAttempts int           // attempts allowed inside the window
	RegNoIndexKey    []byte        // key for the deterministic registration index
	RegistrationMin  int64         // allowed registration number range, inclusive
	RegistrationMax  int64
}

type ForumConfig struct {
	EncryptionKey      []byte // 32-byte AES-256 key for message bodies
	PostWindow         time.Duration
	PostMaxPerWindow   int
	MaxContentLen      int
	FeedLimit          int
	VisibilityWindow   time.Duration // how long a message stays visible
	SweepInterval      time.Duration // period of the deactivation sweep
	HardRetention      time.Duration // age at which rows are physically deleted
	ActiveMemberWindow time.Duration // how recently a member must be seen to count as active
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	encryptionKey := getEnv("MESSAGE_ENCRYPTION_KEY", "")
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be exactly 32 bytes (got %d)", len(encryptionKey))
	}

	indexKey := getEnv("REGNO_INDEX_KEY", "")
	if len(indexKey) < 32 {
		return nil, fmt.Errorf("REGNO_INDEX_KEY must be at least 32 bytes (got %d)", len(indexKey))
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "veilforum"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "")),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			TokenExpiry:      getEnvAsDuration("TOKEN_EXPIRY", 24*time.Hour),
			SessionTTL:       getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			LoginWindow:      getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 1*time.Hour),
			LoginMaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			RegNoIndexKey:    []byte(indexKey),
			RegistrationMin:  getEnvAsInt64("REGISTRATION_MIN", 2411033010001),
			RegistrationMax:  getEnvAsInt64("REGISTRATION_MAX", 2411033010057),
		},
		Forum: ForumConfig{
			EncryptionKey:      []byte(encryptionKey),
			PostWindow:         getEnvAsDuration("POST_WINDOW", 60*time.Second),
			PostMaxPerWindow:   getEnvAsInt("POST_MAX_PER_WINDOW", 5),
			MaxContentLen:      getEnvAsInt("MAX_CONTENT_LEN", 1000),
			FeedLimit:          getEnvAsInt("FEED_LIMIT", 100),
			VisibilityWindow:   getEnvAsDuration("VISIBILITY_WINDOW", 24*time.Hour),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 24*time.Hour),
			HardRetention:      getEnvAsDuration("HARD_RETENTION", 48*time.Hour),
			ActiveMemberWindow: getEnvAsDuration("ACTIVE_MEMBER_WINDOW", 1*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Auth.RegistrationMin > cfg.Auth.RegistrationMax {
		return nil, fmt.Errorf("REGISTRATION_MIN must not exceed REGISTRATION_MAX")
	}

	// The hard-delete backstop must outlive the visibility window, otherwise
	// rows disappear before the deactivation audit trail has any value.
	if cfg.Forum.HardRetention < cfg.Forum.VisibilityWindow {
		return nil, fmt.Errorf("HARD_RETENTION must be at least VISIBILITY_WINDOW")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
