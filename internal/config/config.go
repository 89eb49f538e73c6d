package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yukikurage/review-portal/internal/constants"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	SessionStore  string
	SessionSecret string

	GinMode  string
	Port     string
	LogLevel string

	BcryptCost     int
	UploadDir      string
	MaxUploadBytes int64
	LoginRateLimit string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	SSO SSOConfig
}

// SSOConfig selects and configures the identity provider used for SSO logins.
type SSOConfig struct {
	Mode         string // "simulated" or "oauth2"
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "portaluser"),
		DBPassword: getEnv("DB_PASSWORD", "portalpassword"),
		DBName:     getEnv("DB_NAME", "review_portal"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionStore:  getEnv("SESSION_STORE", "redis"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),

		GinMode:  getEnv("GIN_MODE", "debug"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BcryptCost:     getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", constants.DefaultMaxUploadBytes)),
		LoginRateLimit: getEnv("LOGIN_RATE_LIMIT", "20-M"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		SSO: SSOConfig{
			Mode:         getEnv("SSO_MODE", "simulated"),
			ClientID:     getEnv("SSO_CLIENT_ID", ""),
			ClientSecret: getEnv("SSO_CLIENT_SECRET", ""),
			AuthURL:      getEnv("SSO_AUTH_URL", ""),
			TokenURL:     getEnv("SSO_TOKEN_URL", ""),
			UserInfoURL:  getEnv("SSO_USERINFO_URL", ""),
			RedirectURL:  getEnv("SSO_REDIRECT_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
