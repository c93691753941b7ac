package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the API server.
type Config struct {
	Port       string `mapstructure:"PORT"`
	Env        string `mapstructure:"ENV"`
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	BcryptRounds int           `mapstructure:"BCRYPT_ROUNDS"`

	OTPExpiryMinutes   int    `mapstructure:"OTP_EXPIRY_MINUTES"`
	OTPMaxAttempts     int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPCleanupSchedule string `mapstructure:"OTP_CLEANUP_SCHEDULE"`

	MonoSecretKey  string `mapstructure:"MONO_SECRET_KEY"`
	MonoBaseURL    string `mapstructure:"MONO_BASE_URL"`
	MonoTxMaxPages int    `mapstructure:"MONO_TX_MAX_PAGES"`

	MindsDBHost          string `mapstructure:"MINDSDB_HOST"`
	MindsDBPort          string `mapstructure:"MINDSDB_PORT"`
	MindsDBDefaultEngine string `mapstructure:"MINDSDB_DEFAULT_ENGINE"`
	MindsDBSourceDB      string `mapstructure:"MINDSDB_SOURCE_DB"`
	GeminiAPIKey         string `mapstructure:"GEMINI_API_KEY"`

	EmailHost string `mapstructure:"EMAIL_HOST"`
	EmailPort int    `mapstructure:"EMAIL_PORT"`
	EmailUser string `mapstructure:"EMAIL_USER"`
	EmailPass string `mapstructure:"EMAIL_PASS"`
	EmailFrom string `mapstructure:"EMAIL_FROM"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RateLimitMax    int           `mapstructure:"RATE_LIMIT_MAX"`
}

var defaults = map[string]interface{}{
	"PORT":        "3001",
	"ENV":         "development",
	"CORS_ORIGIN": "http://localhost:3000",

	"DATABASE_URL":          "",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "wyse",
	"DB_MAX_IDLE_CONNS":     10,
	"DB_MAX_OPEN_CONNS":     100,
	"DB_CONN_MAX_LIFETIME":  "1h",
	"DB_CONN_MAX_IDLE_TIME": "30m",

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     "6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":     "",
	"JWT_EXPIRES_IN": "168h",
	"BCRYPT_ROUNDS":  12,

	"OTP_EXPIRY_MINUTES":   10,
	"OTP_MAX_ATTEMPTS":     5,
	"OTP_CLEANUP_SCHEDULE": "@every 15m",

	"MONO_SECRET_KEY":   "",
	"MONO_BASE_URL":     "https://api.withmono.com/v2",
	"MONO_TX_MAX_PAGES": 10,

	"MINDSDB_HOST":           "localhost",
	"MINDSDB_PORT":           "47334",
	"MINDSDB_DEFAULT_ENGINE": "google_gemini",
	"MINDSDB_SOURCE_DB":      "wyse_db",
	"GEMINI_API_KEY":         "",

	"EMAIL_HOST": "",
	"EMAIL_PORT": 587,
	"EMAIL_USER": "",
	"EMAIL_PASS": "",
	"EMAIL_FROM": "",

	"RABBITMQ_URL": "",

	"RATE_LIMIT_WINDOW": "15m",
	"RATE_LIMIT_MAX":    100,
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the configuration from the environment. JWT_SECRET is required.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	return &cfg, nil
}

// IsProduction reports whether the loaded config targets production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_*.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=disable"
}

// MindsDBURL is the base URL of the MindsDB HTTP API.
func (c *Config) MindsDBURL() string {
	return "http://" + c.MindsDBHost + ":" + c.MindsDBPort
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
