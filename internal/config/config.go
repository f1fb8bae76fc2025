package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Delete policies.
const (
	DeleteHard = "hard"
	DeleteSoft = "soft"
)

// Password hashing algorithms.
const (
	AlgoBcrypt   = "bcrypt"
	AlgoArgon2id = "argon2id"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort      string
	ShutdownTimeout time.Duration

	StoreDriver   string
	MySQLDSN      string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret    string
	TokenTTL     time.Duration
	PasswordAlgo string
	BcryptCost   int

	DeletePolicy     string
	UsersRequireAuth bool

	LogLevel     string
	LogFile      string
	LogMaxSizeMB int
}

// Load builds Config from the environment, reading a .env file first when present.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMySQL)),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "userhub"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
		PasswordAlgo: strings.ToLower(getEnv("PASSWORD_ALGO", AlgoBcrypt)),
		BcryptCost:   getEnvInt("BCRYPT_COST", 10),

		DeletePolicy:     strings.ToLower(getEnv("DELETE_POLICY", DeleteHard)),
		UsersRequireAuth: getEnvBool("USERS_REQUIRE_AUTH", true),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnvAllowEmpty("LOG_FILE", "logs/app.log"),
		LogMaxSizeMB: getEnvInt("LOG_MAX_SIZE_MB", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and enumerations are known.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}

	switch c.StoreDriver {
	case DriverMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is required for the mysql store"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres store"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.DeletePolicy {
	case DeleteHard, DeleteSoft:
	default:
		errs = append(errs, fmt.Errorf("unknown DELETE_POLICY %q", c.DeletePolicy))
	}

	switch c.PasswordAlgo {
	case AlgoBcrypt, AlgoArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unknown PASSWORD_ALGO %q", c.PasswordAlgo))
	}

	return errors.Join(errs...)
}

// SoftDelete reports whether deletes flag records instead of removing them.
func (c *Config) SoftDelete() bool {
	return c.DeletePolicy == DeleteSoft
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
