package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

// Supported document store drivers.
const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Supported keyed lock drivers.
const (
	LockLocal = "local"
	LockRedis = "redis"
	LockNone  = "none"
)

// Config holds all configuration values for the application, loaded from environment variables or config files.
// This struct centralizes configuration for maintainability and testability.
type Config struct {
	Port string // HTTP server port
	Env  string // Application environment (e.g., development, production)

	LogLevel string // Overrides the environment's default log level when set

	StoreDriver string // Document store backend: memory, postgres or firestore

	DBUser            string // Database user
	DBPort            string // Database port
	DBHost            string // Database host
	DBName            string // Database name
	DBPassword        string // Database password
	DBMaxOpenConns    int    // Maximum open connections in the pool
	DBMaxIdleConns    int    // Maximum idle connections in the pool
	DBConnMaxLifetime int    // Connection lifetime in minutes
	DBConnMaxIdleTime int    // Idle connection lifetime in minutes

	FirestoreProjectID    string // GCP project hosting the Firestore database
	GoogleCredentialsFile string // Optional service account file for GCP clients

	LockDriver     string // Keyed lock backend: local, redis or none
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LockTTLSeconds int // Expiry of a redis lock if its holder dies

	AzureKeyVaultURL string // Vault used to resolve azure-kv:// references

	JWTSecret   string // Secret key used to sign and verify bearer tokens
	JWTDuration int    // Token lifetime in minutes

	OptimisticMaxRetries    int // Attempts for version-checked read-modify-write
	CascadeQueryConcurrency int // Parallel liked-post lookups during a cascade
	PendingRequestLimit     int // Pending requests a member may hold right after a submission
}

// Load reads configuration from the .env file and environment variables, returning a Config struct.
// A missing .env file is not an error; every key can come from the environment.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("STORE_DRIVER", StoreMemory)
	viper.SetDefault("DB_USER", "clubhub")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_NAME", "clubhub")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", 30)
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", 5)
	viper.SetDefault("LOCK_DRIVER", LockLocal)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOCK_TTL_SECONDS", 10)
	viper.SetDefault("JWT_DURATION", 60)
	viper.SetDefault("OPTIMISTIC_MAX_RETRIES", 5)
	viper.SetDefault("CASCADE_QUERY_CONCURRENCY", 8)
	viper.SetDefault("PENDING_REQUEST_LIMIT", 5)
	if err := viper.ReadInConfig(); err != nil && !isMissingConfig(err) {
		return nil, err
	}

	return &Config{
		Port:                    viper.GetString("PORT"),
		Env:                     viper.GetString("ENV"),
		LogLevel:                viper.GetString("LOG_LEVEL"),
		StoreDriver:             viper.GetString("STORE_DRIVER"),
		DBUser:                  viper.GetString("DB_USER"),
		DBPort:                  viper.GetString("DB_PORT"),
		DBHost:                  viper.GetString("DB_HOST"),
		DBName:                  viper.GetString("DB_NAME"),
		DBPassword:              viper.GetString("DB_PASSWORD"),
		DBMaxOpenConns:          viper.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:          viper.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime:       viper.GetInt("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime:       viper.GetInt("DB_CONN_MAX_IDLE_TIME"),
		FirestoreProjectID:      viper.GetString("FIRESTORE_PROJECT_ID"),
		GoogleCredentialsFile:   viper.GetString("GOOGLE_CREDENTIALS_FILE"),
		LockDriver:              viper.GetString("LOCK_DRIVER"),
		RedisAddr:               viper.GetString("REDIS_ADDR"),
		RedisPassword:           viper.GetString("REDIS_PASSWORD"),
		RedisDB:                 viper.GetInt("REDIS_DB"),
		LockTTLSeconds:          viper.GetInt("LOCK_TTL_SECONDS"),
		AzureKeyVaultURL:        viper.GetString("AZURE_KEYVAULT_URL"),
		JWTSecret:               viper.GetString("JWT_SECRET"),
		JWTDuration:             viper.GetInt("JWT_DURATION"),
		OptimisticMaxRetries:    viper.GetInt("OPTIMISTIC_MAX_RETRIES"),
		CascadeQueryConcurrency: viper.GetInt("CASCADE_QUERY_CONCURRENCY"),
		PendingRequestLimit:     viper.GetInt("PENDING_REQUEST_LIMIT"),
	}, nil
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// SecretFields returns pointers to every config value that may hold a secret
// reference, keyed by its environment name.
func (c *Config) SecretFields() map[string]*string {
	return map[string]*string{
		"DB_PASSWORD":    &c.DBPassword,
		"REDIS_PASSWORD": &c.RedisPassword,
		"JWT_SECRET":     &c.JWTSecret,
	}
}
