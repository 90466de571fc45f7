package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"potd_engine/internal/domain/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ImageStorePostgres = "postgres"
	ImageStoreMinio    = "minio"
)

type Config struct {
	APIPort       string
	JWTKey        []byte
	JWTExp        time.Duration
	BotSecretHash string // bcrypt hash of the secret the chat bot presents
	CORSOrigins   []string

	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	DBConnStr   string

	RedisAddr               string // empty disables Redis
	RedisPassword           string
	RedisDB                 int
	AdvanceLockKey          string
	AdvanceLockTTLSeconds   int
	NotificationQueueName   string
	NotificationRatePerSec  float64
	NotificationBurst       int
	NotificationHTTPTimeout time.Duration

	BasePoints       float64
	PostTime         string // HH:MM, local to Location
	Location         *time.Location
	AdminIDs         []int64
	BlacklistIDs     []int64
	DestinationsFile string
	Destinations     []model.Destination

	ImageStore     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogLevel string
	LogFile  string
}

var AppConfig *Config

// Load reads .env (if any) and the environment, then the destinations file.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		BotSecretHash: getEnv("BOT_SECRET_HASH", ""),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"*"}),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "potd"),
		DBPassword:  getEnv("DB_PASSWORD", "potd"),
		DBName:      getEnv("DB_NAME", "potd"),
		DBSslMode:   getEnv("DB_SSLMODE", "disable"),

		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvAsInt("REDIS_DB", 0),
		AdvanceLockKey:          getEnv("ADVANCE_LOCK_KEY", "potd_advance_lock"),
		AdvanceLockTTLSeconds:   getEnvAsInt("ADVANCE_LOCK_TTL_SECONDS", 120),
		NotificationQueueName:   getEnv("NOTIFICATION_QUEUE_NAME", "potd_notifications"),
		NotificationRatePerSec:  getEnvAsFloat("NOTIFY_RATE_PER_SEC", 1),
		NotificationBurst:       getEnvAsInt("NOTIFY_BURST", 5),
		NotificationHTTPTimeout: getEnvAsDuration("NOTIFY_HTTP_TIMEOUT", 10*time.Second),

		BasePoints:       getEnvAsFloat("BASE_POINTS", 100),
		PostTime:         getEnv("POST_TIME", "00:00"),
		AdminIDs:         getEnvAsInt64List("ADMIN_IDS"),
		BlacklistIDs:     getEnvAsInt64List("BLACKLIST_IDS"),
		DestinationsFile: getEnv("DESTINATIONS_FILE", ""),

		ImageStore:     getEnv("IMAGE_STORE", ImageStorePostgres),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "potd-images"),
		MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if cfg.DestinationsFile != "" {
		dests, err := LoadDestinations(cfg.DestinationsFile)
		if err != nil {
			return nil, err
		}
		cfg.Destinations = dests
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	AppConfig = cfg
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StoreDriver != StoreDriverPostgres && c.StoreDriver != StoreDriverMemory {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ImageStore != ImageStorePostgres && c.ImageStore != ImageStoreMinio {
		return fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore)
	}
	if c.ImageStore == ImageStoreMinio && c.StoreDriver == StoreDriverMemory {
		return fmt.Errorf("IMAGE_STORE=minio requires STORE_DRIVER=postgres")
	}
	if c.BasePoints <= 0 {
		return fmt.Errorf("BASE_POINTS must be positive, got %v", c.BasePoints)
	}
	if _, _, err := c.PostClock(); err != nil {
		return err
	}
	if c.NotificationRatePerSec <= 0 {
		return fmt.Errorf("NOTIFY_RATE_PER_SEC must be positive")
	}
	return nil
}

// PostClock returns the configured daily posting time.
func (c *Config) PostClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.PostTime)
	if err != nil {
		return 0, 0, fmt.Errorf("POST_TIME must look like 15:04, got %q", c.PostTime)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) IsBlacklisted(userID int64) bool {
	for _, id := range c.BlacklistIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type destinationsFile struct {
	Destinations []model.Destination `yaml:"destinations"`
}

// LoadDestinations reads the YAML list of announcement destinations.
func LoadDestinations(path string) ([]model.Destination, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read destinations file: %w", err)
	}
	var f destinationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse destinations file %s: %w", path, err)
	}
	for i, d := range f.Destinations {
		if d.Name == "" {
			return nil, fmt.Errorf("destination #%d has no name", i+1)
		}
		if d.OtdPrefix == "" {
			f.Destinations[i].OtdPrefix = "Problem"
		}
	}
	return f.Destinations, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsInt64List skips entries that are not integers.
func getEnvAsInt64List(key string) []int64 {
	var ids []int64
	for _, part := range getEnvAsList(key, nil) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
