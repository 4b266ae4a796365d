package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Archiver ArchiverConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// ArchiverConfig controls the session lifecycle job and its operator tools.
type ArchiverConfig struct {
	Timezone      string
	Cron          string
	BatchSize     int
	RunTimeout    time.Duration
	Reason        string
	LockKey       string
	LockTTL       time.Duration
	ReportsDir    string
	ReportsTTL    time.Duration
	MetricsEnable bool
}

// DefaultArchiveReason is recorded on historical rows written by the scheduled job.
const DefaultArchiveReason = "ended — automatic archival"

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 30*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS_LOCK"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	batch := v.GetInt("ARCHIVER_BATCH_SIZE")
	if batch <= 0 {
		batch = 200
	}
	reason := strings.TrimSpace(v.GetString("ARCHIVER_REASON"))
	if reason == "" {
		reason = DefaultArchiveReason
	}
	cfg.Archiver = ArchiverConfig{
		Timezone:      v.GetString("SCHEDULE_TIMEZONE"),
		Cron:          v.GetString("ARCHIVER_CRON"),
		BatchSize:     batch,
		RunTimeout:    parseDuration(v.GetString("ARCHIVER_RUN_TIMEOUT"), 30*time.Minute),
		Reason:        reason,
		LockKey:       v.GetString("ARCHIVER_LOCK_KEY"),
		LockTTL:       parseDuration(v.GetString("ARCHIVER_LOCK_TTL"), time.Hour),
		ReportsDir:    v.GetString("ARCHIVER_REPORTS_DIR"),
		ReportsTTL:    parseDuration(v.GetString("ARCHIVER_REPORTS_TTL"), 30*24*time.Hour),
		MetricsEnable: v.GetBool("ENABLE_METRICS"),
	}

	return cfg, nil
}

// Location resolves the configured schedule timezone, falling back to UTC.
func (c ArchiverConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_enrollment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")

	v.SetDefault("ENABLE_REDIS_LOCK", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("ARCHIVER_CRON", "0 1 * * *")
	v.SetDefault("ARCHIVER_BATCH_SIZE", 200)
	v.SetDefault("ARCHIVER_RUN_TIMEOUT", "30m")
	v.SetDefault("ARCHIVER_REASON", DefaultArchiveReason)
	v.SetDefault("ARCHIVER_LOCK_KEY", "archiver:session-lifecycle")
	v.SetDefault("ARCHIVER_LOCK_TTL", "1h")
	v.SetDefault("ARCHIVER_REPORTS_DIR", "./reports")
	v.SetDefault("ARCHIVER_REPORTS_TTL", "720h")
	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
