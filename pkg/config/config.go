package config

import (
	"errors"
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
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Monitoring MonitoringConfig
	Alerts     AlertsConfig
	Reports    ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MonitoringConfig governs the metric endpoints and the sources they read from.
type MonitoringConfig struct {
	Enabled                      bool
	PrimaryTranscriptionProvider string
	QueueName                    string
	QueueKeyPrefix               string
	CacheEnabled                 bool
	CacheTTL                     time.Duration
	Timezone                     string
}

// AlertsConfig holds the cron specs for the threshold checks.
type AlertsConfig struct {
	Enabled       bool
	STTSchedule   string
	QueueSchedule string
	CostSchedule  string
}

// ReportsConfig toggles cost report exports.
type ReportsConfig struct {
	Enabled bool
}

// Location resolves the configured timezone, falling back to UTC.
func (m MonitoringConfig) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Monitoring = MonitoringConfig{
		Enabled:                      v.GetBool("ENABLE_MONITORING"),
		PrimaryTranscriptionProvider: strings.TrimSpace(v.GetString("PRIMARY_TRANSCRIPTION_PROVIDER")),
		QueueName:                    v.GetString("ANALYSIS_QUEUE_NAME"),
		QueueKeyPrefix:               v.GetString("ANALYSIS_QUEUE_KEY_PREFIX"),
		CacheEnabled:                 v.GetBool("ENABLE_MONITORING_CACHE"),
		CacheTTL:                     parseDuration(v.GetString("MONITORING_CACHE_TTL"), time.Hour),
		Timezone:                     v.GetString("MONITORING_TIMEZONE"),
	}

	cfg.Alerts = AlertsConfig{
		Enabled:       v.GetBool("ENABLE_ALERTS"),
		STTSchedule:   v.GetString("ALERT_STT_SCHEDULE"),
		QueueSchedule: v.GetString("ALERT_QUEUE_SCHEDULE"),
		CostSchedule:  v.GetString("ALERT_COST_SCHEDULE"),
	}

	cfg.Reports = ReportsConfig{
		Enabled: v.GetBool("ENABLE_REPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lesson_ops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_MONITORING", true)
	v.SetDefault("PRIMARY_TRANSCRIPTION_PROVIDER", "whisper")
	v.SetDefault("ANALYSIS_QUEUE_NAME", "analysis")
	v.SetDefault("ANALYSIS_QUEUE_KEY_PREFIX", "bull")
	v.SetDefault("ENABLE_MONITORING_CACHE", true)
	v.SetDefault("MONITORING_CACHE_TTL", "1h")
	v.SetDefault("MONITORING_TIMEZONE", "UTC")

	v.SetDefault("ENABLE_ALERTS", true)
	v.SetDefault("ALERT_STT_SCHEDULE", "*/15 * * * *")
	v.SetDefault("ALERT_QUEUE_SCHEDULE", "*/15 * * * *")
	v.SetDefault("ALERT_COST_SCHEDULE", "0 9 * * *")

	v.SetDefault("ENABLE_REPORTS", true)
}

// viper reports a missing explicit config file as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
