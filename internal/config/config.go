package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Classifier ClassifierConfig
	Worker     WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StatsTimezone         string
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level          string
	FilePath       string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

// ClassifierConfig selects the LLM provider used for ticket classification.
// An empty APIKey is valid and makes every classification return the fallback.
type ClassifierConfig struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
	MaxTokens      int
	Temperature    float64
}

// WorkerConfig schedules background jobs. An empty schedule disables the job.
type WorkerConfig struct {
	StatsCron string
}

var defaults = map[string]any{
	"app_name":                       "ticket-triage",
	"app_env":                        "development",
	"app_host":                       "0.0.0.0",
	"app_port":                       "8080",
	"app_version":                    "dev",
	"http_request_timeout_seconds":   30,
	"app_stats_timezone":             "UTC",
	"postgres_dsn":                   "",
	"postgres_max_conns":             10,
	"postgres_min_conns":             2,
	"postgres_run_migrations":        true,
	"postgres_migrations_dir":        "migrations",
	"postgres_conn_max_idle_seconds": 30,
	"postgres_conn_max_life_seconds": 300,
	"redis_addr":                     "",
	"redis_password":                 "",
	"redis_db":                       0,
	"redis_events_channel":           "tickets.events",
	"log_level":                      "info",
	"log_file_path":                  "",
	"log_file_max_size_mb":           100,
	"log_file_max_backups":           3,
	"log_file_max_age_days":          28,
	"classifier_provider":            "gemini",
	"classifier_api_key":             "",
	"classifier_model":               "",
	"classifier_base_url":            "",
	"classifier_timeout_seconds":     10,
	"classifier_max_tokens":          100,
	"classifier_temperature":         0.1,
	"worker_stats_cron":              "",
}

// Load reads configuration from an optional file and environment variables,
// applying defaults where possible. Environment variables win over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("app_name"),
			Env:                   v.GetString("app_env"),
			Host:                  v.GetString("app_host"),
			Port:                  v.GetString("app_port"),
			Version:               v.GetString("app_version"),
			RequestTimeoutSeconds: v.GetInt("http_request_timeout_seconds"),
			StatsTimezone:         v.GetString("app_stats_timezone"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("postgres_dsn"),
			MaxConns:       v.GetInt32("postgres_max_conns"),
			MinConns:       v.GetInt32("postgres_min_conns"),
			RunMigrations:  v.GetBool("postgres_run_migrations"),
			MigrationsDir:  v.GetString("postgres_migrations_dir"),
			ConnMaxIdleSec: v.GetInt32("postgres_conn_max_idle_seconds"),
			ConnMaxLifeSec: v.GetInt32("postgres_conn_max_life_seconds"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("redis_addr"),
			Password:      v.GetString("redis_password"),
			DB:            v.GetInt("redis_db"),
			EventsChannel: v.GetString("redis_events_channel"),
		},
		Logger: LoggerConfig{
			Level:          v.GetString("log_level"),
			FilePath:       v.GetString("log_file_path"),
			FileMaxSizeMB:  v.GetInt("log_file_max_size_mb"),
			FileMaxBackups: v.GetInt("log_file_max_backups"),
			FileMaxAgeDays: v.GetInt("log_file_max_age_days"),
		},
		Classifier: ClassifierConfig{
			Provider:       strings.ToLower(strings.TrimSpace(v.GetString("classifier_provider"))),
			APIKey:         strings.TrimSpace(v.GetString("classifier_api_key")),
			Model:          v.GetString("classifier_model"),
			BaseURL:        v.GetString("classifier_base_url"),
			TimeoutSeconds: v.GetInt("classifier_timeout_seconds"),
			MaxTokens:      v.GetInt("classifier_max_tokens"),
			Temperature:    v.GetFloat64("classifier_temperature"),
		},
		Worker: WorkerConfig{
			StatsCron: v.GetString("worker_stats_cron"),
		},
	}

	if _, err := time.LoadLocation(cfg.App.StatsTimezone); err != nil {
		return nil, fmt.Errorf("invalid APP_STATS_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds a single provider round trip. Non-positive values fall back to 10s.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
