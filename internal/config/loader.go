package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads, in increasing priority: built-in defaults, an optional
// config.yaml, a .env file and the process environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)
	bindLegacyEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "9000")
	v.SetDefault("log.level", "info")

	v.SetDefault("storage.backend", BackendPostgres)
	v.SetDefault("storage.file_path", "smartplate.json")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "smartplate")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.contribution_topic", "smartplate.contributions")
	v.SetDefault("kafka.consumer_group", "smartplate-leaderboard")

	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.lease_timeout", time.Minute)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*time.Second)

	v.SetDefault("lifecycle.sweep_interval", time.Minute)

	v.SetDefault("scoring.proximity_weight", 0.4)
	v.SetDefault("scoring.urgency_weight", 0.35)
	v.SetDefault("scoring.capacity_weight", 0.25)
	v.SetDefault("scoring.max_service_radius_km", 25.0)
	v.SetDefault("scoring.urgency_threshold_hours", 4.0)
	v.SetDefault("scoring.urgency_max_bonus", 0.3)
	v.SetDefault("scoring.shelf_life_hours", map[string]float64{})

	v.SetDefault("leaderboard.role_weights", map[string]float64{})

	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.batch_size", 5)
	v.SetDefault("audit.flush_timeout", 500*time.Millisecond)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
}

// bindLegacyEnv keeps the variable names used by the docker-compose setup.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"postgres.host":     "DB_HOST",
		"postgres.port":     "DB_PORT",
		"postgres.user":     "POSTGRES_USER",
		"postgres.password": "POSTGRES_PASSWORD",
		"postgres.database": "POSTGRES_DB",
		"admin.username":    "ADMIN_USERNAME",
		"admin.password":    "ADMIN_PASSWORD",
	}
	for key, env := range legacy {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

func loadEnvFile() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}
	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			return
		}
	}
}
