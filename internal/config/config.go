package config

import (
	"fmt"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Lifecycle   LifecycleConfig   `mapstructure:"lifecycle"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	FilePath string `mapstructure:"file_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type KafkaConfig struct {
	// Empty brokers switches the outbox to the console producer.
	Brokers           []string `mapstructure:"brokers"`
	ContributionTopic string   `mapstructure:"contribution_topic"`
	ConsumerGroup     string   `mapstructure:"consumer_group"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	// LeaseTimeout is how long a PROCESSING task may go without an update
	// before another poll reclaims it.
	LeaseTimeout time.Duration `mapstructure:"lease_timeout"`
}

type RedisConfig struct {
	// Empty address disables the leaderboard cache.
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LifecycleConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ScoringConfig struct {
	ProximityWeight       float64            `mapstructure:"proximity_weight"`
	UrgencyWeight         float64            `mapstructure:"urgency_weight"`
	CapacityWeight        float64            `mapstructure:"capacity_weight"`
	MaxServiceRadiusKm    float64            `mapstructure:"max_service_radius_km"`
	UrgencyThresholdHours float64            `mapstructure:"urgency_threshold_hours"`
	UrgencyMaxBonus       float64            `mapstructure:"urgency_max_bonus"`
	ShelfLifeHours        map[string]float64 `mapstructure:"shelf_life_hours"`
}

type LeaderboardConfig struct {
	RoleWeights map[string]float64 `mapstructure:"role_weights"`
}

type AuditConfig struct {
	Workers      int           `mapstructure:"workers"`
	BatchSize    int           `mapstructure:"batch_size"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres host and database are required for the postgres backend")
		}
	case BackendFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Lifecycle.SweepInterval <= 0 {
		return fmt.Errorf("lifecycle.sweep_interval must be positive")
	}
	if c.Outbox.PollInterval <= 0 || c.Outbox.BatchSize <= 0 || c.Outbox.MaxAttempts <= 0 || c.Outbox.LeaseTimeout <= 0 {
		return fmt.Errorf("outbox poll interval, batch size, max attempts and lease timeout must be positive")
	}
	if c.Audit.Workers <= 0 || c.Audit.BatchSize <= 0 {
		return fmt.Errorf("audit workers and batch size must be positive")
	}
	if c.Scoring.MaxServiceRadiusKm <= 0 {
		return fmt.Errorf("scoring.max_service_radius_km must be positive")
	}
	return nil
}
