package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/locus/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32 `mapstructure:"max_conns"`
	MinConns        int32 `mapstructure:"min_conns"`
	MaxConnLifetime int   `mapstructure:"max_conn_lifetime"`  // seconds
	MaxConnIdleTime int   `mapstructure:"max_conn_idle_time"` // seconds
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RegistryConfig carries the separation constants. Every node sharing a
// registry must run with identical values.
type RegistryConfig struct {
	MaxSpeedMPS        int64  `mapstructure:"max_speed_mps"`
	MinSolarTripTime   int64  `mapstructure:"min_solar_trip_time_s"`
	DatelineDistance   uint32 `mapstructure:"dateline_distance_m"`
	MaxLocationsPerSet int    `mapstructure:"max_locations_per_set"`

	// Storage selects the registry backend: "postgres" or "memory".
	Storage string `mapstructure:"storage"`
}

// Params converts the registry section to domain constants.
func (r RegistryConfig) Params() domain.Params {
	return domain.Params{
		MaxSpeedMPS:      r.MaxSpeedMPS,
		MinSolarTripTime: r.MinSolarTripTime,
		DatelineDistance: r.DatelineDistance,
	}
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "locus")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "locus")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", 3600)
	v.SetDefault("database.max_conn_idle_time", 300)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "locus:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "locus-registration")
	params := domain.DefaultParams()
	v.SetDefault("registry.max_speed_mps", params.MaxSpeedMPS)
	v.SetDefault("registry.min_solar_trip_time_s", params.MinSolarTripTime)
	v.SetDefault("registry.dateline_distance_m", params.DatelineDistance)
	v.SetDefault("registry.max_locations_per_set", 4096)
	v.SetDefault("registry.storage", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LOCUS_DATABASE_HOST → database.host
	v.SetEnvPrefix("LOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	usePostgres := c.Registry.Storage == "postgres"
	if c.Registry.Storage != "postgres" && c.Registry.Storage != "memory" {
		errs = append(errs, fmt.Sprintf("registry.storage must be postgres or memory, got %q", c.Registry.Storage))
	}
	if usePostgres && c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if usePostgres && (c.Database.Port <= 0 || c.Database.Port > 65535) {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if usePostgres && c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if usePostgres && c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if usePostgres && c.Database.MaxConns <= 0 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be positive, got %d", c.Database.MaxConns))
	}
	if usePostgres && (c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns) {
		errs = append(errs, fmt.Sprintf("database.min_conns must be 0-%d, got %d", c.Database.MaxConns, c.Database.MinConns))
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if err := c.Registry.Params().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Registry.MaxLocationsPerSet <= 0 {
		errs = append(errs, "registry.max_locations_per_set must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
