package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads a YAML file and applies APP_* environment overrides,
// e.g. APP_DATA_DRIVER or APP_POSTGRES_PASSWORD. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with values that win over file and environment,
// keyed like the YAML ("data.file.path"). Command-line flags land here so
// validation sees the final config.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows; secrets have no default.
	for _, key := range []string{"postgres.user", "postgres.password", "postgres.db", "redis.password"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
	}

	for key, val := range overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct rules plus the settings each driver needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	var missing []string
	switch c.Data.Driver {
	case DriverFile:
		if c.Data.File.Path == "" {
			missing = append(missing, "data.file.path")
		}
	case DriverPostgres:
		if c.Postgres.User == "" {
			missing = append(missing, "postgres.user")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "postgres.password")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "postgres.db")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			missing = append(missing, "redis.addr")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %s driver requires %s", c.Data.Driver, strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "module-progress-console")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.shutdown_timeout", 10)

	v.SetDefault("logger.env", "prod")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output_target", "stdout")
	v.SetDefault("logger.time_field", "ts")
	v.SetDefault("logger.time_format", "rfc3339nano")
	v.SetDefault("logger.service_name", "module-progress-console")

	v.SetDefault("data.driver", DriverFile)
	v.SetDefault("data.file.path", "data/db.json")
	v.SetDefault("data.file.watch", true)
	v.SetDefault("data.file.persist", true)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mpc:")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3001"})
}
