package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultServiceName tags every log line when the config leaves it empty.
const DefaultServiceName = "module-progress-console"

type LoggerConfig struct {
	Level        string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format       string `mapstructure:"format" validate:"oneof=json console"`
	OutputTarget string `mapstructure:"output_target" validate:"oneof=stdout stderr"`
	// FilePath adds a JSON file sink next to the main output. Empty disables it.
	FilePath       string         `mapstructure:"file_path"`
	TimeField      string         `mapstructure:"time_field"`
	TimeFormat     string         `mapstructure:"time_format" validate:"oneof=rfc3339 rfc3339nano unix unix_ms"`
	ServiceName    string         `mapstructure:"service_name"`
	ServiceVersion string         `mapstructure:"service_version"`
	Env            string         `mapstructure:"env" validate:"oneof=dev test staging prod"`
	WithCaller     bool           `mapstructure:"with_caller"`
	Fields         map[string]any `mapstructure:"fields"`
}

// New builds the application logger and sets the global level.
func New(cfg *LoggerConfig) (zerolog.Logger, error) {
	cfg.setDefaults()
	var out io.Writer = os.Stdout
	if cfg.OutputTarget == "stderr" {
		out = os.Stderr
	}
	return NewTo(cfg, out)
}

// NewTo is New with an explicit primary writer.
func NewTo(cfg *LoggerConfig, out io.Writer) (zerolog.Logger, error) {
	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config validation error: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	zerolog.TimestampFieldName = cfg.TimeField
	zerolog.TimeFieldFormat = timeLayout(cfg.TimeFormat)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	if cfg.FilePath != "" {
		// a broken file sink degrades to the primary writer only
		if f, ferr := openLogFile(cfg.FilePath); ferr == nil {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}

	ctx := zerolog.New(out).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.ServiceVersion).
		Str("env", cfg.Env)
	if cfg.WithCaller {
		ctx = ctx.Caller()
	}
	if len(cfg.Fields) > 0 {
		ctx = ctx.Fields(cfg.Fields)
	}

	zerolog.SetGlobalLevel(level)
	return ctx.Logger().Level(level), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func timeLayout(name string) string {
	switch name {
	case "rfc3339":
		return time.RFC3339
	case "unix":
		return zerolog.TimeFormatUnix
	case "unix_ms":
		return zerolog.TimeFormatUnixMs
	default:
		return time.RFC3339Nano
	}
}

func (c *LoggerConfig) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.OutputTarget == "" {
		c.OutputTarget = "stdout"
	}
	if c.TimeField == "" {
		c.TimeField = "ts"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "rfc3339nano"
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.1"
	}
}
