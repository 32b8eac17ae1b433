package taskchain

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/crochee/taskchain/logger"
)

// Config holds the tunables of a deployment, usually loaded from YAML:
//
//	retry:
//	  attempts: 5
//	  delay: 1s
//	  exponential: false
//	workflow:
//	  breakOnCancel: true
//	  breakOnSkip: false
//	log:
//	  name: frontdesk
//	  level: info
//	  file: /var/log/taskchain.log
type Config struct {
	Retry    RetryConfig    `yaml:"retry"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Log      LogConfig      `yaml:"log"`
}

type RetryConfig struct {
	Attempts    int           `yaml:"attempts"`
	Delay       time.Duration `yaml:"delay"`
	Exponential bool          `yaml:"exponential"`
}

type WorkflowConfig struct {
	BreakOnCancel bool `yaml:"breakOnCancel"`
	BreakOnSkip   bool `yaml:"breakOnSkip"`
}

type LogConfig struct {
	Name       string `yaml:"name"`
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	JSON       bool   `yaml:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Retry: RetryConfig{
			Attempts: defaultAttempts,
			Delay:    defaultDelay,
		},
		Workflow: WorkflowConfig{
			BreakOnCancel: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig reads YAML from r over the defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.Retry.Attempts < 1 {
		return nil, fmt.Errorf("retry attempts must be positive, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return nil, fmt.Errorf("retry delay must not be negative, got %s", c.Retry.Delay)
	}
	return c, nil
}

func (c *Config) RetryOptions() []RetryOption {
	opts := []RetryOption{WithAttempts(c.Retry.Attempts), WithDelay(c.Retry.Delay)}
	if c.Retry.Exponential {
		opts = append(opts, WithExponentialBackOff())
	}
	return opts
}

func (c *Config) WorkflowOptions() []WorkflowOption {
	return []WorkflowOption{
		WithBreakOnCancel(c.Workflow.BreakOnCancel),
		WithBreakOnSkip(c.Workflow.BreakOnSkip),
	}
}

// Logger builds the logger described by the log section.
func (c *Config) Logger(fields ...zap.Field) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	opts := []logger.Option{logger.WithName(c.Log.Name), logger.WithLevel(level), logger.WithFields(fields...)}
	if c.Log.File != "" {
		opts = append(opts, logger.WithFile(c.Log.File, c.Log.MaxSizeMB, c.Log.MaxBackups))
	}
	if c.Log.JSON {
		opts = append(opts, logger.WithJSON())
	}
	return logger.NewLogger(opts...), nil
}
