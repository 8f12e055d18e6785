package config

import (
	"fmt"
	"time"

	"github.com/nordwell-io/flowkit/kafka"
	"github.com/nordwell-io/flowkit/redis"
	"github.com/nordwell-io/flowkit/server"
	"github.com/nordwell-io/flowkit/storage"
)

// FlowDefaults holds the runtime-wide defaults §10 names: the zip/buffer
// capacities and rate_limit interval operators fall back to when a
// pipeline doesn't specify its own.
type FlowDefaults struct {
	ZipMaxSize       int           `yaml:"zip_max_size" mapstructure:"zip_max_size"`
	BufferLimit      int           `yaml:"buffer_limit" mapstructure:"buffer_limit"`
	RateLimitDefault time.Duration `yaml:"rate_limit_default" mapstructure:"rate_limit_default"`
}

// ApplyDefaults fills in zero-valued fields.
func (d *FlowDefaults) ApplyDefaults() {
	if d.ZipMaxSize <= 0 {
		d.ZipMaxSize = 10
	}
	if d.BufferLimit <= 0 {
		d.BufferLimit = 100
	}
	if d.RateLimitDefault <= 0 {
		d.RateLimitDefault = 100 * time.Millisecond
	}
}

// Validate checks the runtime-wide defaults.
func (d *FlowDefaults) Validate() error {
	if d.ZipMaxSize <= 0 {
		return fmt.Errorf("flow.zip_max_size must be positive (got: %d)", d.ZipMaxSize)
	}
	if d.BufferLimit <= 0 {
		return fmt.Errorf("flow.buffer_limit must be positive (got: %d)", d.BufferLimit)
	}
	if d.RateLimitDefault <= 0 {
		return fmt.Errorf("flow.rate_limit_default must be positive (got: %s)", d.RateLimitDefault)
	}
	return nil
}

// FlowConfig is the top-level configuration for the flowd entrypoint: the
// runtime-wide operator defaults plus every external collaborator named
// in SPEC_FULL §11, loaded the same way the teacher loads service config
// (env-var overlay over defaults via LoadConfig).
type FlowConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Flow    FlowDefaults   `yaml:"flow" mapstructure:"flow"`
	Server  server.Config  `yaml:"server" mapstructure:"server"`
	Kafka   kafka.Config   `yaml:"kafka" mapstructure:"kafka"`
	Redis   redis.Config   `yaml:"redis" mapstructure:"redis"`
	Storage storage.Config `yaml:"storage" mapstructure:"storage"`
}

// ApplyDefaults applies defaults to every section, base config first.
func (c *FlowConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Flow.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Storage.ApplyDefaults()
}

// Validate validates every section, base config first. Kafka/Redis/Storage
// are only validated when their Enabled flag is set — flowd runs with a
// bare in-process pipeline and no collaborators wired by default.
func (c *FlowConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Flow.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if c.Kafka.Enabled {
		if err := c.Kafka.Validate(); err != nil {
			return fmt.Errorf("config.kafka: %w", err)
		}
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("config.redis: %w", err)
		}
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("config.storage: %w", err)
		}
	}
	return nil
}
