package core

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultVirtualFrames            = 3
	DefaultFrameSize         uint64 = 32 << 20
	DefaultPipelineCachePath        = "ofAppPipelineCache.bin"
	DefaultMaxDescriptorPools       = 4
)

type LogConfig struct {
	Level string `toml:"level"`
}

type ContextConfig struct {
	VirtualFrames int `toml:"virtual_frames"`
	// Size in bytes of each virtual frame's region of the shared buffer.
	FrameSize          uint64 `toml:"frame_size"`
	PipelineCachePath  string `toml:"pipeline_cache"`
	MaxDescriptorPools int    `toml:"max_descriptor_pools"`
}

/** @brief Top level configuration file layout. */
type Config struct {
	Log     LogConfig     `toml:"log"`
	Context ContextConfig `toml:"context"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Context: ContextConfig{
			VirtualFrames:      DefaultVirtualFrames,
			FrameSize:          DefaultFrameSize,
			PipelineCachePath:  DefaultPipelineCachePath,
			MaxDescriptorPools: DefaultMaxDescriptorPools,
		},
	}
}

/** @brief Decodes a TOML document on top of the defaults. Unknown keys are an error. */
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(bytes.NewReader(data))
}

func (c *Config) Validate() error {
	if c.Context.VirtualFrames < 1 {
		return fmt.Errorf("context.virtual_frames must be at least 1, got %d", c.Context.VirtualFrames)
	}
	if c.Context.FrameSize == 0 {
		return fmt.Errorf("context.frame_size must be greater than 0")
	}
	if c.Context.MaxDescriptorPools < 1 {
		return fmt.Errorf("context.max_descriptor_pools must be at least 1, got %d", c.Context.MaxDescriptorPools)
	}
	return nil
}

/** @brief Applies the configured log level to the process logger. */
func (c *Config) Apply() error {
	if c.Log.Level == "" {
		return nil
	}
	return SetLogLevel(c.Log.Level)
}
