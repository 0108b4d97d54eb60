package reaktor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Global struct {
	LogLevel       string `yaml:"log_level" toml:"log_level" env:"REAKTOR_LOG_LEVEL"`
	RaiseFileLimit uint64 `yaml:"raise_file_limit" toml:"raise_file_limit" env:"REAKTOR_RAISE_FILE_LIMIT"`
}

// Level parses the configured log level, defaulting to info when the value
// is absent or unknown.
func (g Global) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(g.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

type LoopConfig struct {
	Name            string `yaml:"name" toml:"name"`
	LockOsThread    bool   `yaml:"lock_os_thread" toml:"lock_os_thread"`
	EventBufferSize int    `yaml:"event_buffer_size" toml:"event_buffer_size"`
	WaitTimeoutMs   int    `yaml:"wait_timeout_ms" toml:"wait_timeout_ms"`
}

// System converts the entry into a runtime SystemConfig.
func (lc LoopConfig) System() SystemConfig {
	return SystemConfig{
		Name:            lc.Name,
		LockOsThread:    lc.LockOsThread,
		EventBufferSize: lc.EventBufferSize,
		WaitTimeout:     time.Duration(lc.WaitTimeoutMs) * time.Millisecond,
	}
}

type ServerConfig struct {
	Name        string     `yaml:"name" toml:"name"`
	Net         string     `yaml:"net" toml:"net"`
	Address     string     `yaml:"address" toml:"address"`
	MaxSessions int        `yaml:"max_sessions" toml:"max_sessions"`
	Loop        LoopConfig `yaml:"loop" toml:"loop"`
}

type Config struct {
	Global  Global         `yaml:"global" toml:"global"`
	Servers []ServerConfig `yaml:"servers" toml:"servers"`
}

// LoadConfig reads filePath (.toml, .yaml or .yml by extension) and applies
// REAKTOR_* environment overrides on top of the file values.
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	if strings.HasSuffix(filePath, ".toml") {
		err = toml.Unmarshal(file, config)
	} else if strings.HasSuffix(filePath, ".yaml") || strings.HasSuffix(filePath, ".yml") {
		err = yaml.Unmarshal(file, config)
	} else {
		return nil, fmt.Errorf("unsupported config file extension: %s", filePath)
	}
	if err != nil {
		return nil, err
	}
	if err := env.Parse(config); err != nil {
		return nil, err
	}
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	for i := range config.Servers {
		server := &config.Servers[i]
		if server.Net == "" {
			server.Net = "tcp"
		}
		if server.MaxSessions <= 0 {
			server.MaxSessions = 1024
		}
		if server.Loop.Name == "" {
			server.Loop.Name = server.Name
		}
		if server.Loop.EventBufferSize <= 0 {
			server.Loop.EventBufferSize = defEventsBufferSize
		}
	}
}
