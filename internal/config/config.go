package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Terminal TerminalConfig `yaml:"terminal"`
	LogTail  LogTailConfig  `yaml:"logtail"`
	AWS      AWSConfig      `yaml:"aws"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type TerminalConfig struct {
	DefaultShell     string `yaml:"default_shell"`
	ScrollbackChunks int    `yaml:"scrollback_chunks"`
}

type LogTailConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Lookback     time.Duration `yaml:"lookback"`
	Retention    int           `yaml:"retention"`
}

type AWSConfig struct {
	CLIPath string `yaml:"cli_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Terminal: TerminalConfig{
			DefaultShell:     "/bin/sh",
			ScrollbackChunks: 256,
		},
		LogTail: LogTailConfig{
			PollInterval: 2 * time.Second,
			Lookback:     30 * time.Second,
			Retention:    5000,
		},
		AWS: AWSConfig{
			CLIPath: "aws",
		},
	}
}

// Load reads a yaml config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
