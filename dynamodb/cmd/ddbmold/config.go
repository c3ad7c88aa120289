package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configFilename = "ddbmold.yaml"

// FileConfig holds defaults for the command line flags.
// Loaded from ddbmold.yaml if present; flags given explicitly win.
type FileConfig struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	RoleARN   string `yaml:"role_arn"`
	Endpoint  string `yaml:"endpoint"`
	LocalDir  string `yaml:"local_dir"`
	InMemory  bool   `yaml:"in_memory"`
	BatchSize int    `yaml:"batch_size"`
	KeepGoing bool   `yaml:"keep_going"`

	PollInterval time.Duration `yaml:"poll_interval"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LoadFileConfig reads path, or the nearest ddbmold.yaml found walking up
// from dir when path is empty. A missing discovered file is not an error.
func LoadFileConfig(path, dir string) (FileConfig, string, error) {
	var cfg FileConfig
	if path == "" {
		path = findConfigFile(dir)
		if path == "" {
			return cfg, "", nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, path, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, path, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, path, nil
}

// findConfigFile searches for ddbmold.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
