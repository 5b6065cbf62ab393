// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the launcher's optional configuration. Everything
// has a default, so a bare directory holding a venv and an app.py needs no
// configuration at all.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"gopkg.in/yaml.v2"
)

var logger = loggo.GetLogger("pylaunch.config")

const (
	// FileName is the optional launcher configuration file, looked up next
	// to the launcher itself.
	FileName = "pylaunch.yaml"

	// EnvFileName is the optional dotenv file whose variables are passed to
	// the server process.
	EnvFileName = ".env"

	// DefaultVenv is the virtual environment directory used when the
	// configuration does not name one.
	DefaultVenv = "venv"

	// DefaultEntrypoint is the server entry point used when the
	// configuration does not name one.
	DefaultEntrypoint = "app.py"
)

// Config holds the launcher's settings.
type Config struct {
	// Venv is the virtual environment directory, relative to the launcher.
	Venv string `yaml:"venv"`

	// Entrypoint is the server entry point, relative to the launcher.
	Entrypoint string `yaml:"entrypoint"`

	// Args are extra arguments passed to the entry point.
	Args []string `yaml:"args"`

	// Env holds extra variables for the server's environment. Variables
	// read from the dotenv file appear here too; explicit config values
	// take precedence.
	Env map[string]string `yaml:"env"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Venv:       DefaultVenv,
		Entrypoint: DefaultEntrypoint,
	}
}

// Read loads the configuration from dir, merging pylaunch.yaml and .env
// over the defaults. Missing files are fine; malformed ones are not.
func Read(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Trace(err)
	}
	if err == nil {
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, errors.Annotatef(err, "parsing %s", FileName)
		}
		logger.Debugf("read configuration from %s", path)
	}
	if cfg.Venv == "" {
		cfg.Venv = DefaultVenv
	}
	if cfg.Entrypoint == "" {
		cfg.Entrypoint = DefaultEntrypoint
	}

	extra, err := readEnvFile(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(extra) > 0 {
		merged := make(map[string]string, len(extra)+len(cfg.Env))
		for k, v := range extra {
			merged[k] = v
		}
		for k, v := range cfg.Env {
			merged[k] = v
		}
		cfg.Env = merged
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.Annotatef(err, "parsing %s", filepath.Base(path))
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	logger.Debugf("read %d variable(s) from %s: %v", len(vars), path, keys)
	return vars, nil
}
