// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads the deployment configuration of leadhunt from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/search"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete configuration of a deployment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	AI       ai.Config      `yaml:"ai"`
	Search   search.Config  `yaml:"search"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RunBudget is the wall-clock budget of one discovery run.
	RunBudget time.Duration `yaml:"run_budget"`

	// RunPoolSize bounds the number of runs executing at once.
	RunPoolSize int `yaml:"run_pool_size"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the persistent store.
type StorageConfig struct {
	// Driver is one of badger, sqlite or postgres.
	Driver string `yaml:"driver"`

	// Path is the badger directory or the sqlite database file.
	Path string `yaml:"path"`

	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`
}

// PipelineConfig tunes discovery runs.
type PipelineConfig struct {
	QueryCount   int           `yaml:"query_count"`
	RankInputCap int           `yaml:"rank_input_cap"`
	TopN         int           `yaml:"top_n"`
	PoolSize     int           `yaml:"pool_size"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RunBudget:       60 * time.Second,
			RunPoolSize:     8,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: DriverBadger,
			Path:   "leadhunt-data",
		},
		AI:     *ai.DefaultConfig(),
		Search: search.DefaultConfig(),
		Pipeline: PipelineConfig{
			QueryCount:   10,
			RankInputCap: 50,
			TopN:         50,
			StaleAfter:   5 * time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config YAML: %w", err)
	}
	return cfg, nil
}

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from LEADHUNT_* variables. Provider keys also
// fall back to the conventional OPENAI_API_KEY, GEMINI_API_KEY and
// SERPER_API_KEY variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.Server.Addr, "LEADHUNT_ADDR")
	str(&c.Storage.Driver, "LEADHUNT_STORAGE_DRIVER")
	str(&c.Storage.Path, "LEADHUNT_STORAGE_PATH")
	str(&c.Storage.DSN, "LEADHUNT_DATABASE_DSN", "DATABASE_URL")
	str(&c.AI.Backend, "LEADHUNT_AI_BACKEND")
	str(&c.AI.Host, "LEADHUNT_AI_HOST")
	str(&c.AI.QueryModel, "LEADHUNT_QUERY_MODEL")
	str(&c.AI.RankModel, "LEADHUNT_RANK_MODEL")
	str(&c.Search.SerperAPIKey, "LEADHUNT_SERPER_API_KEY", "SERPER_API_KEY")

	backend := strings.ToLower(strings.TrimSpace(c.AI.Backend))
	if backend == ai.BackendGemini {
		str(&c.AI.APIKey, "LEADHUNT_AI_API_KEY", "GEMINI_API_KEY")
	} else {
		str(&c.AI.APIKey, "LEADHUNT_AI_API_KEY", "OPENAI_API_KEY")
	}

	if v, ok := lookup("LEADHUNT_RUN_BUDGET"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEADHUNT_RUN_BUDGET: %w", err)
		}
		c.Server.RunBudget = d
	}
	if v, ok := lookup("LEADHUNT_ENABLE_HACKERNEWS"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEADHUNT_ENABLE_HACKERNEWS: %w", err)
		}
		c.Search.EnableHackerNews = enabled
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.RunBudget <= 0 {
		return errors.New("config: server.run_budget must be positive")
	}
	if c.Server.RunPoolSize < 1 {
		return errors.New("config: server.run_pool_size must be at least 1")
	}
	if c.Pipeline.QueryCount < 1 || c.Pipeline.RankInputCap < 1 || c.Pipeline.TopN < 1 {
		return errors.New("config: pipeline counts must be positive")
	}
	if c.Pipeline.StaleAfter <= 0 {
		return errors.New("config: pipeline.stale_after must be positive")
	}
	return c.AI.Validate()
}
