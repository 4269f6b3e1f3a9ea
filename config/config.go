/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the server configuration: a .env file, then a YAML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tomoncle/memberquery/database"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix    = "MEMBERQUERY"
	ProfileLocal = "local"
)

type ServerConfig struct {
	Addr              string        `yaml:"addr" envconfig:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	FileEnabled bool   `yaml:"file_enabled" envconfig:"FILE_ENABLED"`
	FileDir     string `yaml:"file_dir" envconfig:"FILE_DIR"`
	FileLevel   string `yaml:"file_level" envconfig:"FILE_LEVEL"`
	FileFormat  string `yaml:"file_format" envconfig:"FILE_FORMAT"`
	MaxAgeDays  int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
}

// Config is the whole server configuration. Server and log fields are
// overridden by MEMBERQUERY_SERVER_* and MEMBERQUERY_LOG_*; database fields by
// the DB_* variables read by the database package.
type Config struct {
	Profile  string          `yaml:"profile" envconfig:"PROFILE"`
	Version  string          `yaml:"version" envconfig:"VERSION"`
	Server   ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Log      LogConfig       `yaml:"log" envconfig:"LOG"`
	Database database.Config `yaml:"database" ignored:"true"`
}

// IsLocal reports whether the local sample data set should be loaded.
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Profile, ProfileLocal)
}

func Default() *Config {
	db := database.DefaultConfig()
	db.ConnectionConfig.Type = "sqlite"
	db.ConnectionConfig.DBName = "memberquery"
	return &Config{
		Profile: ProfileLocal,
		Version: "dev",
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			FileDir:    "logs",
			FileLevel:  "info",
			FileFormat: "json",
			MaxAgeDays: 7,
		},
		Database: *db,
	}
}

// Load builds a Config from Default, then the file at path (skipped when
// path is empty or missing), then MEMBERQUERY_* variables. A .env file in
// the working directory is loaded first without overriding the real
// environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Database.ConnectionConfig.Type == "" {
		return errors.New("database.connection.type is required")
	}
	return nil
}
