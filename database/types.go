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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, bootstrapping tables, seeding data, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	InitData(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type     string `yaml:"type" json:"type"`     // postgres, mysql, sqlite
	Driver   string `yaml:"driver" json:"driver"` // postgres only: pq (default) or pgx
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// DBName is the database name; for sqlite it is the file name without
	// ".db", or a DSN starting with "file:" or ":memory:".
	DBName              string        `yaml:"dbname" json:"dbname"`
	SSLMode             string        `yaml:"sslmode" json:"sslmode"`
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns        int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout" json:"write_timeout"`
	EnableReconnect     bool          `yaml:"enable_reconnect" json:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries" json:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
	EnableQueryLog      bool          `yaml:"enable_query_log" json:"enable_query_log"`
	// QueryLogStyle selects the query logger: "color" (default) or "bundebug".
	QueryLogStyle string        `yaml:"query_log_style" json:"query_log_style"`
	SlowQueryTime time.Duration `yaml:"slow_query_time" json:"slow_query_time"`
}

// DataMigrateConfig controls table bootstrap on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `yaml:"enable_migrate_on_startup" json:"enable_migrate_on_startup"`
	EnableForeignKey       bool   `yaml:"enable_foreign_key" json:"enable_foreign_key"`
	ForeignKeyFile         string `yaml:"foreign_key_file" json:"foreign_key_file"`
}

// DataInitConfig controls SQL-file seeding and environment selection.
type DataInitConfig struct {
	AutoInitOnStartup   bool   `yaml:"auto_init_on_startup" json:"auto_init_on_startup"`
	AutoInitOnMigration bool   `yaml:"auto_init_on_migration" json:"auto_init_on_migration"`
	Filepath            string `yaml:"filepath" json:"filepath"`
	Environment         string `yaml:"environment" json:"environment"`
}

// Config aggregates connection, bootstrap, and data initialization settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `yaml:"connection" json:"connection_config"`
	DataMigrateConfig DataMigrateConfig `yaml:"migrate" json:"data_migrate_config"`
	DataInitConfig    DataInitConfig    `yaml:"init" json:"data_init_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

// DefaultConfig returns a Config whose connection section carries
// DefaultConnectionConfig values and which bootstraps tables on startup.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{
			EnableMigrateOnStartup: true,
			EnableForeignKey:       true,
		},
		DataInitConfig: DataInitConfig{
			Filepath:    "configs/sql",
			Environment: "prod",
		},
	}
}
