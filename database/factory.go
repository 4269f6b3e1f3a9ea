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
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates the manager for a Config and wraps startup,
// health and stats calls around it.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// envOverrides are read from DB_* variables. Unset variables leave the
// pointer nil and the file value untouched.
type envOverrides struct {
	Type              *string        `envconfig:"TYPE"`
	Driver            *string        `envconfig:"DRIVER"`
	Host              *string        `envconfig:"HOST"`
	Port              *int           `envconfig:"PORT"`
	Username          *string        `envconfig:"USERNAME"`
	Password          *string        `envconfig:"PASSWORD"`
	DBName            *string        `envconfig:"NAME"`
	SSLMode           *string        `envconfig:"SSLMODE"`
	MaxIdleConns      *int           `envconfig:"MAX_IDLE_CONNS"`
	MaxOpenConns      *int           `envconfig:"MAX_OPEN_CONNS"`
	ConnMaxLifetime   *time.Duration `envconfig:"CONN_MAX_LIFETIME"`
	EnableReconnect   *bool          `envconfig:"ENABLE_RECONNECT"`
	ReconnectInterval *time.Duration `envconfig:"RECONNECT_INTERVAL"`
	EnableQueryLog    *bool          `envconfig:"ENABLE_QUERY_LOG"`
	SlowQueryTime     *time.Duration `envconfig:"SLOW_QUERY_TIME"`
}

// ApplyEnvOverrides copies any DB_* variables into cfg.
func ApplyEnvOverrides(cfg *ConnectionConfig) error {
	var o envOverrides
	if err := envconfig.Process("DB", &o); err != nil {
		return fmt.Errorf("invalid DB_* environment: %w", err)
	}
	setIf(&cfg.Type, o.Type)
	setIf(&cfg.Driver, o.Driver)
	setIf(&cfg.Host, o.Host)
	setIf(&cfg.Port, o.Port)
	setIf(&cfg.Username, o.Username)
	setIf(&cfg.Password, o.Password)
	setIf(&cfg.DBName, o.DBName)
	setIf(&cfg.SSLMode, o.SSLMode)
	setIf(&cfg.MaxIdleConns, o.MaxIdleConns)
	setIf(&cfg.MaxOpenConns, o.MaxOpenConns)
	setIf(&cfg.ConnMaxLifetime, o.ConnMaxLifetime)
	setIf(&cfg.EnableReconnect, o.EnableReconnect)
	setIf(&cfg.ReconnectInterval, o.ReconnectInterval)
	setIf(&cfg.EnableQueryLog, o.EnableQueryLog)
	setIf(&cfg.SlowQueryTime, o.SlowQueryTime)
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// CreateFromConfig applies environment overrides, validates the type and
// creates the manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := ApplyEnvOverrides(&cfg.ConnectionConfig); err != nil {
		return nil, err
	}

	supported := false
	for _, t := range supportedTypes {
		if strings.EqualFold(cfg.ConnectionConfig.Type, t) {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("unsupported database type: %q, supported types: %v", cfg.ConnectionConfig.Type, supportedTypes)
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// InitializeDatabase connects and optionally runs migrations and SQL seeding.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations, initData bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	if initData {
		if err := f.manager.InitData(ctx); err != nil {
			return fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	f.logger.Info("Database initialization completed")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
