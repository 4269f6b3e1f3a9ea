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
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager applies the versioned bootstrap steps once each,
// recording them in the schema_migrations table.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	config *Config
}

type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name,notnull"`
	AppliedAt   time.Time `bun:"applied_at,notnull"`
	Description string    `bun:"description"`
}

type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

func NewMigrationManager(db *bun.DB, logger Logger, cfg *Config) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MigrationManager{db: db, logger: logger, config: cfg}
}

// RunMigrations executes pending migrations in version order. Query logging
// is muted unless MEMBERQUERY_SQL_LOG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv(QueryLogEnv + "_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for _, m := range migrations {
		if err := mm.runMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}
	}
	mm.logger.Info("Database migrations completed")
	return nil
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create team and member tables",
		Up:          mm.createBaseTables,
	}}
	if mm.config.DataMigrateConfig.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add foreign key constraints",
			Up:          mm.addForeignKeys,
		})
	}
	if mm.config.DataInitConfig.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Seed data from SQL files",
			Up:          mm.seedInitialData,
		})
	}
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, m MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", m.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// Foreign keys run outside a transaction: a failed ALTER aborts the
	// whole transaction on postgres.
	if m.Version == "002" {
		if err := m.Up(ctx, mm.db); err != nil {
			return err
		}
		return mm.record(ctx, mm.db, m)
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
		return mm.record(ctx, tx, m)
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed", "version", m.Version, "name", m.Name)
	return nil
}

func (mm *MigrationManager) record(ctx context.Context, db bun.IDB, m MigrationItem) error {
	_, err := db.NewInsert().Model(&Migration{
		Version:     m.Version,
		Name:        m.Name,
		AppliedAt:   time.Now(),
		Description: m.Description,
	}).Exec(ctx)
	return err
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range tableModelInstances() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, _ bun.IDB) error {
	fkm := LoadForeignKeyManager(mm.logger, mm.config.DataMigrateConfig.ForeignKeyFile)
	return fkm.AddAllForeignKeys(ctx, mm.db)
}

// InitData runs the SQL seed files outside the migration history.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	cfg := mm.config.DataInitConfig
	sqlManager := NewSQLInitManager(db, cfg.Environment)
	if cfg.Filepath != "" {
		sqlManager.SetSQLRootPath(cfg.Filepath)
	}
	if _, err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
