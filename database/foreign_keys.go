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
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete"` // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string `yaml:"on_update"`
	ConstraintName  string `yaml:"constraint_name"`
}

// ForeignKeyConfig is the layout of the foreign key YAML file.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// GenerateSQL returns the ALTER TABLE statement adding the constraint.
func (fk *ForeignKeyConstraint) GenerateSQL() string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		fk.Table, fk.GenerateConstraintName(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		stmt += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		stmt += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return stmt
}

// DefaultForeignKeys is used when no YAML file is configured: a member keeps
// existing when its team is deleted.
func DefaultForeignKeys() []ForeignKeyConstraint {
	return []ForeignKeyConstraint{{
		Table:           "member",
		Column:          "team_id",
		ReferenceTable:  "team",
		ReferenceColumn: "team_id",
		OnDelete:        "SET NULL",
		ConstraintName:  "fk_member_team",
	}}
}

// ForeignKeyManager adds constraints after the tables exist.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

func NewForeignKeyManager(logger Logger, constraints []ForeignKeyConstraint) *ForeignKeyManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &ForeignKeyManager{constraints: constraints, logger: logger}
}

// LoadForeignKeyManager reads constraints from path, falling back to
// DefaultForeignKeys when path is empty or unreadable.
func LoadForeignKeyManager(logger Logger, path string) *ForeignKeyManager {
	fkm := NewForeignKeyManager(logger, DefaultForeignKeys())
	if path == "" {
		return fkm
	}
	constraints, err := loadForeignKeyFile(path)
	if err != nil {
		fkm.logger.Warn("Using built-in foreign keys", "config_path", path, "error", err)
		return fkm
	}
	fkm.constraints = constraints
	return fkm
}

func loadForeignKeyFile(path string) ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign key file: %w", err)
	}
	var cfg ForeignKeyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foreign key file: %w", err)
	}
	return cfg.ForeignKeys, nil
}

// AddAllForeignKeys adds every constraint. Failures are logged and skipped,
// since a constraint may already exist from a previous start. SQLite cannot
// add constraints to an existing table and is skipped entirely.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db *bun.DB) error {
	if db.Dialect().Name() == dialect.SQLite {
		fkm.logger.Debug("Foreign keys skipped for sqlite")
		return nil
	}
	if errs := fkm.ValidateConstraints(); len(errs) > 0 {
		return fmt.Errorf("invalid foreign key configuration: %v", errs)
	}
	for _, c := range fkm.constraints {
		if _, err := db.ExecContext(ctx, c.GenerateSQL()); err != nil {
			fkm.logger.Debug("Failed to add foreign key constraint", "constraint", c.GenerateConstraintName(), "error", err.Error())
			continue
		}
		fkm.logger.Debug("Added foreign key constraint", "constraint", c.GenerateConstraintName())
	}
	return nil
}

func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, tableName) {
			result = append(result, c)
		}
	}
	return result
}

func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

var validFKActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

func validFKAction(action string) bool {
	if action == "" {
		return true
	}
	for _, a := range validFKActions {
		if strings.EqualFold(action, a) {
			return true
		}
	}
	return false
}

// ValidateConstraints checks the configured constraints for common issues.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, c := range fkm.constraints {
		if c.Table == "" || c.Column == "" || c.ReferenceTable == "" || c.ReferenceColumn == "" {
			errs = append(errs, fmt.Errorf("incomplete foreign key: %s.%s -> %s.%s",
				c.Table, c.Column, c.ReferenceTable, c.ReferenceColumn))
		}
		if !validFKAction(c.OnDelete) {
			errs = append(errs, fmt.Errorf("invalid delete policy: %s, constraint: %s", c.OnDelete, c.GenerateConstraintName()))
		}
		if !validFKAction(c.OnUpdate) {
			errs = append(errs, fmt.Errorf("invalid update policy: %s, constraint: %s", c.OnUpdate, c.GenerateConstraintName()))
		}
	}
	return errs
}
