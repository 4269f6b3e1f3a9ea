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
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func TestForeignKeyConstraint_GenerateSQL(t *testing.T) {
	fk := ForeignKeyConstraint{
		Table: "member", Column: "team_id",
		ReferenceTable: "team", ReferenceColumn: "team_id",
		OnDelete: "set null",
	}
	assert.Equal(t, "fk_member_team_id", fk.GenerateConstraintName())
	assert.Equal(t,
		"ALTER TABLE member ADD CONSTRAINT fk_member_team_id FOREIGN KEY (team_id) REFERENCES team(team_id) ON DELETE SET NULL",
		fk.GenerateSQL())

	fk.ConstraintName = "fk_member_team"
	fk.OnUpdate = "cascade"
	assert.Equal(t,
		"ALTER TABLE member ADD CONSTRAINT fk_member_team FOREIGN KEY (team_id) REFERENCES team(team_id) ON DELETE SET NULL ON UPDATE CASCADE",
		fk.GenerateSQL())
}

func TestLoadForeignKeyManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
foreign_keys:
  - table: member
    column: team_id
    reference_table: team
    reference_column: team_id
    on_delete: CASCADE
`), 0o644))

	fkm := LoadForeignKeyManager(nil, path)
	require.Len(t, fkm.ListAllConstraints(), 1)
	assert.Equal(t, "CASCADE", fkm.ListAllConstraints()[0].OnDelete)
	assert.Len(t, fkm.GetConstraintsByTable("MEMBER"), 1)
	assert.Empty(t, fkm.GetConstraintsByTable("team"))

	assert.Equal(t, DefaultForeignKeys(), LoadForeignKeyManager(nil, "").ListAllConstraints())
	assert.Equal(t, DefaultForeignKeys(), LoadForeignKeyManager(nil, filepath.Join(dir, "absent.yaml")).ListAllConstraints())
}

func TestForeignKeyManager_ValidateConstraints(t *testing.T) {
	fkm := NewForeignKeyManager(nil, []ForeignKeyConstraint{
		{Table: "member", Column: "team_id", ReferenceTable: "team", ReferenceColumn: "team_id", OnDelete: "explode"},
		{Table: "member", Column: "team_id", OnUpdate: "restrict"},
	})
	assert.Len(t, fkm.ValidateConstraints(), 2)
	assert.Empty(t, NewForeignKeyManager(nil, DefaultForeignKeys()).ValidateConstraints())
}

func TestForeignKeyManager_AddAllForeignKeys(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	constraints := []ForeignKeyConstraint{
		DefaultForeignKeys()[0],
		{Table: "audit", Column: "member_id", ReferenceTable: "member", ReferenceColumn: "member_id"},
	}
	mock.ExpectExec(regexp.QuoteMeta(constraints[0].GenerateSQL())).
		WillReturnError(errors.New(`constraint "fk_member_team" already exists`))
	mock.ExpectExec(regexp.QuoteMeta(constraints[1].GenerateSQL())).
		WillReturnResult(sqlmock.NewResult(0, 0))

	fkm := NewForeignKeyManager(nil, constraints)
	require.NoError(t, fkm.AddAllForeignKeys(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignKeyManager_InvalidConfigFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	fkm := NewForeignKeyManager(nil, []ForeignKeyConstraint{{Table: "member"}})
	assert.ErrorContains(t, fkm.AddAllForeignKeys(context.Background(), db), "invalid foreign key configuration")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignKeyManager_SkipsSQLite(t *testing.T) {
	fkm := NewForeignKeyManager(nil, DefaultForeignKeys())
	assert.NoError(t, fkm.AddAllForeignKeys(context.Background(), newRawSQLite(t)))
}
