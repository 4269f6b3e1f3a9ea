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

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomoncle/memberquery/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db bun.IDB
}

// NewRepository returns a generic repository on db, which may be a *bun.DB
// or a bun.Tx.
func NewRepository[T any](db bun.IDB) Repository[T] {
	return &baseRepositoryImpl[T]{db: db}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) model() *T { return (*T)(nil) }

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where("?TablePKs = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	err := r.db.NewSelect().Model(&entities).OrderExpr("?TablePKs ASC").Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filters ...*types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query := r.db.NewSelect().Model(&entities)
	types.ApplyFilters(query, filters...)
	if err := query.OrderExpr("?TablePKs ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filters ...*types.QueryFilter) (int, error) {
	query := r.db.NewSelect().Model(r.model())
	return types.ApplyFilters(query, filters...).Count(ctx)
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	entities := make([]*T, 0)
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageable *types.PageRequest, filters ...*types.QueryFilter) (*types.Page[*T], error) {
	entities := make([]*T, 0, pageable.GetPageSize())
	query := types.ApplyFilters(r.db.NewSelect().Model(&entities), filters...)
	if sort := pageable.GetSort(); len(sort) > 0 {
		for _, o := range sort {
			query.OrderExpr("? "+o.Direction.String(), bun.Ident(o.Property))
		}
	} else {
		query.OrderExpr("?TablePKs ASC")
	}
	err := query.
		Offset(pageable.GetOffset()).
		Limit(pageable.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewPage(entities, pageable, func() (int, error) {
		return r.Count(ctx, filters...)
	})
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.CreateWithTx(ctx, r.db, entity...)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	return r.UpdateWithTx(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.DeleteWithTx(ctx, r.db, id)
}

// UpdateWhere runs "UPDATE ... SET set WHERE filter". Filter columns must
// be unqualified, since not every dialect aliases the updated table.
func (r *baseRepositoryImpl[T]) UpdateWhere(ctx context.Context, filter *types.QueryFilter, set string, args ...interface{}) (int64, error) {
	query := r.db.NewUpdate().Model(r.model()).Set(set, args...)
	if filter != nil {
		query.Where(filter.Schema, filter.Args...)
	} else {
		query.Where("1 = 1")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteWhere runs "DELETE ... WHERE filter", with the same column rule as
// UpdateWhere.
func (r *baseRepositoryImpl[T]) DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	query := r.db.NewDelete().Model(r.model())
	if filter != nil {
		query.Where(filter.Schema, filter.Args...)
	} else {
		query.Where("1 = 1")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx bun.IDB, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	if len(entity) == 1 {
		_, err := tx.NewInsert().Model(entity[0]).Exec(ctx)
		return err
	}
	entities := append([]*T(nil), entity...)
	_, err := tx.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx bun.IDB, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx bun.IDB, id any) error {
	_, err := tx.NewDelete().Model(r.model()).Where("?PKs = ?", id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}
	entities := append([]*T(nil), entity...)
	features := db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertWithMySQL(ctx, db.NewInsert(), fields, entities)
	default:
		return r.upsertFallback(ctx, db, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, 2*len(fields))
	for _, field := range fields {
		sets = append(sets, "? = VALUES(?)")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE "+strings.Join(sets, ", "), args...).
		Exec(ctx)
	return err
}

// upsertOnConflict targets the primary key when no duplicate keys are given.
func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	target := "?PKs"
	var args []interface{}
	if len(duplicateKeys) > 0 {
		placeholders := make([]string, 0, len(duplicateKeys))
		for _, key := range duplicateKeys {
			placeholders = append(placeholders, "?")
			args = append(args, bun.Ident(key))
		}
		target = strings.Join(placeholders, ", ")
	}
	insertQuery = insertQuery.
		Model(&entities).
		On("CONFLICT ("+target+") DO UPDATE", args...)
	for _, field := range fields {
		insertQuery.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}
