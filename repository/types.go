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

	"github.com/tomoncle/memberquery/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
// Filters are ANDed; nil filters are ignored.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filters ...*types.QueryFilter) ([]*T, error)

	Count(ctx context.Context, filters ...*types.QueryFilter) (int, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// BulkRepository runs set-based statements that bypass loaded entities.
// A nil filter targets every row.
type BulkRepository[T any] interface {
	UpdateWhere(ctx context.Context, filter *types.QueryFilter, set string, args ...interface{}) (int64, error)
	DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int64, error)
}

// TransactionRepository runs CRUD operations on an explicit connection,
// usually a bun.Tx.
type TransactionRepository[T any] interface {
	CreateWithTx(ctx context.Context, tx bun.IDB, entity ...*T) error
	UpsertWithTx(ctx context.Context, tx bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error
	UpdateWithTx(ctx context.Context, tx bun.IDB, entity *T) error
	DeleteWithTx(ctx context.Context, tx bun.IDB, id any) error
}

// PageQueryRepository pages over entities. Sort properties are column names
// of T; without a sort the primary key orders the rows.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, pageable *types.PageRequest, filters ...*types.QueryFilter) (*types.Page[*T], error)
}

// Repository combines CRUD, bulk, pagination and transactional operations
// and exposes bun query builders for everything else.
type Repository[T any] interface {
	CrudRepository[T]
	BulkRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
