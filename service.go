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

package memberquery

import (
	"context"
	"sync"

	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/repository"
	"github.com/tomoncle/memberquery/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities ordered by primary key.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching every non-nil filter.
	List(ctx context.Context, filters ...*types.QueryFilter) ([]*T, error)

	// Page returns one page of entities.
	Page(ctx context.Context, pageable *types.PageRequest, filters ...*types.QueryFilter) (*types.Page[*T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// SelectBuilder returns a bun select query builder.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any] struct {
	db   bun.IDB
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service on the process-wide database, bound on first
// use so it can be created before database.InitDB.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service on db.
func NewServiceWithDB[T any](db bun.IDB) Service[T] {
	return &baseServiceImpl[T]{db: db}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		if s.db == nil {
			s.db = database.GetDB()
		}
		s.repo = repository.NewRepository[T](s.db)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filters ...*types.QueryFilter) ([]*T, error) {
	return s.baseRepo().List(ctx, filters...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, pageable *types.PageRequest, filters ...*types.QueryFilter) (*types.Page[*T], error) {
	return s.baseRepo().Page(ctx, pageable, filters...)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Create(ctx, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}
