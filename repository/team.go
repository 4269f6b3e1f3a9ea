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
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/types"
	"github.com/uptrace/bun"
)

type TeamRepository interface {
	Repository[model.Team]

	WithTx(tx bun.IDB) TeamRepository

	Save(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id int64) (*model.Team, error)
	// FindByName returns the first team with name, by id.
	FindByName(ctx context.Context, name string) (*model.Team, error)
	FindAll(ctx context.Context) ([]*model.Team, error)
}

type teamRepository struct {
	Repository[model.Team]
}

func NewTeamRepository(db bun.IDB) TeamRepository {
	return &teamRepository{Repository: NewRepository[model.Team](db)}
}

func (r *teamRepository) WithTx(tx bun.IDB) TeamRepository {
	return NewTeamRepository(tx)
}

func (r *teamRepository) Save(ctx context.Context, team *model.Team) error {
	if err := r.Create(ctx, team); err != nil {
		return fmt.Errorf("save team %q: %w", team.Name, err)
	}
	for _, m := range team.Members {
		id := team.ID
		m.TeamID = &id
	}
	return nil
}

func (r *teamRepository) FindByID(ctx context.Context, id int64) (*model.Team, error) {
	team, err := r.GetOne(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", id, ErrTeamNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find team %d: %w", id, err)
	}
	return team, nil
}

func (r *teamRepository) FindByName(ctx context.Context, name string) (*model.Team, error) {
	teams, err := r.List(ctx, types.Eq(ColTeamName, name))
	if err != nil {
		return nil, fmt.Errorf("find team %q: %w", name, err)
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("team %q: %w", name, ErrTeamNotFound)
	}
	return teams[0], nil
}

func (r *teamRepository) FindAll(ctx context.Context) ([]*model.Team, error) {
	teams, err := r.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find teams: %w", err)
	}
	return teams, nil
}
