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

const memberTeamJoin = "LEFT JOIN team AS t ON t.team_id = m.team_id"

// MemberRepository adds member searches and bulk statements to the generic
// repository.
type MemberRepository interface {
	Repository[model.Member]

	// WithTx returns a repository running on tx.
	WithTx(tx bun.IDB) MemberRepository

	Save(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id int64) (*model.Member, error)
	FindAll(ctx context.Context) ([]*model.Member, error)
	FindByUsername(ctx context.Context, username string) ([]*model.Member, error)

	// Search lists members matching cond as MemberTeamDto, ordered by member id.
	Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error)
	// SearchByBuilder is Search with the predicate accumulated in a
	// types.FilterBuilder instead of separate WHERE clauses.
	SearchByBuilder(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error)
	// SearchMember returns entities instead of projections.
	SearchMember(ctx context.Context, cond model.MemberSearchCondition) ([]*model.Member, error)
	// SearchPage skips the count query when the page itself determines the total.
	SearchPage(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	// SearchPageSimple always runs the count query.
	SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)

	// FindWithTeam loads every member with its team in one joined query.
	FindWithTeam(ctx context.Context) ([]*model.Member, error)
	FindOldest(ctx context.Context) ([]*model.Member, error)
	FindAboveAverageAge(ctx context.Context) ([]*model.Member, error)
	FindUsernames(ctx context.Context) ([]string, error)
	// TeamStats groups members per team; teams with fewer than minMembers
	// members are left out when minMembers > 0.
	TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error)

	BulkAddAge(ctx context.Context, delta int) (int64, error)
	BulkRenameYoungerThan(ctx context.Context, age int, username string) (int64, error)
	BulkDeleteOlderThan(ctx context.Context, age int) (int64, error)
}

type memberRepository struct {
	Repository[model.Member]
	db bun.IDB
}

func NewMemberRepository(db bun.IDB) MemberRepository {
	return &memberRepository{Repository: NewRepository[model.Member](db), db: db}
}

func (r *memberRepository) WithTx(tx bun.IDB) MemberRepository {
	return NewMemberRepository(tx)
}

func (r *memberRepository) Save(ctx context.Context, member *model.Member) error {
	if member.TeamID == nil && member.Team != nil && member.Team.ID != 0 {
		id := member.Team.ID
		member.TeamID = &id
	}
	if err := r.Create(ctx, member); err != nil {
		return fmt.Errorf("save member %q: %w", member.Username, err)
	}
	return nil
}

func (r *memberRepository) FindByID(ctx context.Context, id int64) (*model.Member, error) {
	member, err := r.GetOne(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find member %d: %w", id, err)
	}
	return member, nil
}

func (r *memberRepository) FindAll(ctx context.Context) ([]*model.Member, error) {
	members, err := r.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	return members, nil
}

func (r *memberRepository) FindByUsername(ctx context.Context, username string) ([]*model.Member, error) {
	members, err := r.List(ctx, types.Eq(ColUsername, username))
	if err != nil {
		return nil, fmt.Errorf("find members by username: %w", err)
	}
	return members, nil
}

// newDtoQuery selects the MemberTeamDto columns over the member/team join.
func (r *memberRepository) newDtoQuery() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*model.Member)(nil)).
		ColumnExpr("m.member_id, m.username, m.age").
		ColumnExpr("t.team_id, t.name AS team_name").
		Join(memberTeamJoin)
}

func (r *memberRepository) newCountQuery() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*model.Member)(nil)).
		Join(memberTeamJoin)
}

func (r *memberRepository) Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
	dtos := make([]model.MemberTeamDto, 0)
	query := types.ApplyFilters(r.newDtoQuery(), ConditionFilters(cond)...).
		OrderExpr("? ASC", bun.Ident(ColMemberID))
	if err := query.Scan(ctx, &dtos); err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	return dtos, nil
}

func (r *memberRepository) SearchByBuilder(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
	builder := types.NewFilterBuilder()
	if types.HasText(cond.Username) {
		builder.And(types.Eq(ColUsername, *cond.Username))
	}
	if types.HasText(cond.TeamName) {
		builder.And(types.Eq(ColTeamName, *cond.TeamName))
	}
	if cond.AgeGoe != nil {
		builder.And(types.Goe(ColAge, *cond.AgeGoe))
	}
	if cond.AgeLoe != nil {
		builder.And(types.Loe(ColAge, *cond.AgeLoe))
	}

	dtos := make([]model.MemberTeamDto, 0)
	query := types.ApplyFilters(r.newDtoQuery(), builder.Build()).
		OrderExpr("? ASC", bun.Ident(ColMemberID))
	if err := query.Scan(ctx, &dtos); err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	return dtos, nil
}

func (r *memberRepository) SearchMember(ctx context.Context, cond model.MemberSearchCondition) ([]*model.Member, error) {
	members := make([]*model.Member, 0)
	query := r.db.NewSelect().
		Model(&members).
		Join(memberTeamJoin)
	query = types.ApplyFilters(query,
		UsernameEq(cond.Username),
		TeamNameEq(cond.TeamName),
		AgeBetween(cond.AgeGoe, cond.AgeLoe),
	).OrderExpr("? ASC", bun.Ident(ColMemberID))
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	return members, nil
}

// applySort orders by the requested properties, then by member id so that
// pages stay stable when sort keys tie.
func applySort(q *bun.SelectQuery, orders []types.Order) (*bun.SelectQuery, error) {
	byID := false
	for _, o := range orders {
		col, ok := sortColumns[o.Property]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSortProperty, o.Property)
		}
		if col == ColMemberID {
			byID = true
		}
		q = q.OrderExpr("? "+o.Direction.String(), bun.Ident(col))
	}
	if !byID {
		q = q.OrderExpr("? ASC", bun.Ident(ColMemberID))
	}
	return q, nil
}

func (r *memberRepository) searchContent(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) ([]model.MemberTeamDto, error) {
	query, err := applySort(types.ApplyFilters(r.newDtoQuery(), ConditionFilters(cond)...), pageable.GetSort())
	if err != nil {
		return nil, err
	}
	dtos := make([]model.MemberTeamDto, 0, pageable.GetPageSize())
	err = query.
		Offset(pageable.GetOffset()).
		Limit(pageable.GetPageSize()).
		Scan(ctx, &dtos)
	if err != nil {
		return nil, fmt.Errorf("search member page: %w", err)
	}
	return dtos, nil
}

func (r *memberRepository) countByCondition(ctx context.Context, cond model.MemberSearchCondition) (int, error) {
	total, err := types.ApplyFilters(r.newCountQuery(), ConditionFilters(cond)...).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return total, nil
}

func (r *memberRepository) SearchPage(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	content, err := r.searchContent(ctx, cond, pageable)
	if err != nil {
		return nil, err
	}
	return types.NewPage(content, pageable, func() (int, error) {
		return r.countByCondition(ctx, cond)
	})
}

func (r *memberRepository) SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	content, err := r.searchContent(ctx, cond, pageable)
	if err != nil {
		return nil, err
	}
	total, err := r.countByCondition(ctx, cond)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = make([]model.MemberTeamDto, 0)
	}
	return &types.Page[model.MemberTeamDto]{Content: content, Pageable: pageable, Total: total}, nil
}

func (r *memberRepository) FindWithTeam(ctx context.Context) ([]*model.Member, error) {
	members := make([]*model.Member, 0)
	err := r.db.NewSelect().
		Model(&members).
		Relation("Team").
		OrderExpr("? ASC", bun.Ident(ColMemberID)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find members with team: %w", err)
	}
	return members, nil
}

func (r *memberRepository) findByAgeSubquery(ctx context.Context, op, aggregate string) ([]*model.Member, error) {
	sub := r.db.NewSelect().
		TableExpr("member AS sub").
		ColumnExpr(aggregate + "(sub.age)")
	members := make([]*model.Member, 0)
	err := r.db.NewSelect().
		Model(&members).
		Where("? "+op+" (?)", bun.Ident(ColAge), sub).
		OrderExpr("? ASC", bun.Ident(ColMemberID)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find members by %s age: %w", aggregate, err)
	}
	return members, nil
}

// FindOldest returns every member whose age equals the maximum age.
func (r *memberRepository) FindOldest(ctx context.Context) ([]*model.Member, error) {
	return r.findByAgeSubquery(ctx, "=", "MAX")
}

// FindAboveAverageAge returns members at or above the average age.
func (r *memberRepository) FindAboveAverageAge(ctx context.Context) ([]*model.Member, error) {
	return r.findByAgeSubquery(ctx, ">=", "AVG")
}

func (r *memberRepository) FindUsernames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := r.db.NewSelect().
		Model((*model.Member)(nil)).
		Column("username").
		OrderExpr("? ASC", bun.Ident(ColMemberID)).
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("find usernames: %w", err)
	}
	return names, nil
}

func (r *memberRepository) TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error) {
	stats := make([]model.TeamStat, 0)
	query := r.db.NewSelect().
		TableExpr("team AS t").
		ColumnExpr("t.name AS team_name").
		ColumnExpr("COUNT(m.member_id) AS member_count").
		ColumnExpr("COALESCE(AVG(m.age), 0) AS average_age").
		Join("LEFT JOIN member AS m ON m.team_id = t.team_id").
		GroupExpr("t.team_id, t.name").
		OrderExpr("t.name ASC")
	if minMembers > 0 {
		query.Having("COUNT(m.member_id) >= ?", minMembers)
	}
	if err := query.Scan(ctx, &stats); err != nil {
		return nil, fmt.Errorf("team stats: %w", err)
	}
	return stats, nil
}

// BulkAddAge adds delta to every member's age.
func (r *memberRepository) BulkAddAge(ctx context.Context, delta int) (int64, error) {
	n, err := r.UpdateWhere(ctx, nil, "age = age + ?", delta)
	if err != nil {
		return 0, fmt.Errorf("bulk add age: %w", err)
	}
	return n, nil
}

// BulkRenameYoungerThan sets username on every member younger than age.
func (r *memberRepository) BulkRenameYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	n, err := r.UpdateWhere(ctx, types.Lt("age", age), "username = ?", username)
	if err != nil {
		return 0, fmt.Errorf("bulk rename: %w", err)
	}
	return n, nil
}

// BulkDeleteOlderThan deletes every member older than age.
func (r *memberRepository) BulkDeleteOlderThan(ctx context.Context, age int) (int64, error) {
	n, err := r.DeleteWhere(ctx, types.Gt("age", age))
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	return n, nil
}
