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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/types"
	"github.com/uptrace/bun"
)

func TestMemberRepository_SaveAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.members.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	found, err := f.members.FindByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "member1", found.Username)
	require.NotNil(t, found.TeamID)
	assert.Equal(t, f.teamA.ID, *found.TeamID)

	byName, err := f.members.FindByUsername(ctx, "member3")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, 30, byName[0].Age)

	_, err = f.members.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemberRepository_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cond model.MemberSearchCondition
		want []string
	}{
		{"empty condition returns everything", model.MemberSearchCondition{}, []string{"member1", "member2", "member3", "member4"}},
		{"age range and team", model.MemberSearchCondition{AgeGoe: intPtr(35), AgeLoe: intPtr(40), TeamName: strPtr("teamB")}, []string{"member4"}},
		{"team only", model.MemberSearchCondition{TeamName: strPtr("teamA")}, []string{"member1", "member2"}},
		{"username", model.MemberSearchCondition{Username: strPtr("member2")}, []string{"member2"}},
		{"blank strings are ignored", model.MemberSearchCondition{Username: strPtr("  "), TeamName: strPtr("")}, []string{"member1", "member2", "member3", "member4"}},
		{"lower bound only", model.MemberSearchCondition{AgeGoe: intPtr(30)}, []string{"member3", "member4"}},
		{"upper bound only", model.MemberSearchCondition{AgeLoe: intPtr(20)}, []string{"member1", "member2"}},
		{"no match", model.MemberSearchCondition{Username: strPtr("nobody")}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dtos, err := f.members.Search(ctx, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(dtos))

			built, err := f.members.SearchByBuilder(ctx, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, dtos, built)

			entities, err := f.members.SearchMember(ctx, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, memberNames(entities))
		})
	}
}

func TestMemberRepository_SearchProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dtos, err := f.members.Search(ctx, model.MemberSearchCondition{Username: strPtr("member4")})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	dto := dtos[0]
	assert.Equal(t, 40, dto.Age)
	require.NotNil(t, dto.TeamID)
	assert.Equal(t, f.teamB.ID, *dto.TeamID)
	require.NotNil(t, dto.TeamName)
	assert.Equal(t, "teamB", *dto.TeamName)
}

func TestMemberRepository_SearchMemberWithoutTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.members.Save(ctx, model.NewMember("loner", 50, nil)))

	dtos, err := f.members.Search(ctx, model.MemberSearchCondition{AgeGoe: intPtr(50)})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, "loner", dtos[0].Username)
	assert.Nil(t, dtos[0].TeamID)
	assert.Nil(t, dtos[0].TeamName)

	// a team filter excludes members without a team
	dtos, err = f.members.Search(ctx, model.MemberSearchCondition{AgeGoe: intPtr(50), TeamName: strPtr("teamA")})
	require.NoError(t, err)
	assert.Empty(t, dtos)
}

func TestMemberRepository_FilterOrderDoesNotMatter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.members.(*memberRepository)

	team := TeamNameEq(strPtr("teamB"))
	goe := AgeGoe(intPtr(25))
	loe := AgeLoe(intPtr(45))

	run := func(filters ...*types.QueryFilter) []string {
		var dtos []model.MemberTeamDto
		require.NoError(t, types.ApplyFilters(r.newDtoQuery(), filters...).
			OrderExpr("m.member_id ASC").
			Scan(ctx, &dtos))
		return usernames(dtos)
	}
	want := run(team, goe, loe)
	assert.Equal(t, []string{"member3", "member4"}, want)
	assert.Equal(t, want, run(loe, goe, team))
	assert.Equal(t, want, run(types.AllOf(goe, loe, team)))
	assert.Equal(t, want, run(types.AllOf(team, loe).And(goe)))
}

func TestMemberRepository_SearchPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		page, size  int
		wantContent []string
		wantTotal   int
		wantCounts  int
	}{
		{"full first page runs count", 0, 3, []string{"member1", "member2", "member3"}, 4, 1},
		{"short first page skips count", 0, 10, []string{"member1", "member2", "member3", "member4"}, 4, 0},
		{"short last page skips count", 1, 3, []string{"member4"}, 4, 0},
		{"page past the end runs count", 2, 3, []string{}, 4, 1},
		{"exact fit runs count", 1, 2, []string{"member3", "member4"}, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.counter.reset()
			page, err := f.members.SearchPage(ctx, model.MemberSearchCondition{}, types.NewPageRequest(tt.page, tt.size))
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, usernames(page.Content))
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantCounts, f.counter.countQueries())
		})
	}
}

func TestMemberRepository_SearchPageSimpleAlwaysCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.counter.reset()
	page, err := f.members.SearchPageSimple(ctx, model.MemberSearchCondition{}, types.NewPageRequest(0, 10))
	require.NoError(t, err)
	assert.Len(t, page.Content, 4)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, f.counter.countQueries())

	page, err = f.members.SearchPageSimple(ctx, model.MemberSearchCondition{TeamName: strPtr("teamB")}, types.NewPageRequest(0, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"member3"}, usernames(page.Content))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages())
}

func TestMemberRepository_SearchPageCountUsesCondition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.members.SearchPage(ctx, model.MemberSearchCondition{TeamName: strPtr("teamA")}, types.NewPageRequest(0, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"member1"}, usernames(page.Content))
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasNext())
}

func TestMemberRepository_SearchPageSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.members.SearchPage(ctx, model.MemberSearchCondition{},
		types.NewPageRequest(0, 10, types.Order{Property: "age", Direction: types.Descending}))
	require.NoError(t, err)
	assert.Equal(t, []string{"member4", "member3", "member2", "member1"}, usernames(page.Content))

	page, err = f.members.SearchPage(ctx, model.MemberSearchCondition{},
		types.NewPageRequest(0, 10, types.Order{Property: "teamName", Direction: types.Descending}))
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member4", "member1", "member2"}, usernames(page.Content))

	_, err = f.members.SearchPage(ctx, model.MemberSearchCondition{},
		types.NewPageRequest(0, 10, types.Order{Property: "password"}))
	assert.ErrorIs(t, err, ErrInvalidSortProperty)
}

func TestMemberRepository_FindWithTeam(t *testing.T) {
	f := newFixture(t)
	members, err := f.members.FindWithTeam(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 4)
	for i, want := range []string{"teamA", "teamA", "teamB", "teamB"} {
		require.NotNil(t, members[i].Team)
		assert.Equal(t, want, members[i].Team.Name)
	}
}

func TestMemberRepository_Subqueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldest, err := f.members.FindOldest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member4"}, memberNames(oldest))

	above, err := f.members.FindAboveAverageAge(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member4"}, memberNames(above))
}

func TestMemberRepository_Projections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	names, err := f.members.FindUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member1", "member2", "member3", "member4"}, names)

	stats, err := f.members.TeamStats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "teamA", stats[0].TeamName)
	assert.Equal(t, 2, stats[0].MemberCount)
	assert.InDelta(t, 15.0, stats[0].AverageAge, 0.001)
	assert.Equal(t, "teamB", stats[1].TeamName)
	assert.InDelta(t, 35.0, stats[1].AverageAge, 0.001)

	stats, err = f.members.TeamStats(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestMemberRepository_BulkStatements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.members.BulkRenameYoungerThan(ctx, 28, "guest")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	names, err := f.members.FindUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"guest", "guest", "member3", "member4"}, names)

	n, err = f.members.BulkAddAge(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	oldest, err := f.members.FindOldest(ctx)
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, 41, oldest[0].Age)

	n, err = f.members.BulkDeleteOlderThan(ctx, 18)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	remaining, err := f.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestMemberRepository_WithTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := f.members.WithTx(tx).Save(ctx, model.NewMember("temp", 99, f.teamA)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	found, err := f.members.FindByUsername(ctx, "temp")
	require.NoError(t, err)
	assert.Empty(t, found)
}
