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
)

func TestTeamRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NotZero(t, f.teamA.ID)
	assert.NotEqual(t, f.teamA.ID, f.teamB.ID)

	got, err := f.teams.FindByID(ctx, f.teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, "teamB", got.Name)

	byName, err := f.teams.FindByName(ctx, "teamA")
	require.NoError(t, err)
	assert.Equal(t, f.teamA.ID, byName.ID)

	_, err = f.teams.FindByName(ctx, "teamZ")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = f.teams.FindByID(ctx, 404)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	all, err := f.teams.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTeamRepository_SaveBackfillsMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	team := model.NewTeam("teamC")
	model.NewMember("c1", 5, team)
	model.NewMember("c2", 7, team)
	require.Len(t, team.Members, 2)
	assert.Nil(t, team.Members[0].TeamID)

	require.NoError(t, f.teams.Save(ctx, team))
	for _, m := range team.Members {
		require.NotNil(t, m.TeamID)
		assert.Equal(t, team.ID, *m.TeamID)
		require.NoError(t, f.members.Save(ctx, m))
	}

	stats, err := f.members.TeamStats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "teamC", stats[2].TeamName)
	assert.Equal(t, 2, stats[2].MemberCount)
}
