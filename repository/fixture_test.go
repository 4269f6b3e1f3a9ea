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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/model"
	"github.com/uptrace/bun"
)

var dbSeq atomic.Int64

// newTestDB returns an isolated in-memory sqlite database with the tables
// created.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", dbSeq.Add(1))
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.SlowQueryTime = 0
	cfg.DataMigrateConfig.EnableForeignKey = false

	manager := database.NewDatabaseManager(cfg)
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.RunMigrations(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager.GetDB()
}

type fixture struct {
	db      *bun.DB
	members MemberRepository
	teams   TeamRepository
	teamA   *model.Team
	teamB   *model.Team
	counter *queryCounter
}

// newFixture seeds teamA(member1 10, member2 20) and teamB(member3 30,
// member4 40).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:      db,
		members: NewMemberRepository(db),
		teams:   NewTeamRepository(db),
		teamA:   model.NewTeam("teamA"),
		teamB:   model.NewTeam("teamB"),
	}
	ctx := context.Background()
	require.NoError(t, f.teams.Save(ctx, f.teamA))
	require.NoError(t, f.teams.Save(ctx, f.teamB))
	for _, m := range []*model.Member{
		model.NewMember("member1", 10, f.teamA),
		model.NewMember("member2", 20, f.teamA),
		model.NewMember("member3", 30, f.teamB),
		model.NewMember("member4", 40, f.teamB),
	} {
		require.NoError(t, f.members.Save(ctx, m))
	}
	f.counter = &queryCounter{}
	db.AddQueryHook(f.counter)
	return f
}

// queryCounter records executed statements.
type queryCounter struct {
	mu      sync.Mutex
	queries []string
}

func (c *queryCounter) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (c *queryCounter) AfterQuery(_ context.Context, e *bun.QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, e.Query)
}

func (c *queryCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = nil
}

func (c *queryCounter) countQueries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.queries {
		if strings.Contains(strings.ToLower(q), "count(*)") {
			n++
		}
	}
	return n
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func usernames(dtos []model.MemberTeamDto) []string {
	out := make([]string, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.Username)
	}
	return out
}

func memberNames(members []*model.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Username)
	}
	return out
}
