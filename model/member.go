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

package model

import (
	"fmt"

	"github.com/tomoncle/memberquery/database"
	"github.com/uptrace/bun"
)

func init() {
	database.RegisterTable((*Team)(nil), 10)
	database.RegisterTable((*Member)(nil), 20)
}

// Team is the owning side of nothing: members point at it through team_id.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64     `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name,notnull" json:"name"`
	Members []*Member `bun:"rel:has-many,join:team_id=team_id" json:"-"`
}

// NewTeam returns an unsaved team.
func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) String() string {
	return fmt.Sprintf("Team{id=%d, name=%s}", t.ID, t.Name)
}

// Member belongs to at most one team.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"member_id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"teamId,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"team,omitempty"`
}

// NewMember returns an unsaved member. team may be nil.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team and keeps team.Members in step.
// The team must already have an ID for the foreign key to be set.
func (m *Member) ChangeTeam(team *Team) {
	m.Team = team
	if team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
	team.Members = append(team.Members, m)
}

func (m *Member) String() string {
	return fmt.Sprintf("Member{id=%d, username=%s, age=%d}", m.ID, m.Username, m.Age)
}
