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

import "github.com/tomoncle/memberquery/types"

// MemberSearchCondition holds the optional search dimensions. A nil field,
// or a blank string, means no filter on that dimension.
type MemberSearchCondition struct {
	Username *string `json:"username,omitempty"`
	TeamName *string `json:"teamName,omitempty"`
	AgeGoe   *int    `json:"ageGoe,omitempty" validate:"omitempty,gte=0"`
	AgeLoe   *int    `json:"ageLoe,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether no dimension would produce a predicate.
func (c MemberSearchCondition) IsEmpty() bool {
	return !types.HasText(c.Username) && !types.HasText(c.TeamName) && c.AgeGoe == nil && c.AgeLoe == nil
}

// MemberTeamDto is the flat projection of a member joined with its team.
// TeamID and TeamName are nil for members without a team.
type MemberTeamDto struct {
	MemberID int64   `bun:"member_id" json:"memberId"`
	Username string  `bun:"username" json:"username"`
	Age      int     `bun:"age" json:"age"`
	TeamID   *int64  `bun:"team_id" json:"teamId"`
	TeamName *string `bun:"team_name" json:"teamName"`
}

// TeamStat is a per-team aggregate.
type TeamStat struct {
	TeamName    string  `bun:"team_name" json:"teamName"`
	MemberCount int     `bun:"member_count" json:"memberCount"`
	AverageAge  float64 `bun:"average_age" json:"averageAge"`
}
