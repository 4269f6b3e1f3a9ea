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
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/types"
)

// Columns of the member LEFT JOIN team query.
const (
	ColMemberID = "m.member_id"
	ColUsername = "m.username"
	ColAge      = "m.age"
	ColTeamID   = "t.team_id"
	ColTeamName = "t.name"
)

// UsernameEq is nil for a nil or blank username.
func UsernameEq(username *string) *types.QueryFilter {
	if !types.HasText(username) {
		return nil
	}
	return types.Eq(ColUsername, *username)
}

// TeamNameEq is nil for a nil or blank team name.
func TeamNameEq(teamName *string) *types.QueryFilter {
	if !types.HasText(teamName) {
		return nil
	}
	return types.Eq(ColTeamName, *teamName)
}

func AgeGoe(ageGoe *int) *types.QueryFilter {
	if ageGoe == nil {
		return nil
	}
	return types.Goe(ColAge, *ageGoe)
}

func AgeLoe(ageLoe *int) *types.QueryFilter {
	if ageLoe == nil {
		return nil
	}
	return types.Loe(ColAge, *ageLoe)
}

// AgeBetween composes AgeGoe and AgeLoe; either bound may be missing.
func AgeBetween(ageGoe, ageLoe *int) *types.QueryFilter {
	return AgeGoe(ageGoe).And(AgeLoe(ageLoe))
}

// ConditionFilters returns one filter per dimension of cond, nil where the
// dimension is absent.
func ConditionFilters(cond model.MemberSearchCondition) []*types.QueryFilter {
	return []*types.QueryFilter{
		UsernameEq(cond.Username),
		TeamNameEq(cond.TeamName),
		AgeGoe(cond.AgeGoe),
		AgeLoe(cond.AgeLoe),
	}
}

// sortColumns maps the sort properties accepted from callers to columns.
var sortColumns = map[string]string{
	"memberId": ColMemberID,
	"username": ColUsername,
	"age":      ColAge,
	"teamId":   ColTeamID,
	"teamName": ColTeamName,
}

// SortProperties lists the accepted sort properties.
func SortProperties() []string {
	return []string{"memberId", "username", "age", "teamId", "teamName"}
}
