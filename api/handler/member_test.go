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

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/memberquery/api/handler"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/repository"
	"github.com/tomoncle/memberquery/types"
)

// --- Mock service ---

type mockMembers struct {
	searchFn     func(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error)
	pageFn       func(ctx context.Context, cond model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	pageSimpleFn func(ctx context.Context, cond model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	registerFn   func(ctx context.Context, username string, age int, teamName string) (*model.Member, error)
	teamStatsFn  func(ctx context.Context, minMembers int) ([]model.TeamStat, error)
}

func (m *mockMembers) Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, cond)
	}
	return []model.MemberTeamDto{}, nil
}

func (m *mockMembers) SearchPage(ctx context.Context, cond model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	if m.pageFn != nil {
		return m.pageFn(ctx, cond, p)
	}
	return types.NewPage[model.MemberTeamDto](nil, p, nil)
}

func (m *mockMembers) SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	if m.pageSimpleFn != nil {
		return m.pageSimpleFn(ctx, cond, p)
	}
	return types.NewPage[model.MemberTeamDto](nil, p, nil)
}

func (m *mockMembers) Register(ctx context.Context, username string, age int, teamName string) (*model.Member, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, age, teamName)
	}
	return &model.Member{ID: 1, Username: username, Age: age}, nil
}

func (m *mockMembers) Teams(context.Context) ([]*model.Team, error) {
	return []*model.Team{{ID: 1, Name: "teamA"}}, nil
}

func (m *mockMembers) TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error) {
	if m.teamStatsFn != nil {
		return m.teamStatsFn(ctx, minMembers)
	}
	return []model.TeamStat{}, nil
}

func newHandler(svc *mockMembers) *handler.MemberHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return handler.NewMemberHandler(svc, logger)
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (b errorBody) fields(t *testing.T) []handler.FieldError {
	t.Helper()
	var out []handler.FieldError
	require.NoError(t, json.Unmarshal(b.Error.Details, &out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func strPtr(s string) *string { return &s }

func TestMemberHandler_ListParsesCondition(t *testing.T) {
	var got model.MemberSearchCondition
	h := newHandler(&mockMembers{
		searchFn: func(_ context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
			got = cond
			return []model.MemberTeamDto{{MemberID: 4, Username: "member4", Age: 40, TeamName: strPtr("teamB")}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members?teamName=teamB&ageGoe=35&ageLoe=40&username=%20", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got.Username, "blank username is no filter")
	require.NotNil(t, got.TeamName)
	assert.Equal(t, "teamB", *got.TeamName)
	assert.Equal(t, 35, *got.AgeGoe)
	assert.Equal(t, 40, *got.AgeLoe)

	var dtos []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "member4", dtos[0]["username"])
	assert.Equal(t, "teamB", dtos[0]["teamName"])
	assert.Contains(t, dtos[0], "teamId")
}

func TestMemberHandler_ListRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "non integer", query: "ageGoe=ten", field: "ageGoe"},
		{name: "negative", query: "ageLoe=-1", field: "ageLoe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := newHandler(&mockMembers{
				searchFn: func(context.Context, model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
					called = true
					return nil, nil
				},
			})
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/members?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, called)
			body := decodeError(t, rec)
			assert.Equal(t, "INVALID_PARAMETER", body.Error.Code)
			fields := body.fields(t)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
		})
	}
}

func TestMemberHandler_PageParsesPageable(t *testing.T) {
	var got *types.PageRequest
	h := newHandler(&mockMembers{
		pageFn: func(_ context.Context, _ model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
			got = p
			content := []model.MemberTeamDto{{MemberID: 1, Username: "member1"}, {MemberID: 2, Username: "member2"}, {MemberID: 3, Username: "member3"}}
			return types.NewPage(content, p, func() (int, error) { return 4, nil })
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/members?page=0&size=3&sort=age,desc&sort=username", nil)
	rec := httptest.NewRecorder()
	h.Page(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.GetPage())
	assert.Equal(t, 3, got.GetPageSize())
	assert.Equal(t, []types.Order{
		{Property: "age", Direction: types.Descending},
		{Property: "username", Direction: types.Ascending},
	}, got.GetSort())

	var page struct {
		Content       []map[string]any `json:"content"`
		TotalElements int              `json:"totalElements"`
		TotalPages    int              `json:"totalPages"`
		First         bool             `json:"first"`
		Last          bool             `json:"last"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Content, 3)
	assert.Equal(t, 4, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)
}

func TestMemberHandler_PageDefaults(t *testing.T) {
	var got *types.PageRequest
	h := newHandler(&mockMembers{
		pageSimpleFn: func(_ context.Context, _ model.MemberSearchCondition, p *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
			got = p
			return &types.Page[model.MemberTeamDto]{Content: []model.MemberTeamDto{}, Pageable: p}, nil
		},
	})
	rec := httptest.NewRecorder()
	h.PageSimple(rec, httptest.NewRequest(http.MethodGet, "/api/v3/members", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, got.GetPage())
	assert.Equal(t, types.DefaultPageSize, got.GetPageSize())
	assert.Empty(t, got.GetSort())
}

func TestMemberHandler_PageRejectsBadPageable(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{name: "size zero", query: "size=0", code: "INVALID_PARAMETER"},
		{name: "size too large", query: "size=2001", code: "INVALID_PARAMETER"},
		{name: "negative page", query: "page=-1", code: "INVALID_PARAMETER"},
		{name: "page not a number", query: "page=first", code: "INVALID_PARAMETER"},
		{name: "bad direction", query: "sort=age,sideways", code: "INVALID_SORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&mockMembers{})
			rec := httptest.NewRecorder()
			h.Page(rec, httptest.NewRequest(http.MethodGet, "/api/v2/members?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestMemberHandler_ServiceErrors(t *testing.T) {
	t.Run("unknown sort property", func(t *testing.T) {
		h := newHandler(&mockMembers{
			pageFn: func(context.Context, model.MemberSearchCondition, *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
				return nil, fmt.Errorf("%w: %q", repository.ErrInvalidSortProperty, "password")
			},
		})
		rec := httptest.NewRecorder()
		h.Page(rec, httptest.NewRequest(http.MethodGet, "/api/v2/members?sort=password", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_SORT", decodeError(t, rec).Error.Code)
	})

	t.Run("data access failure", func(t *testing.T) {
		h := newHandler(&mockMembers{
			searchFn: func(context.Context, model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
				return nil, errors.New("connection refused")
			},
		})
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/members", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
	})
}

func TestMemberHandler_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		teamID := int64(7)
		var gotTeam string
		h := newHandler(&mockMembers{
			registerFn: func(_ context.Context, username string, age int, teamName string) (*model.Member, error) {
				gotTeam = teamName
				return &model.Member{ID: 9, Username: username, Age: age, TeamID: &teamID}, nil
			},
		})
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"username":"kim","age":0,"teamName":"teamA"}`)
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/members", body))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "teamA", gotTeam)
		assert.JSONEq(t, `{"memberId":9,"username":"kim","age":0,"teamId":7}`, rec.Body.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&mockMembers{}).Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/members", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Error.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&mockMembers{}).Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/members", strings.NewReader(`{"teamName":"teamA"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INVALID_PARAMETER", body.Error.Code)
		assert.Len(t, body.fields(t), 2)
	})
}

func TestMemberHandler_TeamStats(t *testing.T) {
	var gotMin int
	h := newHandler(&mockMembers{
		teamStatsFn: func(_ context.Context, minMembers int) ([]model.TeamStat, error) {
			gotMin = minMembers
			return []model.TeamStat{{TeamName: "teamA", MemberCount: 2, AverageAge: 15}}, nil
		},
	})
	rec := httptest.NewRecorder()
	h.TeamStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/teams/stats?minMembers=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, gotMin)
	assert.JSONEq(t, `[{"teamName":"teamA","memberCount":2,"averageAge":15}]`, rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		status *database.HealthStatus
		code   int
		want   string
	}{
		{name: "healthy", status: &database.HealthStatus{Healthy: true, Connected: true}, code: http.StatusOK, want: "healthy"},
		{name: "not initialized", status: &database.HealthStatus{LastError: "Database not initialized"}, code: http.StatusServiceUnavailable, want: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(func(context.Context) *database.HealthStatus { return tt.status }, "test")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
			assert.Equal(t, "test", body["version"])
		})
	}
}
