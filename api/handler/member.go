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

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/memberquery/api/middleware"
	"github.com/tomoncle/memberquery/api/response"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/repository"
	"github.com/tomoncle/memberquery/types"
)

// MemberQueries is the service surface the member endpoints need.
type MemberQueries interface {
	Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error)
	SearchPage(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	Register(ctx context.Context, username string, age int, teamName string) (*model.Member, error)
	Teams(ctx context.Context) ([]*model.Team, error)
	TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error)
}

type registerMemberRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Age      *int   `json:"age" validate:"required,gte=0"`
	TeamName string `json:"teamName" validate:"max=255"`
}

type memberResponse struct {
	ID       int64  `json:"memberId"`
	Username string `json:"username"`
	Age      int    `json:"age"`
	TeamID   *int64 `json:"teamId"`
}

// MemberHandler serves the member search endpoints.
type MemberHandler struct {
	svc    MemberQueries
	logger *logrus.Logger
}

func NewMemberHandler(svc MemberQueries, logger *logrus.Logger) *MemberHandler {
	return &MemberHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/members.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	cond, err := parseCondition(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	dtos, err := h.svc.Search(r.Context(), cond)
	if err != nil {
		h.fail(w, r, err, "Failed to search members")
		return
	}
	response.OK(w, dtos)
}

// Page handles GET /api/v2/members.
func (h *MemberHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, h.svc.SearchPage)
}

// PageSimple handles GET /api/v3/members: the same page, always counted.
func (h *MemberHandler) PageSimple(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, h.svc.SearchPageSimple)
}

type pageFunc func(context.Context, model.MemberSearchCondition, *types.PageRequest) (*types.Page[model.MemberTeamDto], error)

func (h *MemberHandler) page(w http.ResponseWriter, r *http.Request, search pageFunc) {
	q := r.URL.Query()
	cond, err := parseCondition(q)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	pageable, err := parsePageable(q)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	page, err := search(r.Context(), cond, pageable)
	if err != nil {
		h.fail(w, r, err, "Failed to search members")
		return
	}
	response.OK(w, page)
}

// Register handles POST /api/v1/members.
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req registerMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	member, err := h.svc.Register(r.Context(), req.Username, *req.Age, req.TeamName)
	if err != nil {
		h.fail(w, r, err, "Failed to register member")
		return
	}
	response.JSON(w, http.StatusCreated, memberResponse{
		ID:       member.ID,
		Username: member.Username,
		Age:      member.Age,
		TeamID:   member.TeamID,
	})
}

// Teams handles GET /api/v1/teams.
func (h *MemberHandler) Teams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.Teams(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to list teams")
		return
	}
	response.OK(w, teams)
}

// TeamStats handles GET /api/v1/teams/stats?minMembers=N.
func (h *MemberHandler) TeamStats(w http.ResponseWriter, r *http.Request) {
	minMembers, err := intParamOr(r.URL.Query(), "minMembers", 0)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	stats, err := h.svc.TeamStats(r.Context(), minMembers)
	if err != nil {
		h.fail(w, r, err, "Failed to compute team stats")
		return
	}
	response.OK(w, stats)
}

func (h *MemberHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var se *sortError
	if errors.As(err, &se) {
		response.Err(w, http.StatusBadRequest, "INVALID_SORT", se.Error(), requestID)
		return
	}
	if details, ok := fieldErrors(err); ok {
		response.ErrWithDetails(w, http.StatusBadRequest, "INVALID_PARAMETER", "Query validation failed", details, requestID)
		return
	}
	response.Err(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), requestID)
}

// fail maps service errors; anything unknown is a 500 with the cause logged.
func (h *MemberHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	requestID := middleware.GetRequestID(r.Context())
	if errors.Is(err, repository.ErrInvalidSortProperty) {
		response.ErrWithDetails(w, http.StatusBadRequest, "INVALID_SORT", err.Error(),
			map[string][]string{"allowed": repository.SortProperties()}, requestID)
		return
	}
	entry := h.logger.WithError(err).WithField("request_id", requestID)
	if ok, code := database.IsSqlError(err); ok {
		entry = entry.WithField("sql_error", code.String())
	}
	entry.Error(message)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, requestID)
}
