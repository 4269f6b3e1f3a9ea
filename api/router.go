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

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/memberquery/api/handler"
	"github.com/tomoncle/memberquery/api/middleware"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/utils"
)

// RouterDeps holds everything the router wires into handlers.
type RouterDeps struct {
	Members handler.MemberQueries
	Health  handler.HealthChecker
	Version string
	Logger  *logrus.Logger
}

// NewRouter returns the chi router serving the member API.
func NewRouter(deps RouterDeps) *chi.Mux {
	if deps.Logger == nil {
		deps.Logger = utils.NewLogger("HTTP")
	}
	if deps.Health == nil {
		deps.Health = database.GetHealthStatus
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/health", handler.NewHealthHandler(deps.Health, deps.Version).ServeHTTP)

	members := handler.NewMemberHandler(deps.Members, deps.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/members", members.List)
			r.Post("/members", members.Register)
			r.Get("/teams", members.Teams)
			r.Get("/teams/stats", members.TeamStats)
		})
		r.Get("/v2/members", members.Page)
		r.Get("/v3/members", members.PageSimple)
	})
	return r
}
