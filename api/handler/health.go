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
	"net/http"

	"github.com/tomoncle/memberquery/api/response"
	"github.com/tomoncle/memberquery/database"
)

// HealthChecker reports the database health. database.GetHealthStatus fits.
type HealthChecker func(ctx context.Context) *database.HealthStatus

type healthData struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Database *database.HealthStatus `json:"database"`
}

// HealthHandler handles GET /health.
type HealthHandler struct {
	check   HealthChecker
	version string
}

func NewHealthHandler(check HealthChecker, version string) *HealthHandler {
	return &HealthHandler{check: check, version: version}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.check(r.Context())
	data := healthData{Status: "healthy", Version: h.version, Database: status}
	if status == nil || !status.Healthy {
		data.Status = "degraded"
		response.JSON(w, http.StatusServiceUnavailable, data)
		return
	}
	response.OK(w, data)
}
