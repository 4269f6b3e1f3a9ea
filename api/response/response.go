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

package response

import (
	"encoding/json"
	"net/http"

	"github.com/tomoncle/memberquery/utils"
)

var logger = utils.NewLogger("HTTP")

// Error is the structured part of an error body.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorBody is written for every non-2xx response.
type ErrorBody struct {
	Error     *Error `json:"error"`
	RequestID string `json:"requestId"`
}

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Err writes an error response.
func Err(w http.ResponseWriter, status int, code, message, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error response with additional details.
func ErrWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	JSON(w, status, ErrorBody{
		Error:     &Error{Code: code, Message: message, Details: details},
		RequestID: requestID,
	})
}
