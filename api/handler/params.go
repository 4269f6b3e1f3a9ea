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
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/types"
)

// FieldError describes one rejected query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// paramError is returned for values that are not parseable at all.
type paramError struct {
	field string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be an integer, got %q", e.field, e.value)
}

// pageParams is the validated form of page, size and sort.
type pageParams struct {
	Page int      `json:"page" validate:"gte=0"`
	Size int      `json:"size" validate:"gte=1,lte=2000"`
	Sort []string `json:"sort"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// textParam returns nil for a missing or blank parameter.
func textParam(q url.Values, name string) *string {
	v := q.Get(name)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func intParam(q url.Values, name string) (*int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &paramError{field: name, value: v}
	}
	return &n, nil
}

func intParamOr(q url.Values, name string, def int) (int, error) {
	n, err := intParam(q, name)
	if err != nil || n == nil {
		return def, err
	}
	return *n, nil
}

// parseCondition reads username, teamName, ageGoe and ageLoe.
func parseCondition(q url.Values) (model.MemberSearchCondition, error) {
	cond := model.MemberSearchCondition{
		Username: textParam(q, "username"),
		TeamName: textParam(q, "teamName"),
	}
	var err error
	if cond.AgeGoe, err = intParam(q, "ageGoe"); err != nil {
		return cond, err
	}
	if cond.AgeLoe, err = intParam(q, "ageLoe"); err != nil {
		return cond, err
	}
	return cond, validate.Struct(cond)
}

// parsePageable reads page (zero-based), size and any number of
// sort=property[,asc|desc] parameters.
func parsePageable(q url.Values) (*types.PageRequest, error) {
	var (
		p   = pageParams{Sort: q["sort"]}
		err error
	)
	if p.Page, err = intParamOr(q, "page", 0); err != nil {
		return nil, err
	}
	if p.Size, err = intParamOr(q, "size", types.DefaultPageSize); err != nil {
		return nil, err
	}
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	orders, err := types.ParseSort(p.Sort...)
	if err != nil {
		return nil, &sortError{err: err}
	}
	return types.NewPageRequest(p.Page, p.Size, orders...), nil
}

type sortError struct{ err error }

func (e *sortError) Error() string { return e.err.Error() }

func (e *sortError) Unwrap() error { return e.err }

// fieldErrors flattens validator output; ok is false for other errors.
func fieldErrors(err error) ([]FieldError, bool) {
	var pe *paramError
	if errors.As(err, &pe) {
		return []FieldError{{Field: pe.field, Message: "must be an integer"}}, true
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		out = append(out, FieldError{Field: e.Field(), Message: validationMessage(e)})
	}
	return out, true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "validation failed"
	}
}
