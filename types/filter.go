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

package types

import (
	"strings"

	"github.com/uptrace/bun"
)

// QueryFilter describes a WHERE clause schema and its argument values.
// A nil *QueryFilter stands for "no constraint" and is accepted everywhere
// a filter is expected.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Eq returns "column = value".
func Eq(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? = ?", bun.Ident(column), value)
}

// Goe returns "column >= value".
func Goe(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? >= ?", bun.Ident(column), value)
}

// Loe returns "column <= value".
func Loe(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? <= ?", bun.Ident(column), value)
}

// Gt returns "column > value".
func Gt(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? > ?", bun.Ident(column), value)
}

// Lt returns "column < value".
func Lt(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? < ?", bun.Ident(column), value)
}

// Between returns "column BETWEEN lo AND hi".
func Between(column string, lo, hi interface{}) *QueryFilter {
	return NewQueryFilter("? BETWEEN ? AND ?", bun.Ident(column), lo, hi)
}

// And joins f and other with AND. Either side may be nil.
func (f *QueryFilter) And(other *QueryFilter) *QueryFilter {
	return combine("AND", f, other)
}

// Or joins f and other with OR. Either side may be nil.
func (f *QueryFilter) Or(other *QueryFilter) *QueryFilter {
	return combine("OR", f, other)
}

// String returns the raw schema, mostly useful in logs.
func (f *QueryFilter) String() string {
	if f == nil {
		return ""
	}
	return f.Schema
}

func combine(op string, left, right *QueryFilter) *QueryFilter {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	args := make([]interface{}, 0, len(left.Args)+len(right.Args))
	args = append(args, left.Args...)
	args = append(args, right.Args...)
	return &QueryFilter{
		Schema: "(" + left.Schema + ") " + op + " (" + right.Schema + ")",
		Args:   args,
	}
}

// AllOf ANDs the non-nil filters together. It returns nil when every
// filter is nil.
func AllOf(filters ...*QueryFilter) *QueryFilter {
	var out *QueryFilter
	for _, f := range filters {
		out = out.And(f)
	}
	return out
}

// AnyOf ORs the non-nil filters together. It returns nil when every
// filter is nil.
func AnyOf(filters ...*QueryFilter) *QueryFilter {
	var out *QueryFilter
	for _, f := range filters {
		out = out.Or(f)
	}
	return out
}

// ApplyFilters adds one WHERE per non-nil filter; bun joins them with AND.
func ApplyFilters(q *bun.SelectQuery, filters ...*QueryFilter) *bun.SelectQuery {
	for _, f := range filters {
		if f == nil {
			continue
		}
		q = q.Where(f.Schema, f.Args...)
	}
	return q
}

// FilterBuilder accumulates filters incrementally, for call sites that
// decide branch by branch what to add.
type FilterBuilder struct {
	filter *QueryFilter
}

// NewFilterBuilder returns an empty builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

func (b *FilterBuilder) And(f *QueryFilter) *FilterBuilder {
	b.filter = b.filter.And(f)
	return b
}

func (b *FilterBuilder) Or(f *QueryFilter) *FilterBuilder {
	b.filter = b.filter.Or(f)
	return b
}

// HasValue reports whether anything has been added.
func (b *FilterBuilder) HasValue() bool {
	return b.filter != nil
}

// Build returns the accumulated filter, or nil if nothing was added.
func (b *FilterBuilder) Build() *QueryFilter {
	return b.filter
}

// HasText reports whether s is non-nil and contains a non-whitespace rune.
func HasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
