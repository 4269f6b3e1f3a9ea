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
	"fmt"
	"strings"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// SortDirection is the ordering applied to a sort property.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

var _ BaseEnum = Ascending

func (d SortDirection) IsValid() bool {
	return d == Ascending || d == Descending
}

func (d SortDirection) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

// String returns the SQL keyword.
func (d SortDirection) String() string {
	switch d {
	case Ascending:
		return "ASC"
	case Descending:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d SortDirection) Desc() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return IllegalDesc
	}
}

// Name returns the lower-case form used in query strings.
func (d SortDirection) Name() string {
	if !d.IsValid() {
		return IllegalName
	}
	return strings.ToLower(d.String())
}

// ParseSortDirection accepts "asc" or "desc" in any case; empty means ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return SortDirection(IllegalValue), fmt.Errorf("invalid sort direction: %q", s)
	}
}
