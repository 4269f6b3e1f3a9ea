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
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 2000
)

// Order is one sort key: a property name as exposed to callers, and a direction.
type Order struct {
	Property  string
	Direction SortDirection
}

func (o Order) String() string {
	return o.Property + "," + o.Direction.Name()
}

// ParseSort parses values of the form "property" or "property,asc|desc".
func ParseSort(values ...string) ([]Order, error) {
	orders := make([]Order, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts := strings.Split(v, ",")
		if len(parts) > 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid sort expression: %q", v)
		}
		dir := Ascending
		if len(parts) == 2 {
			d, err := ParseSortDirection(parts[1])
			if err != nil {
				return nil, err
			}
			dir = d
		}
		orders = append(orders, Order{Property: strings.TrimSpace(parts[0]), Direction: dir})
	}
	return orders, nil
}

// PageRequest describes a zero-based page, its size and the ordering.
type PageRequest struct {
	page     int
	pageSize int
	sort     []Order
}

// NewPageRequest constructs a PageRequest. A negative page becomes 0, a
// non-positive size becomes DefaultPageSize and sizes above MaxPageSize
// are capped.
func NewPageRequest(page int, pageSize int, sort ...Order) *PageRequest {
	if page < 0 {
		page = 0
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &PageRequest{page: page, pageSize: pageSize, sort: sort}
}

// NewDefaultPageRequest constructs a PageRequest with no ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize)
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.pageSize }

func (p *PageRequest) GetOffset() int { return p.page * p.pageSize }

func (p *PageRequest) GetSort() []Order { return p.sort }

// Next returns the request for the following page with the same size and sort.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{page: p.page + 1, pageSize: p.pageSize, sort: p.sort}
}

// Page holds one slice of results together with the request that produced
// it and the total number of matching rows.
type Page[T any] struct {
	Content  []T
	Pageable *PageRequest
	Total    int
}

// NewPage builds a Page, calling count only when the total cannot be derived
// from the content itself:
//   - first page shorter than the page size: the content is everything;
//   - non-empty page shorter than the page size: it is the last page, so
//     total is offset plus content length.
func NewPage[T any](content []T, pageable *PageRequest, count func() (int, error)) (*Page[T], error) {
	if content == nil {
		content = make([]T, 0)
	}
	page := &Page[T]{Content: content, Pageable: pageable}
	size := pageable.GetPageSize()
	if pageable.GetOffset() == 0 {
		if size > len(content) {
			page.Total = len(content)
			return page, nil
		}
	} else if len(content) != 0 && size > len(content) {
		page.Total = pageable.GetOffset() + len(content)
		return page, nil
	}
	total, err := count()
	if err != nil {
		return nil, err
	}
	page.Total = total
	return page, nil
}

// NumberOfElements is the number of items on this page.
func (p *Page[T]) NumberOfElements() int { return len(p.Content) }

func (p *Page[T]) TotalPages() int {
	size := p.Pageable.GetPageSize()
	if size == 0 {
		return 1
	}
	return (p.Total + size - 1) / size
}

func (p *Page[T]) IsFirst() bool { return p.Pageable.GetPage() == 0 }

func (p *Page[T]) HasNext() bool { return p.Pageable.GetPage()+1 < p.TotalPages() }

func (p *Page[T]) IsLast() bool { return !p.HasNext() }

func (p *Page[T]) IsEmpty() bool { return len(p.Content) == 0 }

type pageJSON[T any] struct {
	Content          []T      `json:"content"`
	Page             int      `json:"page"`
	Size             int      `json:"size"`
	Sort             []string `json:"sort"`
	TotalElements    int      `json:"totalElements"`
	TotalPages       int      `json:"totalPages"`
	NumberOfElements int      `json:"numberOfElements"`
	First            bool     `json:"first"`
	Last             bool     `json:"last"`
	Empty            bool     `json:"empty"`
}

func (p *Page[T]) MarshalJSON() ([]byte, error) {
	sort := make([]string, 0, len(p.Pageable.GetSort()))
	for _, o := range p.Pageable.GetSort() {
		sort = append(sort, o.String())
	}
	return json.Marshal(pageJSON[T]{
		Content:          p.Content,
		Page:             p.Pageable.GetPage(),
		Size:             p.Pageable.GetPageSize(),
		Sort:             sort,
		TotalElements:    p.Total,
		TotalPages:       p.TotalPages(),
		NumberOfElements: p.NumberOfElements(),
		First:            p.IsFirst(),
		Last:             p.IsLast(),
		Empty:            p.IsEmpty(),
	})
}
