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

package database

import (
	"reflect"
	"sort"
	"sync"
)

// TableModel is a bun model whose table the schema migration creates.
// Tables with a lower Order are created first, so a referenced table takes a
// lower value than the tables pointing at it.
type TableModel struct {
	Model any
	Order int
}

type tableRegistry struct {
	mu     sync.RWMutex
	tables []TableModel
	seen   map[reflect.Type]bool
}

var tables = &tableRegistry{seen: map[reflect.Type]bool{}}

func (r *tableRegistry) add(model any, order int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := reflect.TypeOf(model)
	if r.seen[t] {
		return
	}
	r.seen[t] = true
	r.tables = append(r.tables, TableModel{Model: model, Order: order})
}

func (r *tableRegistry) list() []TableModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]TableModel(nil), r.tables...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// RegisterTable adds a model such as (*Member)(nil). Registering the same Go
// type twice is a no-op.
func RegisterTable(model any, order int) {
	tables.add(model, order)
}

// TableModels returns the registered models in creation order.
func TableModels() []TableModel {
	return tables.list()
}

func tableModelInstances() []any {
	list := tables.list()
	out := make([]any, len(list))
	for i, t := range list {
		out[i] = t.Model
	}
	return out
}
