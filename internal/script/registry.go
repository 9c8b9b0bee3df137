/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "stagescript/internal/domain"

// Registry assigns each character handle a stable identity for the
// duration of one parse. Identity is the exact handle token; characters
// are auto-registered on first reference and never removed.
type Registry struct {
	byName map[domain.CharacterRef]*domain.Character
	order  []*domain.Character
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[domain.CharacterRef]*domain.Character)}
}

// LookupOrCreate returns the existing identity for name, or creates one
// recording the first-use line and the kind of element it appeared in.
func (r *Registry) LookupOrCreate(name domain.CharacterRef, line int, use domain.ElementKind) *domain.Character {
	if c, ok := r.byName[name]; ok {
		return c
	}
	c := &domain.Character{Name: name, FirstLine: line, FirstUse: use}
	r.byName[name] = c
	r.order = append(r.order, c)
	return c
}

// Lookup returns the identity for name if it has been seen.
func (r *Registry) Lookup(name domain.CharacterRef) (*domain.Character, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Characters returns every registered character in first-use order.
func (r *Registry) Characters() []*domain.Character { return r.order }
