/*
 * Copyright 2021 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package dsl

// Scope is the contextual-token mapping a group passes to each child at
// instantiation (spec §3 "Context"). Named Scope, rather than Context,
// to avoid colliding with context.Context.
//
// Inheritance is explicit and by value: a group may inject additional
// keys for its children (see actors/group), but a Macro's sub-document
// never inherits the enclosing Scope (macro isolation, spec §4.7).
type Scope map[string]string

// Copy makes a shallow copy, so that a group handing out N context
// blocks to fan-out children never lets one child's (nonexistent, but
// future-proofed) mutation bleed into another's.
func (s Scope) Copy() Scope {
	cp := make(Scope, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// Merge returns a new Scope with extra's keys overlaid on s's (extra
// wins on conflict). Neither input is mutated.
func (s Scope) Merge(extra Scope) Scope {
	cp := s.Copy()
	for k, v := range extra {
		cp[k] = v
	}
	return cp
}

// Lookup adapts a Scope to a Lookup.
func (s Scope) Lookup() Lookup {
	return func(name string) (string, bool) {
		v, ok := s[name]
		return v, ok
	}
}

// Names returns the bound names, in no particular order.
func (s Scope) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	return names
}
