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

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Actor is the single operation every actor exposes (spec §4.5): run
// to completion (or failure) in either dry (rehearsal) or real mode.
type Actor interface {
	Run(ctx *Ctx, dry bool) error
}

// Constructor builds one Actor instance from its options and incoming
// Scope. For a Strict registration (the default), options have already
// been deep phase-2-substituted against scope by the time Constructor
// is called, and any name scope is missing was already a fatal
// MissingContext raised before Constructor ever ran. For a non-strict
// (Lenient) registration — Group and Macro — options are only
// *partially* substituted: any token whose name is absent from scope is
// left as literal text for a descendant's own construction to resolve
// (spec §4.5, §4.6, §4.7 "macro isolation").
type Constructor func(ctx *Ctx, options map[string]interface{}, scope Scope) (Actor, error)

// namespaces gives the fixed resolution order from spec §4.4: built-in
// first, then an application namespace (reserved for a host program's
// own actor packages), then bare (for a fully qualified third-party
// identifier that needs no prefixing).
var namespaces = []string{"kingpin.", "app.", ""}

// regEntry is what the registry actually stores per kind.
type regEntry struct {
	ctor Constructor

	// strict controls whether missing contextual tokens at this
	// actor's own construction are fatal (spec §4.5).
	strict bool

	// defaultTimeout overrides Config.DefaultTimeout for this kind
	// when the node specifies no explicit timeout. Group actors
	// register with 0 (disabled) per spec §4.6.
	defaultTimeout *time.Duration

	// schema, if set, backs `--explain --actor ID` (SPEC_FULL.md §11).
	schema Schema
}

// ActorRegistry maps an actor kind ("group.Sync", "misc.Sleep", ...) to
// its Constructor, trying the fixed namespace prefixes of spec §4.4 in
// order. It mirrors the teacher's ChanRegistry/TheChanRegistry
// singleton: actor packages register themselves from init(), and
// registration is idempotent (the same kind may be (re-)registered with
// the same Constructor without error; a conflicting second registration
// is a programming error and panics at process start, matching the
// teacher's own registry fail-fast behavior).
type ActorRegistry struct {
	mu    sync.RWMutex
	byKey map[string]*regEntry
}

// NewActorRegistry builds an empty registry.
func NewActorRegistry() *ActorRegistry {
	return &ActorRegistry{byKey: make(map[string]*regEntry)}
}

// Registry is the process-wide registry populated by every built-in and
// application actor package's init(), exactly as the teacher's
// TheChanRegistry is.
var Registry = NewActorRegistry()

// RegisterOption customizes a Register call.
type RegisterOption func(*regEntry)

// Lenient marks a kind as opting out of strict context (spec §4.5):
// Group and Macro use this.
func Lenient() RegisterOption {
	return func(e *regEntry) { e.strict = false }
}

// WithDefaultTimeout overrides the global Config.DefaultTimeout for
// this kind. Group actors register with WithDefaultTimeout(0) (spec
// §4.6: "Timeouts for group actors default to 0 (disabled)").
func WithDefaultTimeout(d time.Duration) RegisterOption {
	return func(e *regEntry) { e.defaultTimeout = &d }
}

// WithSchema attaches an option schema to a registration, used by
// `--explain --actor ID` (SPEC_FULL.md §11).
func WithSchema(s Schema) RegisterOption {
	return func(e *regEntry) { e.schema = s }
}

// Register adds kind -> ctor. Re-registering the same kind with an
// identical Constructor value is a no-op (idempotent registration, spec
// §4.4); registering a different Constructor under an already-claimed
// kind is a programming error.
func (r *ActorRegistry) Register(kind string, ctor Constructor, opts ...RegisterOption) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, have := r.byKey[kind]; have {
		if sameFunc(existing.ctor, ctor) {
			return
		}
		panic("dsl: actor kind already registered: " + kind)
	}

	e := &regEntry{ctor: ctor, strict: true}
	for _, opt := range opts {
		opt(e)
	}
	r.byKey[kind] = e
}

// resolve looks up id by trying each namespace prefix in order and
// returns InvalidActor (Fatal) if none match.
func (r *ActorRegistry) resolve(id string) (*regEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ns := range namespaces {
		if e, have := r.byKey[ns+id]; have {
			return e, nil
		}
	}
	return nil, InvalidActor(id)
}

// Resolve looks up id and returns just its Constructor, for callers
// (e.g. --explain) that only need construction, not the strictness/
// timeout metadata Build also consults.
func (r *ActorRegistry) Resolve(id string) (Constructor, error) {
	e, err := r.resolve(id)
	if err != nil {
		return nil, err
	}
	return e.ctor, nil
}

// Explain renders the declared option schema for id, for `--explain`.
func (r *ActorRegistry) Explain(id string) (string, error) {
	e, err := r.resolve(id)
	if err != nil {
		return "", err
	}
	if e.schema == nil {
		return fmt.Sprintf("%s: no declared option schema\n", id), nil
	}
	return fmt.Sprintf("%s:\n%s", id, e.schema.Explain()), nil
}

// sameFunc compares two Constructor values for pointer equality using
// reflection, since Go forbids comparing func values with ==.
func sameFunc(a, b Constructor) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
