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

	"github.com/Comcast/sheens/match"
)

// Undefined is the sentinel user-supplied value (spec §4.8) that makes
// an Ensure-State actor skip managing that property entirely, letting
// one actor definition cover both "create only" and "fully manage"
// intents.
const Undefined = "undefined"

// Resource is implemented by the concrete actor embedding an
// EnsureState mixin: the whole-resource half of the reconciliation loop
// (spec §4.8, steps 1-2).
type Resource interface {
	// Precache performs a single read of any shared remote state,
	// called once before reconciliation begins.
	Precache(ctx *Ctx) error

	// Exists reports whether the resource is currently present.
	Exists(ctx *Ctx) (bool, error)

	// Create creates the resource. Only called when the desired
	// state is "present" and Exists reported false.
	Create(ctx *Ctx) error

	// Delete deletes the resource. Only called when the desired
	// state is "absent".
	Delete(ctx *Ctx) error
}

// Property is one managed sub-property of a Resource (spec §4.8 step
// 3): every option except name/region-like identity fields marked
// unmanaged.
type Property interface {
	Name() string
	Get(ctx *Ctx) (interface{}, error)
	Set(ctx *Ctx, want interface{}) error
}

// Comparer overrides the default byte-equality comparison for one
// Property (spec §4.8: "A default compare is byte-equality").
type Comparer interface {
	Compare(want, have interface{}) bool
}

// defaultCompare implements byte-equality via canonical JSON rendering,
// so that structurally-equal map/slice values compare equal regardless
// of Go representation differences (e.g. int vs float64 from a JSON
// round trip already collapse the same way on both sides).
func defaultCompare(want, have interface{}) bool {
	return JSON(want) == JSON(have)
}

// StructuralCompare is a Comparer for mapping-valued properties that
// should match up to key order and Go representation (e.g. int vs
// float64 surviving a JSON round trip), rather than byte-for-byte.
// It matches want, as a sheens pattern, against have; want is expected
// to hold no pattern variables, so a match either succeeds with some
// (possibly empty) set of bindings or fails outright.
type StructuralCompare struct{}

func (StructuralCompare) Compare(want, have interface{}) bool {
	bss, err := match.Match(want, have, match.NewBindings())
	return err == nil && len(bss) > 0
}

// EnsureState implements the C8 mixin's reconciliation loop (spec
// §4.8). A concrete actor constructs one, supplying its Resource, its
// ordered Properties, the desired top-level State, and the desired
// value for each property (Values, keyed by Property.Name()).
type EnsureState struct {
	Resource   Resource
	Properties []Property
	State      string // "present" | "absent"

	// Values holds each managed property's desired value. A property
	// whose Values entry is the Undefined sentinel is skipped
	// entirely (spec §4.8 final paragraph).
	Values map[string]interface{}
}

// Reconcile runs the full algorithm of spec §4.8:
//  1. Precache.
//  2. Reconcile State: absent -> delete and return; present & missing
//     -> create.
//  3. For each managed property (in declaration order): get, compare,
//     set if different. In dry mode, set is skipped but the diff is
//     still reported.
func (e *EnsureState) Reconcile(ctx *Ctx, dry bool) error {
	if e.State != "present" && e.State != "absent" {
		return InvalidOptions("state must be \"present\" or \"absent\", got %q", e.State)
	}

	if err := e.Resource.Precache(ctx); err != nil {
		return err
	}

	if e.State == "absent" {
		return Dry(ctx, dry, "delete the resource", func() error {
			return e.Resource.Delete(ctx)
		})
	}

	exists, err := e.Resource.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := Dry(ctx, dry, "create the resource", func() error {
			return e.Resource.Create(ctx)
		}); err != nil {
			return err
		}
	}

	for _, p := range e.Properties {
		name := p.Name()
		want, declared := e.Values[name]
		if !declared {
			continue
		}
		if s, is := want.(string); is && s == Undefined {
			ctx.Inddf("  skipping unmanaged property %s", name)
			continue
		}

		// A dry pass that skipped creating a missing resource has
		// nothing to read; every managed value is then reported as a
		// would-be set.
		var have interface{}
		if exists || !dry {
			have, err = p.Get(ctx)
			if err != nil {
				return err
			}
		}

		equal := defaultCompare(want, have)
		if cmp, is := p.(Comparer); is {
			equal = cmp.Compare(want, have)
		}
		if equal {
			continue
		}

		ctx.Indf("  %s differs: want %v, have %v", name, want, have)

		if err := Dry(ctx, dry, fmt.Sprintf("set %s to %v", name, want), func() error {
			return p.Set(ctx, want)
		}); err != nil {
			return err
		}
	}

	return nil
}
