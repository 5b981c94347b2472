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

// Package group implements the Group Actors of spec §4.6 as two
// registered kinds: group.Sync and group.Async (the latter covering the
// bounded-concurrency variant through its "concurrency" option), sharing
// one construction path (fail-fast pre-flight, contextual fan-out).
package group

import (
	"fmt"
	"sync"

	"github.com/nextdoor/kingpin/dsl"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

func init() {
	// Groups are Lenient (spec §4.5: their children close the
	// context gap) and disable their own timeout by default (spec
	// §4.6: "Timeouts for group actors default to 0 (disabled) —
	// children carry their own.").
	dsl.Registry.Register("kingpin.group.Sync", NewSync,
		dsl.Lenient(), dsl.WithDefaultTimeout(0))
	dsl.Registry.Register("kingpin.group.Async", NewAsync,
		dsl.Lenient(), dsl.WithDefaultTimeout(0))
}

// buildChildren implements spec §4.6's Construction step, shared by
// Sync and Async: if contexts is absent or has exactly one element,
// acts is instantiated once; if contexts has N>1 elements, acts is
// instantiated N times, once per context element, in list order,
// producing N*len(acts) children. Any child construction error aborts
// the whole build (fail-fast pre-flight, spec Testable Property 2).
func buildChildren(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) ([]dsl.Actor, error) {
	actsRaw, have := options["acts"]
	if !have {
		return nil, dsl.InvalidOptions("'acts' is required")
	}
	actsArr, is := actsRaw.([]interface{})
	if !is {
		return nil, dsl.InvalidOptions("'acts' must be an array, got %T", actsRaw)
	}

	acts := make([]*dsl.ActorNode, len(actsArr))
	for i, raw := range actsArr {
		node, err := dsl.ActorNodeFromValue(raw)
		if err != nil {
			return nil, fmt.Errorf("acts[%d]: %w", i, err)
		}
		acts[i] = node
	}

	contexts, err := resolveContexts(ctx, options["contexts"], scope)
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		contexts = []dsl.Scope{{}}
	}

	children := make([]dsl.Actor, 0, len(acts)*len(contexts))
	for _, c := range contexts {
		childScope := scope.Merge(c)
		for i, node := range acts {
			a, err := dsl.Build(ctx, node, childScope)
			if err != nil {
				return nil, fmt.Errorf("acts[%d] (context %v): %w", i, c, err)
			}
			children = append(children, a)
		}
	}
	return children, nil
}

// resolveContexts parses the `contexts` option (spec §4.6): absent,
// an inline list of mappings, or a string reference to a file
// containing such a list (itself phase-1-substituted using the
// engine's ambient token set before parsing).
func resolveContexts(ctx *dsl.Ctx, raw interface{}, scope dsl.Scope) ([]dsl.Scope, error) {
	if raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		parsed, err := dsl.DefaultLoader.LoadRaw(ctx, v, dsl.EnvTokens())
		if err != nil {
			return nil, err
		}
		return toScopeList(parsed)
	case []interface{}:
		return toScopeList(v)
	default:
		return nil, dsl.InvalidOptions("'contexts' must be a list or a file path, got %T", raw)
	}
}

func toScopeList(v interface{}) ([]dsl.Scope, error) {
	arr, is := v.([]interface{})
	if !is {
		return nil, dsl.InvalidOptions("'contexts' must resolve to a list, got %T", v)
	}
	out := make([]dsl.Scope, len(arr))
	for i, elem := range arr {
		m, is := elem.(map[string]interface{})
		if !is {
			return nil, dsl.InvalidOptions("contexts[%d] must be a mapping, got %T", i, elem)
		}
		scope := make(dsl.Scope, len(m))
		for k, val := range m {
			scope[k] = fmt.Sprintf("%v", val)
		}
		out[i] = scope
	}
	return out, nil
}

func rejectUnknown(options map[string]interface{}, known ...string) error {
	allowed := map[string]bool{}
	for _, k := range known {
		allowed[k] = true
	}
	for k := range options {
		if !allowed[k] {
			return dsl.InvalidOptions("unknown option %q", k)
		}
	}
	return nil
}

// Sync runs its children in declaration order (spec §4.6).
type Sync struct {
	Children []dsl.Actor
}

func NewSync(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	if err := rejectUnknown(options, "acts", "contexts"); err != nil {
		return nil, err
	}
	children, err := buildChildren(ctx, options, scope)
	if err != nil {
		return nil, err
	}
	return &Sync{Children: children}, nil
}

func (s *Sync) DefaultDesc() string {
	return fmt.Sprintf("group.Sync (%d children)", len(s.Children))
}

// Run implements spec §4.6's Sync execution: in dry mode, a recoverable
// child failure is recorded but execution continues so the operator
// sees every error at once; at the end, if any child recorded a
// failure, the group fails. In real mode, the first failure — fatal or
// recoverable — stops the group and propagates immediately.
//
// Open Question (spec §9): whether a dry-mode Sync group should still
// short-circuit on a *fatal* child failure. Decided here (see
// DESIGN.md): no — dry mode always runs every child so rehearsal
// surfaces every problem in one pass, matching the spec's own note
// that "source appears to continue."
func (s *Sync) Run(ctx *dsl.Ctx, dry bool) error {
	indented := ctx.Indented()

	if !dry {
		for i, c := range s.Children {
			indented.Indf("child %d", i)
			if err := c.Run(indented, dry); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		firstErr error
		hadFatal bool
	)
	for i, c := range s.Children {
		indented.Indf("child %d", i)
		err := c.Run(indented, dry)
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if _, fatal := dsl.IsBroken(err); fatal {
			hadFatal = true
		}
	}
	if firstErr == nil {
		return nil
	}
	if hadFatal {
		return dsl.NewBroken(firstErr)
	}
	return dsl.NewRecoverable(firstErr)
}

// Async dispatches its children to run concurrently, optionally bounded
// by Concurrency (spec §4.6).
type Async struct {
	Children    []dsl.Actor
	Concurrency int
}

func NewAsync(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	if err := rejectUnknown(options, "acts", "contexts", "concurrency"); err != nil {
		return nil, err
	}
	children, err := buildChildren(ctx, options, scope)
	if err != nil {
		return nil, err
	}

	concurrency := 0
	if v, have := options["concurrency"]; have {
		n, err := toInt(v)
		if err != nil {
			return nil, dsl.InvalidOptions("'concurrency': %v", err)
		}
		concurrency = n
	}

	return &Async{Children: children, Concurrency: concurrency}, nil
}

func (a *Async) DefaultDesc() string {
	return fmt.Sprintf("group.Async (%d children, concurrency %d)", len(a.Children), a.Concurrency)
}

// Run implements spec §4.6's Async execution: at most Concurrency
// children (or unbounded, when Concurrency == 0) are ever in flight.
// The group waits for every launched child to complete — success or
// failure — before returning; no child's failure cancels its siblings.
// The aggregate outcome is fatal if any child's was, else recoverable,
// else success.
func (a *Async) Run(ctx *dsl.Ctx, dry bool) error {
	n := len(a.Children)
	if n == 0 {
		return nil
	}

	limit := a.Concurrency
	if limit <= 0 {
		limit = n
	}
	sem := semaphore.NewWeighted(int64(limit))

	var (
		g        errgroup.Group // plain Group: no WithContext, so one failure never cancels siblings
		mu       sync.Mutex
		firstErr error
		hadFatal bool
	)

	indented := ctx.Indented()

	for i, c := range a.Children {
		c, i := c, i
		if err := sem.Acquire(ctx.Context, 1); err != nil {
			return dsl.NewBroken(err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			indented.Indf("child %d", i)
			if err := c.Run(indented, dry); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				if _, fatal := dsl.IsBroken(err); fatal {
					hadFatal = true
				}
				mu.Unlock()
			}
			return nil // errors are tracked above, not via errgroup's own short-circuit
		})
	}

	_ = g.Wait()

	if firstErr == nil {
		return nil
	}
	if hadFatal {
		return dsl.NewBroken(firstErr)
	}
	return dsl.NewRecoverable(firstErr)
}

func toInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("want an integer, got %T", v)
	}
}
