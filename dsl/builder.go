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
	"github.com/oklog/ulid/v2"
)

// Builder turns one ActorNode (plus its incoming Scope) into a running
// Actor, performing the full spec §4.5 "Construction" step: phase-2
// substitution, default-description formatting, option validation (via
// the resolved Constructor, which consults its own Schema), and
// wrapping the result in Core. Group and Macro call back into Builder
// for each child they instantiate, so one Builder value is shared
// across an entire tree build.
type Builder struct {
	Registry *ActorRegistry
	Config   *Config
}

// DefaultBuilder is the Builder actor constructors reach for when they
// need to recursively construct child nodes (Group, Macro) without
// threading a *Builder through the fixed Constructor signature — the
// same "one deliberate global" pattern as Registry (see its doc
// comment). NewRunner/NewBuilder keep it pointed at the most recently
// built Builder, so a host program that calls NewRunner once at start
// gets a single consistent Config throughout the tree.
var DefaultBuilder *Builder = &Builder{Registry: Registry, Config: &Config{DefaultTimeout: DefaultDefaultTimeout}}

// NewBuilder constructs a Builder bound to the process-wide Registry
// and the given Config, and makes it the DefaultBuilder.
func NewBuilder(cfg *Config) *Builder {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	b := &Builder{Registry: Registry, Config: cfg}
	DefaultBuilder = b
	return b
}

// Build instantiates node against scope using DefaultBuilder, for
// actor constructors (Group, Macro) that need to recursively build
// children.
func Build(ctx *Ctx, node *ActorNode, scope Scope) (Actor, error) {
	return DefaultBuilder.Build(ctx, node, scope)
}

// Build instantiates one actor node against scope (spec §4.5).
//
// A top-level document value that is an array is handled by the caller
// (Loader.Load / the Runner) by rewriting it into a synthetic
// group.Sync node (spec §3, §6) before Build ever sees it.
func (b *Builder) Build(ctx *Ctx, node *ActorNode, scope Scope) (Actor, error) {
	if node.Actor == "" {
		return nil, Brokenf("actor node missing required 'actor' field")
	}

	entry, err := b.Registry.resolve(node.Actor)
	if err != nil {
		return nil, err
	}

	lookup := tolerantOrStrictLookup(scope, entry.strict)

	desc, err := substituteField(node.Desc, lookup, entry.strict)
	if err != nil {
		return nil, MissingContext(err.(*MissingToken).Names)
	}

	condRaw := node.Condition
	if s, is := condRaw.(string); is {
		subbed, err := substituteField(s, lookup, entry.strict)
		if err != nil {
			return nil, MissingContext(err.(*MissingToken).Names)
		}
		condRaw = subbed
	}

	var options map[string]interface{}
	if node.Options != nil {
		subbed, err := SubstituteDeep(node.Options, ContextDelim, lookup)
		if err != nil {
			if mt, is := err.(*MissingToken); is {
				// Only reachable in strict mode: lenient
				// lookups never report a name missing (see
				// tolerantOrStrictLookup).
				return nil, MissingContext(mt.Names)
			}
			return nil, err
		}
		m, is := subbed.(map[string]interface{})
		if !is {
			return nil, Brokenf("'options' must be a mapping, got %T", subbed)
		}
		options = m
	} else {
		options = map[string]interface{}{}
	}

	inner, err := entry.ctor(ctx, options, scope)
	if err != nil {
		return nil, err
	}

	if desc == "" {
		if d, is := inner.(Describer); is {
			desc = d.DefaultDesc()
		} else {
			desc = node.Actor
		}
	}

	deflt := b.Config.DefaultTimeout
	if entry.defaultTimeout != nil {
		deflt = *entry.defaultTimeout
	}
	timeout, err := parseTimeout(node.Timeout, deflt)
	if err != nil {
		return nil, err
	}

	return &Core{
		id:            ulid.Make(),
		class:         node.Actor,
		desc:          desc,
		inner:         inner,
		warnOnFailure: parseWarnOnFailure(node.WarnOnFailure),
		timeout:       timeout,
		condition:     truthy(condRaw),
	}, nil
}

// substituteField substitutes a single string field. In strict mode a
// missing token is returned as a *MissingToken for the caller to wrap
// as MissingContext; in non-strict (lenient) mode it can never fail —
// see tolerantOrStrictLookup.
func substituteField(s string, lookup Lookup, strict bool) (string, error) {
	if s == "" {
		return "", nil
	}
	out, err := Substitute(s, ContextDelim, lookup)
	if err != nil {
		return "", err
	}
	return out, nil
}

// tolerantOrStrictLookup wraps scope's lookup so that, in lenient mode,
// a name scope doesn't have is reported as "found" with its value equal
// to the original token text (so Substitute reproduces `{NAME}`
// unchanged rather than erroring), letting a descendant's own
// construction resolve it later from an extended Scope (spec §4.5
// "unless the actor class opts out of strict context (Group and Macro
// do — their children will close the gap)").
func tolerantOrStrictLookup(scope Scope, strict bool) Lookup {
	if strict {
		return scope.Lookup()
	}
	return func(name string) (string, bool) {
		if v, ok := scope[name]; ok {
			return v, true
		}
		return "{" + name + "}", true
	}
}
