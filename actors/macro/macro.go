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

// Package macro implements the Macro actor of spec §4.7: load a
// sub-document from elsewhere, phase-1 substitute it with its own token
// set, and run it as a single child, isolated from the enclosing tree's
// Scope.
package macro

import (
	"fmt"

	"github.com/nextdoor/kingpin/dsl"
)

func init() {
	// Lenient for the same reason as group: Macro's sub-document
	// closes its own context gap once it's instantiated against a
	// fresh Scope (see NewMacro). Macro's own phase-2 fields (desc,
	// condition) are still subject to the enclosing tree's Scope via
	// the normal strict/lenient split in Builder.Build; it's only the
	// *sub-document's* construction that is isolated.
	dsl.Registry.Register("kingpin.macro.Macro", NewMacro, dsl.Lenient())
}

// Macro loads "macro", builds it once eagerly (spec §4.7 "a macro with
// an invalid sub-document fails at construction, not at run"), and runs
// the resulting tree as its single child.
type Macro struct {
	Source string
	Child  dsl.Actor
}

// NewMacro implements spec §4.7's construction: fetch+phase-1-substitute
// the sub-document named by the "macro" option (spec §4.7: "options:
// {macro: <path-or-url>, tokens: {...}}"), using "tokens" (a mapping,
// defaulting to {}) merged over the ambient environment — explicit
// tokens win on conflict — as the phase-1 token set. The sub-document
// is then built against an empty Scope: the enclosing tree's Scope is
// never inherited (macro isolation).
func NewMacro(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	if err := rejectUnknown(options, "macro", "tokens"); err != nil {
		return nil, err
	}

	source, is := options["macro"].(string)
	if !is || source == "" {
		return nil, dsl.InvalidOptions("'macro' (string) is required")
	}

	tokens, err := tokensOption(options["tokens"])
	if err != nil {
		return nil, dsl.InvalidOptions("'tokens': %v", err)
	}

	phase1 := dsl.EnvTokens().Merge(tokens)

	node, err := dsl.DefaultLoader.Load(ctx, source, phase1)
	if err != nil {
		return nil, fmt.Errorf("macro %q: %w", source, err)
	}

	child, err := dsl.Build(ctx, node, dsl.Scope{})
	if err != nil {
		return nil, fmt.Errorf("macro %q: %w", source, err)
	}

	return &Macro{Source: source, Child: child}, nil
}

func (m *Macro) DefaultDesc() string {
	return fmt.Sprintf("macro.Macro (%s)", m.Source)
}

// rejectUnknown fails construction on any option key outside the
// declared set (spec §4.3 point 2, invoked per §4.5 step 1), the same
// check group.go's actors apply via rejectUnknown/dsl.Schema.
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

// Run delegates to the single pre-built child.
func (m *Macro) Run(ctx *dsl.Ctx, dry bool) error {
	return m.Child.Run(ctx.Indented(), dry)
}

func tokensOption(raw interface{}) (dsl.Scope, error) {
	if raw == nil {
		return dsl.Scope{}, nil
	}
	m, is := raw.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("must be a mapping, got %T", raw)
	}
	out := make(dsl.Scope, len(m))
	for k, v := range m {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}
