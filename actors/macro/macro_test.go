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

package macro_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdoor/kingpin/dsl"

	_ "github.com/nextdoor/kingpin/actors/macro"
	_ "github.com/nextdoor/kingpin/actors/misc"
)

func writeDoc(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestMacroLoadsAndRunsSubDocument(t *testing.T) {
	sub := writeDoc(t, `actor: "misc.Note"
options:
  message: "hi %WHO%"
`)

	node := &dsl.ActorNode{
		Actor: "macro.Macro",
		Options: map[string]interface{}{
			"macro":  sub,
			"tokens": map[string]interface{}{"WHO": "world"},
		},
	}

	actor, err := dsl.Build(dsl.NewCtx(nil), node, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, actor.Run(dsl.NewCtx(nil), false))
}

// Testable Property 5: macro isolation — a contextual token bound by
// an enclosing group is invisible to the macro's own phase-1
// substitution (which only sees %-tokens anyway, never the enclosing
// {NAME} Scope).
func TestMacroSubDocumentIsolatedFromEnclosingScope(t *testing.T) {
	sub := writeDoc(t, `actor: "misc.Note"
options:
  message: "value is %SECRET|fallback%"
`)

	node := &dsl.ActorNode{
		Actor:   "macro.Macro",
		Options: map[string]interface{}{"macro": sub},
	}

	// Build against a Scope carrying SECRET as a *contextual* ({NAME})
	// binding; the macro's phase-1 substitution never consults Scope,
	// so it falls back to the inline default.
	actor, err := dsl.Build(dsl.NewCtx(nil), node, dsl.Scope{"SECRET": "leaked"})
	require.NoError(t, err)
	require.NoError(t, actor.Run(dsl.NewCtx(nil), false))
}

func TestMacroFailsConstructionOnInvalidSubDocument(t *testing.T) {
	sub := writeDoc(t, `actor: "nonexistent.Thing"
`)

	node := &dsl.ActorNode{
		Actor:   "macro.Macro",
		Options: map[string]interface{}{"macro": sub},
	}

	_, err := dsl.Build(dsl.NewCtx(nil), node, dsl.Scope{})
	require.Error(t, err)
	_, isBroken := dsl.IsBroken(err)
	assert.True(t, isBroken)
}

func TestMacroRequiresSource(t *testing.T) {
	node := &dsl.ActorNode{Actor: "macro.Macro", Options: map[string]interface{}{}}
	_, err := dsl.Build(dsl.NewCtx(nil), node, dsl.Scope{})
	require.Error(t, err)
}

func TestMacroRejectsUnknownOption(t *testing.T) {
	node := &dsl.ActorNode{
		Actor:   "macro.Macro",
		Options: map[string]interface{}{"macro": "/dev/null", "bogus": true},
	}
	_, err := dsl.Build(dsl.NewCtx(nil), node, dsl.Scope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
