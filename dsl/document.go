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
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// validScriptExts are the document extensions the Loader accepts for
// filesystem paths (spec §4.2 InvalidScriptName).
var validScriptExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// Loader implements the Document Loader (spec §4.2): fetch raw source
// text from a filesystem path or an HTTP(S) URL, apply phase-1
// substitution, parse, and validate against the actor-node schema.
type Loader struct {
	HTTPClient *http.Client
}

// NewLoader builds a Loader with a default HTTP client, and makes it
// the DefaultLoader.
func NewLoader() *Loader {
	l := &Loader{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
	DefaultLoader = l
	return l
}

// DefaultLoader is the Loader actor constructors reach for when they
// need to fetch a sub-document (Macro) or a contexts file (Group)
// without threading a *Loader through the fixed Constructor signature —
// see DefaultBuilder's doc comment for the same pattern.
var DefaultLoader *Loader = &Loader{HTTPClient: &http.Client{Timeout: 30 * time.Second}}

// Load fetches source, phase-1-substitutes it against tokens, and
// returns the parsed, schema-validated document tree: either a single
// *ActorNode, or, for the top-level-array shorthand (spec §3, §6), a
// synthetic *ActorNode equivalent to {actor: "group.Sync",
// options:{acts: [...]}}.
func (l *Loader) Load(ctx *Ctx, source string, tokens Scope) (*ActorNode, error) {
	raw, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	subbed, err := Substitute(raw, DocumentDelim, tokens.Lookup())
	if err != nil {
		if mt, is := err.(*MissingToken); is {
			return nil, NewBroken(mt)
		}
		return nil, NewBroken(err)
	}

	var parsed interface{}
	if err := yaml.Unmarshal([]byte(subbed), &parsed); err != nil {
		return nil, NewBroken(fmt.Errorf("parsing %s: %w", source, err))
	}
	parsed = Deyamlize(parsed)

	if err := validateDocumentSchema(parsed); err != nil {
		return nil, err
	}

	node, err := toActorNode(parsed)
	if err != nil {
		return nil, err
	}

	if err := validateTreeSchema(node); err != nil {
		return nil, err
	}

	return node, nil
}

// fetch reads raw document text from a filesystem path or an http(s)
// URL. ftp:// and any other scheme are rejected per spec §4.2.
func (l *Loader) fetch(ctx *Ctx, source string) (string, error) {
	switch {
	case strings.HasPrefix(source, "ftp://"):
		return "", InvalidScriptName(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, source, nil)
		if err != nil {
			return "", InvalidScriptName(source)
		}
		resp, err := l.HTTPClient.Do(req)
		if err != nil {
			return "", NewBroken(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return "", NewBroken(fmt.Errorf("fetching %s: status %s", source, resp.Status))
		}
		bs, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", NewBroken(err)
		}
		return string(bs), nil
	case strings.Contains(source, "://"):
		return "", InvalidScriptName(source)
	default:
		ext := path.Ext(source)
		if !validScriptExts[ext] {
			return "", InvalidScriptName(source)
		}
		bs, err := os.ReadFile(source)
		if err != nil {
			return "", NewBroken(fmt.Errorf("reading %s: %w", source, err))
		}
		return string(bs), nil
	}
}

// ActorNodeFromValue exposes toActorNode to other packages (actors/group,
// actors/macro) that need to turn one already-parsed `acts` element back
// into an *ActorNode for a recursive Build call.
func ActorNodeFromValue(v interface{}) (*ActorNode, error) {
	return toActorNode(v)
}

// LoadRaw fetches source (filesystem path or http(s) URL; see fetch)
// and phase-1-substitutes it against tokens, returning the parsed
// generic value with no actor-node schema check. Used by Group to load
// a `contexts` file (spec §4.6), which is a list of mappings rather
// than an actor-node document.
func (l *Loader) LoadRaw(ctx *Ctx, source string, tokens Scope) (interface{}, error) {
	raw, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	subbed, err := Substitute(raw, DocumentDelim, tokens.Lookup())
	if err != nil {
		if mt, is := err.(*MissingToken); is {
			return nil, NewBroken(mt)
		}
		return nil, NewBroken(err)
	}
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(subbed), &parsed); err != nil {
		return nil, NewBroken(fmt.Errorf("parsing %s: %w", source, err))
	}
	return Deyamlize(parsed), nil
}

// toActorNode converts a parsed document value into an *ActorNode,
// applying the top-level-array shorthand of spec §3: "A top-level array
// is equivalent to {actor: 'group.Sync', options:{acts:[...]}}".
func toActorNode(v interface{}) (*ActorNode, error) {
	if arr, is := v.([]interface{}); is {
		return &ActorNode{
			Actor:   "group.Sync",
			Options: map[string]interface{}{"acts": arr},
		}, nil
	}

	m, is := v.(map[string]interface{})
	if !is {
		return nil, SchemaInvalid(fmt.Errorf("document root must be a mapping or array, got %T", v))
	}

	node := &ActorNode{}
	if s, is := m["actor"].(string); is {
		node.Actor = s
	} else {
		return nil, SchemaInvalid(fmt.Errorf("missing required 'actor' field"))
	}
	if s, is := m["desc"].(string); is {
		node.Desc = s
	}
	if opts, is := m["options"].(map[string]interface{}); is {
		node.Options = opts
	}
	node.Condition = m["condition"]
	node.WarnOnFailure = m["warn_on_failure"]
	node.Timeout = m["timeout"]

	for k := range m {
		switch k {
		case "actor", "desc", "options", "condition", "warn_on_failure", "timeout":
		default:
			return nil, SchemaInvalid(fmt.Errorf("unknown top-level key %q", k))
		}
	}

	return node, nil
}

// validateTreeSchema recurses into every `options.acts` array (the only
// place nested actor nodes can appear) to catch a malformed child
// before any actor body executes (spec Testable Property 2,
// "Pre-flight completeness"), since the top-level JSON-Schema check in
// validateDocumentSchema only looks at the immediate node.
func validateTreeSchema(node *ActorNode) error {
	acts, have := node.Options["acts"]
	if !have {
		return nil
	}
	arr, is := acts.([]interface{})
	if !is {
		return SchemaInvalid(fmt.Errorf("'acts' must be an array, got %T", acts))
	}
	for i, raw := range arr {
		if err := validateDocumentSchema(raw); err != nil {
			return fmt.Errorf("acts[%d]: %w", i, err)
		}
		child, err := toActorNode(raw)
		if err != nil {
			return fmt.Errorf("acts[%d]: %w", i, err)
		}
		if err := validateTreeSchema(child); err != nil {
			return fmt.Errorf("acts[%d]: %w", i, err)
		}
	}
	return nil
}
