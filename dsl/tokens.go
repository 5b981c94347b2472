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
	"strings"

	"gopkg.in/yaml.v3"
)

// Delim is a pair of token delimiters: document-time tokens use Delim{"%",
// "%"}, instantiation-time (contextual) tokens use Delim{"{", "}"}
// (spec §3 "Token forms").
type Delim struct {
	Open, Close byte
}

// DocumentDelim is the phase-1 ("%NAME%") delimiter.
var DocumentDelim = Delim{'%', '%'}

// ContextDelim is the phase-2 ("{NAME}") delimiter.
var ContextDelim = Delim{'{', '}'}

// Lookup resolves a token name to its value. The second return
// indicates whether the name was found at all (as opposed to merely
// having an empty value).
type Lookup func(name string) (string, bool)

// MapLookup adapts a plain map to a Lookup.
func MapLookup(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Substitute performs one non-recursive pass of token substitution over
// src using the given delimiter pair and Lookup (spec §4.1).
//
// Every non-escaped `<open>NAME<close>` or `<open>NAME|default<close>`
// reference is replaced by lookup(NAME) if found, else by the inline
// default if present, else its name is accumulated into a MissingToken
// error (so every unresolved name in the string is reported together).
// Escape sequences `\<open>NAME\<close>` are reduced to their literal
// form (`<open>NAME<close>`) as the scan reaches them, and that literal
// is not scanned again. The substituted text is never re-scanned
// either: substitution is one pass, not recursive.
func Substitute(src string, d Delim, lookup Lookup) (string, error) {
	var (
		out     strings.Builder
		missing []string
		i       int
		n       = len(src)
	)

	for i < n {
		c := src[i]

		// Escape: \<open> ... \<close> collapses to <open> ... <close>
		// verbatim, consuming no binding.
		if c == '\\' && i+1 < n && src[i+1] == d.Open {
			if end := findEscapedClose(src, i+2, d); end >= 0 {
				name := src[i+2 : end]
				out.WriteByte(d.Open)
				out.WriteString(name)
				out.WriteByte(d.Close)
				i = end + 2 // skip past the matching "\<close>"
				continue
			}
		}

		if c == d.Open {
			if end := findClose(src, i+1, d); end >= 0 {
				body := src[i+1 : end]
				name, def, hasDef := splitDefault(body)

				if v, ok := lookup(name); ok {
					out.WriteString(v)
				} else if hasDef {
					out.WriteString(def)
				} else {
					missing = append(missing, name)
				}
				i = end + 1
				continue
			}
		}

		out.WriteByte(c)
		i++
	}

	if len(missing) > 0 {
		return "", &MissingToken{Names: missing}
	}

	return out.String(), nil
}

// splitDefault splits "NAME|default" into ("NAME", "default", true), or
// returns ("NAME", "", false) if there is no default.
func splitDefault(body string) (name, def string, hasDefault bool) {
	if idx := strings.IndexByte(body, '|'); idx >= 0 {
		return body[:idx], body[idx+1:], true
	}
	return body, "", false
}

// findClose finds the index of the next close delimiter at or after
// from, or -1; a backslash before it is not treated as an escape here.
// Token bodies are not expected to nest.
func findClose(s string, from int, d Delim) int {
	for i := from; i < len(s); i++ {
		if s[i] == d.Close {
			return i
		}
	}
	return -1
}

// findEscapedClose finds the index of a literal "\<close>" sequence
// starting the name search at from, returning the index of the
// backslash that begins it, or -1.
func findEscapedClose(s string, from int, d Delim) int {
	for i := from; i < len(s)-1; i++ {
		if s[i] == '\\' && s[i+1] == d.Close {
			return i
		}
	}
	return -1
}

// SubstituteDeep applies Substitute to every string found while
// round-tripping v through YAML (spec §4.1 "Applied to structured
// data"): serialize the subtree to a neutral textual form, substitute,
// re-parse. This walks into nested mappings/arrays without a bespoke
// recursive-descent tree walker, at the cost of requiring v to be
// YAML-round-trippable.
func SubstituteDeep(v interface{}, d Delim, lookup Lookup) (interface{}, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}

	subbed, err := Substitute(string(raw), d, lookup)
	if err != nil {
		return nil, err
	}

	var out interface{}
	if err := yaml.Unmarshal([]byte(subbed), &out); err != nil {
		return nil, err
	}

	return Deyamlize(out), nil
}

// Deyamlize recursively converts the map[string]interface{}-unfriendly
// shapes yaml.v3 produces (map[interface{}]interface{} in older
// releases; nested []interface{}) into map[string]interface{} and
// []interface{}, the shape the rest of the engine expects (and the
// shape encoding/json also produces, so both document formats agree).
func Deyamlize(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, vv := range x {
			out[k] = Deyamlize(vv)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, vv := range x {
			out[toString(k)] = Deyamlize(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, vv := range x {
			out[i] = Deyamlize(vv)
		}
		return out
	default:
		return x
	}
}

func toString(v interface{}) string {
	if s, is := v.(string); is {
		return s
	}
	return yamlScalar(v)
}

func yamlScalar(v interface{}) string {
	bs, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bs))
}
