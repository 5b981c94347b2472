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
	"sort"
)

// Kind enumerates the primitive option categories (spec §4.3).
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindNumber
	KindBool
	KindMapping
	KindSequence
	// KindSelfValidating marks an option whose Validator field does
	// the type checking itself (e.g. Enum, JSONSchema), rather than
	// one of the primitive categories above.
	KindSelfValidating
)

// requiredMarker is the type of the sentinel recorded in
// OptionSpec.Default when an option has no default and must be supplied.
type requiredMarker struct{}

// Required is the explicit "required" marker named in spec §3: an
// option with this as its Default has no in-band sentinel standing in
// for "absent" — absence is a validation error.
var Required = requiredMarker{}

// Validator is implemented by a "self-validating" option type (spec
// §4.3): its Validate method either accepts a value or returns
// InvalidOptions.
type Validator interface {
	Validate(value interface{}) error
}

// OptionSpec declares one option: its type, its default (or Required),
// and its documentation.
type OptionSpec struct {
	Kind Kind

	// Default is the value filled in when the option is absent and
	// not Required. If Default == Required, the option must be
	// present and non-nil.
	Default interface{}

	// Validator is consulted when Kind == KindSelfValidating (and,
	// if non-nil, also after a primitive Kind check passes).
	Validator Validator

	Doc string
}

func (s OptionSpec) required() bool {
	_, is := s.Default.(requiredMarker)
	return is
}

// Schema is an actor class's declared option schema: name -> spec
// (spec §4.3).
type Schema map[string]OptionSpec

// Names returns the declared option names in sorted order, used by
// Explain (the --explain output).
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate implements the Option Validator (spec §4.3):
//  1. fills missing optional options with their declared defaults,
//  2. rejects unknown option keys,
//  3. requires every Required option to be present and non-nil,
//  4. invokes each option's type validator.
//
// It returns a new map (the input is never mutated) and a Fatal
// (InvalidOptions) error on any violation.
func (s Schema) Validate(options map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s))

	for name, spec := range s {
		v, present := options[name]
		if !present || v == nil {
			if spec.required() {
				return nil, InvalidOptions("option %q is required", name)
			}
			if _, isRequired := spec.Default.(requiredMarker); !isRequired {
				out[name] = spec.Default
			}
			continue
		}
		out[name] = v
	}

	for name := range options {
		if _, declared := s[name]; !declared {
			return nil, InvalidOptions("unknown option %q", name)
		}
	}

	for name, v := range out {
		spec := s[name]
		if err := checkKind(name, spec, v); err != nil {
			return nil, err
		}
		if spec.Validator != nil {
			if err := spec.Validator.Validate(v); err != nil {
				return nil, InvalidOptions("option %q: %v", name, err)
			}
		}
	}

	return out, nil
}

func checkKind(name string, spec OptionSpec, v interface{}) error {
	if spec.Kind == KindSelfValidating {
		return nil
	}
	switch spec.Kind {
	case KindString:
		if _, is := v.(string); !is {
			return InvalidOptions("option %q: want string, got %T", name, v)
		}
	case KindInt:
		switch v.(type) {
		case int, int32, int64:
		default:
			return InvalidOptions("option %q: want int, got %T", name, v)
		}
	case KindNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return InvalidOptions("option %q: want number, got %T", name, v)
		}
	case KindBool:
		switch v.(type) {
		case bool, string:
		default:
			return InvalidOptions("option %q: want bool, got %T", name, v)
		}
	case KindMapping:
		if _, is := v.(map[string]interface{}); !is {
			return InvalidOptions("option %q: want mapping, got %T", name, v)
		}
	case KindSequence:
		if _, is := v.([]interface{}); !is {
			return InvalidOptions("option %q: want sequence, got %T", name, v)
		}
	default:
		return fmt.Errorf("internal error: unknown option kind %d for %q", spec.Kind, name)
	}
	return nil
}

// Explain renders the schema as human-readable documentation, the
// output of `--explain --actor ID` (spec §6, SPEC_FULL.md §11).
func (s Schema) Explain() string {
	out := ""
	for _, name := range s.Names() {
		spec := s[name]
		req := "optional"
		if spec.required() {
			req = "required"
		}
		out += fmt.Sprintf("  %s (%s, %s)", name, kindName(spec.Kind), req)
		if !spec.required() && spec.Default != nil {
			out += fmt.Sprintf(" [default: %v]", spec.Default)
		}
		if spec.Doc != "" {
			out += "\n      " + spec.Doc
		}
		out += "\n"
	}
	return out
}

func kindName(k Kind) string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindSelfValidating:
		return "validated"
	default:
		return "unknown"
	}
}
