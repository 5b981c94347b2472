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
	"encoding/json"
	"fmt"
	"strings"

	jschema "github.com/xeipuuv/gojsonschema"
)

// EnumValidator is the first stock self-validating option type (spec
// §4.3): the value must be one of a fixed set of strings.
type EnumValidator struct {
	Values []string
}

// Enum builds an EnumValidator, for use as an OptionSpec.Validator.
func Enum(values ...string) *EnumValidator {
	return &EnumValidator{Values: values}
}

func (e *EnumValidator) Validate(value interface{}) error {
	s, is := value.(string)
	if !is {
		return fmt.Errorf("want a string, got %T", value)
	}
	for _, v := range e.Values {
		if v == s {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", s, strings.Join(e.Values, ", "))
}

// JSONSchemaValidator is the second stock self-validating option type
// (spec §4.3): the value (a mapping) must conform to a JSON-Schema-like
// document. Grounded directly on the teacher's validateSchema in
// dsl/spec.go, which validates an actor's Pub/Recv payload against a
// schema URI the same way.
type JSONSchemaValidator struct {
	schema jschema.JSONLoader
}

// JSONSchema builds a JSONSchemaValidator from an inline JSON Schema
// document (as a Go value or raw JSON/YAML text).
func JSONSchema(doc interface{}) *JSONSchemaValidator {
	return &JSONSchemaValidator{schema: jschema.NewGoLoader(doc)}
}

// JSONSchemaFromURI builds a JSONSchemaValidator that resolves its
// schema from a URI (file://, http://, https://), exactly as the
// teacher's Pub.Schema/Recv.Schema fields do.
func JSONSchemaFromURI(uri string) *JSONSchemaValidator {
	return &JSONSchemaValidator{schema: jschema.NewReferenceLoader(uri)}
}

func (j *JSONSchemaValidator) Validate(value interface{}) error {
	doc := jschema.NewGoLoader(value)

	result, err := jschema.Validate(j.schema, doc)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	complaints := make([]string, len(errs))
	for i, e := range errs {
		complaints[i] = e.String()
	}
	return fmt.Errorf("schema validation errors: %s", strings.Join(complaints, "; "))
}

// validateDocumentSchema validates a fully phase-1-substituted document
// tree against the fixed actor-node schema (spec §4.2, §6). It is
// invoked by the Document Loader on every node and recursively on every
// 'acts' child, catching the common shape errors (missing 'actor',
// wrongly typed 'actor'/'desc'/'options') before the tree is ever
// handed to the Actor Registry. The schema does not reject unknown
// top-level keys; toActorNode does.
func validateDocumentSchema(node interface{}) error {
	js, err := json.Marshal(node)
	if err != nil {
		return SchemaInvalid(err)
	}

	loader := jschema.NewStringLoader(string(js))
	schemaLoader := jschema.NewStringLoader(actorNodeJSONSchema)

	result, err := jschema.Validate(schemaLoader, loader)
	if err != nil {
		return SchemaInvalid(err)
	}
	if !result.Valid() {
		errs := result.Errors()
		complaints := make([]string, len(errs))
		for i, e := range errs {
			complaints[i] = e.String()
		}
		return SchemaInvalid(fmt.Errorf("%s", strings.Join(complaints, "; ")))
	}
	return nil
}

// actorNodeJSONSchema is the schema from spec §6 ("Input document
// schema (per actor node)"), applied to either a single node or a
// top-level array of nodes (the array-equals-group.Sync shorthand).
const actorNodeJSONSchema = `{
  "oneOf": [
    {
      "type": "object",
      "properties": {
        "actor": {"type": "string"},
        "desc": {"type": "string"},
        "options": {"type": "object"},
        "condition": {},
        "warn_on_failure": {},
        "timeout": {}
      },
      "required": ["actor"]
    },
    {
      "type": "array"
    }
  ]
}`
