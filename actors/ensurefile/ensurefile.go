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

// Package ensurefile implements one concrete Ensure-State actor (spec
// §4.8): a local file's presence, content, and permission bits.
package ensurefile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nextdoor/kingpin/dsl"
)

// jsonManifestSchema is a minimal JSON Schema requiring the "json"
// option's value to be an object (a document's YAML mapping, not a
// scalar or array) when it's supplied at all.
var jsonManifestSchema = dsl.JSONSchema(map[string]interface{}{"type": "object"})

// undefinedOrSchema lets a JSON-Schema-validated option double as
// "unmanaged" via the dsl.Undefined sentinel (spec §4.8), the same way
// the plain string "content"/"mode" options do: the sentinel always
// passes, regardless of what the wrapped schema requires.
type undefinedOrSchema struct{ inner dsl.Validator }

func (u undefinedOrSchema) Validate(v interface{}) error {
	if s, is := v.(string); is && s == dsl.Undefined {
		return nil
	}
	return u.inner.Validate(v)
}

var schema = dsl.Schema{
	"path":  dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Required, Doc: "filesystem path"},
	"state": dsl.OptionSpec{Kind: dsl.KindSelfValidating, Default: "present", Validator: dsl.Enum("present", "absent"), Doc: "desired presence"},
	"content": dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Undefined,
		Doc: "desired file content; \"undefined\" leaves it unmanaged; mutually exclusive with json"},
	"json": dsl.OptionSpec{Kind: dsl.KindSelfValidating, Default: dsl.Undefined, Validator: undefinedOrSchema{jsonManifestSchema},
		Doc: "desired content as a mapping, schema-validated as a JSON object and rendered as indented JSON; \"undefined\" leaves it unmanaged; mutually exclusive with content"},
	"mode": dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Undefined, Doc: "desired permission bits, e.g. \"0644\"; \"undefined\" leaves it unmanaged"},
}

func init() {
	dsl.Registry.Register("kingpin.ensurefile.File", NewFile, dsl.WithSchema(schema))
}

// File is the actor's execution body: an EnsureState mixin bound to a
// fileResource and its two managed properties.
type File struct {
	state *dsl.EnsureState
	path  string
}

func NewFile(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	clean, err := schema.Validate(options)
	if err != nil {
		return nil, err
	}

	path := clean["path"].(string)
	res := &fileResource{path: path}

	content, err := resolveContent(clean["content"], clean["json"])
	if err != nil {
		return nil, err
	}

	return &File{
		path: path,
		state: &dsl.EnsureState{
			Resource: res,
			Properties: []dsl.Property{
				&contentProperty{path: path},
				&modeProperty{path: path},
			},
			State: clean["state"].(string),
			Values: map[string]interface{}{
				"content": content,
				"mode":    clean["mode"],
			},
		},
	}, nil
}

// resolveContent applies the "content"/"json" option pair: at most one
// may be managed at a time. A "json" mapping is rendered as indented
// JSON text and takes the place of "content" as the file's managed
// content.
func resolveContent(content, jsonManifest interface{}) (interface{}, error) {
	hasContent := content != dsl.Undefined
	hasJSON := jsonManifest != dsl.Undefined

	if hasContent && hasJSON {
		return nil, dsl.InvalidOptions("'content' and 'json' are mutually exclusive")
	}
	if !hasJSON {
		return content, nil
	}

	bs, err := json.MarshalIndent(jsonManifest, "", "  ")
	if err != nil {
		return nil, dsl.InvalidOptions("'json': %v", err)
	}
	return string(bs) + "\n", nil
}

func (f *File) DefaultDesc() string { return fmt.Sprintf("ensure file %s", f.path) }

func (f *File) Run(ctx *dsl.Ctx, dry bool) error {
	return f.state.Reconcile(ctx, dry)
}

// fileResource implements dsl.Resource for a plain file: existence is a
// stat, creation touches an empty file (properties fill in content and
// mode afterward), deletion removes it outright.
type fileResource struct {
	path string
}

func (r *fileResource) Precache(ctx *dsl.Ctx) error { return nil }

func (r *fileResource) Exists(ctx *dsl.Ctx) (bool, error) {
	_, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, dsl.NewRecoverable(err)
	}
	return true, nil
}

func (r *fileResource) Create(ctx *dsl.Ctx) error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return dsl.NewRecoverable(err)
	}
	return f.Close()
}

func (r *fileResource) Delete(ctx *dsl.Ctx) error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return dsl.NewRecoverable(err)
	}
	return nil
}

// contentProperty manages the file's byte content.
type contentProperty struct {
	path string
}

func (p *contentProperty) Name() string { return "content" }

func (p *contentProperty) Get(ctx *dsl.Ctx) (interface{}, error) {
	bs, err := os.ReadFile(p.path)
	if err != nil {
		return nil, dsl.NewRecoverable(err)
	}
	return string(bs), nil
}

func (p *contentProperty) Set(ctx *dsl.Ctx, want interface{}) error {
	s, is := want.(string)
	if !is {
		return dsl.InvalidOptions("'content' must be a string, got %T", want)
	}
	if err := os.WriteFile(p.path, []byte(s), 0644); err != nil {
		return dsl.NewRecoverable(err)
	}
	return nil
}

// modeProperty manages the file's permission bits.
type modeProperty struct {
	path string
}

func (p *modeProperty) Name() string { return "mode" }

func (p *modeProperty) Get(ctx *dsl.Ctx) (interface{}, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, dsl.NewRecoverable(err)
	}
	return fmt.Sprintf("0%o", info.Mode().Perm()), nil
}

func (p *modeProperty) Set(ctx *dsl.Ctx, want interface{}) error {
	s, is := want.(string)
	if !is {
		return dsl.InvalidOptions("'mode' must be a string, got %T", want)
	}
	var mode uint32
	if _, err := fmt.Sscanf(s, "%o", &mode); err != nil {
		return dsl.InvalidOptions("bad 'mode' %q: %v", s, err)
	}
	if err := os.Chmod(p.path, os.FileMode(mode)); err != nil {
		return dsl.NewRecoverable(err)
	}
	return nil
}
