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

// Package misc collects small leaf actors that don't warrant their own
// package: Note, Sleep, Exec, HTTP.
package misc

import (
	"fmt"

	"github.com/nextdoor/kingpin/dsl"
)

var noteSchema = dsl.Schema{
	"message": dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Required, Doc: "text to log"},
}

func init() {
	dsl.Registry.Register("kingpin.misc.Note", NewNote, dsl.WithSchema(noteSchema))
}

// Note logs "message" and otherwise does nothing: a way to annotate a
// tree with a human-readable waypoint that shows up identically on a
// rehearsal and a real pass.
type Note struct {
	Message string
}

func NewNote(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	clean, err := noteSchema.Validate(options)
	if err != nil {
		return nil, err
	}
	return &Note{Message: clean["message"].(string)}, nil
}

func (n *Note) DefaultDesc() string { return fmt.Sprintf("note: %s", n.Message) }

func (n *Note) Run(ctx *dsl.Ctx, dry bool) error {
	ctx.Indf("%s", n.Message)
	return nil
}
