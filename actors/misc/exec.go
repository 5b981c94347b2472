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

package misc

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/nextdoor/kingpin/dsl"
)

var execSchema = dsl.Schema{
	"cmd":  dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Required, Doc: "program to run"},
	"args": dsl.OptionSpec{Kind: dsl.KindSequence, Default: []interface{}{}, Doc: "command-line arguments"},
	"envs": dsl.OptionSpec{Kind: dsl.KindMapping, Default: map[string]interface{}{}, Doc: "additional environment variables"},
	"dir":  dsl.OptionSpec{Kind: dsl.KindString, Default: "", Doc: "working directory"},
}

func init() {
	dsl.Registry.Register("kingpin.misc.Exec", NewExec, dsl.WithSchema(execSchema))
}

// Exec runs an external program and fails (Recoverable) if it exits
// non-zero or can't be started. Unlike the ensure-state actors, Exec has
// no notion of idempotence of its own, so it always runs — dry mode
// just logs what it would have run.
type Exec struct {
	Cmd  string
	Args []string
	Envs map[string]string
	Dir  string
}

func NewExec(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	clean, err := execSchema.Validate(options)
	if err != nil {
		return nil, err
	}

	args, err := toStringSlice(clean["args"])
	if err != nil {
		return nil, dsl.InvalidOptions("'args': %v", err)
	}
	envs, err := toStringMap(clean["envs"])
	if err != nil {
		return nil, dsl.InvalidOptions("'envs': %v", err)
	}

	return &Exec{
		Cmd:  clean["cmd"].(string),
		Args: args,
		Envs: envs,
		Dir:  clean["dir"].(string),
	}, nil
}

func (e *Exec) DefaultDesc() string {
	return fmt.Sprintf("exec %s %s", e.Cmd, strings.Join(e.Args, " "))
}

func (e *Exec) Run(ctx *dsl.Ctx, dry bool) error {
	return dsl.Dry(ctx, dry, fmt.Sprintf("run %q", e.DefaultDesc()), func() error {
		cmd := exec.CommandContext(ctx.Context, e.Cmd, e.Args...)
		cmd.Dir = e.Dir
		cmd.Env = os.Environ()
		for k, v := range e.Envs {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			ctx.Logdf("exec %s failed; stderr: %s", e.Cmd, stderr.String())
			return dsl.NewRecoverable(fmt.Errorf("%s: %w", e.Cmd, err))
		}
		ctx.Logdf("exec %s stdout: %s", e.Cmd, stdout.String())
		return nil
	})
}

func toStringSlice(v interface{}) ([]string, error) {
	arr, is := v.([]interface{})
	if !is {
		return nil, fmt.Errorf("want a sequence, got %T", v)
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		out[i] = fmt.Sprintf("%v", e)
	}
	return out, nil
}

func toStringMap(v interface{}) (map[string]string, error) {
	m, is := v.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("want a mapping, got %T", v)
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		out[k] = fmt.Sprintf("%v", e)
	}
	return out, nil
}
