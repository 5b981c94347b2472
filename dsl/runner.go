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
	"flag"
	"fmt"
	"os"
	"strings"
)

// Runner implements C9 (spec §4.9): build phase, rehearsal pass, real
// pass, and the process exit-code mapping, plus the CLI surface of
// spec §6.
type Runner struct {
	Builder *Builder
	Loader  *Loader
}

// NewRunner builds a Runner bound to cfg (or one read from the
// environment if nil).
func NewRunner(cfg *Config) *Runner {
	return &Runner{Builder: NewBuilder(cfg), Loader: NewLoader()}
}

// EnvTokens returns the ambient process environment as a Scope, the
// default phase-1 token source (spec §4.2 "typically the process
// environment plus any caller-supplied overrides").
func EnvTokens() Scope {
	out := Scope{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

// build performs spec §4.9 step 1: load (if source != "") and
// instantiate the root tree.
func (r *Runner) build(ctx *Ctx, node *ActorNode, source string, tokens Scope) (Actor, error) {
	if source != "" {
		loaded, err := r.Loader.Load(ctx, source, tokens)
		if err != nil {
			return nil, err
		}
		node = loaded
	}
	return r.Builder.Build(ctx, node, Scope{})
}

// RunTree runs the full build -> rehearsal -> real pipeline against an
// already-resolved document source, returning the process exit code
// (spec §4.9, §6 "Exit codes").
//
// node is used instead of source when source == "" (the --actor
// ad-hoc-node CLI path, spec §6).
func (r *Runner) RunTree(ctx *Ctx, node *ActorNode, source string, tokens Scope, dryOnly, buildOnly bool) int {
	actor, err := r.build(ctx, node, source, tokens)
	if err != nil {
		ctx.Logf("build failed: %v", err)
		return 1
	}

	if buildOnly {
		ctx.Logf("build-only: tree constructed successfully")
		return 0
	}

	if !r.Builder.Config.SkipDry {
		ctx.Logf("rehearsal pass")
		if err := actor.Run(ctx, true); err != nil {
			ctx.Logf("rehearsal failed: %v", err)
			return 1
		}
	}

	if dryOnly {
		return 0
	}

	// Rebuild for the real pass: identical input produces an
	// identical tree (spec §4.9 step 3, Testable Property 1), and a
	// fresh instance guarantees no state carries over from the
	// rehearsal run (spec §3 "used once per execution pass").
	real, err := r.build(ctx, node, source, tokens)
	if err != nil {
		ctx.Logf("build failed: %v", err)
		return 1
	}

	ctx.Logf("real pass")
	if err := real.Run(ctx, false); err != nil {
		ctx.Logf("failed: %v", err)
		return 1
	}

	return 0
}

// Main implements the CLI surface of spec §6. It never calls os.Exit
// itself: callers do `os.Exit(runner.Main(os.Args[1:]))`.
func (r *Runner) Main(args []string) int {
	fs := flag.NewFlagSet("kingpin", flag.ContinueOnError)

	var (
		script     = fs.String("script", "", "run the document at PATH")
		actorID    = fs.String("actor", "", "run a single ad-hoc actor")
		options    = stringList{}
		params     = stringList{}
		dryFlag    = fs.Bool("dry", false, "run only the rehearsal pass")
		explain    = fs.Bool("explain", false, "print the actor's documentation")
		buildOnly  = fs.Bool("build-only", false, "construct the tree and exit")
	)
	fs.Var(&options, "option", "K=V, populates options (repeatable)")
	fs.Var(&params, "param", "K=V, populates top-level node keys (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *explain {
		if *actorID == "" {
			fmt.Fprintln(os.Stderr, "--explain requires --actor ID")
			return 1
		}
		doc, err := r.Builder.Registry.Explain(*actorID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(doc)
		return 0
	}

	ctx := NewCtx(nil)
	tokens := EnvTokens()

	if *actorID != "" {
		node := &ActorNode{
			Actor:   *actorID,
			Options: options.toMap(),
		}
		for k, v := range params.toMap() {
			switch k {
			case "desc":
				node.Desc = fmt.Sprintf("%v", v)
			case "condition":
				node.Condition = v
			case "warn_on_failure":
				node.WarnOnFailure = v
			case "timeout":
				node.Timeout = v
			default:
				fmt.Fprintf(os.Stderr, "unknown --param key %q\n", k)
				return 1
			}
		}
		return r.RunTree(ctx, node, "", tokens, *dryFlag, *buildOnly)
	}

	if *script == "" {
		fmt.Fprintln(os.Stderr, "one of --script or --actor is required")
		return 1
	}

	return r.RunTree(ctx, nil, *script, tokens, *dryFlag, *buildOnly)
}

// stringList accumulates repeated "-flag K=V" occurrences into a map.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s *stringList) toMap() map[string]interface{} {
	out := map[string]interface{}{}
	for _, kv := range *s {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		out[kv[:i]] = kv[i+1:]
	}
	return out
}
