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
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActorNode is the canonical per-node shape of the input document
// (spec §3 "Actor specification (input)").
type ActorNode struct {
	Actor          string                 `yaml:"actor"`
	Desc           string                 `yaml:"desc,omitempty"`
	Options        map[string]interface{} `yaml:"options,omitempty"`
	Condition      interface{}            `yaml:"condition,omitempty"`
	WarnOnFailure  interface{}            `yaml:"warn_on_failure,omitempty"`
	Timeout        interface{}            `yaml:"timeout,omitempty"`
}

// Describer is implemented by an actor's execution body when it wants a
// templated default description (spec §4.5 "apply default-description
// formatting"). DefaultDesc is called, after option substitution and
// validation, only when the document supplied no desc.
type Describer interface {
	DefaultDesc() string
}

// Core is the generic actor wrapper every built actor is returned as
// (spec §4.5): it owns the immutable configuration, and implements the
// full lifecycle (condition check, timeout wrap, dry-mode propagation,
// error normalization, log framing) around a subclass's execution body.
// A subclass (the value returned by a Constructor) implements only
// Actor.Run's real work.
type Core struct {
	id ulid.ULID

	class string
	desc  string

	inner Actor

	dry           bool // set per Run call, not at construction
	warnOnFailure bool
	timeout       time.Duration
	condition     bool
}

// Run implements spec §4.5's run(dry) operation: condition check, then
// execute the inner body under a timeout (unless this is a Group, which
// disables its own timeout per spec §4.6 and relies on its children's),
// normalizing the outcome into the Fatal/Recoverable taxonomy and
// applying warn_on_failure.
func (c *Core) Run(ctx *Ctx, dry bool) error {
	c.dry = dry

	framed := ctx.WithPrefix(c.logPrefix())
	framed.Inddf("id %s", c.id)

	if !c.condition {
		framed.Indf("skip (condition false)")
		return nil
	}

	err := c.runBody(framed, dry)
	if err == nil {
		return nil
	}

	err = normalize(err)

	if _, fatal := IsBroken(err); fatal {
		framed.Indf("fatal: %v", err)
		return err
	}

	if c.warnOnFailure {
		framed.Indf("warning (suppressed by warn_on_failure): %v", err)
		return nil
	}

	framed.Indf("failed: %v", err)
	return err
}

func (c *Core) logPrefix() string {
	if c.dry {
		return fmt.Sprintf("[DRY: %s]", c.desc)
	}
	return fmt.Sprintf("[%s]", c.desc)
}

// runBody executes the inner actor's body under c.timeout. On timeout
// expiry it returns ActorTimedOut immediately without canceling the
// body's goroutine: the body is "shielded" and continues to run
// detached, per spec §5's deliberate design choice that in-flight
// external side effects should not be interrupted mid-call.
func (c *Core) runBody(ctx *Ctx, dry bool) error {
	if c.timeout <= 0 {
		return c.inner.Run(ctx, dry)
	}

	done := make(chan error, 1)
	go func() {
		// The detached goroutine outlives this call on timeout.
		// It must never touch anything the caller (or a later,
		// unrelated actor) mutates concurrently; Scope/options are
		// immutable values, so this is safe by construction (spec
		// §5 "Shared-resource policy").
		done <- c.inner.Run(ctx, dry)
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ActorTimedOut(c.desc, c.timeout)
	}
}

// ID returns the ULID assigned to this actor instance at construction,
// used to correlate interleaved log lines across concurrent Async
// children and across the rehearsal/real passes of the same logical
// node.
func (c *Core) ID() ulid.ULID { return c.id }

// Dry is the `@dry` helper of spec §4.5: in dry mode it logs a
// "would have" message (rendered immediately, so a malformed template
// is caught even on a rehearsal pass) and skips op; in real mode it
// runs op.
func Dry(ctx *Ctx, dry bool, wouldMsg string, op func() error) error {
	rendered := fmt.Sprintf("would have %s", wouldMsg)
	if dry {
		ctx.Indf("%s", rendered)
		return nil
	}
	return op()
}

// --- boolean-or-string parsing (spec §4.5 "Condition check", §3
// warn_on_failure) ---

// truthy implements spec §4.5's condition parsing: "false", "0",
// "false" (case-insensitive) are falsy; everything else is truthy. A Go
// bool is used as-is.
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true // condition absent defaults to true (spec §3)
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "false", "0":
			return false
		default:
			return true
		}
	default:
		return true
	}
}

// parseWarnOnFailure applies the same boolean-or-string parsing as
// truthy, but defaults to false when absent (spec §3).
func parseWarnOnFailure(v interface{}) bool {
	if v == nil {
		return false
	}
	return truthy(v)
}

// parseTimeout resolves the effective timeout duration: an explicit
// per-node value (number of seconds, or a numeric string) overrides
// deflt; 0 always means "disabled" regardless of deflt.
func parseTimeout(v interface{}, deflt time.Duration) (time.Duration, error) {
	if v == nil {
		return deflt, nil
	}
	switch x := v.(type) {
	case int:
		return time.Duration(x) * time.Second, nil
	case int64:
		return time.Duration(x) * time.Second, nil
	case float64:
		return time.Duration(x * float64(time.Second)), nil
	case string:
		secs, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, InvalidOptions("bad timeout %q: %v", x, err)
		}
		return time.Duration(secs * float64(time.Second)), nil
	default:
		return 0, InvalidOptions("timeout must be a number, got %T", v)
	}
}
