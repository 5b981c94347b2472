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
	"errors"
	"fmt"
)

// Broken wraps an error that is Fatal: a programming error or an
// unrecoverable configuration problem. warn_on_failure never suppresses
// a Broken error; it always terminates the run (spec §7).
type Broken struct {
	Err error
}

func (b *Broken) Error() string { return b.Err.Error() }
func (b *Broken) Unwrap() error { return b.Err }

// NewBroken wraps err as a Broken (Fatal) error. If err is already
// Broken, it is returned unchanged.
func NewBroken(err error) error {
	if err == nil {
		return nil
	}
	if _, is := IsBroken(err); is {
		return err
	}
	return &Broken{Err: err}
}

// Brokenf formats a new Broken (Fatal) error.
func Brokenf(format string, args ...interface{}) error {
	return &Broken{Err: fmt.Errorf(format, args...)}
}

// IsBroken reports whether err (or anything it wraps) is a *Broken, and
// returns it.
func IsBroken(err error) (*Broken, bool) {
	var b *Broken
	if errors.As(err, &b) {
		return b, true
	}
	return nil, false
}

// Recoverable wraps an error that is Recoverable: an operational
// failure (timeout, remote 4xx/5xx, a resource that could reasonably be
// absent). warn_on_failure on the originating actor suppresses it;
// otherwise it propagates (spec §7).
type Recoverable struct {
	Err error
}

func (r *Recoverable) Error() string { return r.Err.Error() }
func (r *Recoverable) Unwrap() error { return r.Err }

// NewRecoverable wraps err as a Recoverable error. If err is already
// Broken or Recoverable, it is returned unchanged.
func NewRecoverable(err error) error {
	if err == nil {
		return nil
	}
	if _, is := IsBroken(err); is {
		return err
	}
	if _, is := IsRecoverable(err); is {
		return err
	}
	return &Recoverable{Err: err}
}

// Recoverablef formats a new Recoverable error.
func Recoverablef(format string, args ...interface{}) error {
	return &Recoverable{Err: fmt.Errorf(format, args...)}
}

// IsRecoverable reports whether err (or anything it wraps) is a
// *Recoverable, and returns it.
func IsRecoverable(err error) (*Recoverable, bool) {
	var r *Recoverable
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// ActorTimedOut is the Recoverable error returned by run() when an
// actor's execution body does not complete before its deadline. The
// body is not canceled; see Core.runBody for the shielding semantics
// (spec §5).
func ActorTimedOut(desc string, timeout interface{}) error {
	return Recoverablef("actor %q timed out after %v", desc, timeout)
}

// MissingToken is the error form accumulating every unresolved token
// name from a single substitution pass (spec §4.1). It is always
// fatal — at load time (phase 1) or at instantiation (phase 2), it is
// wrapped in Broken by the caller.
type MissingToken struct {
	Names []string
}

func (m *MissingToken) Error() string {
	return fmt.Sprintf("missing token(s): %v", m.Names)
}

// MissingContext is the Fatal error raised when a strict actor (i.e.
// not Group or Macro) references a contextual token `{NAME}` that is
// absent from its incoming Scope (spec §4.5).
func MissingContext(names []string) error {
	return NewBroken(&MissingToken{Names: names})
}

// InvalidActor is the Fatal error raised when the Actor Registry cannot
// resolve an actor identifier (spec §4.4).
func InvalidActor(id string) error {
	return NewBroken(fmt.Errorf("invalid actor: %q", id))
}

// InvalidOptions is the Fatal error raised by the Option Validator
// (spec §4.3).
func InvalidOptions(format string, args ...interface{}) error {
	return NewBroken(fmt.Errorf("invalid options: "+format, args...))
}

// InvalidScriptName is the Fatal error raised by the Document Loader
// when a source's extension/scheme isn't recognized (spec §4.2).
func InvalidScriptName(name string) error {
	return NewBroken(fmt.Errorf("invalid script name: %q", name))
}

// SchemaInvalid is the Fatal error raised when a loaded document fails
// actor-node schema validation (spec §4.2).
func SchemaInvalid(err error) error {
	return NewBroken(fmt.Errorf("schema invalid: %w", err))
}

// normalize converts any error returned from an actor's execution body
// into the uniform taxonomy of spec §7: an already-classified error is
// returned unchanged; anything else becomes Recoverable, except
// validation-like errors (InvalidOptions, InvalidActor, schema errors,
// MissingToken) which are Fatal by construction already and so pass
// through the Broken check first.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	if _, is := IsBroken(err); is {
		return err
	}
	if _, is := IsRecoverable(err); is {
		return err
	}
	return NewRecoverable(err)
}
