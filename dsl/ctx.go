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

// Package dsl implements the Kingpin actor engine: token substitution,
// document loading, option validation, the actor registry, the actor
// lifecycle, group/ensure-state mixins, and the build/rehearse/run
// Runner.
package dsl

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Verbosity controls how much a Ctx logs.
type Verbosity int

const (
	// Normal logs Indf-level messages only.
	Normal Verbosity = iota
	// Verbose additionally logs Inddf/Logdf debug messages.
	Verbose
)

// Ctx carries a context.Context, a logger, and a nesting depth used to
// indent log output so that a deeply nested actor tree reads as nested
// log blocks.
//
// A Ctx is handed to every actor method that might log or need
// cancellation; it is never stored across a dry/real pass boundary.
type Ctx struct {
	context.Context

	logger *log.Logger

	// depth is the current indentation level.
	depth int

	// verbosity controls whether debug-level (Inddf/Logdf) messages
	// are emitted.
	verbosity Verbosity

	// prefix is prepended to every log line, e.g. "[desc]" or
	// "[DRY: desc]".
	prefix string
}

// NewCtx wraps the given context.Context (or context.Background() if
// nil) in a fresh Ctx logging to os.Stderr.
func NewCtx(parent context.Context) *Ctx {
	if parent == nil {
		parent = context.Background()
	}
	return &Ctx{
		Context: parent,
		logger:  log.New(os.Stderr, "", log.LstdFlags),
	}
}

// WithCancel returns a child Ctx whose embedded context.Context can be
// canceled independently, plus the cancel function.
func (c *Ctx) WithCancel() (*Ctx, context.CancelFunc) {
	child, cancel := context.WithCancel(c.Context)
	cp := c.clone()
	cp.Context = child
	return cp, cancel
}

// WithTimeout returns a child Ctx whose embedded context.Context carries
// the given deadline, plus the cancel function. A non-positive duration
// means "no deadline" and returns a plain WithCancel.
func (c *Ctx) WithTimeout(d time.Duration) (*Ctx, context.CancelFunc) {
	if d <= 0 {
		return c.WithCancel()
	}
	child, cancel := context.WithTimeout(c.Context, d)
	cp := c.clone()
	cp.Context = child
	return cp, cancel
}

// Verbose returns a child Ctx with debug-level logging enabled.
func (c *Ctx) Verbose() *Ctx {
	cp := c.clone()
	cp.verbosity = Verbose
	return cp
}

// IsVerbose reports whether debug-level logging is enabled.
func (c *Ctx) IsVerbose() bool {
	return c.verbosity == Verbose
}

// Indented returns a child Ctx indented one level deeper, used when
// entering a nested actor (a group descending into a child, a macro
// descending into its subtree).
func (c *Ctx) Indented() *Ctx {
	cp := c.clone()
	cp.depth = c.depth + 1
	return cp
}

// WithPrefix returns a child Ctx whose log lines are all prefixed with
// the given string, implementing spec's "[desc]" / "[DRY: desc]"
// framing (see Core.logPrefix).
func (c *Ctx) WithPrefix(prefix string) *Ctx {
	cp := c.clone()
	cp.prefix = prefix
	return cp
}

func (c *Ctx) clone() *Ctx {
	cp := *c
	return &cp
}

func (c *Ctx) indent() string {
	s := ""
	for i := 0; i < c.depth; i++ {
		s += "  "
	}
	return s
}

func (c *Ctx) line(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if c.prefix != "" {
		return c.prefix + " " + c.indent() + msg
	}
	return c.indent() + msg
}

// Logf logs an informational message with no indentation tracking.
func (c *Ctx) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.prefix != "" {
		msg = c.prefix + " " + msg
	}
	c.logger.Print(msg)
}

// Logdf logs a debug message; suppressed unless IsVerbose.
func (c *Ctx) Logdf(format string, args ...interface{}) {
	if !c.IsVerbose() {
		return
	}
	c.logger.Print(c.line(format, args...))
}

// Indf logs an informational message at the current indentation depth.
func (c *Ctx) Indf(format string, args ...interface{}) {
	c.logger.Print(c.line(format, args...))
}

// Inddf logs a debug message at the current indentation depth;
// suppressed unless IsVerbose.
func (c *Ctx) Inddf(format string, args ...interface{}) {
	if !c.IsVerbose() {
		return
	}
	c.logger.Print(c.line(format, args...))
}
