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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeActor is a minimal hand-rolled Actor body for Core lifecycle
// tests, standing in for a real registered actor kind.
type fakeActor struct {
	err   error
	delay time.Duration
	ran   int
}

func (f *fakeActor) Run(ctx *Ctx, dry bool) error {
	f.ran++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.err
}

func TestCoreRunSkipsOnFalseCondition(t *testing.T) {
	inner := &fakeActor{}
	c := &Core{desc: "x", inner: inner, condition: false}

	err := c.Run(NewCtx(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 0, inner.ran)
}

func TestCoreRunPropagatesFatal(t *testing.T) {
	inner := &fakeActor{err: Brokenf("boom")}
	c := &Core{desc: "x", inner: inner, condition: true}

	err := c.Run(NewCtx(nil), false)
	require.Error(t, err)
	_, isBroken := IsBroken(err)
	assert.True(t, isBroken)
}

func TestCoreRunSuppressesRecoverableWithWarnOnFailure(t *testing.T) {
	inner := &fakeActor{err: errors.New("flaky")}
	c := &Core{desc: "x", inner: inner, condition: true, warnOnFailure: true}

	err := c.Run(NewCtx(nil), false)
	assert.NoError(t, err)
}

func TestCoreRunWarnOnFailureNeverSuppressesFatal(t *testing.T) {
	inner := &fakeActor{err: Brokenf("boom")}
	c := &Core{desc: "x", inner: inner, condition: true, warnOnFailure: true}

	err := c.Run(NewCtx(nil), false)
	require.Error(t, err)
	_, isBroken := IsBroken(err)
	assert.True(t, isBroken)
}

func TestCoreRunBodyTimesOutAndShields(t *testing.T) {
	inner := &fakeActor{delay: 50 * time.Millisecond}
	c := &Core{desc: "slow", inner: inner, condition: true, timeout: 5 * time.Millisecond}

	start := time.Now()
	err := c.Run(NewCtx(nil), false)
	elapsed := time.Since(start)

	require.Error(t, err)
	_, isRecoverable := IsRecoverable(err)
	assert.True(t, isRecoverable)
	assert.Less(t, elapsed, 40*time.Millisecond)

	// The shielded goroutine keeps running after the timeout fires;
	// give it time to finish and confirm it wasn't killed.
	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, 1, inner.ran)
}

func TestTruthyParsing(t *testing.T) {
	assert.True(t, truthy(nil))
	assert.True(t, truthy(true))
	assert.False(t, truthy(false))
	assert.False(t, truthy("false"))
	assert.False(t, truthy("0"))
	assert.True(t, truthy("yes"))
	assert.True(t, truthy(1))
	assert.False(t, truthy(0))
}

func TestParseTimeoutDefaultsAndOverrides(t *testing.T) {
	d, err := parseTimeout(nil, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = parseTimeout(5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = parseTimeout("2.5", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)
}

func TestDryLogsAndSkipsInDryMode(t *testing.T) {
	called := false
	err := Dry(NewCtx(nil), true, "delete the thing", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDryRunsOpInRealMode(t *testing.T) {
	called := false
	err := Dry(NewCtx(nil), false, "delete the thing", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
