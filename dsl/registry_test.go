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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCtor(ctx *Ctx, options map[string]interface{}, scope Scope) (Actor, error) {
	return nil, nil
}

func TestRegistryResolvesBuiltinNamespace(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Noop", noopCtor)

	entry, err := r.resolve("test.Noop")
	require.NoError(t, err)
	assert.True(t, entry.strict)
}

func TestRegistryResolveUnknownIsFatal(t *testing.T) {
	r := NewActorRegistry()
	_, err := r.resolve("nonexistent.Thing")
	require.Error(t, err)

	_, isBroken := IsBroken(err)
	assert.True(t, isBroken)
}

func TestRegistryReRegisterSameCtorIsIdempotent(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Noop", noopCtor)
	assert.NotPanics(t, func() {
		r.Register("kingpin.test.Noop", noopCtor)
	})
}

func TestRegistryReRegisterDifferentCtorPanics(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Noop", noopCtor)

	other := func(ctx *Ctx, options map[string]interface{}, scope Scope) (Actor, error) {
		return nil, nil
	}

	assert.Panics(t, func() {
		r.Register("kingpin.test.Noop", other)
	})
}

func TestRegistryLenientOption(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Group", noopCtor, Lenient())

	entry, err := r.resolve("test.Group")
	require.NoError(t, err)
	assert.False(t, entry.strict)
}

func TestRegistryExplainWithNoSchema(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Noop", noopCtor)

	doc, err := r.Explain("test.Noop")
	require.NoError(t, err)
	assert.Contains(t, doc, "no declared option schema")
}

func TestRegistryExplainWithSchema(t *testing.T) {
	r := NewActorRegistry()
	r.Register("kingpin.test.Noop", noopCtor, WithSchema(Schema{
		"name": OptionSpec{Kind: KindString, Default: Required},
	}))

	doc, err := r.Explain("test.Noop")
	require.NoError(t, err)
	assert.Contains(t, doc, "name")
}
