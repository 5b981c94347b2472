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

func TestSubstituteDocumentTokens(t *testing.T) {
	lookup := MapLookup(map[string]string{"ENV": "staging"})

	out, err := Substitute("host-%ENV%.example.com", DocumentDelim, lookup)
	require.NoError(t, err)
	assert.Equal(t, "host-staging.example.com", out)
}

func TestSubstituteContextTokens(t *testing.T) {
	lookup := MapLookup(map[string]string{"NAME": "web-1"})

	out, err := Substitute("instance {NAME}", ContextDelim, lookup)
	require.NoError(t, err)
	assert.Equal(t, "instance web-1", out)
}

func TestSubstituteMissingAccumulates(t *testing.T) {
	lookup := MapLookup(map[string]string{})

	_, err := Substitute("{A} and {B}", ContextDelim, lookup)
	require.Error(t, err)

	mt, is := err.(*MissingToken)
	require.True(t, is)
	assert.ElementsMatch(t, []string{"A", "B"}, mt.Names)
}

func TestSubstituteDefaultValue(t *testing.T) {
	lookup := MapLookup(map[string]string{})

	out, err := Substitute("{REGION|us-east-1}", ContextDelim, lookup)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", out)
}

func TestSubstituteEscapedDelimiter(t *testing.T) {
	lookup := MapLookup(map[string]string{"NAME": "ignored"})

	out, err := Substitute(`literal \{NAME\} text`, ContextDelim, lookup)
	require.NoError(t, err)
	assert.Equal(t, "literal {NAME} text", out)
}

func TestSubstituteIsNotRecursive(t *testing.T) {
	// A's value itself contains a token reference; it must not be
	// substituted a second time.
	lookup := MapLookup(map[string]string{"A": "{B}", "B": "nope"})

	out, err := Substitute("{A}", ContextDelim, lookup)
	require.NoError(t, err)
	assert.Equal(t, "{B}", out)
}

func TestSubstituteDeepWalksNestedStructures(t *testing.T) {
	lookup := MapLookup(map[string]string{"NAME": "web-1", "PORT": "8080"})

	v := map[string]interface{}{
		"desc": "host {NAME}",
		"tags": []interface{}{"{NAME}", "port-{PORT}"},
	}

	out, err := SubstituteDeep(v, ContextDelim, lookup)
	require.NoError(t, err)

	m, is := out.(map[string]interface{})
	require.True(t, is)
	assert.Equal(t, "host web-1", m["desc"])

	tags, is := m["tags"].([]interface{})
	require.True(t, is)
	assert.Equal(t, []interface{}{"web-1", "port-8080"}, tags)
}

func TestDeyamlizeConvertsInterfaceKeyedMaps(t *testing.T) {
	in := map[interface{}]interface{}{
		"a": map[interface{}]interface{}{"b": 1},
	}
	out := Deyamlize(in)

	m, is := out.(map[string]interface{})
	require.True(t, is)

	inner, is := m["a"].(map[string]interface{})
	require.True(t, is)
	assert.Equal(t, 1, inner["b"])
}
