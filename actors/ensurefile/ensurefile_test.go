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

package ensurefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdoor/kingpin/dsl"
)

func TestFileCreatesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.txt")

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":    path,
		"content": "hello",
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), false))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(bs))
}

// Testable Property 11: ensure-state no-op.
func TestFileNoOpWhenContentAlreadyMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":    path,
		"content": "hello",
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), false))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestFileDeletesWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":  path,
		"state": "absent",
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), false))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileUndefinedContentIsUnmanaged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untouched.txt")
	require.NoError(t, os.WriteFile(path, []byte("preexisting"), 0644))

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path": path,
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), false))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "preexisting", string(bs))
}

func TestFileDryModeSkipsCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":    path,
		"content": "hello",
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), true))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileRejectsBadState(t *testing.T) {
	_, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":  "/tmp/whatever",
		"state": "sideways",
	}, dsl.Scope{})
	require.Error(t, err)
}

func TestFileAcceptsJSONManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")

	a, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path": path,
		"json": map[string]interface{}{"name": "widget", "replicas": 3},
	}, dsl.Scope{})
	require.NoError(t, err)
	require.NoError(t, a.Run(dsl.NewCtx(nil), false))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"name": "widget"`)
	assert.Contains(t, string(bs), `"replicas": 3`)
}

func TestFileRejectsNonObjectJSON(t *testing.T) {
	_, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path": "/tmp/whatever",
		"json": []interface{}{"not", "an", "object"},
	}, dsl.Scope{})
	require.Error(t, err)
}

func TestFileRejectsContentAndJSONTogether(t *testing.T) {
	_, err := NewFile(dsl.NewCtx(nil), map[string]interface{}{
		"path":    "/tmp/whatever",
		"content": "hello",
		"json":    map[string]interface{}{"a": 1},
	}, dsl.Scope{})
	require.Error(t, err)
}
