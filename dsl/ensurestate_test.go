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

// fakeResource is an in-memory Resource for exercising EnsureState's
// reconciliation loop without touching anything real.
type fakeResource struct {
	precached bool
	present   bool
	created   bool
	deleted   bool
}

func (f *fakeResource) Precache(ctx *Ctx) error { f.precached = true; return nil }
func (f *fakeResource) Exists(ctx *Ctx) (bool, error) { return f.present, nil }
func (f *fakeResource) Create(ctx *Ctx) error {
	f.created = true
	f.present = true
	return nil
}
func (f *fakeResource) Delete(ctx *Ctx) error {
	f.deleted = true
	f.present = false
	return nil
}

// fakeProperty is an in-memory Property.
type fakeProperty struct {
	name  string
	value interface{}
	sets  int
}

func (p *fakeProperty) Name() string { return p.name }
func (p *fakeProperty) Get(ctx *Ctx) (interface{}, error) { return p.value, nil }
func (p *fakeProperty) Set(ctx *Ctx, want interface{}) error {
	p.sets++
	p.value = want
	return nil
}

func TestEnsureStateCreatesMissingResource(t *testing.T) {
	res := &fakeResource{present: false}
	es := &EnsureState{Resource: res, State: "present"}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.True(t, res.precached)
	assert.True(t, res.created)
}

func TestEnsureStateDoesNotRecreateExisting(t *testing.T) {
	res := &fakeResource{present: true}
	es := &EnsureState{Resource: res, State: "present"}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.False(t, res.created)
}

func TestEnsureStateDeletesWhenAbsentWanted(t *testing.T) {
	res := &fakeResource{present: true}
	es := &EnsureState{Resource: res, State: "absent"}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.True(t, res.deleted)
}

func TestEnsureStateDryModeSkipsDeleteAndCreate(t *testing.T) {
	res := &fakeResource{present: false}
	es := &EnsureState{Resource: res, State: "present"}

	err := es.Reconcile(NewCtx(nil), true)
	require.NoError(t, err)
	assert.False(t, res.created)
}

func TestEnsureStateSetsDifferingProperty(t *testing.T) {
	res := &fakeResource{present: true}
	prop := &fakeProperty{name: "size", value: "small"}
	es := &EnsureState{
		Resource:   res,
		Properties: []Property{prop},
		State:      "present",
		Values:     map[string]interface{}{"size": "large"},
	}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 1, prop.sets)
	assert.Equal(t, "large", prop.value)
}

func TestEnsureStateSkipsMatchingProperty(t *testing.T) {
	res := &fakeResource{present: true}
	prop := &fakeProperty{name: "size", value: "large"}
	es := &EnsureState{
		Resource:   res,
		Properties: []Property{prop},
		State:      "present",
		Values:     map[string]interface{}{"size": "large"},
	}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 0, prop.sets)
}

func TestEnsureStateSkipsUndefinedValues(t *testing.T) {
	res := &fakeResource{present: true}
	prop := &fakeProperty{name: "size", value: "small"}
	es := &EnsureState{
		Resource:   res,
		Properties: []Property{prop},
		State:      "present",
		Values:     map[string]interface{}{"size": Undefined},
	}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 0, prop.sets)
}

func TestStructuralCompareIgnoresKeyOrderAndNumberRepresentation(t *testing.T) {
	want := map[string]interface{}{"a": 1, "b": 2}
	have := map[string]interface{}{"b": 2.0, "a": 1.0}
	assert.True(t, StructuralCompare{}.Compare(want, have))
}

func TestStructuralCompareDetectsDifference(t *testing.T) {
	want := map[string]interface{}{"a": 1}
	have := map[string]interface{}{"a": 2}
	assert.False(t, StructuralCompare{}.Compare(want, have))
}

func TestEnsureStateUsesComparerOverride(t *testing.T) {
	res := &fakeResource{present: true}
	prop := &structuralProperty{name: "tags", value: map[string]interface{}{"b": 2.0, "a": 1.0}}
	es := &EnsureState{
		Resource:   res,
		Properties: []Property{prop},
		State:      "present",
		Values:     map[string]interface{}{"tags": map[string]interface{}{"a": 1, "b": 2}},
	}

	err := es.Reconcile(NewCtx(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 0, prop.sets)
}

// structuralProperty is a Property that opts into StructuralCompare
// instead of byte-equality.
type structuralProperty struct {
	name  string
	value interface{}
	sets  int
}

func (p *structuralProperty) Name() string                        { return p.name }
func (p *structuralProperty) Get(ctx *Ctx) (interface{}, error)    { return p.value, nil }
func (p *structuralProperty) Set(ctx *Ctx, want interface{}) error { p.sets++; p.value = want; return nil }
func (p *structuralProperty) Compare(want, have interface{}) bool  { return (StructuralCompare{}).Compare(want, have) }

func TestEnsureStateRejectsBadState(t *testing.T) {
	res := &fakeResource{}
	es := &EnsureState{Resource: res, State: "sideways"}

	err := es.Reconcile(NewCtx(nil), false)
	require.Error(t, err)
	_, isBroken := IsBroken(err)
	assert.True(t, isBroken)
}
