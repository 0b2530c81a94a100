/*
Copyright 2025 The Mywire Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return &Result{
		Fields: []*Field{{
			Name: "id",
			Type: Int64,
		}, {
			Name: "name",
			Type: VarChar,
		}},
		Rows: []Row{
			{NewInt64(1), NewVarChar("a")},
			{NewInt64(2), NULL},
		},
		RowsAffected: 2,
	}
}

func TestResultCopy(t *testing.T) {
	result := sampleResult()
	result.InsertID = 7
	result.Info = "done"
	result.StatusFlags = 0x0002

	copied := result.Copy()
	assert.True(t, result.Equal(copied))
	assert.Equal(t, result.Info, copied.Info)
	assert.Equal(t, result.StatusFlags, copied.StatusFlags)

	// The copy is independent of the original's rows.
	copied.Rows[0][0] = NewInt64(99)
	assert.Equal(t, "1", result.Rows[0][0].ToString())
}

func TestResultEqual(t *testing.T) {
	var nilResult *Result
	assert.True(t, nilResult.Equal(nil))
	assert.False(t, sampleResult().Equal(nil))

	a := sampleResult()
	assert.True(t, a.Equal(sampleResult()))

	b := sampleResult()
	b.Rows[1][1] = NewVarChar("x")
	assert.False(t, a.Equal(b))

	c := sampleResult()
	c.Fields[0].Name = "other"
	assert.False(t, a.Equal(c))

	d := sampleResult()
	d.RowsAffected = 99
	assert.False(t, a.Equal(d))
}

func TestRowsEqual(t *testing.T) {
	rows := sampleResult().Rows
	assert.True(t, RowsEqual(rows, sampleResult().Rows))
	assert.False(t, RowsEqual(rows, rows[:1]))
	// Same text, different type.
	assert.False(t, RowsEqual(
		[]Row{{NewInt64(1)}},
		[]Row{{NewVarChar("1")}},
	))
}

func TestResultRepair(t *testing.T) {
	fields := []*Field{{
		Name: "id",
		Type: Int64,
	}, {
		Name: "name",
		Type: VarChar,
	}}
	result := &Result{
		Rows: []Row{
			{MakeTrusted(VarBinary, []byte("1")), MakeTrusted(VarBinary, []byte("a"))},
			{MakeTrusted(VarBinary, []byte("2")), NULL},
		},
	}

	result.Repair(fields)
	assert.Equal(t, Int64, result.Rows[0][0].Type())
	assert.Equal(t, VarChar, result.Rows[0][1].Type())
	assert.True(t, result.Rows[1][1].IsNull(), "NULL must stay NULL")
}

func TestAppendResult(t *testing.T) {
	result := &Result{}
	result.AppendResult(sampleResult())
	require.Len(t, result.Fields, 2)
	require.Len(t, result.Rows, 2)
	assert.EqualValues(t, 2, result.RowsAffected)

	more := sampleResult()
	more.InsertID = 42
	result.AppendResult(more)
	assert.Len(t, result.Rows, 4)
	assert.EqualValues(t, 4, result.RowsAffected)
	assert.EqualValues(t, 42, result.InsertID)

	// An empty result is a no-op.
	result.AppendResult(&Result{})
	assert.Len(t, result.Rows, 4)
}
