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

package sqlerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLError(t *testing.T) {
	err := NewSQLError(ERAccessDeniedError, SSAccessDeniedError, "Access denied for user '%v'", "app")
	assert.Equal(t, ERAccessDeniedError, err.Number())
	assert.Equal(t, SSAccessDeniedError, err.SQLState())
	assert.Equal(t, "Access denied for user 'app' (errno 1045) (sqlstate 28000)", err.Error())

	// An empty sqlstate defaults to the general state.
	err = NewSQLError(CRServerGone, "", "gone")
	assert.Equal(t, SSUnknownSQLState, err.SQLState())

	err = NewSQLError(ERNoSuchTable, SSUnknownSQLState, "no such table")
	err.Query = "select * from nope"
	assert.Contains(t, err.Error(), "during query: select * from nope")
}

func TestNewSQLErrorFromError(t *testing.T) {
	assert.NoError(t, NewSQLErrorFromError(nil))

	// A SQLError passes through untouched.
	orig := NewSQLError(ERAccessDeniedError, SSAccessDeniedError, "denied")
	assert.Same(t, orig, NewSQLErrorFromError(orig))

	// The errno and sqlstate are recovered from message text, the way
	// they travel across RPC boundaries.
	wrapped := fmt.Errorf("query failed: denied (errno 1045) (sqlstate 28000) during query: select 1")
	recovered, ok := NewSQLErrorFromError(wrapped).(*SQLError)
	require.True(t, ok)
	assert.Equal(t, ERAccessDeniedError, recovered.Number())
	assert.Equal(t, "28000", recovered.SQLState())

	// Anything else becomes an unknown error.
	unknown, ok := NewSQLErrorFromError(errors.New("broken pipe")).(*SQLError)
	require.True(t, ok)
	assert.Equal(t, ERUnknownError, unknown.Number())
	assert.Equal(t, SSUnknownSQLState, unknown.SQLState())
}

func TestIsNumber(t *testing.T) {
	err := NewSQLError(CRServerLost, SSUnknownSQLState, "lost")
	assert.True(t, IsNumber(err, CRServerLost))
	assert.False(t, IsNumber(err, CRServerGone))
	assert.False(t, IsNumber(errors.New("lost"), CRServerLost))
}

func TestIsConnErr(t *testing.T) {
	testcases := []struct {
		err  error
		want bool
	}{
		{NewSQLError(CRServerGone, SSUnknownSQLState, "gone"), true},
		{NewSQLError(CRServerLost, SSUnknownSQLState, "lost"), true},
		{NewSQLError(ERServerShutdown, SSUnknownSQLState, "shutdown"), true},
		{NewSQLError(ERAccessDeniedError, SSAccessDeniedError, "denied"), false},
		{NewSQLError(ERQueryInterrupted, SSUnknownSQLState, "interrupted"), false},
		{errors.New("not a sql error"), false},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.want, IsConnErr(tc.err), "IsConnErr(%v)", tc.err)
	}
}
