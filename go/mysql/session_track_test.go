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

package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionStateEntry encodes one session-state entry: type byte, then
// the payload as a length-encoded string.
func sessionStateEntry(typ byte, payload []byte) []byte {
	data := make([]byte, 1+lenEncIntSize(uint64(len(payload)))+len(payload))
	pos := writeByte(data, 0, typ)
	pos = writeLenEncInt(data, pos, uint64(len(payload)))
	copy(data[pos:], payload)
	return data
}

// lenEnc encodes a string as a length-encoded string.
func lenEnc(value string) []byte {
	data := make([]byte, lenEncStringSize(value))
	writeLenEncString(data, 0, value)
	return data
}

func TestParseSessionStateChanges(t *testing.T) {
	var data []byte
	// A system variable change.
	data = append(data, sessionStateEntry(SessionTrackSystemVariables,
		append(lenEnc("autocommit"), lenEnc("OFF")...))...)
	// A schema change.
	data = append(data, sessionStateEntry(SessionTrackSchema, lenEnc("test"))...)
	// A gtids change: encoding spec byte, then the set.
	data = append(data, sessionStateEntry(SessionTrackGtids,
		append([]byte{0x00}, lenEnc("4dbe04b6-0000-0000-0000-000000000000:1-100")...))...)
	// A state change flag.
	data = append(data, sessionStateEntry(SessionTrackStateChange, lenEnc("1"))...)

	changes, err := ParseSessionStateChanges(string(data))
	require.NoError(t, err)
	require.Len(t, changes, 4)

	assert.EqualValues(t, SessionTrackSystemVariables, changes[0].Type)
	assert.Equal(t, "autocommit", changes[0].Name)
	assert.Equal(t, "OFF", changes[0].Value)

	assert.EqualValues(t, SessionTrackSchema, changes[1].Type)
	assert.Empty(t, changes[1].Name)
	assert.Equal(t, "test", changes[1].Value)

	assert.EqualValues(t, SessionTrackGtids, changes[2].Type)
	assert.Equal(t, "4dbe04b6-0000-0000-0000-000000000000:1-100", changes[2].Value)

	assert.EqualValues(t, SessionTrackStateChange, changes[3].Type)
}

func TestParseSessionStateChangesUnknownType(t *testing.T) {
	// Unknown types keep their raw payload, so newer servers don't
	// break the parse.
	data := sessionStateEntry(0x42, []byte("opaque"))
	changes, err := ParseSessionStateChanges(string(data))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.EqualValues(t, 0x42, changes[0].Type)
	assert.Equal(t, "opaque", changes[0].Value)
}

func TestParseSessionStateChangesEmpty(t *testing.T) {
	changes, err := ParseSessionStateChanges("")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestParseSessionStateChangesMalformed(t *testing.T) {
	testcases := []struct {
		name string
		data []byte
	}{
		{"payload cut short", []byte{SessionTrackSchema, 0x05, 'a'}},
		{"missing variable value", sessionStateEntry(SessionTrackSystemVariables, lenEnc("autocommit"))},
		{"empty gtids", sessionStateEntry(SessionTrackGtids, nil)},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSessionStateChanges(string(tc.data))
			require.Error(t, err)
		})
	}
}
