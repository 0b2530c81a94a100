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
	"fmt"
)

// Session state change types, sent in the OK packet when
// CLIENT_SESSION_TRACK is negotiated and the server reports
// SERVER_SESSION_STATE_CHANGED.
// Originally enum_session_state_type in include/mysql/mysql_com.h
const (
	// SessionTrackSystemVariables is SESSION_TRACK_SYSTEM_VARIABLES.
	SessionTrackSystemVariables = 0x00

	// SessionTrackSchema is SESSION_TRACK_SCHEMA.
	SessionTrackSchema = 0x01

	// SessionTrackStateChange is SESSION_TRACK_STATE_CHANGE.
	SessionTrackStateChange = 0x02

	// SessionTrackGtids is SESSION_TRACK_GTIDS.
	SessionTrackGtids = 0x03
)

// SessionStateChange is one entry of the session-state payload of an
// OK packet. For SessionTrackSystemVariables, both Name and Value are
// set. For the other types only Value is.
type SessionStateChange struct {
	Type  byte
	Name  string
	Value string
}

// ParseSessionStateChanges decodes the raw session-state payload of
// an OK packet into individual changes. Unknown types are kept, with
// their payload in Value, so callers can skip what they don't handle.
func ParseSessionStateChanges(data string) ([]SessionStateChange, error) {
	var changes []SessionStateChange

	d := &coder{data: []byte(data)}
	for d.pos < len(d.data) {
		typ, ok := d.readByte()
		if !ok {
			return nil, fmt.Errorf("invalid session state data: %q", data)
		}
		payload, ok := d.readLenEncString()
		if !ok {
			return nil, fmt.Errorf("invalid session state entry of type %v: %q", typ, data)
		}

		change := SessionStateChange{Type: typ}
		switch typ {
		case SessionTrackSystemVariables:
			// The payload is lenenc(name) + lenenc(value).
			p := &coder{data: []byte(payload)}
			name, ok := p.readLenEncString()
			if !ok {
				return nil, fmt.Errorf("invalid session track variable name: %q", payload)
			}
			value, ok := p.readLenEncString()
			if !ok {
				return nil, fmt.Errorf("invalid session track variable value: %q", payload)
			}
			change.Name = name
			change.Value = value
		case SessionTrackSchema:
			// The payload is lenenc(schema name).
			p := &coder{data: []byte(payload)}
			value, ok := p.readLenEncString()
			if !ok {
				return nil, fmt.Errorf("invalid session track schema: %q", payload)
			}
			change.Value = value
		case SessionTrackGtids:
			// The payload is a one byte encoding spec (always 0)
			// followed by lenenc(gtid set).
			p := &coder{data: []byte(payload)}
			if _, ok := p.readByte(); !ok {
				return nil, fmt.Errorf("invalid session track gtids: %q", payload)
			}
			value, ok := p.readLenEncString()
			if !ok {
				return nil, fmt.Errorf("invalid session track gtids: %q", payload)
			}
			change.Value = value
		default:
			change.Value = payload
		}
		changes = append(changes, change)
	}

	return changes, nil
}
