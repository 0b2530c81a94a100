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

package xproto

import (
	"bufio"
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.dev/mywire/go/mysql/sqlerror"
)

// testConnPair builds a client and a server session over an in-memory
// pipe. The server side reuses Conn for its frame plumbing.
func testConnPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	cNet, sNet := net.Pipe()
	client := &Conn{conn: cNet, reader: bufio.NewReaderSize(cNet, connBufferSize)}
	server := &Conn{conn: sNet, reader: bufio.NewReaderSize(sNet, connBufferSize)}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := testConnPair(t)

	testcases := []struct {
		name    string
		msgType byte
		body    []byte
	}{
		{"empty body", ServerOK, nil},
		{"small", ServerNotice, []byte{0x01, 0x02, 0x03}},
		{"large", ServerResultsetRow, make([]byte, 1<<16)},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			go func() {
				assert.NoError(t, server.writeFrame(tc.msgType, tc.body))
			}()

			msgType, body, err := client.readFrame()
			require.NoError(t, err)
			assert.Equal(t, tc.msgType, msgType)
			assert.Equal(t, len(tc.body), len(body))
		})
	}
}

func TestFrameZeroLength(t *testing.T) {
	client, server := testConnPair(t)

	// A frame length of zero cannot hold the type byte.
	go func() {
		var header [4]byte
		_, err := server.conn.Write(header[:])
		assert.NoError(t, err)
	}()

	_, _, err := client.readFrame()
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.CRMalformedPacket, sqlErr.Number())
}

func TestFrameTooLarge(t *testing.T) {
	client, server := testConnPair(t)

	go func() {
		var header [5]byte
		binary.LittleEndian.PutUint32(header[:4], maxFrameSize+1)
		header[4] = ServerResultsetRow
		_, err := server.conn.Write(header[:])
		assert.NoError(t, err)
	}()

	_, _, err := client.readFrame()
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.CRNetPacketTooLarge, sqlErr.Number())
}

func TestFrameServerGone(t *testing.T) {
	client, server := testConnPair(t)
	server.Close()

	_, _, err := client.readFrame()
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.CRServerLost, sqlErr.Number())
}
