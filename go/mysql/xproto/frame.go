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
	"encoding/binary"
	"io"

	"mywire.dev/mywire/go/mysql/sqlerror"
)

// maxFrameSize is the largest message body this client accepts.
// The server's own limit is mysqlx_max_allowed_packet, 64MB by default.
const maxFrameSize = 1 << 26

// readFrame reads one message frame and returns its type and body.
// The length prefix counts the type byte, so the body is length-1
// bytes.
func (c *Conn) readFrame() (byte, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRServerLost, sqlerror.SSUnknownSQLState, "io.ReadFull(header size) failed: %v", err)
	}
	length := binary.LittleEndian.Uint32(header[:4])
	if length == 0 {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "message frame with zero length")
	}
	if length > maxFrameSize {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRNetPacketTooLarge, sqlerror.SSUnknownSQLState, "message frame too large: %v bytes", length)
	}
	msgType := header[4]
	if length == 1 {
		return msgType, nil, nil
	}
	body := make([]byte, length-1)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRServerLost, sqlerror.SSUnknownSQLState, "io.ReadFull(message body) failed: %v", err)
	}
	return msgType, body, nil
}

// writeFrame sends one message frame as a single write.
func (c *Conn) writeFrame(msgType byte, body []byte) error {
	frame := make([]byte, 5+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)+1))
	frame[4] = msgType
	copy(frame[5:], body)
	if n, err := c.conn.Write(frame); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "conn.Write(message) failed: %v", err)
	} else if n != len(frame) {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "conn.Write(message) returned a short write: %v < %v", n, len(frame))
	}
	return nil
}
