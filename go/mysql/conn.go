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
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"mywire.dev/mywire/go/bucketpool"
	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

const (
	// connBufferSize is how much we buffer for reading and
	// writing. It is also how much we allocate for ephemeral buffers.
	connBufferSize = 16 * 1024

	// packetHeaderSize is the 3-byte length plus the 1-byte sequence id
	// that precedes every payload on the wire.
	packetHeaderSize = 4

	// DefaultMaxMessageSize is the default cap on the total size of a
	// reassembled logical message. It matches the server's default
	// max_allowed_packet. Reads above the cap fail with
	// CRNetPacketTooLarge. See ConnParams.MaxMessageSize.
	DefaultMaxMessageSize = 64 * 1024 * 1024
)

// Constants for how ephemeral buffers were used for reading / writing.
const (
	// ephemeralUnused means the ephemeral buffer is not in use at this
	// moment. This is the default value, and is checked so we don't
	// read or write a packet while one is already used.
	ephemeralUnused = iota

	// ephemeralWrite means we currently in process of writing from  currentEphemeralBuffer
	ephemeralWrite

	// ephemeralRead means we currently in process of reading into currentEphemeralBuffer
	ephemeralRead
)

// bufPool is used to allocate and free buffers in an efficient way.
var bufPool = bucketpool.New(connBufferSize, MaxPacketSize)

// Conn is a connection between a client and a server, using the MySQL
// binary protocol. It is built on top of an existing net.Conn, that
// has already been established.
//
// Use Connect on the client side to establish a connection.
type Conn struct {
	// conn is the underlying network connection.
	// Calling Close() on the Conn also closes it.
	conn net.Conn

	// ConnectionID is set:
	// - at Connect() time for clients, with the value returned by
	// the server.
	ConnectionID uint32

	// closed is set to true when Close() is called on the connection.
	closed atomic.Bool

	// Capabilities is the current set of features this connection
	// is using. It is the features that are both supported by
	// the client and the server, and currently in use.
	// It is set during the initial handshake.
	Capabilities uint32

	// CharacterSet is the charset for this connection, as negotiated
	// in the handshake.
	CharacterSet uint8

	// User is the name used by the client to connect.
	// It is set during the initial handshake.
	User string

	// schemaName is the default database name to use. It is set
	// during the initial handshake, and by COM_INIT_DB.
	schemaName string

	// ServerVersion is set during Connect with the server
	// version. It is not changed afterwards.
	ServerVersion string

	// StatusFlags are the status flags we will base our returned flags on.
	// It is only used in some cases.
	StatusFlags uint16

	// Packet encoding variables.
	bufferedReader *bufio.Reader
	bufMu          sync.Mutex
	bufferedWriter bufioWriter

	// fields contains the fields definitions for an on-going
	// streaming query. It is set by ExecuteStreamFetch, and
	// cleared by the last FetchNext().
	fields []*sqltypes.Field

	// unreadResult is set when a resultset has been started and not
	// fully drained yet. Sending a command in that window would
	// desynchronize the protocol.
	unreadResult bool

	// moreResults is set when the last OK / EOF packet had
	// ServerMoreResultsExists, meaning another resultset follows.
	moreResults bool

	// salt is the scramble sent by the server in its initial
	// handshake. It is kept so the authentication response can be
	// recomputed after an auth switch.
	salt []byte

	// authPluginName is the name of the authentication method in
	// use for this connection.
	authPluginName AuthMethodDescription

	// sequence is the current sequence number of the packets
	// exchanged. Reset to zero when a new command begins.
	sequence uint8

	// maxMessageSize caps the size of a logical message this side
	// is willing to reassemble. Defaults to DefaultMaxMessageSize.
	maxMessageSize int

	// Internal buffer for zero-allocation reads and writes. This
	// uses the fact that both sides of a fragile packet (reader or
	// writer) are instantly processed, so we can use a shared buffer.
	currentEphemeralPolicy int
	// currentEphemeralBuffer for tracking allocated temporary buffer for writes and reads
	// travels through the lifecycle of a fragile packet
	currentEphemeralBuffer *[]byte
}

// newConn is an internal method to create a Conn. Used by client and
// server side for common creation code.
func newConn(conn net.Conn) *Conn {
	return &Conn{
		conn:           conn,
		bufferedReader: bufio.NewReaderSize(conn, connBufferSize),
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// startWriterBuffering starts using buffered writes. This should
// be terminated by a call to flush.
func (c *Conn) startWriterBuffering() {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	c.bufferedWriter = newWriter(c.conn)
}

// flush flushes the written data to the socket, and stops using
// buffered writes.
// This must be called when startWriterBuffering was used.
func (c *Conn) flush() error {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	if c.bufferedWriter == nil {
		return nil
	}
	defer func() {
		c.bufferedWriter = nil
	}()
	return c.bufferedWriter.Flush()
}

// getWriter returns the current writer. It may be either
// the original connection or the buffered one, in which case the
// returned unget function must be invoked after the write is done.
func (c *Conn) getWriter() (w io.Writer, unget func()) {
	c.bufMu.Lock()
	if c.bufferedWriter != nil {
		return c.bufferedWriter, c.bufMu.Unlock
	}
	c.bufMu.Unlock()
	return c.conn, func() {}
}

// getReader returns reader for connection. It can be *bufio.Reader or
// the underlying connection depending on which buffer we use.
func (c *Conn) getReader() io.Reader {
	if c.bufferedReader != nil {
		return c.bufferedReader
	}
	return c.conn
}

func (c *Conn) readHeaderFrom(r io.Reader) (int, error) {
	var header [packetHeaderSize]byte
	// Note io.ReadFull will return two different types of errors:
	// 1. if the socket is already closed, and the go runtime knows it,
	//   then ReadFull will return an error (different than EOF),
	//   something like 'read: connection reset by peer'.
	// 2. if the socket is not closed while we start the read,
	//   but gets closed after the read is started, we'll get io.EOF.
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// The special casing of propagating the io.EOF error is
		// used by the server side only, to suppress the error when
		// a client just disconnects.
		if err == io.EOF {
			return 0, err
		}
		return 0, fmt.Errorf("io.ReadFull(header size) failed: %w", err)
	}

	sequence := uint8(header[3])
	if sequence != c.sequence {
		// We lost our place in the stream and there is no way to
		// resynchronize, so the connection cannot be used again.
		c.Close()
		return 0, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "invalid sequence, expected %v got %v", c.sequence, sequence)
	}

	c.sequence++

	return int(uint32(header[0]) |
		uint32(header[1])<<8 |
		uint32(header[2])<<16), nil
}

// failMessageTooLarge fails a read whose logical message exceeds
// maxMessageSize. The rest of the message is left on the wire, so
// the connection cannot be used again.
func (c *Conn) failMessageTooLarge(length int) error {
	c.Close()
	return sqlerror.NewSQLError(sqlerror.CRNetPacketTooLarge, sqlerror.SSUnknownSQLState, "message of at least %v bytes exceeds the maximum of %v bytes", length, c.maxMessageSize)
}

// wrapReadError turns an error from one of the packet read methods
// into a SQLError. The framer returns typed errors for conditions it
// diagnoses itself (desync, message too large), those pass through.
// Anything else means the transport died under us.
func wrapReadError(err error) error {
	if se, ok := err.(*sqlerror.SQLError); ok {
		return se
	}
	return sqlerror.NewSQLError(sqlerror.CRServerLost, sqlerror.SSUnknownSQLState, "%v", err)
}

// readEphemeralPacket attempts to read a packet into buffer from
// sync.Pool. Do not save the buffer anywhere, and do not keep
// a reference past the next readEphemeralPacket or recycleReadPacket.
//
// This method returns a generic error, not a SQLError.
func (c *Conn) readEphemeralPacket() ([]byte, error) {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic(fmt.Errorf("readEphemeralPacket: unexpected currentEphemeralPolicy: %v", c.currentEphemeralPolicy))
	}

	r := c.getReader()

	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}
	if length > c.maxMessageSize {
		return nil, c.failMessageTooLarge(length)
	}

	c.currentEphemeralPolicy = ephemeralRead
	if length == 0 {
		// This can be caused by the packet terminating a
		// multi-packet sequence of exactly MaxPacketSize chunks.
		return nil, nil
	}

	// Use the bucket pool for the common case.
	if length < MaxPacketSize {
		c.currentEphemeralBuffer = bufPool.Get(length)
		if _, err := io.ReadFull(r, *c.currentEphemeralBuffer); err != nil {
			return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %w", length, err)
		}
		return *c.currentEphemeralBuffer, nil
	}

	// Much slower path, revert to allocating everything from scratch.
	// We're going to concatenate a lot of data anyway, can't really
	// optimize this code path easily.
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %w", length, err)
	}
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}

		if len(next) == 0 {
			// Again, the packet after a packet of exactly
			// MaxPacketSize size has len 0.
			break
		}

		data = append(data, next...)
		if len(data) > c.maxMessageSize {
			return nil, c.failMessageTooLarge(len(data))
		}
		if len(next) < MaxPacketSize {
			break
		}
	}

	return data, nil
}

// readEphemeralPacketDirect attempts to read a packet from the socket
// directly, without the buffered reader. It is useful when we know
// the next packet is the only data on the wire, so buffering ahead
// would only waste a copy.
//
// This method returns a generic error, not a SQLError.
func (c *Conn) readEphemeralPacketDirect() ([]byte, error) {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic(fmt.Errorf("readEphemeralPacketDirect: unexpected currentEphemeralPolicy: %v", c.currentEphemeralPolicy))
	}

	var r io.Reader = c.conn

	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}
	if length > c.maxMessageSize {
		return nil, c.failMessageTooLarge(length)
	}

	c.currentEphemeralPolicy = ephemeralRead
	if length == 0 {
		return nil, nil
	}

	if length < MaxPacketSize {
		c.currentEphemeralBuffer = bufPool.Get(length)
		if _, err := io.ReadFull(r, *c.currentEphemeralBuffer); err != nil {
			return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %w", length, err)
		}
		return *c.currentEphemeralBuffer, nil
	}

	return nil, fmt.Errorf("readEphemeralPacketDirect doesn't support more than one packet")
}

// recycleReadPacket recycles the read packet. It needs to be called
// after readEphemeralPacket was called.
func (c *Conn) recycleReadPacket() {
	if c.currentEphemeralPolicy != ephemeralRead {
		// Programming error.
		panic(fmt.Errorf("trying to call recycleReadPacket while currentEphemeralPolicy is %d", c.currentEphemeralPolicy))
	}
	if c.currentEphemeralBuffer != nil {
		// We are using the pool, put the buffer back in.
		bufPool.Put(c.currentEphemeralBuffer)
		c.currentEphemeralBuffer = nil
	}
	c.currentEphemeralPolicy = ephemeralUnused
}

// readOnePacket reads a single packet into a newly allocated buffer.
func (c *Conn) readOnePacket() ([]byte, error) {
	r := c.getReader()
	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}
	if length > c.maxMessageSize {
		return nil, c.failMessageTooLarge(length)
	}
	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %w", length, err)
	}
	return data, nil
}

// readPacket reads a packet from the underlying connection.
// It re-assembles packets that span more than one message.
// This method returns a generic error, not a SQLError.
func (c *Conn) readPacket() ([]byte, error) {
	// Optimize for a single packet case.
	data, err := c.readOnePacket()
	if err != nil {
		return nil, err
	}

	// This is a single packet.
	if len(data) < MaxPacketSize {
		return data, nil
	}

	// There is more than one packet, read them all.
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}

		if len(next) == 0 {
			// Again, the packet after a packet of exactly
			// MaxPacketSize size has len 0.
			break
		}

		data = append(data, next...)
		if len(data) > c.maxMessageSize {
			return nil, c.failMessageTooLarge(len(data))
		}
		if len(next) < MaxPacketSize {
			break
		}
	}

	return data, nil
}

// ReadPacket reads a packet from the underlying connection.
// it is the public API version, that returns a SQLError.
// The memory for the packet is always allocated, and it is owned by the caller
// after this function returns.
func (c *Conn) ReadPacket() ([]byte, error) {
	result, err := c.readPacket()
	if err != nil {
		return nil, wrapReadError(err)
	}
	return result, err
}

// writePacket writes a packet, possibly cutting it into multiple
// chunks. Note this is not very efficient, as the client probably
// has to build the []byte and that makes a memory copy.
// Try to use startEphemeralPacket/writeEphemeralPacket instead.
//
// This method returns a generic error, not a SQLError.
func (c *Conn) writePacket(data []byte) error {
	index := 0
	length := len(data)

	w, unget := c.getWriter()
	defer unget()

	for {
		// Packet length is capped to MaxPacketSize.
		packetLength := length
		if packetLength > MaxPacketSize {
			packetLength = MaxPacketSize
		}

		// Compute and write the header.
		var header [packetHeaderSize]byte
		header[0] = byte(packetLength)
		header[1] = byte(packetLength >> 8)
		header[2] = byte(packetLength >> 16)
		header[3] = c.sequence
		if n, err := w.Write(header[:]); err != nil {
			return fmt.Errorf("Write(header) failed: %w", err)
		} else if n != packetHeaderSize {
			return fmt.Errorf("Write(header) returned a short write: %v < %v", n, packetHeaderSize)
		}

		// Write the body.
		if n, err := w.Write(data[index : index+packetLength]); err != nil {
			return fmt.Errorf("Write(packet) failed: %w", err)
		} else if n != packetLength {
			return fmt.Errorf("Write(packet) returned a short write: %v < %v", n, packetLength)
		}

		// Update our state.
		c.sequence++
		length -= packetLength
		if length == 0 {
			if packetLength == MaxPacketSize {
				// The packet we just sent had exactly
				// MaxPacketSize size, we need to
				// sent a zero-size packet too.
				header[0] = 0
				header[1] = 0
				header[2] = 0
				header[3] = c.sequence
				if n, err := w.Write(header[:]); err != nil {
					return fmt.Errorf("Write(empty header) failed: %w", err)
				} else if n != packetHeaderSize {
					return fmt.Errorf("Write(empty header) returned a short write: %v < %v", n, packetHeaderSize)
				}
				c.sequence++
			}
			return nil
		}
		index += packetLength
	}
}

// startEphemeralPacket returns a buffer of a given size to write a
// packet payload into. The memory is shared with the next reads and
// writes, so the packet must be written with writeEphemeralPacket
// before any other operation on the connection.
func (c *Conn) startEphemeralPacket(length int) []byte {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic("startEphemeralPacket cannot be used while a packet is already started.")
	}

	c.currentEphemeralPolicy = ephemeralWrite
	// Get buffer from pool or it'll be allocated if length is too big
	c.currentEphemeralBuffer = bufPool.Get(length)
	return *c.currentEphemeralBuffer
}

// writeEphemeralPacket writes the packet that was allocated by
// startEphemeralPacket.
func (c *Conn) writeEphemeralPacket() error {
	defer c.recycleWritePacket()

	switch c.currentEphemeralPolicy {
	case ephemeralWrite:
		if err := c.writePacket(*c.currentEphemeralBuffer); err != nil {
			return fmt.Errorf("conn %v: %w", c.ID(), err)
		}
	case ephemeralUnused, ephemeralRead:
		// Programming error.
		panic(fmt.Errorf("conn %v: trying to call writeEphemeralPacket while currentEphemeralPolicy is %v", c.ID(), c.currentEphemeralPolicy))
	}

	return nil
}

// recycleWritePacket recycles the write packet. It needs to be called
// after writeEphemeralPacket was called.
func (c *Conn) recycleWritePacket() {
	if c.currentEphemeralPolicy != ephemeralWrite {
		// Programming error.
		panic(fmt.Errorf("trying to call recycleWritePacket while currentEphemeralPolicy is %d", c.currentEphemeralPolicy))
	}
	// Put the buffer back in the pool.
	bufPool.Put(c.currentEphemeralBuffer)
	c.currentEphemeralBuffer = nil
	c.currentEphemeralPolicy = ephemeralUnused
}

// writeComQuit writes a Quit message for the server, to indicate we
// want to close the connection.
// Client -> Server.
// Returns SQLError(CRServerGone) if it can't.
func (c *Conn) writeComQuit() error {
	// This is a new command, need to reset the sequence.
	c.sequence = 0

	data := c.startEphemeralPacket(1)
	data[0] = ComQuit
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// RemoteAddr returns the underlying socket RemoteAddr().
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ID returns the MySQL connection ID for this connection.
func (c *Conn) ID() int64 {
	return int64(c.ConnectionID)
}

// Close closes the connection. It can be called from a different go
// routine to interrupt the current connection.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.conn.Close()
	}
}

// IsClosed returns true if this connection was ever closed by the
// Close() method. Note if the other side closes the connection, but
// Close() wasn't called, this will return false.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

//
// Packet writing methods, for generic packets.
//

// PacketOK contains the ok packet details
type PacketOK struct {
	affectedRows uint64
	lastInsertID uint64
	statusFlags  uint16
	warnings     uint16
	info         string

	// at the moment, we only store the raw session-state payload.
	// Use ParseSessionStateChanges to decode it.
	sessionStateData string
}

// writeOKPacket writes an OK packet.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeOKPacket(packetOk *PacketOK) error {
	return c.writeOKPacketWithHeader(packetOk, OKPacket)
}

// writeOKPacketWithEOFHeader writes an OK packet with an EOF header.
// This is used at the end of a result set if
// CapabilityClientDeprecateEOF is set.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeOKPacketWithEOFHeader(packetOk *PacketOK) error {
	return c.writeOKPacketWithHeader(packetOk, EOFPacket)
}

func (c *Conn) writeOKPacketWithHeader(packetOk *PacketOK, headerType byte) error {
	length := 1 + // OKPacket
		lenEncIntSize(packetOk.affectedRows) +
		lenEncIntSize(packetOk.lastInsertID) +
		2 + // statusFlags
		2 // warnings

	hasSessionTrack := c.Capabilities&CapabilityClientSessionTrack == CapabilityClientSessionTrack

	if hasSessionTrack {
		length += lenEncStringSize(packetOk.info)
		if packetOk.statusFlags&ServerSessionStateChanged == ServerSessionStateChanged {
			length += lenEncStringSize(packetOk.sessionStateData)
		}
	} else {
		length += lenEOFString(packetOk.info)
	}

	data := &coder{data: c.startEphemeralPacket(length)}
	data.writeByte(headerType) // header - OK or EOF
	data.writeLenEncInt(packetOk.affectedRows)
	data.writeLenEncInt(packetOk.lastInsertID)
	data.writeUint16(packetOk.statusFlags)
	data.writeUint16(packetOk.warnings)
	if hasSessionTrack {
		data.writeLenEncString(packetOk.info)
		if packetOk.statusFlags&ServerSessionStateChanged == ServerSessionStateChanged {
			data.writeLenEncString(packetOk.sessionStateData)
		}
	} else {
		data.writeEOFString(packetOk.info)
	}
	return c.writeEphemeralPacket()
}

// writeErrorPacket writes an error packet.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeErrorPacket(errorCode sqlerror.ErrorCode, sqlState string, format string, args ...any) error {
	errorMessage := fmt.Sprintf(format, args...)
	length := 1 + 2 + 1 + 5 + len(errorMessage)
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, ErrPacket)
	pos = writeUint16(data, pos, uint16(errorCode))
	pos = writeByte(data, pos, '#')
	if sqlState == "" {
		sqlState = sqlerror.SSUnknownSQLState
	}
	if len(sqlState) != 5 {
		panic("sqlState has to be 5 characters long")
	}
	pos = writeEOFString(data, pos, sqlState)
	_ = writeEOFString(data, pos, errorMessage)

	return c.writeEphemeralPacket()
}

// writeErrorPacketFromError writes an error packet, from a regular error.
// See writeErrorPacket for other info.
func (c *Conn) writeErrorPacketFromError(err error) error {
	if se, ok := err.(*sqlerror.SQLError); ok {
		return c.writeErrorPacket(se.Number(), se.SQLState(), "%v", se.Message)
	}

	return c.writeErrorPacket(sqlerror.ERUnknownError, sqlerror.SSUnknownSQLState, "unknown error: %v", err)
}

// writeEOFPacket writes an EOF packet, through the buffer, and
// doesn't flush (as it is used as part of a query result).
func (c *Conn) writeEOFPacket(flags uint16, warnings uint16) error {
	length := 5
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, EOFPacket)
	pos = writeUint16(data, pos, warnings)
	_ = writeUint16(data, pos, flags)

	return c.writeEphemeralPacket()
}

//
// Packet parsing methods, for generic packets.
//

// isEOFPacket determines whether a data packet is a "true" EOF. DO NOT blindly compare the
// first byte of a packet to EOFPacket as you might do for other packet types, as 0xfe is overloaded
// as a first byte.
//
// Per https://dev.mysql.com/doc/internals/en/packet-EOF_Packet.html, a packet starting with 0xfe
// but having length >= 9 (on top of 4 byte header) is not a true EOF but a LengthEncodedInteger
// (typically preceding a LengthEncodedString). Thus, all EOF checks must validate the payload size
// before exiting.
//
// More specifically, an EOF packet can have 3 different lengths (1, 5, 7) depending on the client
// flags that are set. 7 comes from server versions comprised between 5.7.5 and 10.0.23.
func isEOFPacket(data []byte) bool {
	return data[0] == EOFPacket && len(data) < 9
}

// parseEOFPacket returns the warning count and a boolean to indicate if there
// are more results to receive.
//
// Note: This is only valid on actual EOF packets and not on OK packets with the EOF
// type code set, i.e. should not be used if ClientDeprecateEOF is set.
func parseEOFPacket(data []byte) (warnings uint16, statusFlags uint16, err error) {
	// The warning count is in position 2 & 3
	warnings, _, _ = readUint16(data, 1)

	// The status flag is in position 4 & 5
	statusFlags, _, ok := readUint16(data, 3)
	if !ok {
		return 0, 0, fmt.Errorf("invalid EOF packet statusFlags: %v", data)
	}
	return warnings, statusFlags, nil
}

func (c *Conn) parseOKPacket(in []byte) (*PacketOK, error) {
	data := &coder{
		data: in,
		pos:  1, // We already read the type.
	}
	packetOK := &PacketOK{}

	fail := func(format string, args ...any) (*PacketOK, error) {
		return nil, fmt.Errorf(format, args...)
	}

	// Affected rows.
	affectedRows, ok := data.readLenEncInt()
	if !ok {
		return fail("invalid OK packet affectedRows: %v", data.data)
	}
	packetOK.affectedRows = affectedRows

	// Last Insert ID.
	lastInsertID, ok := data.readLenEncInt()
	if !ok {
		return fail("invalid OK packet lastInsertID: %v", data.data)
	}
	packetOK.lastInsertID = lastInsertID

	// Status flags.
	statusFlags, ok := data.readUint16()
	if !ok {
		return fail("invalid OK packet statusFlags: %v", data.data)
	}
	packetOK.statusFlags = statusFlags

	// Warnings.
	warnings, ok := data.readUint16()
	if !ok {
		return fail("invalid OK packet warnings: %v", data.data)
	}
	packetOK.warnings = warnings

	// Info.
	if c.Capabilities&CapabilityClientSessionTrack == CapabilityClientSessionTrack {
		// info is a lenenc string here. Some servers send an OK
		// without the info field at all, so don't fail on a missing one.
		info, _ := data.readLenEncInfo()
		packetOK.info = info

		if statusFlags&ServerSessionStateChanged == ServerSessionStateChanged {
			sessionStateData, ok := data.readLenEncString()
			if !ok {
				return fail("invalid OK packet session state data: %v", data.data)
			}
			packetOK.sessionStateData = sessionStateData
		}
	} else {
		info, _, _ := readEOFString(data.data, data.pos)
		packetOK.info = info
	}

	return packetOK, nil
}

// ParseErrorPacket parses the error packet and returns a SQLError.
func ParseErrorPacket(data []byte) error {
	// We already read the type.
	pos := 1

	// Error code is 2 bytes.
	code, pos, ok := readUint16(data, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRUnknownError, sqlerror.SSUnknownSQLState, "invalid error packet code: %v", data)
	}

	// '#' marker of the SQL state is 1 byte. Ignored.
	pos++

	// SQL state is 5 bytes
	sqlState, pos, ok := readBytes(data, pos, 5)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRUnknownError, sqlerror.SSUnknownSQLState, "invalid error packet sqlState: %v", data)
	}

	// Human readable error message is the rest.
	msg := string(data[pos:])

	return sqlerror.NewSQLError(sqlerror.ErrorCode(code), string(sqlState), "%v", msg)
}
