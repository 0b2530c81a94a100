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
	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

// This file contains the methods for the prepared statement protocol.
// See http://dev.mysql.com/doc/internals/en/prepared-statements.html

// PreparedStatement is a statement prepared on a connection with
// Prepare. It is only valid on the connection that created it.
type PreparedStatement struct {
	conn *Conn

	// StatementID is the identifier the server assigned to the
	// statement. It goes out on the wire with every command below.
	StatementID uint32

	// ParamCount is the number of '?' placeholders in the query.
	ParamCount uint16

	// ColumnCount is the number of columns the statement produces.
	ColumnCount uint16

	// Warnings is the warning count of the prepare response.
	Warnings uint16

	// fields are the column definitions sent back at prepare time.
	// They can differ from the ones sent at execute time.
	fields []*sqltypes.Field

	// cursorOpen is set when Execute opened a server-side cursor
	// that Fetch has not exhausted.
	cursorOpen bool
	// cursorFields are the column definitions of the open cursor.
	cursorFields []*sqltypes.Field
}

// Prepare sends the query to the server for preparation, with the
// COM_STMT_PREPARE command. It returns the prepared statement, which
// stays valid until Close is called on it.
// Returns a SQLError.
func (c *Conn) Prepare(query string) (stmt *PreparedStatement, err error) {
	defer func() {
		if err != nil {
			if sqlerr, ok := err.(*sqlerror.SQLError); ok {
				sqlerr.Query = query
			}
		}
	}()

	if err = c.startCommand(); err != nil {
		return nil, err
	}

	data := c.startEphemeralPacket(len(query) + 1)
	data[0] = ComPrepare
	copy(data[1:], query)
	if err := c.writeEphemeralPacket(); err != nil {
		return nil, sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	// COM_STMT_PREPARE response.
	response, err := c.readEphemeralPacket()
	if err != nil {
		return nil, wrapReadError(err)
	}
	if response[0] == ErrPacket {
		defer c.recycleReadPacket()
		return nil, ParseErrorPacket(response)
	}

	stmt = &PreparedStatement{conn: c}
	r := &coder{data: response, pos: 1}
	ok := true
	if stmt.StatementID, ok = r.readUint32(); !ok {
		c.recycleReadPacket()
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "reading statement id failed")
	}
	if stmt.ColumnCount, ok = r.readUint16(); !ok {
		c.recycleReadPacket()
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "reading column count failed")
	}
	if stmt.ParamCount, ok = r.readUint16(); !ok {
		c.recycleReadPacket()
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "reading param count failed")
	}
	// One byte filler, then the warning count. Both can be missing
	// in old servers.
	if _, ok = r.readByte(); ok {
		stmt.Warnings, _ = r.readUint16()
	}
	c.recycleReadPacket()

	// Parameter definitions follow. The types in them are
	// meaningless, so they are read and dropped.
	if stmt.ParamCount > 0 {
		var field sqltypes.Field
		for i := 0; i < int(stmt.ParamCount); i++ {
			if err := c.readColumnDefinitionType(&field, i); err != nil {
				return nil, err
			}
		}
		if err := c.skipResultsetEOF(); err != nil {
			return nil, err
		}
	}

	// Column definitions follow.
	if stmt.ColumnCount > 0 {
		fields := make([]sqltypes.Field, stmt.ColumnCount)
		stmt.fields = make([]*sqltypes.Field, stmt.ColumnCount)
		for i := 0; i < int(stmt.ColumnCount); i++ {
			stmt.fields[i] = &fields[i]
			if err := c.readColumnDefinition(stmt.fields[i], i); err != nil {
				return nil, err
			}
		}
		if err := c.skipResultsetEOF(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// skipResultsetEOF reads the EOF packet that ends a definition block
// when CapabilityClientDeprecateEOF is not negotiated.
func (c *Conn) skipResultsetEOF() error {
	if c.Capabilities&CapabilityClientDeprecateEOF != 0 {
		return nil
	}
	data, err := c.readEphemeralPacket()
	if err != nil {
		return wrapReadError(err)
	}
	defer c.recycleReadPacket()
	if !isEOFPacket(data) {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "expected EOF packet, got: %v", data[0])
	}
	return nil
}

// Fields returns the column definitions from prepare time, or nil if
// the statement produces no resultset.
func (stmt *PreparedStatement) Fields() []*sqltypes.Field {
	return stmt.fields
}

// writeComStmtExecute writes the COM_STMT_EXECUTE packet for the
// given parameter values.
func (stmt *PreparedStatement) writeComStmtExecute(params []sqltypes.Value, cursorType byte) error {
	c := stmt.conn
	if len(params) != int(stmt.ParamCount) {
		return sqlerror.NewSQLError(sqlerror.CRCommandsOutOfSync, sqlerror.SSUnknownSQLState, "statement expects %v parameters, got %v", stmt.ParamCount, len(params))
	}

	length := 1 + // ComStmtExecute
		4 + // statement id
		1 + // cursor type
		4 // iteration count, always 1

	var nullBitmap []byte
	encoded := make([][]byte, len(params))
	if len(params) > 0 {
		nullBitmap = make([]byte, (len(params)+7)/8)
		length += len(nullBitmap) +
			1 + // new-params-bound flag
			2*len(params) // parameter types

		for i, p := range params {
			if p.IsNull() {
				nullBitmap[i/8] |= 1 << uint(i%8)
				continue
			}
			var err error
			if encoded[i], err = val2MySQL(p); err != nil {
				return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot encode parameter %v: %v", i, err)
			}
			length += len(encoded[i])
		}
	}

	data := c.startEphemeralPacket(length)
	w := &coder{data: data}
	w.writeByte(ComStmtExecute)
	w.writeUint32(stmt.StatementID)
	w.writeByte(cursorType)
	w.writeUint32(1) // iteration count

	if len(params) > 0 {
		w.writeEOFBytes(nullBitmap)
		w.writeByte(1) // new-params-bound flag

		for _, p := range params {
			typ, flags := sqltypes.TypeToMySQL(p.Type())
			w.writeByte(byte(typ))
			w.writeByte(byte(flags >> 8)) // 0x80 for unsigned
		}
		for _, e := range encoded {
			w.writeEOFBytes(e)
		}
	}

	if w.pos != len(data) {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "writeComStmtExecute: only packed %v bytes, out of %v allocated", w.pos, len(data))
	}
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// Execute runs the prepared statement with the given parameter
// values, and returns the full result.
// Returns a SQLError.
func (stmt *PreparedStatement) Execute(params []sqltypes.Value, maxrows int, wantfields bool) (*sqltypes.Result, error) {
	c := stmt.conn
	if err := c.startCommand(); err != nil {
		return nil, err
	}
	if err := stmt.writeComStmtExecute(params, NoCursor); err != nil {
		return nil, err
	}
	return stmt.readExecuteResult(maxrows, wantfields)
}

// readExecuteResult reads a binary resultset, the COM_STMT_EXECUTE
// equivalent of ReadQueryResult.
func (stmt *PreparedStatement) readExecuteResult(maxrows int, wantfields bool) (*sqltypes.Result, error) {
	c := stmt.conn

	colNumber, packetOk, err := c.readComQueryResponse()
	if err != nil {
		return nil, err
	}
	if colNumber == 0 {
		// OK packet, means no results. Just use the numbers.
		c.StatusFlags = packetOk.statusFlags
		return &sqltypes.Result{
			RowsAffected:        packetOk.affectedRows,
			InsertID:            packetOk.lastInsertID,
			SessionStateChanges: packetOk.sessionStateData,
			StatusFlags:         packetOk.statusFlags,
			Info:                packetOk.info,
		}, nil
	}

	fields := make([]sqltypes.Field, colNumber)
	result := &sqltypes.Result{
		Fields: make([]*sqltypes.Field, colNumber),
	}

	for i := 0; i < colNumber; i++ {
		result.Fields[i] = &fields[i]
		if err := c.readColumnDefinition(result.Fields[i], i); err != nil {
			return nil, err
		}
	}

	// The EOF packet after the column definitions carries the status
	// flags that announce a server-side cursor.
	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, wrapReadError(err)
		}
		if !isEOFPacket(data) {
			c.recycleReadPacket()
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "expected EOF packet, got: %v", data[0])
		}
		_, statusFlags, err := parseEOFPacket(data)
		c.recycleReadPacket()
		if err != nil {
			return nil, err
		}
		c.StatusFlags = statusFlags

		// If the server opened a cursor, there are no rows to read
		// here. They have to be fetched with Fetch.
		if statusFlags&ServerStatusCursorExists != 0 {
			return stmt.openCursor(result, wantfields), nil
		}
	}

	// Read each binary row until EOF or OK packet.
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, wrapReadError(err)
		}

		if isEOFPacket(data) {
			statusFlags, err := stmt.parseResultsetEnd(data, result)
			c.recycleReadPacket()
			if err != nil {
				return nil, err
			}
			c.StatusFlags = statusFlags
			if statusFlags&ServerStatusCursorExists != 0 {
				return stmt.openCursor(result, wantfields), nil
			}
			if !wantfields {
				result.Fields = nil
			}
			c.unreadResult = statusFlags&ServerMoreResultsExists != 0
			return result, nil
		} else if data[0] == ErrPacket {
			defer c.recycleReadPacket()
			return nil, ParseErrorPacket(data)
		}

		if len(result.Rows) == maxrows {
			c.recycleReadPacket()
			if err := c.drainResults(); err != nil {
				return nil, err
			}
			return nil, sqlerror.NewSQLError(sqlerror.ERClientMaxRowsExceeded, sqlerror.SSUnknownSQLState, "Row count exceeded %d", maxrows)
		}

		row, err := parseBinaryRow(data, result.Fields, nil)
		if err != nil {
			c.recycleReadPacket()
			return nil, err
		}
		result.Rows = append(result.Rows, row)
		c.recycleReadPacket()
	}
}

// parseResultsetEnd decodes the terminating EOF or OK packet of a
// resultset, and fills in the result status.
func (stmt *PreparedStatement) parseResultsetEnd(data []byte, result *sqltypes.Result) (uint16, error) {
	c := stmt.conn
	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		_, statusFlags, err := parseEOFPacket(data)
		if err != nil {
			return 0, err
		}
		result.StatusFlags = statusFlags
		return statusFlags, nil
	}
	packetOk, err := c.parseOKPacket(data)
	if err != nil {
		return 0, err
	}
	result.SessionStateChanges = packetOk.sessionStateData
	result.StatusFlags = packetOk.statusFlags
	result.Info = packetOk.info
	return packetOk.statusFlags, nil
}

// ExecuteWithCursor runs the prepared statement and asks the server
// to keep the resultset in a read-only cursor, to be read with Fetch.
// Returns a SQLError.
func (stmt *PreparedStatement) ExecuteWithCursor(params []sqltypes.Value) ([]*sqltypes.Field, error) {
	c := stmt.conn
	if err := c.startCommand(); err != nil {
		return nil, err
	}
	if err := stmt.writeComStmtExecute(params, ReadOnlyCursor); err != nil {
		return nil, err
	}
	result, err := stmt.readExecuteResult(-1, true)
	if err != nil {
		return nil, err
	}
	if !stmt.cursorOpen {
		// The server ignored the cursor flag and sent the rows
		// inline. Nothing left to fetch.
		return result.Fields, nil
	}
	return stmt.cursorFields, nil
}

// Fetch asks the server for up to maxrows rows of the open cursor,
// with the COM_STMT_FETCH command. It returns the rows, and whether
// more rows can be fetched.
// Returns a SQLError.
func (stmt *PreparedStatement) Fetch(maxrows int) ([]sqltypes.Row, bool, error) {
	c := stmt.conn
	if !stmt.cursorOpen {
		return nil, false, sqlerror.NewSQLError(sqlerror.CRCommandsOutOfSync, sqlerror.SSUnknownSQLState, "no cursor is open for this statement")
	}

	c.sequence = 0
	data := c.startEphemeralPacket(1 + 4 + 4)
	w := &coder{data: data}
	w.writeByte(ComStmtFetch)
	w.writeUint32(stmt.StatementID)
	w.writeUint32(uint32(maxrows))
	if err := c.writeEphemeralPacket(); err != nil {
		return nil, false, sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	var rows []sqltypes.Row
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, false, wrapReadError(err)
		}

		if isEOFPacket(data) {
			_, statusFlags, err := parseEOFPacket(data)
			c.recycleReadPacket()
			if err != nil {
				return nil, false, err
			}
			c.StatusFlags = statusFlags
			if statusFlags&ServerStatusLastRowSent != 0 {
				stmt.closeCursor()
			}
			return rows, stmt.cursorOpen, nil
		} else if data[0] == ErrPacket {
			defer c.recycleReadPacket()
			stmt.closeCursor()
			return nil, false, ParseErrorPacket(data)
		}

		row, err := parseBinaryRow(data, stmt.cursorFields, nil)
		if err != nil {
			c.recycleReadPacket()
			return nil, false, err
		}
		rows = append(rows, row)
		c.recycleReadPacket()
	}
}

// openCursor marks the statement's cursor as open. The connection is
// blocked for other commands until the cursor is exhausted or reset.
func (stmt *PreparedStatement) openCursor(result *sqltypes.Result, wantfields bool) *sqltypes.Result {
	stmt.cursorOpen = true
	stmt.cursorFields = result.Fields
	stmt.conn.unreadResult = true
	if !wantfields {
		result.Fields = nil
	}
	return result
}

func (stmt *PreparedStatement) closeCursor() {
	stmt.cursorOpen = false
	stmt.cursorFields = nil
	stmt.conn.unreadResult = false
}

// SendLongData appends data to the value of a parameter before the
// statement is executed, with the COM_STMT_SEND_LONG_DATA command.
// The server sends no reply. The accumulated value is used by the
// next Execute, which should send a NULL type for that parameter, and
// it is reset by Reset.
// Returns a SQLError.
func (stmt *PreparedStatement) SendLongData(paramIndex uint16, chunk []byte) error {
	c := stmt.conn
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(1 + 4 + 2 + len(chunk))
	w := &coder{data: data}
	w.writeByte(ComStmtSendLongData)
	w.writeUint32(stmt.StatementID)
	w.writeUint16(paramIndex)
	w.writeEOFBytes(chunk)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// Reset asks the server to drop the accumulated long data and close
// any open cursor of this statement, with the COM_STMT_RESET command.
// Returns a SQLError.
func (stmt *PreparedStatement) Reset() error {
	c := stmt.conn
	stmt.closeCursor()
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(1 + 4)
	w := &coder{data: data}
	w.writeByte(ComStmtReset)
	w.writeUint32(stmt.StatementID)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return c.readSimpleResponse()
}

// Close deallocates the statement on the server, with the
// COM_STMT_CLOSE command. The server sends no reply. The statement
// cannot be used afterwards.
// Returns a SQLError.
func (stmt *PreparedStatement) Close() error {
	c := stmt.conn
	stmt.closeCursor()
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(1 + 4)
	w := &coder{data: data}
	w.writeByte(ComStmtClose)
	w.writeUint32(stmt.StatementID)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}
