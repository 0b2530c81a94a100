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

	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

// This file contains the methods related to queries.

//
// Client side methods.
//

// startCommand checks the connection can accept a new command, and
// resets the packet sequence for it. Sending a command while the
// previous response has not been fully read would desynchronize the
// wire protocol.
func (c *Conn) startCommand() error {
	if c.IsClosed() {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "connection is closed")
	}
	if c.unreadResult || c.fields != nil {
		return sqlerror.NewSQLError(sqlerror.CRCommandsOutOfSync, sqlerror.SSUnknownSQLState, "commands out of sync. Did you fetch all the rows of the previous result?")
	}
	c.sequence = 0
	return nil
}

// writeComQuery writes a query for the server to execute.
// Client -> Server.
// Returns SQLError(CRServerGone) if it can't.
func (c *Conn) writeComQuery(query string) error {
	data := c.startEphemeralPacket(len(query) + 1)
	data[0] = ComQuery
	copy(data[1:], query)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// readColumnDefinition reads the next Column Definition packet, and
// fills the given field with it.
// Returns a SQLError.
func (c *Conn) readColumnDefinition(field *sqltypes.Field, index int) error {
	colDef, err := c.readEphemeralPacket()
	if err != nil {
		return wrapReadError(err)
	}
	defer c.recycleReadPacket()
	return parseColumnDefinition(colDef, field, index)
}

// readColumnDefinitionType is a faster version of
// readColumnDefinition that only fills in the Type.
// Returns a SQLError.
func (c *Conn) readColumnDefinitionType(field *sqltypes.Field, index int) error {
	colDef, err := c.readEphemeralPacket()
	if err != nil {
		return wrapReadError(err)
	}
	defer c.recycleReadPacket()
	return parseColumnDefinitionType(colDef, field, index)
}

// parseColumnDefinition parses the column definition packet in data,
// and fills field with it.
func parseColumnDefinition(colDef []byte, field *sqltypes.Field, index int) error {
	// Catalog is ignored, always set to "def".
	pos, ok := skipLenEncString(colDef, 0)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "skipping col %v catalog failed", index)
	}

	// schema, table, orig table, name and orig name are
	// strings, all 5 lenenc.
	field.Database, pos, ok = readLenEncString(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v schema failed", index)
	}
	field.Table, pos, ok = readLenEncString(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v table failed", index)
	}
	field.OrgTable, pos, ok = readLenEncString(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v org_table failed", index)
	}
	field.Name, pos, ok = readLenEncString(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v name failed", index)
	}
	field.OrgName, pos, ok = readLenEncString(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v org_name failed", index)
	}

	// Skip length of fixed-length fields, always 0x0c.
	pos++

	// characterSet is a uint16.
	characterSet, pos, ok := readUint16(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v characterSet failed", index)
	}
	field.Charset = uint32(characterSet)

	// columnLength is a uint32.
	field.ColumnLength, pos, ok = readUint32(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v columnLength failed", index)
	}

	// type is one byte.
	t, pos, ok := readByte(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v type failed", index)
	}

	// flags is 2 bytes.
	flags, pos, ok := readUint16(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v flags failed", index)
	}

	// Convert MySQL type to a wire-independent type.
	var err error
	field.Type, err = sqltypes.MySQLToType(t, int64(flags))
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "MySQLToType(%v,%v) failed for column %v: %v", t, flags, index, err)
	}

	// Decimals is a byte.
	decimals, _, ok := readByte(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v decimals failed", index)
	}
	field.Decimals = uint32(decimals)

	// If we didn't get column length or character set,
	// we assume the original row on the source had the data.
	field.Flags = uint32(flags)

	return nil
}

// parseColumnDefinitionType parses the column definition packet in
// data, and fills in the Type only. It is a faster version of
// parseColumnDefinition for callers that do not need the field names.
func parseColumnDefinitionType(colDef []byte, field *sqltypes.Field, index int) error {
	// catalog, schema, table, orig table, name and orig name are
	// strings, all skipped.
	pos, ok := skipLenEncString(colDef, 0)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "skipping col %v catalog failed", index)
	}
	for i := 0; i < 5; i++ {
		pos, ok = skipLenEncString(colDef, pos)
		if !ok {
			return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "skipping col %v strings failed", index)
		}
	}

	// Skip length of fixed-length fields, always 0x0c.
	pos++

	// characterSet is a uint16, skipped.
	_, pos, ok = readUint16(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v characterSet failed", index)
	}

	// columnLength is a uint32, skipped.
	_, pos, ok = readUint32(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v columnLength failed", index)
	}

	// type is one byte.
	t, pos, ok := readByte(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v type failed", index)
	}

	// flags is 2 bytes.
	flags, _, ok := readUint16(colDef, pos)
	if !ok {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extracting col %v flags failed", index)
	}

	// Convert MySQL type to a wire-independent type.
	var err error
	field.Type, err = sqltypes.MySQLToType(t, int64(flags))
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "MySQLToType(%v,%v) failed for column %v: %v", t, flags, index, err)
	}

	// The rest of the packet is ignored.
	return nil
}

// parseRow parses an individual row of a text resultset.
// Returns a SQLError.
func parseRow(data []byte, fields []*sqltypes.Field, reader func([]byte, int) ([]byte, int, bool), result []sqltypes.Value) ([]sqltypes.Value, error) {
	colNumber := len(fields)
	if result == nil {
		result = make([]sqltypes.Value, 0, colNumber)
	}
	pos := 0
	for i := 0; i < colNumber; i++ {
		if pos >= len(data) {
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "row is truncated after %v values", i)
		}
		if data[pos] == NullValue {
			pos++
			result = append(result, sqltypes.Value{})
			continue
		}
		var s []byte
		var ok bool
		s, pos, ok = reader(data, pos)
		if !ok {
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "decoding string failed")
		}
		result = append(result, sqltypes.MakeTrusted(fields[i].Type, s))
	}
	return result, nil
}

// ExecuteFetch executes a query and returns the result.
// Returns a SQLError. Depending on the transport used, the error
// returned might be different for the same condition:
//
// 1. if the server closes the connection when no command is in flight:
//
//	1.1 unix: writeComQuery will fail with a 'broken pipe', and we'll
//	    return CRServerGone(2006).
//
//	1.2 tcp: writeComQuery will most likely work, but readComQueryResponse
//	    will fail, and we'll return CRServerLost(2013).
//
//	    This is because closing a TCP socket on the server side sends
//	    a FIN to the client (telling the client the server is done
//	    writing), but on most platforms doesn't send a RST.  So the
//	    client sends us back to the server.
//
// 2. if the server closes the connection when a command is in flight,
// readComQueryResponse will fail, and we'll return CRServerLost(2013).
//
// If the query returned more than one result set, the extra ones are
// read and discarded, so the connection stays usable. Use
// ExecuteFetchMulti to keep them.
func (c *Conn) ExecuteFetch(query string, maxrows int, wantfields bool) (result *sqltypes.Result, err error) {
	result, more, err := c.ExecuteFetchMulti(query, maxrows, wantfields)
	if err != nil {
		return nil, err
	}
	for more {
		_, more, _, err = c.ReadQueryResult(-1, false)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ExecuteFetchMulti is for fetching multiple results from a
// multi-statement result. It returns an additional 'more' flag. If it
// is set, you must fetch the additional results using ReadQueryResult.
func (c *Conn) ExecuteFetchMulti(query string, maxrows int, wantfields bool) (result *sqltypes.Result, more bool, err error) {
	defer func() {
		if err != nil {
			if sqlerr, ok := err.(*sqlerror.SQLError); ok {
				sqlerr.Query = query
			}
		}
	}()

	if err = c.startCommand(); err != nil {
		return nil, false, err
	}

	// Send the query as a COM_QUERY packet.
	if err = c.writeComQuery(query); err != nil {
		return nil, false, err
	}

	res, more, _, err := c.ReadQueryResult(maxrows, wantfields)
	if err != nil {
		return nil, false, err
	}
	return res, more, err
}

// ReadQueryResult gets the result from the last written query.
func (c *Conn) ReadQueryResult(maxrows int, wantfields bool) (*sqltypes.Result, bool, uint16, error) {
	// Get the result.
	colNumber, packetOk, err := c.readComQueryResponse()
	if err != nil {
		c.unreadResult = false
		return nil, false, 0, err
	}
	more := packetOk.statusFlags&ServerMoreResultsExists != 0
	warnings := packetOk.warnings
	c.unreadResult = more
	if colNumber == 0 {
		// OK packet, means no results. Just use the numbers.
		c.StatusFlags = packetOk.statusFlags
		return &sqltypes.Result{
			RowsAffected:        packetOk.affectedRows,
			InsertID:            packetOk.lastInsertID,
			SessionStateChanges: packetOk.sessionStateData,
			StatusFlags:         packetOk.statusFlags,
			Info:                packetOk.info,
		}, more, warnings, nil
	}

	fields := make([]sqltypes.Field, colNumber)
	result := &sqltypes.Result{
		Fields: make([]*sqltypes.Field, colNumber),
	}

	// Read column headers. One packet per column.
	// Build the fields.
	for i := 0; i < colNumber; i++ {
		result.Fields[i] = &fields[i]

		if wantfields {
			if err := c.readColumnDefinition(result.Fields[i], i); err != nil {
				c.unreadResult = false
				return nil, false, 0, err
			}
		} else {
			if err := c.readColumnDefinitionType(result.Fields[i], i); err != nil {
				c.unreadResult = false
				return nil, false, 0, err
			}
		}
	}

	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		// EOF is only present here if it's not deprecated.
		data, err := c.readEphemeralPacket()
		if err != nil {
			c.unreadResult = false
			return nil, false, 0, wrapReadError(err)
		}
		if isEOFPacket(data) {
			// This is what we expect.
			// Warnings and status flags are ignored.
			c.recycleReadPacket()
			// goto: read row loop
		} else if data[0] == ErrPacket {
			defer c.recycleReadPacket()
			c.unreadResult = false
			return nil, false, 0, ParseErrorPacket(data)
		} else {
			defer c.recycleReadPacket()
			c.unreadResult = false
			return nil, false, 0, fmt.Errorf("unexpected packet after fields: %v", data)
		}
	}

	// read each row until EOF or OK packet.
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			c.unreadResult = false
			return nil, false, 0, wrapReadError(err)
		}

		if isEOFPacket(data) {
			// Strip the partial Fields before returning.
			if !wantfields {
				result.Fields = nil
			}

			// The deprecated EOF packets change means that this is either
			// an EOF packet or an OK packet with the EOF type code.
			if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
				var statusFlags uint16
				warnings, statusFlags, err = parseEOFPacket(data)
				if err != nil {
					c.recycleReadPacket()
					c.unreadResult = false
					return nil, false, 0, err
				}
				more = statusFlags&ServerMoreResultsExists != 0
				result.StatusFlags = statusFlags
				c.StatusFlags = statusFlags
			} else {
				var packetEof *PacketOK
				packetEof, err = c.parseOKPacket(data)
				if err != nil {
					c.recycleReadPacket()
					c.unreadResult = false
					return nil, false, 0, err
				}
				warnings = packetEof.warnings
				more = packetEof.statusFlags&ServerMoreResultsExists != 0
				result.SessionStateChanges = packetEof.sessionStateData
				result.StatusFlags = packetEof.statusFlags
				result.Info = packetEof.info
				c.StatusFlags = packetEof.statusFlags
			}
			c.recycleReadPacket()
			c.unreadResult = more
			return result, more, warnings, nil

		} else if data[0] == ErrPacket {
			defer c.recycleReadPacket()

			// Error packet.
			c.unreadResult = false
			return nil, false, 0, ParseErrorPacket(data)
		}

		// Check we're not over the limit before we add more.
		if len(result.Rows) == maxrows {
			c.recycleReadPacket()
			if err := c.drainResults(); err != nil {
				return nil, false, 0, err
			}
			return nil, false, 0, sqlerror.NewSQLError(sqlerror.ERClientMaxRowsExceeded, sqlerror.SSUnknownSQLState, "Row count exceeded %d", maxrows)
		}

		// Regular row.
		row, err := parseRow(data, result.Fields, readLenEncStringAsBytesCopy, nil)
		if err != nil {
			c.recycleReadPacket()
			c.unreadResult = false
			return nil, false, 0, err
		}
		result.Rows = append(result.Rows, row)
		c.recycleReadPacket()
	}
}

// drainResults will read all packets of the current resultset and
// ignore them. The terminating EOF / OK packet also clears the
// unread-result state unless more resultsets follow.
func (c *Conn) drainResults() error {
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			c.unreadResult = false
			return wrapReadError(err)
		}
		if isEOFPacket(data) {
			_, statusFlags, err := parseEOFPacket(data)
			c.recycleReadPacket()
			if err != nil {
				c.unreadResult = false
				return err
			}
			c.unreadResult = statusFlags&ServerMoreResultsExists != 0
			return nil
		} else if data[0] == ErrPacket {
			defer c.recycleReadPacket()
			c.unreadResult = false
			return ParseErrorPacket(data)
		}
		c.recycleReadPacket()
	}
}

// readComQueryResponse reads the response packet of a COM_QUERY and
// related commands. It returns the column count of the resultset that
// follows, or the parsed OK packet if there is none.
func (c *Conn) readComQueryResponse() (int, *PacketOK, error) {
	data, err := c.readEphemeralPacket()
	if err != nil {
		return 0, nil, wrapReadError(err)
	}
	defer c.recycleReadPacket()
	if len(data) == 0 {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "invalid empty COM_QUERY response packet")
	}

	switch data[0] {
	case OKPacket:
		packetOk, err := c.parseOKPacket(data)
		if err != nil {
			return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "%v", err)
		}
		return 0, packetOk, nil
	case ErrPacket:
		// Error
		return 0, nil, ParseErrorPacket(data)
	case 0xfb:
		// Local infile
		return 0, nil, fmt.Errorf("not implemented")
	}

	n, pos, ok := readLenEncInt(data, 0)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot get column number")
	}
	if pos != len(data) {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "extra data in COM_QUERY response")
	}
	return int(n), &PacketOK{}, nil
}

//
// Streaming query methods.
//

// ExecuteStreamFetch starts a streaming query. Fields(), FetchNext() and
// CloseResult() can be called once this is successful.
// Returns a SQLError.
func (c *Conn) ExecuteStreamFetch(query string) (err error) {
	defer func() {
		if err != nil {
			if sqlerr, ok := err.(*sqlerror.SQLError); ok {
				sqlerr.Query = query
			}
		}
	}()

	if err = c.startCommand(); err != nil {
		return err
	}

	// Send the query as a COM_QUERY packet.
	if err := c.writeComQuery(query); err != nil {
		return err
	}

	// Get the result.
	colNumber, _, err := c.readComQueryResponse()
	if err != nil {
		return err
	}
	if colNumber == 0 {
		// OK packet, means no results. Save an empty Fields array.
		c.fields = make([]*sqltypes.Field, 0)
		return nil
	}

	// Read the fields, save them.
	fields := make([]sqltypes.Field, colNumber)
	fieldsPointers := make([]*sqltypes.Field, colNumber)

	// Read column headers. One packet per column.
	// Build the fields.
	for i := 0; i < colNumber; i++ {
		fieldsPointers[i] = &fields[i]
		if err := c.readColumnDefinition(fieldsPointers[i], i); err != nil {
			return err
		}
	}

	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		// EOF is only present here if it's not deprecated.
		data, err := c.readEphemeralPacket()
		if err != nil {
			return wrapReadError(err)
		}
		defer c.recycleReadPacket()
		if isEOFPacket(data) {
			// This is what we expect.
			// Warnings and status flags are ignored.
		} else if data[0] == ErrPacket {
			return ParseErrorPacket(data)
		} else {
			return fmt.Errorf("unexpected packet after fields: %v", data)
		}
	}

	c.fields = fieldsPointers
	return nil
}

// Fields returns the fields for an ongoing streaming query.
func (c *Conn) Fields() ([]*sqltypes.Field, error) {
	if c.fields == nil {
		return nil, sqlerror.NewSQLError(sqlerror.CRCommandsOutOfSync, sqlerror.SSUnknownSQLState, "no streaming query in progress")
	}
	if len(c.fields) == 0 {
		// The query returned an empty result, that's all.
		return nil, nil
	}
	return c.fields, nil
}

// FetchNext returns the next result for an ongoing streaming query.
// It returns (nil, nil) if there is nothing more to read.
func (c *Conn) FetchNext(in []sqltypes.Value) ([]sqltypes.Value, error) {
	if c.fields == nil {
		// We are already done, and the result was closed.
		return nil, sqlerror.NewSQLError(sqlerror.CRCommandsOutOfSync, sqlerror.SSUnknownSQLState, "no streaming query in progress")
	}

	if len(c.fields) == 0 {
		// We received no fields, so there is no data.
		return nil, nil
	}

	data, err := c.readEphemeralPacket()
	if err != nil {
		return nil, wrapReadError(err)
	}

	if isEOFPacket(data) {
		// Warnings and status flags are ignored.
		c.recycleReadPacket()
		// goto: end
		c.fields = nil
		return nil, nil
	} else if data[0] == ErrPacket {
		defer c.recycleReadPacket()
		return nil, ParseErrorPacket(data)
	}

	defer c.recycleReadPacket()
	return parseRow(data, c.fields, readLenEncStringAsBytesCopy, in)
}

// CloseResult can be used to terminate a streaming query
// early. It just drains the remaining values.
func (c *Conn) CloseResult() {
	for c.fields != nil {
		rows, err := c.FetchNext(nil)
		if err != nil || rows == nil {
			// We either got an error, or we are done.
			c.fields = nil
		}
	}
}

//
// Simple commands.
//

// readSimpleResponse reads the OK, EOF or ERR packet that concludes a
// command with no resultset.
func (c *Conn) readSimpleResponse() error {
	data, err := c.readEphemeralPacket()
	if err != nil {
		return wrapReadError(err)
	}
	defer c.recycleReadPacket()
	switch {
	case data[0] == OKPacket:
		packetOk, err := c.parseOKPacket(data)
		if err != nil {
			return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "%v", err)
		}
		c.StatusFlags = packetOk.statusFlags
		return nil
	case isEOFPacket(data):
		// Some servers end COM_SET_OPTION with an EOF packet
		// instead of an OK packet.
		return nil
	case data[0] == ErrPacket:
		return ParseErrorPacket(data)
	}
	return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "unexpected response packet: %v", data[0])
}

// InitDB changes the default database for the connection, with the
// COM_INIT_DB command.
func (c *Conn) InitDB(db string) error {
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(len(db) + 1)
	data[0] = ComInitDB
	copy(data[1:], db)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	if err := c.readSimpleResponse(); err != nil {
		return err
	}
	c.schemaName = db
	return nil
}

// ResetConnection resets the session state on the server, with the
// COM_RESET_CONNECTION command. Prepared statements are deallocated,
// temporary tables dropped and session variables reset, without
// re-authenticating.
func (c *Conn) ResetConnection() error {
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(1)
	data[0] = ComResetConnection
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	return c.readSimpleResponse()
}

// SetMultiStatements toggles the CLIENT_MULTI_STATEMENTS capability
// of an established connection, with the COM_SET_OPTION command.
func (c *Conn) SetMultiStatements(enable bool) error {
	if err := c.startCommand(); err != nil {
		return err
	}

	// MYSQL_OPTION_MULTI_STATEMENTS_ON = 0,
	// MYSQL_OPTION_MULTI_STATEMENTS_OFF = 1.
	var option uint16 = 1
	if enable {
		option = 0
	}

	data := c.startEphemeralPacket(3)
	pos := writeByte(data, 0, ComSetOption)
	_ = writeUint16(data, pos, option)
	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	if err := c.readSimpleResponse(); err != nil {
		return err
	}
	if enable {
		c.Capabilities |= CapabilityClientMultiStatements
	} else {
		c.Capabilities &^= CapabilityClientMultiStatements
	}
	return nil
}

// ChangeUser re-authenticates an established connection as a different
// user, with the COM_CHANGE_USER command. The session state is reset
// like in ResetConnection.
func (c *Conn) ChangeUser(params *ConnParams) error {
	if err := c.startCommand(); err != nil {
		return err
	}

	// Scramble the password with the salt of the initial handshake.
	var scrambledPassword []byte
	if c.authPluginName == CachingSha2Password {
		scrambledPassword = ScrambleCachingSha2Password(c.salt, []byte(params.Pass))
	} else {
		scrambledPassword = ScrambleMysqlNativePassword(c.salt, []byte(params.Pass))
	}

	length := 1 + // ComChangeUser
		lenNullString(params.Uname) +
		1 + // length of scrambled password
		len(scrambledPassword) +
		lenNullString(params.DbName) +
		2 + // character set
		lenNullString(string(c.authPluginName))

	data := c.startEphemeralPacket(length)
	pos := writeByte(data, 0, ComChangeUser)
	pos = writeNullString(data, pos, params.Uname)
	pos = writeByte(data, pos, byte(len(scrambledPassword)))
	pos += copy(data[pos:], scrambledPassword)
	pos = writeNullString(data, pos, params.DbName)
	pos = writeUint16(data, pos, uint16(c.CharacterSet))
	pos = writeNullString(data, pos, string(c.authPluginName))

	// Sanity-check the length.
	if pos != len(data) {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "ChangeUser: only packed %v bytes, out of %v allocated", pos, len(data))
	}

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	// The server replies like it does after a HandshakeResponse41,
	// including auth switch and more data packets.
	if err := c.handleAuthResponse(params); err != nil {
		return err
	}

	c.User = params.Uname
	c.schemaName = params.DbName
	return nil
}
