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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

// servePrepareResponse writes a COM_STMT_PREPARE response: the header
// packet, then parameter and column definitions with their EOFs.
func servePrepareResponse(t *testing.T, sConn *Conn, stmtID uint32, paramCount uint16, fields []*sqltypes.Field) {
	t.Helper()
	data := sConn.startEphemeralPacket(12)
	pos := writeByte(data, 0, OKPacket)
	pos = writeUint32(data, pos, stmtID)
	pos = writeUint16(data, pos, uint16(len(fields)))
	pos = writeUint16(data, pos, paramCount)
	pos = writeByte(data, pos, 0) // filler
	writeUint16(data, pos, 0)     // warning count
	require.NoError(t, sConn.writeEphemeralPacket())

	paramDef := &sqltypes.Field{
		Name:    "?",
		Type:    sqltypes.VarBinary,
		Charset: CharacterSetBinary,
	}
	for i := uint16(0); i < paramCount; i++ {
		writeColumnDefinition(t, sConn, paramDef)
	}
	if paramCount > 0 && sConn.Capabilities&CapabilityClientDeprecateEOF == 0 {
		require.NoError(t, sConn.writeEOFPacket(0, 0))
	}
	for _, field := range fields {
		writeColumnDefinition(t, sConn, field)
	}
	if len(fields) > 0 && sConn.Capabilities&CapabilityClientDeprecateEOF == 0 {
		require.NoError(t, sConn.writeEOFPacket(0, 0))
	}
}

// writeBinaryRow writes one binary-protocol row.
func writeBinaryRow(t *testing.T, sConn *Conn, row []sqltypes.Value) {
	t.Helper()
	bitmapLen := (len(row) + 7 + 2) / 8
	length := 1 + bitmapLen
	encoded := make([][]byte, len(row))
	for i, val := range row {
		if val.IsNull() {
			continue
		}
		e, err := val2MySQL(val)
		require.NoError(t, err)
		encoded[i] = e
		length += len(e)
	}

	data := sConn.startEphemeralPacket(length)
	pos := writeByte(data, 0, 0x00)
	pos = writeZeroes(data, pos, bitmapLen)
	nullBitmap := data[1 : 1+bitmapLen]
	for i, val := range row {
		if val.IsNull() {
			bytePos := (i + 2) / 8
			bitPos := (i + 2) % 8
			nullBitmap[bytePos] |= 1 << uint(bitPos)
			continue
		}
		pos += copy(data[pos:], encoded[i])
	}
	require.NoError(t, sConn.writeEphemeralPacket())
}

// serveBinaryResult writes a full binary resultset the way a server
// answers COM_STMT_EXECUTE.
func serveBinaryResult(t *testing.T, sConn *Conn, result *sqltypes.Result, statusFlags uint16) {
	t.Helper()
	data := sConn.startEphemeralPacket(lenEncIntSize(uint64(len(result.Fields))))
	writeLenEncInt(data, 0, uint64(len(result.Fields)))
	require.NoError(t, sConn.writeEphemeralPacket())

	for _, field := range result.Fields {
		writeColumnDefinition(t, sConn, field)
	}
	if sConn.Capabilities&CapabilityClientDeprecateEOF == 0 {
		require.NoError(t, sConn.writeEOFPacket(0, 0))
	}
	for _, row := range result.Rows {
		writeBinaryRow(t, sConn, row)
	}
	if sConn.Capabilities&CapabilityClientDeprecateEOF == 0 {
		require.NoError(t, sConn.writeEOFPacket(statusFlags, 0))
	} else {
		require.NoError(t, sConn.writeOKPacketWithEOFHeader(&PacketOK{statusFlags: statusFlags}))
	}
}

func TestPrepare(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	query := "select id, name from t where id = ?"
	go func() {
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComPrepare, data[0])
		assert.Equal(t, query, string(data[1:]))
		servePrepareResponse(t, sConn, 42, 1, sampleResult().Fields)
	}()

	stmt, err := cConn.Prepare(query)
	require.NoError(t, err)
	assert.EqualValues(t, 42, stmt.StatementID)
	assert.EqualValues(t, 1, stmt.ParamCount)
	assert.EqualValues(t, 2, stmt.ColumnCount)
	require.Len(t, stmt.Fields(), 2)
	assert.Equal(t, "id", stmt.Fields()[0].Name)
	assert.Equal(t, "name", stmt.Fields()[1].Name)
}

func TestPrepareError(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		assert.NoError(t, sConn.writeErrorPacket(sqlerror.ERNoSuchTable, sqlerror.SSUnknownSQLState, "Table 'nope' doesn't exist"))
	}()

	_, err := cConn.Prepare("select * from nope")
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.ERNoSuchTable, sqlErr.Number())
	assert.Equal(t, "select * from nope", sqlErr.Query)
}

func TestStmtExecute(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	want := &sqltypes.Result{
		Fields: sampleResult().Fields,
		Rows: []sqltypes.Row{
			{sqltypes.NewInt32(10), sqltypes.NewVarChar("nice name")},
			{sqltypes.NewInt32(20), sqltypes.NULL},
		},
	}
	params := []sqltypes.Value{
		sqltypes.NewInt64(-1),
		sqltypes.NULL,
		sqltypes.NewVarChar("ab"),
	}

	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 7, uint16(len(params)), want.Fields)

		data := readCommand(t, sConn)
		r := &coder{data: data}
		cmd, _ := r.readByte()
		assert.EqualValues(t, ComStmtExecute, cmd)
		stmtID, _ := r.readUint32()
		assert.EqualValues(t, 7, stmtID)
		cursor, _ := r.readByte()
		assert.EqualValues(t, NoCursor, cursor)
		iteration, _ := r.readUint32()
		assert.EqualValues(t, 1, iteration)
		bitmap, _ := r.readByte()
		assert.EqualValues(t, 0x02, bitmap, "NULL bitmap should flag parameter 1")
		newParamsBound, _ := r.readByte()
		assert.EqualValues(t, 1, newParamsBound)
		for i, p := range params {
			wantType, wantFlags := sqltypes.TypeToMySQL(p.Type())
			gotType, _ := r.readByte()
			gotFlags, _ := r.readByte()
			assert.Equal(t, wantType, gotType, "type of parameter %v", i)
			assert.EqualValues(t, byte(wantFlags>>8), gotFlags, "flags of parameter %v", i)
		}
		assert.Equal(t, []byte{
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // int64 -1
			0x02, 'a', 'b', // lenenc "ab"
		}, data[r.pos:])

		serveBinaryResult(t, sConn, want, 0)
	}()

	stmt, err := cConn.Prepare("select id, name from t where a = ? and b = ? and c = ?")
	require.NoError(t, err)

	got, err := stmt.Execute(params, 100, true)
	require.NoError(t, err)
	assert.True(t, got.Equal(want), "result mismatch: %v", cmp.Diff(want, got, cmp.AllowUnexported(sqltypes.Value{})))
}

func TestStmtExecuteNoRows(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 3, 0, nil)

		readCommand(t, sConn)
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{
			affectedRows: 2,
			lastInsertID: 55,
		}))
	}()

	stmt, err := cConn.Prepare("insert into t values (1), (2)")
	require.NoError(t, err)
	assert.Nil(t, stmt.Fields())

	result, err := stmt.Execute(nil, 0, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.RowsAffected)
	assert.EqualValues(t, 55, result.InsertID)
}

func TestStmtExecuteParamCountMismatch(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 1, 2, nil)
	}()

	stmt, err := cConn.Prepare("insert into t values (?, ?)")
	require.NoError(t, err)

	// No server interaction may happen for the failed execute.
	_, err = stmt.Execute([]sqltypes.Value{sqltypes.NewInt64(1)}, 0, false)
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.CRCommandsOutOfSync, sqlErr.Number())
}

func TestStmtCursorFetch(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	fields := sampleResult().Fields
	rows := sampleResult().Rows

	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 9, 0, fields)

		// Execute opens the cursor: the resultset ends right after
		// the column definitions.
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComStmtExecute, data[0])
		assert.EqualValues(t, ReadOnlyCursor, data[5])
		colcount := sConn.startEphemeralPacket(1)
		writeLenEncInt(colcount, 0, uint64(len(fields)))
		assert.NoError(t, sConn.writeEphemeralPacket())
		for _, field := range fields {
			writeColumnDefinition(t, sConn, field)
		}
		assert.NoError(t, sConn.writeEOFPacket(ServerStatusCursorExists, 0))

		// First fetch: two rows, cursor stays open.
		data = readCommand(t, sConn)
		assert.EqualValues(t, ComStmtFetch, data[0])
		r := &coder{data: data, pos: 1}
		stmtID, _ := r.readUint32()
		assert.EqualValues(t, 9, stmtID)
		numRows, _ := r.readUint32()
		assert.EqualValues(t, 2, numRows)
		writeBinaryRow(t, sConn, rows[0])
		writeBinaryRow(t, sConn, rows[1])
		assert.NoError(t, sConn.writeEOFPacket(ServerStatusCursorExists, 0))

		// Second fetch: last row, cursor is done.
		data = readCommand(t, sConn)
		assert.EqualValues(t, ComStmtFetch, data[0])
		writeBinaryRow(t, sConn, rows[2])
		assert.NoError(t, sConn.writeEOFPacket(ServerStatusLastRowSent, 0))

		// The connection is free again.
		data = readCommand(t, sConn)
		assert.EqualValues(t, ComPing, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	stmt, err := cConn.Prepare("select id, name from t")
	require.NoError(t, err)

	cursorFields, err := stmt.ExecuteWithCursor(nil)
	require.NoError(t, err)
	require.Len(t, cursorFields, 2)

	// While the cursor is open, other commands are rejected.
	_, err = cConn.ExecuteFetch("select 1", 100, true)
	require.Error(t, err)

	fetched, more, err := stmt.Fetch(2)
	require.NoError(t, err)
	require.True(t, more, "expected the cursor to stay open")
	require.Len(t, fetched, 2)
	assert.True(t, sqltypes.RowsEqual(fetched, rows[:2]), "rows mismatch: %v", cmp.Diff(rows[:2], fetched, cmp.AllowUnexported(sqltypes.Value{})))

	fetched, more, err = stmt.Fetch(2)
	require.NoError(t, err)
	require.False(t, more, "expected the cursor to be exhausted")
	require.Len(t, fetched, 1)
	assert.True(t, fetched[0][1].IsNull())

	// Fetching from a closed cursor fails without server interaction.
	_, _, err = stmt.Fetch(2)
	require.Error(t, err)

	require.NoError(t, cConn.Ping())
}

func TestStmtSendLongDataAndReset(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	chunk := []byte("hello, this is a long value")
	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 5, 1, nil)

		// COM_STMT_SEND_LONG_DATA has no reply.
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComStmtSendLongData, data[0])
		r := &coder{data: data, pos: 1}
		stmtID, _ := r.readUint32()
		assert.EqualValues(t, 5, stmtID)
		paramIndex, _ := r.readUint16()
		assert.EqualValues(t, 0, paramIndex)
		assert.Equal(t, chunk, data[r.pos:])

		data = readCommand(t, sConn)
		assert.EqualValues(t, ComStmtReset, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	stmt, err := cConn.Prepare("insert into t values (?)")
	require.NoError(t, err)

	require.NoError(t, stmt.SendLongData(0, chunk))
	require.NoError(t, stmt.Reset())
}

func TestStmtClose(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		servePrepareResponse(t, sConn, 11, 0, nil)

		// COM_STMT_CLOSE has no reply, the next command follows
		// directly.
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComStmtClose, data[0])
		r := &coder{data: data, pos: 1}
		stmtID, _ := r.readUint32()
		assert.EqualValues(t, 11, stmtID)

		data = readCommand(t, sConn)
		assert.EqualValues(t, ComPing, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	stmt, err := cConn.Prepare("select 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Close())
	require.NoError(t, cConn.Ping())
}
