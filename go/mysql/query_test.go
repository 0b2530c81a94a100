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
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

// readCommand reads the next command packet on the server side. The
// client resets its sequence for every command, so the server has to
// as well.
func readCommand(t *testing.T, sConn *Conn) []byte {
	t.Helper()
	sConn.sequence = 0
	data, err := sConn.ReadPacket()
	require.NoError(t, err)
	return data
}

// writeColumnDefinition writes a Column Definition packet for the
// given field.
func writeColumnDefinition(t *testing.T, sConn *Conn, field *sqltypes.Field) {
	t.Helper()
	length := 4 + // lenEncStringSize("def")
		lenEncStringSize(field.Database) +
		lenEncStringSize(field.Table) +
		lenEncStringSize(field.OrgTable) +
		lenEncStringSize(field.Name) +
		lenEncStringSize(field.OrgName) +
		1 + // length of fixed length fields
		2 + // character set
		4 + // column length
		1 + // type
		2 + // flags
		1 + // decimals
		2 // filler

	typ, flags := sqltypes.TypeToMySQL(field.Type)
	if field.Flags != 0 {
		flags = int64(field.Flags)
	}

	data := sConn.startEphemeralPacket(length)
	pos := writeLenEncString(data, 0, "def")
	pos = writeLenEncString(data, pos, field.Database)
	pos = writeLenEncString(data, pos, field.Table)
	pos = writeLenEncString(data, pos, field.OrgTable)
	pos = writeLenEncString(data, pos, field.Name)
	pos = writeLenEncString(data, pos, field.OrgName)
	pos = writeByte(data, pos, 0x0c)
	pos = writeUint16(data, pos, uint16(field.Charset))
	pos = writeUint32(data, pos, field.ColumnLength)
	pos = writeByte(data, pos, typ)
	pos = writeUint16(data, pos, uint16(flags))
	pos = writeByte(data, pos, byte(field.Decimals))
	writeZeroes(data, pos, 2)
	require.NoError(t, sConn.writeEphemeralPacket())
}

// writeTextRow writes one text-protocol row.
func writeTextRow(t *testing.T, sConn *Conn, row []sqltypes.Value) {
	t.Helper()
	length := 0
	for _, val := range row {
		if val.IsNull() {
			length++
		} else {
			length += lenEncStringSize(val.ToString())
		}
	}
	data := sConn.startEphemeralPacket(length)
	pos := 0
	for _, val := range row {
		if val.IsNull() {
			pos = writeByte(data, pos, NullValue)
		} else {
			pos = writeLenEncString(data, pos, val.ToString())
		}
	}
	require.NoError(t, sConn.writeEphemeralPacket())
}

// serveResult writes a full text resultset: column count, column
// definitions, rows and the terminating packet. statusFlags goes out
// on the terminator.
func serveResult(t *testing.T, sConn *Conn, result *sqltypes.Result, statusFlags uint16) {
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
		writeTextRow(t, sConn, row)
	}
	if sConn.Capabilities&CapabilityClientDeprecateEOF == 0 {
		require.NoError(t, sConn.writeEOFPacket(statusFlags, 0))
	} else {
		require.NoError(t, sConn.writeOKPacketWithEOFHeader(&PacketOK{statusFlags: statusFlags}))
	}
}

func sampleResult() *sqltypes.Result {
	return &sqltypes.Result{
		Fields: []*sqltypes.Field{{
			Name:    "id",
			Type:    sqltypes.Int32,
			Charset: CharacterSetBinary,
		}, {
			Name:    "name",
			Type:    sqltypes.VarChar,
			Charset: CharacterSetUtf8mb4,
		}},
		Rows: []sqltypes.Row{
			{sqltypes.NewInt32(10), sqltypes.NewVarChar("nice name")},
			{sqltypes.NewInt32(20), sqltypes.NewVarChar("nicer name")},
			{sqltypes.NewInt32(30), sqltypes.NULL},
		},
	}
}

func TestExecuteFetch(t *testing.T) {
	for _, deprecateEOF := range []bool{false, true} {
		name := "EOF"
		if deprecateEOF {
			name = "DeprecateEOF"
		}
		t.Run(name, func(t *testing.T) {
			listener, sConn, cConn := createSocketPair(t)
			defer func() {
				listener.Close()
				sConn.Close()
				cConn.Close()
			}()
			if deprecateEOF {
				sConn.Capabilities |= CapabilityClientDeprecateEOF
				cConn.Capabilities |= CapabilityClientDeprecateEOF
			}

			want := sampleResult()
			go func() {
				data := readCommand(t, sConn)
				assert.EqualValues(t, ComQuery, data[0])
				assert.Equal(t, "select id, name from t", string(data[1:]))
				serveResult(t, sConn, want, 0)
			}()

			got, err := cConn.ExecuteFetch("select id, name from t", 100, true)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "result mismatch: %v", cmp.Diff(want, got, cmp.AllowUnexported(sqltypes.Value{})))
		})
	}
}

func TestExecuteFetchNoRows(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{
			affectedRows: 7,
			lastInsertID: 123,
			info:         "Rows matched: 7  Changed: 7  Warnings: 0",
		}))
	}()

	result, err := cConn.ExecuteFetch("update t set a = 1", 0, false)
	require.NoError(t, err)
	assert.EqualValues(t, 7, result.RowsAffected)
	assert.EqualValues(t, 123, result.InsertID)
	assert.Empty(t, result.Rows)
}

func TestExecuteFetchMaxRows(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		serveResult(t, sConn, sampleResult(), 0)

		// The connection stays usable after the error.
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComInitDB, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	_, err := cConn.ExecuteFetch("select id, name from t", 2, true)
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.ERClientMaxRowsExceeded, sqlErr.Number())

	require.NoError(t, cConn.InitDB("next_db"))
}

func TestExecuteFetchMultiResults(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	first := sampleResult()
	second := &sqltypes.Result{
		Fields: []*sqltypes.Field{{
			Name:    "count",
			Type:    sqltypes.Int64,
			Charset: CharacterSetBinary,
		}},
		Rows: []sqltypes.Row{{sqltypes.NewInt64(3)}},
	}

	go func() {
		readCommand(t, sConn)
		serveResult(t, sConn, first, ServerMoreResultsExists)
		serveResult(t, sConn, second, 0)
	}()

	got, more, err := cConn.ExecuteFetchMulti("select 1; select 2", 100, true)
	require.NoError(t, err)
	require.True(t, more, "expected more results")
	assert.True(t, got.Equal(first), "first result mismatch: %v", cmp.Diff(first, got, cmp.AllowUnexported(sqltypes.Value{})))

	got, more, _, err = cConn.ReadQueryResult(100, true)
	require.NoError(t, err)
	require.False(t, more, "expected no more results")
	assert.True(t, got.Equal(second), "second result mismatch: %v", cmp.Diff(second, got, cmp.AllowUnexported(sqltypes.Value{})))
}

// TestExecuteFetchDrainsExtraResults makes sure ExecuteFetch reads
// and drops trailing resultsets, so a following command does not see
// them.
func TestExecuteFetchDrainsExtraResults(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		readCommand(t, sConn)
		serveResult(t, sConn, sampleResult(), ServerMoreResultsExists)
		serveResult(t, sConn, sampleResult(), 0)

		data := readCommand(t, sConn)
		assert.EqualValues(t, ComPing, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	result, err := cConn.ExecuteFetch("call some_proc()", 100, true)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)

	require.NoError(t, cConn.Ping())
}

func TestCommandsOutOfSync(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	// Pretend a result was left unread. No server interaction may
	// happen at all.
	cConn.unreadResult = true
	_, err := cConn.ExecuteFetch("select 1", 100, true)
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.CRCommandsOutOfSync, sqlErr.Number())
	cConn.unreadResult = false

	// Nothing may have reached the wire.
	require.NoError(t, sConn.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err = sConn.conn.Read(make([]byte, 1))
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "client bytes reached the server")
}

// TestResultSequenceWraparound reads a response of more than 256
// packets, so the one-byte sequence id wraps around mid-resultset.
func TestResultSequenceWraparound(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	want := &sqltypes.Result{
		Fields: []*sqltypes.Field{{
			Name:    "id",
			Type:    sqltypes.Int32,
			Charset: CharacterSetBinary,
		}},
	}
	for i := 0; i < 300; i++ {
		want.Rows = append(want.Rows, sqltypes.Row{sqltypes.NewInt32(int32(i))})
	}

	go func() {
		readCommand(t, sConn)
		serveResult(t, sConn, want, 0)
	}()

	got, err := cConn.ExecuteFetch("select id from seq", 400, true)
	require.NoError(t, err)
	assert.True(t, got.Equal(want), "result mismatch: %v", cmp.Diff(want, got, cmp.AllowUnexported(sqltypes.Value{})))
}

func TestStreamFetch(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	want := sampleResult()
	go func() {
		readCommand(t, sConn)
		serveResult(t, sConn, want, 0)
	}()

	require.NoError(t, cConn.ExecuteStreamFetch("select id, name from t"))

	fields, err := cConn.Fields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "id", fields[0].Name)

	var rows []sqltypes.Row
	for {
		row, err := cConn.FetchNext(nil)
		require.NoError(t, err)
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	assert.True(t, sqltypes.RowsEqual(rows, want.Rows), "rows mismatch: %v", cmp.Diff(want.Rows, rows, cmp.AllowUnexported(sqltypes.Value{})))

	// The stream is done, the next command is allowed.
	require.Error(t, func() error { _, err := cConn.Fields(); return err }())
}

func TestSetMultiStatements(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComSetOption, data[0])
		option, _, ok := readUint16(data, 1)
		assert.True(t, ok)
		assert.EqualValues(t, 0, option)
		// COM_SET_OPTION historically answers with an EOF packet.
		assert.NoError(t, sConn.writeEOFPacket(0, 0))

		data = readCommand(t, sConn)
		assert.EqualValues(t, ComSetOption, data[0])
		option, _, ok = readUint16(data, 1)
		assert.True(t, ok)
		assert.EqualValues(t, 1, option)
		assert.NoError(t, sConn.writeEOFPacket(0, 0))
	}()

	require.NoError(t, cConn.SetMultiStatements(true))
	assert.NotZero(t, cConn.Capabilities&CapabilityClientMultiStatements)
	require.NoError(t, cConn.SetMultiStatements(false))
	assert.Zero(t, cConn.Capabilities&CapabilityClientMultiStatements)
}

func TestResetConnection(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	go func() {
		data := readCommand(t, sConn)
		assert.EqualValues(t, ComResetConnection, data[0])
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	require.NoError(t, cConn.ResetConnection())
}

func TestSessionStateChangesInResult(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()
	sConn.Capabilities |= CapabilityClientSessionTrack
	cConn.Capabilities |= CapabilityClientSessionTrack

	stateData := string([]byte{
		SessionTrackSchema, 0x05, 0x04, 't', 'e', 's', 't',
	})
	go func() {
		readCommand(t, sConn)
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{
			statusFlags:      ServerSessionStateChanged,
			sessionStateData: stateData,
		}))
	}()

	result, err := cConn.ExecuteFetch("use test", 0, false)
	require.NoError(t, err)
	require.Equal(t, stateData, result.SessionStateChanges)

	changes, err := ParseSessionStateChanges(result.SessionStateChanges)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.EqualValues(t, SessionTrackSchema, changes[0].Type)
	assert.Equal(t, "test", changes[0].Value)
}
