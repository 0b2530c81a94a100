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
	"math"
	"strconv"
	"strings"

	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
)

// This file contains the encoding and decoding of the binary rows
// used by the prepared statement protocol.
// See http://dev.mysql.com/doc/internals/en/binary-protocol-resultset.html

// parseBinaryRow parses one row of a binary resultset.
// Returns a SQLError.
func parseBinaryRow(data []byte, fields []*sqltypes.Field, result []sqltypes.Value) ([]sqltypes.Value, error) {
	colNumber := len(fields)
	if result == nil {
		result = make([]sqltypes.Value, 0, colNumber)
	}

	// The row starts with a 0x00 header byte.
	header, pos, ok := readByte(data, 0)
	if !ok || header != OKPacket {
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "binary row has no header: %v", data)
	}

	// NULL bitmap, with a two bit offset for the reserved bits.
	nullBitmap, pos, ok := readBytes(data, pos, (colNumber+7+2)/8)
	if !ok {
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "binary row is missing its NULL bitmap: %v", data)
	}

	for i := 0; i < colNumber; i++ {
		byteIndex := (i + 2) / 8
		bitIndex := (i + 2) % 8
		if nullBitmap[byteIndex]&(1<<uint(bitIndex)) > 0 {
			result = append(result, sqltypes.Value{})
			continue
		}

		v, newPos, err := readBinaryValue(data, pos, fields[i])
		if err != nil {
			return nil, err
		}
		result = append(result, v)
		pos = newPos
	}
	if pos != len(data) {
		return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "binary row has %v extra bytes", len(data)-pos)
	}
	return result, nil
}

// readBinaryValue decodes one non-NULL value of a binary row, and
// converts it to the canonical text representation MySQL would use in
// the text protocol.
func readBinaryValue(data []byte, pos int, field *sqltypes.Field) (sqltypes.Value, int, error) {
	fail := func(what string) (sqltypes.Value, int, error) {
		return sqltypes.Value{}, 0, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "binary row value for %v column %v is truncated", what, field.Name)
	}

	switch field.Type {
	case sqltypes.Int8:
		val, pos, ok := readByte(data, pos)
		if !ok {
			return fail("int8")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendInt(nil, int64(int8(val)), 10)), pos, nil
	case sqltypes.Uint8:
		val, pos, ok := readByte(data, pos)
		if !ok {
			return fail("uint8")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendUint(nil, uint64(val), 10)), pos, nil
	case sqltypes.Int16, sqltypes.Year:
		val, pos, ok := readUint16(data, pos)
		if !ok {
			return fail("int16")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendInt(nil, int64(int16(val)), 10)), pos, nil
	case sqltypes.Uint16:
		val, pos, ok := readUint16(data, pos)
		if !ok {
			return fail("uint16")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendUint(nil, uint64(val), 10)), pos, nil
	case sqltypes.Int24, sqltypes.Int32:
		val, pos, ok := readUint32(data, pos)
		if !ok {
			return fail("int32")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendInt(nil, int64(int32(val)), 10)), pos, nil
	case sqltypes.Uint24, sqltypes.Uint32:
		val, pos, ok := readUint32(data, pos)
		if !ok {
			return fail("uint32")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendUint(nil, uint64(val), 10)), pos, nil
	case sqltypes.Int64:
		val, pos, ok := readUint64(data, pos)
		if !ok {
			return fail("int64")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendInt(nil, int64(val), 10)), pos, nil
	case sqltypes.Uint64:
		val, pos, ok := readUint64(data, pos)
		if !ok {
			return fail("uint64")
		}
		return sqltypes.MakeTrusted(field.Type, strconv.AppendUint(nil, val, 10)), pos, nil
	case sqltypes.Float32:
		val, pos, ok := readUint32(data, pos)
		if !ok {
			return fail("float32")
		}
		fval := math.Float32frombits(val)
		return sqltypes.MakeTrusted(field.Type, strconv.AppendFloat(nil, float64(fval), 'g', -1, 32)), pos, nil
	case sqltypes.Float64:
		val, pos, ok := readUint64(data, pos)
		if !ok {
			return fail("float64")
		}
		fval := math.Float64frombits(val)
		return sqltypes.MakeTrusted(field.Type, strconv.AppendFloat(nil, fval, 'g', -1, 64)), pos, nil
	case sqltypes.Date, sqltypes.Datetime, sqltypes.Timestamp:
		size, pos, ok := readByte(data, pos)
		if !ok {
			return fail("date")
		}
		v, pos, err := readBinaryDatetime(data, pos, int(size), field)
		if err != nil {
			return sqltypes.Value{}, 0, err
		}
		return v, pos, nil
	case sqltypes.Time:
		size, pos, ok := readByte(data, pos)
		if !ok {
			return fail("time")
		}
		v, pos, err := readBinaryTime(data, pos, int(size), field)
		if err != nil {
			return sqltypes.Value{}, 0, err
		}
		return v, pos, nil
	default:
		// All other types are sent as length encoded bytes:
		// Decimal, Text, Blob, VarChar, VarBinary, Char, Binary,
		// Bit, Enum, Set, Geometry and Json.
		val, pos, ok := readLenEncStringAsBytesCopy(data, pos)
		if !ok {
			return fail("string")
		}
		return sqltypes.MakeTrusted(field.Type, val), pos, nil
	}
}

// readBinaryDatetime decodes the fixed part of a DATE, DATETIME or
// TIMESTAMP value. The size byte is 0 for the zero value, 4 for a
// date, 7 with the time and 11 with microseconds.
func readBinaryDatetime(data []byte, pos int, size int, field *sqltypes.Field) (sqltypes.Value, int, error) {
	var year uint16
	var month, day, hour, minute, second byte
	var microSecond uint32
	var ok bool

	switch size {
	case 0:
		// Zero value.
	case 11:
		microSecond, _, ok = readUint32(data, pos+7)
		if !ok {
			return malformedBinaryTemporal(field)
		}
		fallthrough
	case 7:
		hour, _, _ = readByte(data, pos+4)
		minute, _, _ = readByte(data, pos+5)
		second, _, ok = readByte(data, pos+6)
		if !ok {
			return malformedBinaryTemporal(field)
		}
		fallthrough
	case 4:
		year, _, _ = readUint16(data, pos)
		month, _, _ = readByte(data, pos+2)
		day, _, ok = readByte(data, pos+3)
		if !ok {
			return malformedBinaryTemporal(field)
		}
	default:
		return malformedBinaryTemporal(field)
	}

	val := &strings.Builder{}
	fmt.Fprintf(val, "%04d-%02d-%02d", year, month, day)
	if field.Type != sqltypes.Date {
		fmt.Fprintf(val, " %02d:%02d:%02d", hour, minute, second)
		if size == 11 {
			fmt.Fprintf(val, ".%06d", microSecond)
		}
	}
	return sqltypes.MakeTrusted(field.Type, []byte(val.String())), pos + size, nil
}

// readBinaryTime decodes a TIME value. The size byte is 0 for the
// zero value, 8 without and 12 with microseconds. The hours can
// exceed a day, and the value can be negative.
func readBinaryTime(data []byte, pos int, size int, field *sqltypes.Field) (sqltypes.Value, int, error) {
	var isNegative byte
	var days uint32
	var hour, minute, second byte
	var microSecond uint32
	var ok bool

	switch size {
	case 0:
		// Zero value.
	case 12:
		microSecond, _, ok = readUint32(data, pos+8)
		if !ok {
			return malformedBinaryTemporal(field)
		}
		fallthrough
	case 8:
		isNegative, _, _ = readByte(data, pos)
		days, _, _ = readUint32(data, pos+1)
		hour, _, _ = readByte(data, pos+5)
		minute, _, _ = readByte(data, pos+6)
		second, _, ok = readByte(data, pos+7)
		if !ok {
			return malformedBinaryTemporal(field)
		}
	default:
		return malformedBinaryTemporal(field)
	}

	val := &strings.Builder{}
	if isNegative == 1 {
		val.WriteByte('-')
	}
	fmt.Fprintf(val, "%02d:%02d:%02d", uint32(hour)+days*24, minute, second)
	if size == 12 {
		fmt.Fprintf(val, ".%06d", microSecond)
	}
	return sqltypes.MakeTrusted(field.Type, []byte(val.String())), pos + size, nil
}

func malformedBinaryTemporal(field *sqltypes.Field) (sqltypes.Value, int, error) {
	return sqltypes.Value{}, 0, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "binary row temporal value for column %v is malformed", field.Name)
}

//
// Parameter encoding, the other direction of the same codec.
//

// val2MySQLLen returns the length of the encoded value as computed by
// val2MySQL, so the packet can be allocated up front.
func val2MySQLLen(v sqltypes.Value) (int, error) {
	switch v.Type() {
	case sqltypes.Null:
		return 0, nil
	case sqltypes.Int8, sqltypes.Uint8:
		return 1, nil
	case sqltypes.Int16, sqltypes.Uint16, sqltypes.Year:
		return 2, nil
	case sqltypes.Int24, sqltypes.Int32, sqltypes.Uint24, sqltypes.Uint32, sqltypes.Float32:
		return 4, nil
	case sqltypes.Int64, sqltypes.Uint64, sqltypes.Float64:
		return 8, nil
	case sqltypes.Timestamp, sqltypes.Date, sqltypes.Datetime:
		size, err := binaryDatetimeSize(v.ToString())
		return size + 1, err
	case sqltypes.Time:
		size, err := binaryTimeSize(v.ToString())
		return size + 1, err
	default:
		return lenEncStringSize(v.ToString()), nil
	}
}

// val2MySQL encodes one value the way COM_STMT_EXECUTE transmits it.
func val2MySQL(v sqltypes.Value) ([]byte, error) {
	var out []byte
	pos := 0
	switch v.Type() {
	case sqltypes.Null:
		// No-op, NULL is communicated in the bitmap.
	case sqltypes.Int8:
		val, err := strconv.ParseInt(v.ToString(), 10, 8)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 1)
		writeByte(out, pos, byte(val))
	case sqltypes.Uint8:
		val, err := strconv.ParseUint(v.ToString(), 10, 8)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 1)
		writeByte(out, pos, byte(val))
	case sqltypes.Int16, sqltypes.Year:
		val, err := strconv.ParseInt(v.ToString(), 10, 16)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 2)
		writeUint16(out, pos, uint16(val))
	case sqltypes.Uint16:
		val, err := strconv.ParseUint(v.ToString(), 10, 16)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 2)
		writeUint16(out, pos, uint16(val))
	case sqltypes.Int24, sqltypes.Int32:
		val, err := strconv.ParseInt(v.ToString(), 10, 32)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 4)
		writeUint32(out, pos, uint32(val))
	case sqltypes.Uint24, sqltypes.Uint32:
		val, err := strconv.ParseUint(v.ToString(), 10, 32)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 4)
		writeUint32(out, pos, uint32(val))
	case sqltypes.Int64:
		val, err := strconv.ParseInt(v.ToString(), 10, 64)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 8)
		writeUint64(out, pos, uint64(val))
	case sqltypes.Uint64:
		val, err := strconv.ParseUint(v.ToString(), 10, 64)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 8)
		writeUint64(out, pos, val)
	case sqltypes.Float32:
		val, err := strconv.ParseFloat(v.ToString(), 32)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 4)
		writeUint32(out, pos, math.Float32bits(float32(val)))
	case sqltypes.Float64:
		val, err := strconv.ParseFloat(v.ToString(), 64)
		if err != nil {
			return nil, err
		}
		out = make([]byte, 8)
		writeUint64(out, pos, math.Float64bits(val))
	case sqltypes.Timestamp, sqltypes.Date, sqltypes.Datetime:
		var err error
		out, err = binaryDatetime(v.ToString())
		if err != nil {
			return nil, err
		}
	case sqltypes.Time:
		var err error
		out, err = binaryTime(v.ToString())
		if err != nil {
			return nil, err
		}
	default:
		s := v.ToString()
		out = make([]byte, lenEncStringSize(s))
		writeLenEncString(out, pos, s)
	}
	return out, nil
}

// binaryDatetimeSize returns the size byte a DATE / DATETIME /
// TIMESTAMP value will use on the wire, based on its text form.
func binaryDatetimeSize(val string) (int, error) {
	if isZeroTemporal(val) {
		return 0, nil
	}
	switch {
	case strings.ContainsRune(val, '.'):
		return 11, nil
	case strings.ContainsRune(val, ' '):
		return 7, nil
	default:
		return 4, nil
	}
}

// binaryDatetime encodes a canonical "YYYY-MM-DD[ HH:MM:SS[.ffffff]]"
// string, length byte included.
func binaryDatetime(val string) ([]byte, error) {
	size, err := binaryDatetimeSize(val)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+size)
	out[0] = byte(size)
	if size == 0 {
		return out, nil
	}

	datePart := val
	timePart := ""
	if i := strings.IndexByte(val, ' '); i >= 0 {
		datePart = val[:i]
		timePart = val[i+1:]
	}

	d := strings.Split(datePart, "-")
	if len(d) != 3 {
		return nil, fmt.Errorf("incorrect DATE value: '%v'", val)
	}
	year, err := strconv.ParseUint(d[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATE value: '%v'", val)
	}
	month, err := strconv.ParseUint(d[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATE value: '%v'", val)
	}
	day, err := strconv.ParseUint(d[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATE value: '%v'", val)
	}
	pos := writeUint16(out, 1, uint16(year))
	pos = writeByte(out, pos, byte(month))
	pos = writeByte(out, pos, byte(day))

	if size == 4 {
		return out, nil
	}

	micro := ""
	if i := strings.IndexByte(timePart, '.'); i >= 0 {
		micro = timePart[i+1:]
		timePart = timePart[:i]
	}
	t := strings.Split(timePart, ":")
	if len(t) != 3 {
		return nil, fmt.Errorf("incorrect DATETIME value: '%v'", val)
	}
	hour, err := strconv.ParseUint(t[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATETIME value: '%v'", val)
	}
	minute, err := strconv.ParseUint(t[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATETIME value: '%v'", val)
	}
	second, err := strconv.ParseUint(t[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect DATETIME value: '%v'", val)
	}
	pos = writeByte(out, pos, byte(hour))
	pos = writeByte(out, pos, byte(minute))
	pos = writeByte(out, pos, byte(second))

	if size == 11 {
		m, err := strconv.ParseUint(padMicroseconds(micro), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("incorrect DATETIME value: '%v'", val)
		}
		writeUint32(out, pos, uint32(m))
	}
	return out, nil
}

// binaryTimeSize returns the size byte a TIME value will use on the
// wire, based on its text form.
func binaryTimeSize(val string) (int, error) {
	if val == "" || val == "00:00:00" {
		return 0, nil
	}
	if strings.ContainsRune(val, '.') {
		return 12, nil
	}
	return 8, nil
}

// binaryTime encodes a canonical "[-]H:MM:SS[.ffffff]" string, length
// byte included. The hours can exceed a day.
func binaryTime(val string) ([]byte, error) {
	size, err := binaryTimeSize(val)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+size)
	out[0] = byte(size)
	if size == 0 {
		return out, nil
	}

	pos := 1
	if val[0] == '-' {
		pos = writeByte(out, pos, 1)
		val = val[1:]
	} else {
		pos = writeByte(out, pos, 0)
	}

	micro := ""
	if i := strings.IndexByte(val, '.'); i >= 0 {
		micro = val[i+1:]
		val = val[:i]
	}
	t := strings.Split(val, ":")
	if len(t) != 3 {
		return nil, fmt.Errorf("incorrect TIME value: '%v'", val)
	}
	hours, err := strconv.ParseUint(t[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("incorrect TIME value: '%v'", val)
	}
	minute, err := strconv.ParseUint(t[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect TIME value: '%v'", val)
	}
	second, err := strconv.ParseUint(t[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("incorrect TIME value: '%v'", val)
	}
	days := hours / 24
	pos = writeUint32(out, pos, uint32(days))
	pos = writeByte(out, pos, byte(hours-days*24))
	pos = writeByte(out, pos, byte(minute))
	pos = writeByte(out, pos, byte(second))

	if size == 12 {
		m, err := strconv.ParseUint(padMicroseconds(micro), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("incorrect TIME value: '%v'", val)
		}
		writeUint32(out, pos, uint32(m))
	}
	return out, nil
}

// isZeroTemporal returns true for the MySQL zero date values.
func isZeroTemporal(val string) bool {
	switch val {
	case "", "0000-00-00", "0000-00-00 00:00:00":
		return true
	}
	return false
}

// padMicroseconds right-pads a fractional second part to a
// microsecond count, so ".5" becomes 500000.
func padMicroseconds(micro string) string {
	const width = 6
	if len(micro) >= width {
		return micro[:width]
	}
	return micro + strings.Repeat("0", width-len(micro))
}
