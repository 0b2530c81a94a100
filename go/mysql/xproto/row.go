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
	"bytes"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"mywire.dev/mywire/go/sqltypes"
)

// This file decodes row field payloads. The encoding is per column
// type, described in the Mysqlx.Resultset protobuf schema: numbers
// are protobuf varints or fixed-size floats, temporals are packed
// varint sequences, decimals are packed BCD.

// collationBinary is the id of the binary pseudo-collation. BYTES
// columns with it hold binary data rather than text.
const collationBinary = 63

// fieldToType maps column metadata to the value type the column's
// fields decode to.
func fieldToType(col *columnMetaData) (sqltypes.Type, error) {
	switch col.FieldType {
	case fieldTypeSint:
		return sqltypes.Int64, nil
	case fieldTypeUint:
		// YEAR columns also come across as UINT.
		return sqltypes.Uint64, nil
	case fieldTypeDouble:
		return sqltypes.Float64, nil
	case fieldTypeFloat:
		return sqltypes.Float32, nil
	case fieldTypeBytes:
		switch {
		case col.ContentType == contentTypeJSON:
			return sqltypes.TypeJSON, nil
		case col.ContentType == contentTypeGeometry:
			return sqltypes.Geometry, nil
		case col.Collation == collationBinary:
			return sqltypes.VarBinary, nil
		default:
			return sqltypes.VarChar, nil
		}
	case fieldTypeTime:
		return sqltypes.Time, nil
	case fieldTypeDatetime:
		if col.ContentType == contentTypeDate {
			return sqltypes.Date, nil
		}
		if col.Flags&columnFlagTimestamp != 0 {
			return sqltypes.Timestamp, nil
		}
		return sqltypes.Datetime, nil
	case fieldTypeSet:
		return sqltypes.Set, nil
	case fieldTypeEnum:
		return sqltypes.Enum, nil
	case fieldTypeBit:
		return sqltypes.Bit, nil
	case fieldTypeDecimal:
		return sqltypes.Decimal, nil
	}
	return sqltypes.Null, fmt.Errorf("unknown column field type %v for column %v", col.FieldType, col.Name)
}

// decodeRowField decodes one raw field payload into a Value of the
// given type. An empty payload is SQL NULL.
func decodeRowField(data []byte, typ sqltypes.Type) (sqltypes.Value, error) {
	if len(data) == 0 {
		return sqltypes.NULL, nil
	}
	switch typ {
	case sqltypes.Int64:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return sqltypes.NULL, protowire.ParseError(n)
		}
		return sqltypes.MakeTrusted(typ, strconv.AppendInt(nil, protowire.DecodeZigZag(v), 10)), nil
	case sqltypes.Uint64, sqltypes.Year, sqltypes.Bit:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return sqltypes.NULL, protowire.ParseError(n)
		}
		return sqltypes.MakeTrusted(typ, strconv.AppendUint(nil, v, 10)), nil
	case sqltypes.Float64:
		v, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return sqltypes.NULL, protowire.ParseError(n)
		}
		return sqltypes.MakeTrusted(typ, strconv.AppendFloat(nil, math.Float64frombits(v), 'g', -1, 64)), nil
	case sqltypes.Float32:
		v, n := protowire.ConsumeFixed32(data)
		if n < 0 {
			return sqltypes.NULL, protowire.ParseError(n)
		}
		return sqltypes.MakeTrusted(typ, strconv.AppendFloat(nil, float64(math.Float32frombits(v)), 'g', -1, 32)), nil
	case sqltypes.VarChar, sqltypes.VarBinary, sqltypes.TypeJSON, sqltypes.Geometry, sqltypes.Enum:
		// Text payloads carry a trailing zero byte, so an empty
		// string is distinguishable from NULL.
		if data[len(data)-1] != 0 {
			return sqltypes.NULL, fmt.Errorf("text field payload is missing its zero terminator")
		}
		return sqltypes.MakeTrusted(typ, data[:len(data)-1]), nil
	case sqltypes.Set:
		v, err := decodeSet(data)
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.MakeTrusted(typ, v), nil
	case sqltypes.Time:
		v, err := decodeTime(data)
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.MakeTrusted(typ, v), nil
	case sqltypes.Date, sqltypes.Datetime, sqltypes.Timestamp:
		v, err := decodeDatetime(data, typ == sqltypes.Date)
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.MakeTrusted(typ, v), nil
	case sqltypes.Decimal:
		v, err := decodeDecimal(data)
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.MakeTrusted(typ, v), nil
	}
	return sqltypes.NULL, fmt.Errorf("cannot decode a field of type %v", typ)
}

// varints splits a payload into its varint sequence.
func varints(data []byte) ([]uint64, error) {
	var out []uint64
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, v)
		data = data[n:]
	}
	return out, nil
}

// decodeTime decodes a TIME payload: a negate byte then hour, minute,
// second and microsecond varints, trailing zeroes omitted.
func decodeTime(data []byte) ([]byte, error) {
	negate := data[0] != 0
	parts, err := varints(data[1:])
	if err != nil || len(parts) > 4 {
		return nil, fmt.Errorf("invalid TIME field payload")
	}
	for len(parts) < 4 {
		parts = append(parts, 0)
	}
	val := fmt.Sprintf("%02d:%02d:%02d", parts[0], parts[1], parts[2])
	if negate {
		val = "-" + val
	}
	if parts[3] > 0 {
		val += fmt.Sprintf(".%06d", parts[3])
	}
	return []byte(val), nil
}

// decodeDatetime decodes a DATETIME payload: year, month, day and
// optional hour, minute, second, microsecond varints.
func decodeDatetime(data []byte, dateOnly bool) ([]byte, error) {
	parts, err := varints(data)
	if err != nil || len(parts) < 3 || len(parts) > 7 {
		return nil, fmt.Errorf("invalid DATETIME field payload")
	}
	for len(parts) < 7 {
		parts = append(parts, 0)
	}
	if dateOnly {
		return []byte(fmt.Sprintf("%04d-%02d-%02d", parts[0], parts[1], parts[2])), nil
	}
	val := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", parts[0], parts[1], parts[2], parts[3], parts[4], parts[5])
	if parts[6] > 0 {
		val += fmt.Sprintf(".%06d", parts[6])
	}
	return []byte(val), nil
}

// decodeDecimal decodes a DECIMAL payload: a scale byte, then BCD
// digits, then a sign nibble (0xc positive, 0xd negative), nibble
// padded with 0x0 to a byte boundary.
func decodeDecimal(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("invalid DECIMAL field payload")
	}
	scale := int(data[0])
	var digits []byte
	sign := byte(0)
	for _, b := range data[1:] {
		for _, nibble := range []byte{b >> 4, b & 0x0f} {
			switch {
			case sign != 0:
				// Only a zero pad nibble may follow the sign.
				if nibble != 0 {
					return nil, fmt.Errorf("invalid DECIMAL field payload: data after the sign nibble")
				}
			case nibble <= 9:
				digits = append(digits, '0'+nibble)
			case nibble == 0xc || nibble == 0xd:
				sign = nibble
			default:
				return nil, fmt.Errorf("invalid DECIMAL field payload: bad nibble %x", nibble)
			}
		}
	}
	if sign == 0 || scale > len(digits) {
		return nil, fmt.Errorf("invalid DECIMAL field payload")
	}
	var out []byte
	if sign == 0xd {
		out = append(out, '-')
	}
	out = append(out, digits[:len(digits)-scale]...)
	if scale > 0 {
		out = append(out, '.')
		out = append(out, digits[len(digits)-scale:]...)
	}
	return out, nil
}

// decodeSet decodes a SET payload: length-prefixed member strings.
// A lone 0x01 byte is the set holding one empty string, and a lone
// 0x00 is the empty set.
func decodeSet(data []byte) ([]byte, error) {
	if len(data) == 1 {
		switch data[0] {
		case 0x00, 0x01:
			return []byte{}, nil
		}
	}
	var members [][]byte
	for len(data) > 0 {
		length := int(data[0])
		data = data[1:]
		if length > len(data) {
			return nil, fmt.Errorf("invalid SET field payload")
		}
		members = append(members, data[:length])
		data = data[length:]
	}
	return bytes.Join(members, []byte(",")), nil
}
