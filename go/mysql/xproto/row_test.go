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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"mywire.dev/mywire/go/sqltypes"
)

func TestFieldToType(t *testing.T) {
	testcases := []struct {
		name string
		col  columnMetaData
		want sqltypes.Type
	}{
		{"sint", columnMetaData{FieldType: fieldTypeSint}, sqltypes.Int64},
		{"uint", columnMetaData{FieldType: fieldTypeUint}, sqltypes.Uint64},
		{"double", columnMetaData{FieldType: fieldTypeDouble}, sqltypes.Float64},
		{"float", columnMetaData{FieldType: fieldTypeFloat}, sqltypes.Float32},
		{"varchar", columnMetaData{FieldType: fieldTypeBytes, Collation: 255}, sqltypes.VarChar},
		{"varbinary", columnMetaData{FieldType: fieldTypeBytes, Collation: collationBinary}, sqltypes.VarBinary},
		{"json", columnMetaData{FieldType: fieldTypeBytes, ContentType: contentTypeJSON}, sqltypes.TypeJSON},
		{"geometry", columnMetaData{FieldType: fieldTypeBytes, ContentType: contentTypeGeometry}, sqltypes.Geometry},
		{"time", columnMetaData{FieldType: fieldTypeTime}, sqltypes.Time},
		{"datetime", columnMetaData{FieldType: fieldTypeDatetime}, sqltypes.Datetime},
		{"date", columnMetaData{FieldType: fieldTypeDatetime, ContentType: contentTypeDate}, sqltypes.Date},
		{"timestamp", columnMetaData{FieldType: fieldTypeDatetime, Flags: columnFlagTimestamp}, sqltypes.Timestamp},
		{"set", columnMetaData{FieldType: fieldTypeSet}, sqltypes.Set},
		{"enum", columnMetaData{FieldType: fieldTypeEnum}, sqltypes.Enum},
		{"bit", columnMetaData{FieldType: fieldTypeBit}, sqltypes.Bit},
		{"decimal", columnMetaData{FieldType: fieldTypeDecimal}, sqltypes.Decimal},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fieldToType(&tc.col)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := fieldToType(&columnMetaData{FieldType: 99, Name: "mystery"})
	require.Error(t, err)
}

func zigzag(v int64) []byte {
	return protowire.AppendVarint(nil, protowire.EncodeZigZag(v))
}

func varint(v uint64) []byte {
	return protowire.AppendVarint(nil, v)
}

func fixed64(v uint64) []byte {
	return protowire.AppendFixed64(nil, v)
}

func fixed32(v uint32) []byte {
	return protowire.AppendFixed32(nil, v)
}

func TestDecodeRowField(t *testing.T) {
	testcases := []struct {
		name string
		typ  sqltypes.Type
		data []byte
		want string
	}{
		{"sint", sqltypes.Int64, zigzag(-5), "-5"},
		{"sint large", sqltypes.Int64, zigzag(1 << 40), "1099511627776"},
		{"uint", sqltypes.Uint64, varint(300), "300"},
		{"bit", sqltypes.Bit, varint(5), "5"},
		{"double", sqltypes.Float64, fixed64(math.Float64bits(0.5)), "0.5"},
		{"float", sqltypes.Float32, fixed32(math.Float32bits(1.5)), "1.5"},
		{"string", sqltypes.VarChar, []byte("hello\x00"), "hello"},
		{"empty string", sqltypes.VarChar, []byte{0x00}, ""},
		{"time", sqltypes.Time, append([]byte{0x00}, 1, 2, 3), "01:02:03"},
		{"negative time", sqltypes.Time, append([]byte{0x01}, append(varint(838), 59, 58)...), "-838:59:58"},
		{"time micro", sqltypes.Time, append([]byte{0x00}, append([]byte{1, 2, 3}, varint(42)...)...), "01:02:03.000042"},
		{"time short", sqltypes.Time, []byte{0x00, 13}, "13:00:00"},
		{"date", sqltypes.Date, append(varint(2010), 10, 17), "2010-10-17"},
		{"datetime", sqltypes.Datetime, append(varint(2010), 10, 17, 19, 31, 30), "2010-10-17 19:31:30"},
		{"datetime short", sqltypes.Datetime, append(varint(2010), 10, 17), "2010-10-17 00:00:00"},
		{"timestamp micro", sqltypes.Timestamp, append(append(varint(2010), 10, 17, 19, 31, 30), varint(1)...), "2010-10-17 19:31:30.000001"},
		{"decimal", sqltypes.Decimal, []byte{0x02, 0x12, 0x34, 0xc0}, "12.34"},
		{"negative decimal", sqltypes.Decimal, []byte{0x01, 0x57, 0xd0}, "-5.7"},
		{"decimal no scale", sqltypes.Decimal, []byte{0x00, 0x7c}, "7"},
		{"set", sqltypes.Set, []byte{0x03, 'a', 'b', 'c', 0x01, 'd'}, "abc,d"},
		{"empty set", sqltypes.Set, []byte{0x00}, ""},
		{"enum", sqltypes.Enum, []byte("red\x00"), "red"},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			val, err := decodeRowField(tc.data, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, val.ToString())
		})
	}
}

func TestDecodeRowFieldNull(t *testing.T) {
	val, err := decodeRowField(nil, sqltypes.VarChar)
	require.NoError(t, err)
	assert.True(t, val.IsNull())
}

func TestDecodeRowFieldErrors(t *testing.T) {
	testcases := []struct {
		name string
		typ  sqltypes.Type
		data []byte
	}{
		{"string without terminator", sqltypes.VarChar, []byte("hello")},
		{"decimal bad nibble", sqltypes.Decimal, []byte{0x00, 0xff}},
		{"decimal data after sign", sqltypes.Decimal, []byte{0x00, 0xc1}},
		{"decimal missing sign", sqltypes.Decimal, []byte{0x01, 0x12}},
		{"set member overrun", sqltypes.Set, []byte{0x05, 'a'}},
		{"time too many parts", sqltypes.Time, []byte{0x00, 1, 2, 3, 4, 5}},
		{"datetime too short", sqltypes.Datetime, []byte{10, 17}},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeRowField(tc.data, tc.typ)
			require.Error(t, err)
		})
	}
}
