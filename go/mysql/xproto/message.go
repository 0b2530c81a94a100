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
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"mywire.dev/mywire/go/mysql/sqlerror"
)

// This file contains the wire codecs for the few protobuf messages
// this client exchanges. The schemas are small and stable, so they
// are encoded and decoded by hand with protowire instead of
// generated code.

// Error is the Mysqlx.Error message.
type Error struct {
	Severity uint64
	Code     uint32
	SQLState string
	Msg      string
}

// Fatal returns true if the server will close the session after this
// error.
func (e *Error) Fatal() bool {
	return e.Severity == 1
}

func parseError(body []byte) (*Error, error) {
	e := &Error{}
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 1: // severity
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			e.Severity = v
		case 2: // code
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			e.Code = uint32(v)
		case 3: // msg
			e.Msg = string(value)
		case 4: // sql_state
			e.SQLState = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// toSQLError converts a server Error message into the error type the
// classic protocol package uses, so callers see one taxonomy.
func (e *Error) toSQLError() error {
	state := e.SQLState
	if state == "" {
		state = sqlerror.SSUnknownSQLState
	}
	return sqlerror.NewSQLError(sqlerror.ErrorCode(e.Code), state, "%v", e.Msg)
}

// authenticateStart encodes Mysqlx.Session.AuthenticateStart.
func authenticateStart(mechName string, authData []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, mechName)
	if authData != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, authData)
	}
	return b
}

// authenticateContinue encodes Mysqlx.Session.AuthenticateContinue.
func authenticateContinue(authData []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, authData)
	return b
}

// parseAuthData extracts auth_data from AuthenticateContinue and
// AuthenticateOk, which share the same single-field schema.
func parseAuthData(body []byte) ([]byte, error) {
	var authData []byte
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num == 1 {
			authData = value
		}
		return nil
	})
	return authData, err
}

// capabilitiesSet encodes Mysqlx.Connection.CapabilitiesSet for one
// boolean capability.
func capabilitiesSet(name string, value bool) []byte {
	// Capability.value: Any{type: SCALAR, scalar: Scalar{type: BOOL, v_bool: value}}
	var scalar []byte
	scalar = protowire.AppendTag(scalar, 1, protowire.VarintType)
	scalar = protowire.AppendVarint(scalar, scalarBool)
	scalar = protowire.AppendTag(scalar, 8, protowire.VarintType)
	if value {
		scalar = protowire.AppendVarint(scalar, 1)
	} else {
		scalar = protowire.AppendVarint(scalar, 0)
	}

	var anyVal []byte
	anyVal = protowire.AppendTag(anyVal, 1, protowire.VarintType)
	anyVal = protowire.AppendVarint(anyVal, anyScalar)
	anyVal = protowire.AppendTag(anyVal, 2, protowire.BytesType)
	anyVal = protowire.AppendBytes(anyVal, scalar)

	var capability []byte
	capability = protowire.AppendTag(capability, 1, protowire.BytesType)
	capability = protowire.AppendString(capability, name)
	capability = protowire.AppendTag(capability, 2, protowire.BytesType)
	capability = protowire.AppendBytes(capability, anyVal)

	var capabilities []byte
	capabilities = protowire.AppendTag(capabilities, 1, protowire.BytesType)
	capabilities = protowire.AppendBytes(capabilities, capability)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, capabilities)
	return b
}

// parseCapabilities decodes Mysqlx.Connection.Capabilities into a
// name to scalar value map.
func parseCapabilities(body []byte) (map[string]any, error) {
	caps := make(map[string]any)
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num != 1 {
			return nil
		}
		var name string
		var capValue any
		err := eachField(value, func(num protowire.Number, typ protowire.Type, value []byte) error {
			switch num {
			case 1: // name
				name = string(value)
			case 2: // value, an Any
				v, err := parseAny(value)
				if err != nil {
					return err
				}
				capValue = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		if name != "" {
			caps[name] = capValue
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return caps, nil
}

// parseAny decodes Mysqlx.Datatypes.Any. Scalars become Go values,
// arrays become []any. Objects are not used in capabilities and come
// back as nil.
func parseAny(body []byte) (any, error) {
	var result any
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 2: // scalar
			v, err := parseScalar(value)
			if err != nil {
				return err
			}
			result = v
		case 4: // array, repeated Any in field 1
			var values []any
			err := eachField(value, func(num protowire.Number, typ protowire.Type, value []byte) error {
				if num != 1 {
					return nil
				}
				v, err := parseAny(value)
				if err != nil {
					return err
				}
				values = append(values, v)
				return nil
			})
			if err != nil {
				return err
			}
			result = values
		}
		return nil
	})
	return result, err
}

// parseScalar decodes Mysqlx.Datatypes.Scalar.
func parseScalar(body []byte) (any, error) {
	var scalarType uint64
	var result any
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 1: // type
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			scalarType = v
		case 2: // v_signed_int
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			result = protowire.DecodeZigZag(v)
		case 3: // v_unsigned_int
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			result = v
		case 5, 9: // v_octets / v_string, value in field 1
			return eachField(value, func(num protowire.Number, typ protowire.Type, value []byte) error {
				if num == 1 {
					result = string(value)
				}
				return nil
			})
		case 6: // v_double
			v, n := protowire.ConsumeFixed64(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			result = math.Float64frombits(v)
		case 7: // v_float
			v, n := protowire.ConsumeFixed32(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			result = math.Float32frombits(v)
		case 8: // v_bool
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			result = v != 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if scalarType == scalarNull {
		return nil, nil
	}
	return result, nil
}

// stmtExecute encodes Mysqlx.Sql.StmtExecute for the "sql" namespace.
func stmtExecute(stmt string, args [][]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, "sql")
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, stmt)
	for _, arg := range args {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, arg)
	}
	return b
}

// columnMetaData is the Mysqlx.Resultset.ColumnMetaData message.
type columnMetaData struct {
	FieldType        uint64
	Name             string
	OriginalName     string
	Table            string
	OriginalTable    string
	Schema           string
	Collation        uint64
	FractionalDigits uint32
	Length           uint32
	Flags            uint32
	ContentType      uint32
}

func parseColumnMetaData(body []byte) (*columnMetaData, error) {
	col := &columnMetaData{}
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		varint := func() (uint64, error) {
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			return v, nil
		}
		var err error
		var v uint64
		switch num {
		case 1:
			col.FieldType, err = varint()
		case 2:
			col.Name = string(value)
		case 3:
			col.OriginalName = string(value)
		case 4:
			col.Table = string(value)
		case 5:
			col.OriginalTable = string(value)
		case 6:
			col.Schema = string(value)
		case 8:
			col.Collation, err = varint()
		case 9:
			v, err = varint()
			col.FractionalDigits = uint32(v)
		case 10:
			v, err = varint()
			col.Length = uint32(v)
		case 11:
			v, err = varint()
			col.Flags = uint32(v)
		case 12:
			v, err = varint()
			col.ContentType = uint32(v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// parseRowFields decodes Mysqlx.Resultset.Row into its raw field
// payloads. A zero-length payload is SQL NULL.
func parseRowFields(body []byte) ([][]byte, error) {
	var fields [][]byte
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num == 1 {
			fields = append(fields, value)
		}
		return nil
	})
	return fields, err
}

// notice is the decoded Mysqlx.Notice.Frame message.
type notice struct {
	Type    uint64
	Scope   uint64
	Payload []byte
}

func parseNotice(body []byte) (*notice, error) {
	// scope defaults to GLOBAL(1) when absent.
	n := &notice{Scope: 1}
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 1:
			v, l := protowire.ConsumeVarint(value)
			if l < 0 {
				return protowire.ParseError(l)
			}
			n.Type = v
		case 2:
			v, l := protowire.ConsumeVarint(value)
			if l < 0 {
				return protowire.ParseError(l)
			}
			n.Scope = v
		case 3:
			n.Payload = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// sessionStateChanged is the decoded
// Mysqlx.Notice.SessionStateChanged message. Value holds the first
// value of the notice, decoded from its Scalar.
type sessionStateChanged struct {
	Param uint64
	Value any
}

func parseSessionStateChanged(body []byte) (*sessionStateChanged, error) {
	s := &sessionStateChanged{}
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			s.Param = v
		case 2:
			if s.Value != nil {
				return nil
			}
			v, err := parseScalar(value)
			if err != nil {
				return err
			}
			s.Value = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// warning is the decoded Mysqlx.Notice.Warning message.
type warning struct {
	Level uint64
	Code  uint32
	Msg   string
}

func parseWarning(body []byte) (*warning, error) {
	w := &warning{}
	err := eachField(body, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.Level = v
		case 2:
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w.Code = uint32(v)
		case 3:
			w.Msg = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// eachField walks the top-level fields of a protobuf message and
// calls fn once per field. For varint and fixed fields, value is the
// undecoded field bytes. For bytes fields, value is the field payload
// with the length prefix removed.
func eachField(body []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return fmt.Errorf("invalid protobuf tag: %v", protowire.ParseError(n))
		}
		body = body[n:]

		var value []byte
		switch typ {
		case protowire.VarintType:
			_, n = protowire.ConsumeVarint(body)
		case protowire.Fixed32Type:
			_, n = protowire.ConsumeFixed32(body)
		case protowire.Fixed64Type:
			_, n = protowire.ConsumeFixed64(body)
		case protowire.BytesType:
			value, n = protowire.ConsumeBytes(body)
		default:
			return fmt.Errorf("unsupported protobuf wire type %v for field %v", typ, num)
		}
		if n < 0 {
			return fmt.Errorf("invalid protobuf field %v: %v", num, protowire.ParseError(n))
		}
		if typ != protowire.BytesType {
			value = body[:n]
		}
		if err := fn(num, typ, value); err != nil {
			return err
		}
		body = body[n:]
	}
	return nil
}
