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

// Package xproto is a minimal client for the X Protocol, the
// protobuf-framed protocol the server exposes on port 33060.
//
// It shares the transport conventions of package mysql: a message
// frame is a 4-byte little-endian length (counting the type byte),
// one message-type byte, and a protobuf body. Only capability
// negotiation, authentication and SQL statement execution are
// implemented; the CRUD namespace is not.
package xproto

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"mywire.dev/mywire/go/log"
	"mywire.dev/mywire/go/mysql"
	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/sqltypes"
	"mywire.dev/mywire/go/vttls"
)

// DefaultPort is the port the server listens on for this protocol.
const DefaultPort = 33060

const connBufferSize = 16 * 1024

// Conn is one X Protocol session. Like the classic protocol, a
// session runs one request/response exchange at a time and is not
// safe for concurrent use.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	// ConnectionID is assigned by the server during authentication.
	ConnectionID uint64

	closed atomic.Bool
}

// Connect opens a session: dial, optional TLS upgrade via capability
// negotiation, then authentication.
// Returns a SQLError.
func Connect(ctx context.Context, params *mysql.ConnParams) (*Conn, error) {
	netProto := "tcp"
	addr := ""
	if params.UnixSocket != "" {
		netProto = "unix"
		addr = params.UnixSocket
	} else {
		port := params.Port
		if port == 0 {
			port = DefaultPort
		}
		addr = net.JoinHostPort(params.Host, strconv.Itoa(port))
	}

	if params.ConnectTimeoutMs != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(params.ConnectTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	var d net.Dialer
	tcpConn, err := d.DialContext(ctx, netProto, addr)
	if err != nil {
		if netProto == "tcp" {
			return nil, sqlerror.NewSQLError(sqlerror.CRConnHostError, sqlerror.SSUnknownSQLState, "net.Dial(%v) failed: %v", addr, err)
		}
		return nil, sqlerror.NewSQLError(sqlerror.CRConnectionError, sqlerror.SSUnknownSQLState, "net.Dial(%v) to local server failed: %v", addr, err)
	}

	c := &Conn{
		conn:   tcpConn,
		reader: bufio.NewReaderSize(tcpConn, connBufferSize),
	}

	if params.SslEnabled() {
		if err := c.upgradeTLS(params); err != nil {
			c.Close()
			return nil, err
		}
	}

	if err := c.authenticate(params); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// upgradeTLS sets the "tls" capability and wraps the transport.
func (c *Conn) upgradeTLS(params *mysql.ConnParams) error {
	if err := c.CapabilitiesSet("tls", true); err != nil {
		if sqlErr, ok := err.(*sqlerror.SQLError); ok && !params.SslRequired() {
			log.Warningf("server refused the tls capability, continuing in clear: %v", sqlErr)
			return nil
		}
		return err
	}

	serverName := params.ServerName
	if serverName == "" {
		serverName = params.Host
	}
	tlsVersion, err := vttls.TLSVersionToNumber(params.TLSMinVersion)
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "error parsing minimal TLS version: %v", err)
	}
	clientConfig, err := vttls.ClientConfig(params.EffectiveSslMode(), params.SslCert, params.SslKey, params.SslCa, params.Host, serverName)
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "error loading client cert and ca: %v", err)
	}
	clientConfig.MinVersion = tlsVersion
	tlsConn := tls.Client(c.conn, clientConfig)
	if err := tlsConn.Handshake(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "TLS handshake failed: %v", err)
	}
	c.conn = tlsConn
	c.reader.Reset(tlsConn)
	return nil
}

// secure returns true if passwords may travel in clear on this
// session's transport.
func (c *Conn) secure() bool {
	if _, ok := c.conn.(*tls.Conn); ok {
		return true
	}
	_, ok := c.conn.(*net.UnixConn)
	return ok
}

// authenticate runs the AuthenticateStart/Continue exchange. On a
// secure channel it uses PLAIN. Otherwise it tries MYSQL41 first,
// which only works for mysql_native_password accounts, and falls
// back to SHA256_MEMORY, which works for caching_sha2_password
// accounts once the server has their password cached.
func (c *Conn) authenticate(params *mysql.ConnParams) error {
	var mechanisms []authMechanism
	if c.secure() {
		mechanisms = []authMechanism{
			&plainAuth{user: params.Uname, password: params.Pass, schema: params.DbName},
		}
	} else {
		mechanisms = []authMechanism{
			&mysql41Auth{user: params.Uname, password: params.Pass, schema: params.DbName},
			&sha256MemoryAuth{user: params.Uname, password: params.Pass, schema: params.DbName},
		}
	}

	var lastErr error
	for _, mechanism := range mechanisms {
		ok, err := c.tryAuthMechanism(mechanism)
		if ok || err == nil {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// tryAuthMechanism runs one full authentication exchange. The first
// return value is false if the failure is worth retrying with
// another mechanism.
func (c *Conn) tryAuthMechanism(mechanism authMechanism) (bool, error) {
	if err := c.writeFrame(ClientSessAuthenticateStart, authenticateStart(mechanism.name(), mechanism.initialResponse())); err != nil {
		return true, err
	}
	for {
		msgType, body, err := c.readFrame()
		if err != nil {
			return true, err
		}
		switch msgType {
		case ServerSessAuthenticateContinue:
			challenge, err := parseAuthData(body)
			if err != nil {
				return true, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse authenticate continue message: %v", err)
			}
			response, err := mechanism.continueResponse(challenge)
			if err != nil {
				return true, err
			}
			if err := c.writeFrame(ClientSessAuthenticateContinue, authenticateContinue(response)); err != nil {
				return true, err
			}
		case ServerSessAuthenticateOK:
			return true, nil
		case ServerNotice:
			if err := c.handleNotice(body, nil); err != nil {
				return true, err
			}
		case ServerError:
			e, err := parseError(body)
			if err != nil {
				return true, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse error message: %v", err)
			}
			// Access denied can succeed under another mechanism.
			// Fatal errors end the session.
			retriable := !e.Fatal() && e.Code == uint32(sqlerror.ERAccessDeniedError)
			return !retriable, e.toSQLError()
		default:
			return true, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "unexpected message type %v during authentication", msgType)
		}
	}
}

// CapabilitiesGet fetches the server capability map. Scalar values
// are decoded to Go values, arrays to slices.
// Returns a SQLError.
func (c *Conn) CapabilitiesGet() (map[string]any, error) {
	if err := c.startRequest(); err != nil {
		return nil, err
	}
	if err := c.writeFrame(ClientConCapabilitiesGet, nil); err != nil {
		return nil, err
	}
	for {
		msgType, body, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		switch msgType {
		case ServerConnCapabilities:
			caps, err := parseCapabilities(body)
			if err != nil {
				return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse capabilities message: %v", err)
			}
			return caps, nil
		case ServerNotice:
			if err := c.handleNotice(body, nil); err != nil {
				return nil, err
			}
		case ServerError:
			return nil, c.serverError(body)
		default:
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "unexpected message type %v for capabilities get", msgType)
		}
	}
}

// CapabilitiesSet sets one boolean capability on the server.
// Returns a SQLError.
func (c *Conn) CapabilitiesSet(name string, value bool) error {
	if err := c.startRequest(); err != nil {
		return err
	}
	if err := c.writeFrame(ClientConCapabilitiesSet, capabilitiesSet(name, value)); err != nil {
		return err
	}
	return c.readOK(fmt.Sprintf("capabilities set %v", name))
}

// readOK consumes messages until an Ok or Error ends the exchange.
func (c *Conn) readOK(operation string) error {
	for {
		msgType, body, err := c.readFrame()
		if err != nil {
			return err
		}
		switch msgType {
		case ServerOK:
			return nil
		case ServerNotice:
			if err := c.handleNotice(body, nil); err != nil {
				return err
			}
		case ServerError:
			return c.serverError(body)
		default:
			return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "unexpected message type %v for %v", msgType, operation)
		}
	}
}

// ExecuteFetch runs a statement in the "sql" namespace and returns
// its first resultset, with rows decoded to the same text form the
// classic protocol produces. Additional resultsets are drained and
// dropped. Supported argument types are Go integers, floats, bools,
// strings, []byte and nil.
// Returns a SQLError.
func (c *Conn) ExecuteFetch(query string, args ...any) (*sqltypes.Result, error) {
	if err := c.startRequest(); err != nil {
		return nil, err
	}
	encodedArgs := make([][]byte, 0, len(args))
	for i, arg := range args {
		encoded, err := encodeArg(arg)
		if err != nil {
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot encode argument %v: %v", i, err)
		}
		encodedArgs = append(encodedArgs, encoded)
	}
	if err := c.writeFrame(ClientSQLStmtExecute, stmtExecute(query, encodedArgs)); err != nil {
		return nil, err
	}

	result := &sqltypes.Result{}
	var columns []*columnMetaData
	var types []sqltypes.Type
	firstDone := false
	for {
		msgType, body, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		switch msgType {
		case ServerResultsetColumnMetaData:
			if firstDone {
				continue
			}
			col, err := parseColumnMetaData(body)
			if err != nil {
				return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse column metadata: %v", err)
			}
			typ, err := fieldToType(col)
			if err != nil {
				return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "%v", err)
			}
			columns = append(columns, col)
			types = append(types, typ)
			result.Fields = append(result.Fields, &sqltypes.Field{
				Name:         col.Name,
				Type:         typ,
				Table:        col.Table,
				OrgTable:     col.OriginalTable,
				Database:     col.Schema,
				OrgName:      col.OriginalName,
				ColumnLength: col.Length,
				Charset:      uint32(col.Collation),
				Decimals:     col.FractionalDigits,
				Flags:        col.Flags,
			})
		case ServerResultsetRow:
			if firstDone {
				continue
			}
			fields, err := parseRowFields(body)
			if err != nil {
				return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse row message: %v", err)
			}
			if len(fields) != len(columns) {
				return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "row has %v fields, expected %v", len(fields), len(columns))
			}
			row := make([]sqltypes.Value, len(fields))
			for i, field := range fields {
				if row[i], err = decodeRowField(field, types[i]); err != nil {
					return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot decode field %v: %v", i, err)
				}
			}
			result.Rows = append(result.Rows, row)
		case ServerResultsetFetchDone, ServerResultsetFetchDoneMoreOutParams:
			firstDone = true
		case ServerResultsetFetchDoneMoreResultsets:
			firstDone = true
			columns = nil
			types = nil
		case ServerNotice:
			if err := c.handleNotice(body, result); err != nil {
				return nil, err
			}
		case ServerSQLStmtExecuteOK:
			return result, nil
		case ServerError:
			return nil, c.serverError(body)
		default:
			return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "unexpected message type %v in statement response", msgType)
		}
	}
}

// handleNotice processes a notice frame. Session state notices fill
// in the result being built, when there is one.
func (c *Conn) handleNotice(body []byte, result *sqltypes.Result) error {
	n, err := parseNotice(body)
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse notice frame: %v", err)
	}
	switch n.Type {
	case noticeWarning:
		w, err := parseWarning(n.Payload)
		if err != nil {
			return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse warning notice: %v", err)
		}
		if log.V(2) {
			log.Infof("server warning %v: %v", w.Code, w.Msg)
		}
	case noticeSessionStateChange:
		s, err := parseSessionStateChanged(n.Payload)
		if err != nil {
			return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse session state notice: %v", err)
		}
		switch s.Param {
		case sessionStateClientIDAssigned:
			if v, ok := s.Value.(uint64); ok {
				c.ConnectionID = v
			}
		case sessionStateRowsAffected:
			if result != nil {
				if v, ok := s.Value.(uint64); ok {
					result.RowsAffected = v
				}
			}
		case sessionStateGeneratedInsertID:
			if result != nil {
				if v, ok := s.Value.(uint64); ok {
					result.InsertID = v
				}
			}
		case sessionStateProducedMessage:
			if result != nil {
				if v, ok := s.Value.(string); ok {
					result.Info = v
				}
			}
		}
	}
	return nil
}

// serverError parses an Error message. Fatal errors close the
// session.
func (c *Conn) serverError(body []byte) error {
	e, err := parseError(body)
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "cannot parse error message: %v", err)
	}
	if e.Fatal() {
		c.Close()
	}
	return e.toSQLError()
}

// encodeArg encodes one statement argument as a
// Mysqlx.Datatypes.Any.
func encodeArg(arg any) ([]byte, error) {
	var scalar []byte
	appendType := func(t uint64) {
		scalar = protowire.AppendTag(scalar, 1, protowire.VarintType)
		scalar = protowire.AppendVarint(scalar, t)
	}
	switch v := arg.(type) {
	case nil:
		appendType(scalarNull)
	case int:
		appendType(scalarSint)
		scalar = protowire.AppendTag(scalar, 2, protowire.VarintType)
		scalar = protowire.AppendVarint(scalar, protowire.EncodeZigZag(int64(v)))
	case int64:
		appendType(scalarSint)
		scalar = protowire.AppendTag(scalar, 2, protowire.VarintType)
		scalar = protowire.AppendVarint(scalar, protowire.EncodeZigZag(v))
	case uint64:
		appendType(scalarUint)
		scalar = protowire.AppendTag(scalar, 3, protowire.VarintType)
		scalar = protowire.AppendVarint(scalar, v)
	case float64:
		appendType(scalarDouble)
		scalar = protowire.AppendTag(scalar, 6, protowire.Fixed64Type)
		scalar = protowire.AppendFixed64(scalar, math.Float64bits(v))
	case float32:
		appendType(scalarFloat)
		scalar = protowire.AppendTag(scalar, 7, protowire.Fixed32Type)
		scalar = protowire.AppendFixed32(scalar, math.Float32bits(v))
	case bool:
		appendType(scalarBool)
		scalar = protowire.AppendTag(scalar, 8, protowire.VarintType)
		if v {
			scalar = protowire.AppendVarint(scalar, 1)
		} else {
			scalar = protowire.AppendVarint(scalar, 0)
		}
	case string:
		appendType(scalarString)
		var str []byte
		str = protowire.AppendTag(str, 1, protowire.BytesType)
		str = protowire.AppendString(str, v)
		scalar = protowire.AppendTag(scalar, 9, protowire.BytesType)
		scalar = protowire.AppendBytes(scalar, str)
	case []byte:
		appendType(scalarOctets)
		var octets []byte
		octets = protowire.AppendTag(octets, 1, protowire.BytesType)
		octets = protowire.AppendBytes(octets, v)
		scalar = protowire.AppendTag(scalar, 5, protowire.BytesType)
		scalar = protowire.AppendBytes(scalar, octets)
	default:
		return nil, fmt.Errorf("unsupported argument type %T", arg)
	}

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, anyScalar)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, scalar)
	return b, nil
}

// startRequest fails fast on a closed session.
func (c *Conn) startRequest() error {
	if c.closed.Load() {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "connection is closed")
	}
	return nil
}

// Quit tells the server the session is over, waits for its Ok, and
// closes the transport.
// Returns a SQLError.
func (c *Conn) Quit() error {
	if err := c.startRequest(); err != nil {
		return err
	}
	if err := c.writeFrame(ClientConClose, nil); err != nil {
		c.Close()
		return err
	}
	err := c.readOK("connection close")
	c.Close()
	return err
}

// Close closes the transport. It is idempotent and usable from any
// state.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.conn.Close()
	}
}

// IsClosed returns true if Close was called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
