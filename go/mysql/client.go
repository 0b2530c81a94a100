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
	"context"
	"crypto/rsa"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"mywire.dev/mywire/go/mysql/sqlerror"
	"mywire.dev/mywire/go/vttls"
)

// This file contains the methods related to client connections.

// Connect creates a connection to a server.
// It then handles the initial handshake.
//
// If context is canceled before the end of the process, this function
// will return nil, ctx.Err().
func Connect(ctx context.Context, params *ConnParams) (*Conn, error) {
	if params.ConnectTimeoutMs != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(params.ConnectTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	netProto := "tcp"
	addr := ""
	if params.UnixSocket != "" {
		netProto = "unix"
		addr = params.UnixSocket
	} else {
		addr = net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, netProto, addr)
	if err != nil {
		// If we get a timeout or a canceled context, the context
		// wins, return its error.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// This is how the mysql command line reports a failure to
		// reach the server.
		if netProto == "tcp" {
			return nil, sqlerror.NewSQLError(sqlerror.CRConnHostError, sqlerror.SSUnknownSQLState, "net.Dial(%v) failed: %v", addr, err)
		}
		return nil, sqlerror.NewSQLError(sqlerror.CRConnectionError, sqlerror.SSUnknownSQLState, "net.Dial(%v) to local server failed: %v", addr, err)
	}

	c := newConn(conn)
	if params.MaxMessageSize > 0 {
		c.maxMessageSize = params.MaxMessageSize
	}

	// Negotiation worker in the background, so the context can
	// interrupt a hanging handshake.
	status := make(chan error)
	go func() {
		status <- c.clientHandshake(params)
	}()

	select {
	case err := <-status:
		if err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		// The background handshake unblocks when the socket closes.
		c.Close()
		<-status
		return nil, ctx.Err()
	}
}

// Ping implements mysql ping command.
func (c *Conn) Ping() error {
	// This is a new command, need to reset the sequence.
	if err := c.startCommand(); err != nil {
		return err
	}

	data := c.startEphemeralPacket(1)
	data[0] = ComPing

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	data, err := c.readEphemeralPacket()
	if err != nil {
		return wrapReadError(err)
	}
	defer c.recycleReadPacket()
	switch data[0] {
	case OKPacket:
		return nil
	case ErrPacket:
		return ParseErrorPacket(data)
	}
	return fmt.Errorf("unexpected packet type: %d", data[0])
}

// Quit sends a COM_QUIT to the server and closes the connection. The
// server does not respond to the command, it just hangs up.
func (c *Conn) Quit() error {
	err := c.writeComQuit()
	c.Close()
	return err
}

// clientHandshake handles the client side of the handshake.
// Note the connection can be closed while this is running.
// Returns a SQLError.
func (c *Conn) clientHandshake(params *ConnParams) error {
	// Wait for the server initial handshake packet.
	data, err := c.readPacket()
	if err != nil {
		return wrapReadError(err)
	}
	capabilities, salt, err := c.parseInitialHandshakePacket(data)
	if err != nil {
		return err
	}
	c.salt = salt

	// Sanity check.
	if capabilities&CapabilityClientProtocol41 == 0 {
		return sqlerror.NewSQLError(sqlerror.CRVersionError, sqlerror.SSUnknownSQLState, "cannot connect to servers earlier than 4.1")
	}

	// Remember a subset of the capabilities, so we can use them
	// later in the protocol.
	c.Capabilities = capabilities & (CapabilityClientDeprecateEOF |
		CapabilityClientSessionTrack)

	// Figure out the character set we want.
	characterSet := uint8(CharacterSetUtf8)
	if params.Charset != "" {
		characterSet, err = parseCharacterSet(params.Charset)
		if err != nil {
			return err
		}
	}
	c.CharacterSet = characterSet

	// Handle switch to SSL if necessary.
	if params.SslEnabled() {
		// If client asked for SSL, but server doesn't support it,
		// stop right here.
		if params.SslRequired() && capabilities&CapabilityClientSSL == 0 {
			return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "server doesn't support SSL but client asked for it")
		}

		// The ServerName to verify depends on what the hostname is.
		// We use the params's ServerName if specified. Otherwise:
		// - If using a socket, we use 'localhost'.
		// - If it is an IP address, we need to prefix it with 'IP:'.
		// - If not, we can just use it as is.
		serverName := "localhost"
		if params.ServerName != "" {
			serverName = params.ServerName
		} else if params.Host != "" {
			serverName = params.Host
		}

		tlsVersion, err := vttls.TLSVersionToNumber(params.TLSMinVersion)
		if err != nil {
			return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "error parsing minimal TLS version: %v", err)
		}

		// Build the TLS config.
		clientConfig, err := vttls.ClientConfig(params.EffectiveSslMode(), params.SslCert, params.SslKey, params.SslCa, params.Host, serverName)
		if err != nil {
			return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "error loading client cert and ca: %v", err)
		}
		clientConfig.MinVersion = tlsVersion

		// Send the SSLRequest packet.
		if err := c.writeSSLRequest(capabilities, characterSet, params); err != nil {
			return err
		}

		// Switch to SSL.
		conn := tls.Client(c.conn, clientConfig)
		if err := conn.Handshake(); err != nil {
			return sqlerror.NewSQLError(sqlerror.CRSSLConnectionError, sqlerror.SSUnknownSQLState, "TLS handshake failed: %v", err)
		}
		c.conn = conn
		c.bufferedReader.Reset(conn)
		c.Capabilities |= CapabilityClientSSL
	}

	// Password encryption.
	var scrambledPassword []byte
	if c.authPluginName == CachingSha2Password {
		scrambledPassword = ScrambleCachingSha2Password(c.salt, []byte(params.Pass))
	} else {
		scrambledPassword = ScrambleMysqlNativePassword(c.salt, []byte(params.Pass))
	}

	// Build and send our handshake response 41.
	// Note this one will never have SSL flag on.
	if err := c.writeHandshakeResponse41(capabilities, scrambledPassword, characterSet, params); err != nil {
		return err
	}

	// Read the server response.
	if err := c.handleAuthResponse(params); err != nil {
		return err
	}

	// If the server didn't support DbName in its handshake, set
	// it now. This is what the 'mysql' client does.
	if capabilities&CapabilityClientConnectWithDB == 0 && params.DbName != "" {
		if err := c.InitDB(params.DbName); err != nil {
			return err
		}
	}

	return nil
}

// parseCharacterSet parses the provided character set.
// Returns SQLError(CRCantReadCharset) if it can't.
func parseCharacterSet(cs string) (uint8, error) {
	// Check if it's in our map.
	characterSet, ok := CharacterSetMap[cs]
	if ok {
		return characterSet, nil
	}

	// As a fallback, try to parse a number. So we support more values.
	if i, err := strconv.ParseInt(cs, 10, 8); err == nil {
		return uint8(i), nil
	}

	// No luck.
	return 0, sqlerror.NewSQLError(sqlerror.CRUnknownError, sqlerror.SSUnknownSQLState, "failed to interpret character set '%v'. Try using an integer value if needed", cs)
}

// parseInitialHandshakePacket parses the initial handshake from the server.
// It returns a SQLError with the right code.
func (c *Conn) parseInitialHandshakePacket(data []byte) (uint32, []byte, error) {
	pos := 0

	// Protocol version.
	pver, pos, ok := readByte(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRVersionError, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no protocol version")
	}

	// Server is allowed to immediately send ERR packet
	if pver == ErrPacket {
		errorCode, pos, _ := readUint16(data, pos)
		// Normally there would be a 1-byte sql_state_marker field and a 5-byte
		// sql_state field here, but docs say these will not be present in this case.
		errorMsg, _, _ := readEOFString(data, pos)
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "immediate error from server errorCode=%v errorMsg=%v", errorCode, errorMsg)
	}

	if pver != protocolVersion {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRVersionError, sqlerror.SSUnknownSQLState, "bad protocol version: %v", pver)
	}

	// Read the server version.
	c.ServerVersion, pos, ok = readNullString(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no server version")
	}

	// Read the connection id.
	c.ConnectionID, pos, ok = readUint32(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no connection id")
	}

	// Read the first part of the auth-plugin-data
	authPluginData, pos, ok := readBytesCopy(data, pos, 8)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no auth-plugin-data-part-1")
	}

	// One byte filler, 0. We don't really care about the value.
	_, pos, ok = readByte(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no filler")
	}

	// Lower 2 bytes of the capability flags.
	capLower, pos, ok := readUint16(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no capability flags (lower 2 bytes)")
	}
	var capabilities = uint32(capLower)

	// The packet can end here.
	if pos == len(data) {
		return capabilities, authPluginData, nil
	}

	// Character set.
	characterSet, pos, ok := readByte(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no character set")
	}
	c.CharacterSet = characterSet

	// Status flags. Ignored.
	_, pos, ok = readUint16(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no status flags")
	}

	// Upper 2 bytes of the capability flags.
	capUpper, pos, ok := readUint16(data, pos)
	if !ok {
		return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no capability flags (upper 2 bytes)")
	}
	capabilities += uint32(capUpper) << 16

	// Length of auth-plugin-data, or 0.
	// Only with CLIENT_PLUGIN_AUTH capability.
	var authPluginDataLength byte
	if capabilities&CapabilityClientPluginAuth != 0 {
		authPluginDataLength, pos, ok = readByte(data, pos)
		if !ok {
			return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no length of auth-plugin-data")
		}
	} else {
		// One byte filler, 0. We don't really care about the value.
		_, pos, ok = readByte(data, pos)
		if !ok {
			return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no length of auth-plugin-data filler")
		}
	}

	// 10 reserved 0 bytes.
	pos += 10

	if capabilities&CapabilityClientSecureConnection != 0 {
		// The next part of the auth-plugin-data is
		// max(13, length of auth-plugin-data - 8).
		l := 13
		if authPluginDataLength > 8 {
			l = int(authPluginDataLength) - 8
		}

		authPluginDataPart2, _, ok := readBytes(data, pos, l)
		if !ok {
			return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: packet has no auth-plugin-data-part-2")
		}
		pos += l

		// The last byte has to be 0, and is not part of the data.
		if authPluginDataPart2[l-1] != 0 {
			return 0, nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "parseInitialHandshakePacket: auth-plugin-data-part-2 is not 0 terminated")
		}
		authPluginData = append(authPluginData, authPluginDataPart2[:l-1]...)
	}

	// Auth-plugin name.
	if capabilities&CapabilityClientPluginAuth != 0 {
		authPluginName, _, ok := readNullString(data, pos)
		if !ok {
			// Fallback for versions prior to 5.5.10 and
			// 5.6.2 that don't have a null terminated string.
			authPluginName = string(data[pos : len(data)-1])
		}
		c.authPluginName = AuthMethodDescription(authPluginName)
	}

	return capabilities, authPluginData, nil
}

// writeSSLRequest writes the SSLRequest packet. It's just a truncated
// HandshakeResponse41, the server will expect the rest of it after the
// TLS handshake completes.
func (c *Conn) writeSSLRequest(capabilities uint32, characterSet uint8, params *ConnParams) error {
	// Build our flags, with CapabilityClientSSL.
	capabilityFlags := c.clientCapabilityFlags(capabilities, params) |
		CapabilityClientSSL

	length :=
		4 + // Client capability flags.
			4 + // Max-packet size.
			1 + // Character set.
			23 // Reserved.

	// Add the DB name if the server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		capabilityFlags |= CapabilityClientConnectWithDB
	}

	data := c.startEphemeralPacket(length)
	pos := 0

	// Client capability flags.
	pos = writeUint32(data, pos, capabilityFlags)

	// Max-packet size, always 0. See doc.go.
	pos = writeZeroes(data, pos, 4)

	// Character set.
	pos = writeByte(data, pos, characterSet)

	// 23 reserved bytes, all 0.
	_ = writeZeroes(data, pos, 23)

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerLost, sqlerror.SSUnknownSQLState, "cannot send SSLRequest: %v", err)
	}
	return nil
}

// clientCapabilityFlags computes the capability flags this client
// announces to the server.
func (c *Conn) clientCapabilityFlags(capabilities uint32, params *ConnParams) uint32 {
	flags := CapabilityClientLongPassword |
		CapabilityClientLongFlag |
		CapabilityClientProtocol41 |
		CapabilityClientTransactions |
		CapabilityClientSecureConnection |
		CapabilityClientMultiResults |
		CapabilityClientPluginAuth |
		CapabilityClientPluginAuthLenencClientData |
		// If the server supported
		// CapabilityClientDeprecateEOF or
		// CapabilityClientSessionTrack, we
		// also support it.
		c.Capabilities&(CapabilityClientDeprecateEOF|CapabilityClientSessionTrack)

	if params.EnableMultiStatements {
		flags |= CapabilityClientMultiStatements
	}
	return flags
}

// writeHandshakeResponse41 writes the handshake response.
// Returns a SQLError.
func (c *Conn) writeHandshakeResponse41(capabilities uint32, scrambledPassword []byte, characterSet uint8, params *ConnParams) error {
	// Build our flags.
	capabilityFlags := c.clientCapabilityFlags(capabilities, params)
	if c.Capabilities&CapabilityClientSSL > 0 {
		capabilityFlags |= CapabilityClientSSL
	}

	length :=
		4 + // Client capability flags.
			4 + // Max-packet size.
			1 + // Character set.
			23 + // Reserved.
			lenNullString(params.Uname) +
			// length of scrambled password is handled below.
			len(scrambledPassword) +
			lenNullString(string(c.authPluginName))

	// Add the DB name if the server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		capabilityFlags |= CapabilityClientConnectWithDB
		length += lenNullString(params.DbName)
	}

	if capabilities&CapabilityClientPluginAuthLenencClientData != 0 {
		length += lenEncIntSize(uint64(len(scrambledPassword)))
	} else {
		length++
	}

	data := c.startEphemeralPacket(length)
	pos := 0

	// Client capability flags.
	pos = writeUint32(data, pos, capabilityFlags)

	// Max-packet size, always 0. See doc.go.
	pos = writeZeroes(data, pos, 4)

	// Character set.
	pos = writeByte(data, pos, characterSet)

	// 23 reserved bytes, all 0.
	pos = writeZeroes(data, pos, 23)

	// Username
	pos = writeNullString(data, pos, params.Uname)

	// Scrambled password. The length is encoded as variable length if
	// CapabilityClientPluginAuthLenencClientData is set.
	if capabilities&CapabilityClientPluginAuthLenencClientData != 0 {
		pos = writeLenEncInt(data, pos, uint64(len(scrambledPassword)))
	} else {
		pos = writeByte(data, pos, byte(len(scrambledPassword)))
	}
	pos += copy(data[pos:], scrambledPassword)

	// DbName, only if server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		pos = writeNullString(data, pos, params.DbName)
		c.schemaName = params.DbName
	}

	// The name of the auth plugin we are responding to.
	pos = writeNullString(data, pos, string(c.authPluginName))

	// Sanity-check the length.
	if pos != len(data) {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "writeHandshakeResponse41: only packed %v bytes, out of %v allocated", pos, len(data))
	}

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerLost, sqlerror.SSUnknownSQLState, "cannot send HandshakeResponse41: %v", err)
	}
	c.User = params.Uname
	return nil
}

// handleAuthResponse parses the server response after the client
// sends the authentication data, and drives the extra rounds some
// plugins require.
func (c *Conn) handleAuthResponse(params *ConnParams) error {
	response, err := c.readPacket()
	if err != nil {
		return wrapReadError(err)
	}

	switch response[0] {
	case OKPacket:
		// OK packet, we are authenticated.
		return nil
	case AuthSwitchRequestPacket:
		return c.handleAuthSwitchPacket(params, response)
	case AuthMoreDataPacket:
		return c.handleAuthMoreDataPacket(response, params)
	case ErrPacket:
		return ParseErrorPacket(response)
	default:
		return sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "initial server response cannot be parsed: %v", response)
	}
}

// handleAuthSwitchPacket scrambles the password for the plugin the
// server switched to, and sends the new response.
func (c *Conn) handleAuthSwitchPacket(params *ConnParams, response []byte) error {
	var err error
	var salt []byte
	c.authPluginName, salt, err = parseAuthSwitchRequest(response)
	if err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "cannot parse auth switch request: %v", err)
	}
	if salt != nil {
		c.salt = salt
	}
	switch c.authPluginName {
	case MysqlClearPassword:
		// The password would go out in the clear, only do this
		// over a channel we trust.
		if !c.TLSEnabled() && !c.IsUnixSocket() {
			return sqlerror.NewSQLError(sqlerror.CRAuthPluginErr, sqlerror.SSUnknownSQLState, "server asked for cleartext password over an insecure channel")
		}
		if err := c.writeClearTextPassword(params); err != nil {
			return err
		}
	case MysqlNativePassword:
		scrambledPassword := ScrambleMysqlNativePassword(c.salt, []byte(params.Pass))
		if err := c.writeScrambledPassword(scrambledPassword); err != nil {
			return err
		}
	case CachingSha2Password:
		scrambledPassword := ScrambleCachingSha2Password(c.salt, []byte(params.Pass))
		if err := c.writeScrambledPassword(scrambledPassword); err != nil {
			return err
		}
	case Sha256Password:
		if c.TLSEnabled() || c.IsUnixSocket() {
			if err := c.writeClearTextPassword(params); err != nil {
				return err
			}
		} else {
			// Over an insecure channel this plugin encrypts
			// the password with the server's RSA public key.
			// A single 0x01 byte asks the server for it.
			pub, err := c.requestPublicKey(0x01)
			if err != nil {
				return err
			}
			enc, encErr := EncryptPasswordWithPublicKey(c.salt, []byte(params.Pass), pub)
			if encErr != nil {
				return sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "error encrypting password with public key: %v", encErr)
			}
			if err := c.writeScrambledPassword(enc); err != nil {
				return err
			}
		}
	default:
		return sqlerror.NewSQLError(sqlerror.CRAuthPluginErr, sqlerror.SSUnknownSQLState, "server asked for unsupported auth method: %v", c.authPluginName)
	}

	// The response could be an OKPacket, AuthMoreDataPacket or ErrPacket.
	return c.handleAuthResponse(params)
}

// handleAuthMoreDataPacket handles the caching_sha2_password
// conversation that follows the first authentication response.
func (c *Conn) handleAuthMoreDataPacket(response []byte, params *ConnParams) error {
	if len(response) < 2 {
		return sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "auth more data packet has no payload")
	}
	switch response[1] {
	case CachingSha2FastAuth:
		// Server accepted the scramble from its cache, an OK
		// packet follows.
		return c.handleAuthResponse(params)
	case CachingSha2FullAuth:
		// Server asked for the full password.
		if c.TLSEnabled() || c.IsUnixSocket() {
			// If we are on a secure channel, send the
			// password in the clear.
			if err := c.writeClearTextPassword(params); err != nil {
				return err
			}
		} else {
			// Otherwise, encrypt the password with the
			// server's RSA public key.
			pub, err := c.requestPublicKey(AuthRequestPublicKey)
			if err != nil {
				return err
			}
			enc, encErr := EncryptPasswordWithPublicKey(c.salt, []byte(params.Pass), pub)
			if encErr != nil {
				return sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "error encrypting password with public key: %v", encErr)
			}
			if err := c.writeScrambledPassword(enc); err != nil {
				return err
			}
		}
		return c.handleAuthResponse(params)
	default:
		return sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "server sent an unknown auth more data sub-packet: %v", response[1])
	}
}

// requestPublicKey obtains the server's RSA public key during full
// authentication over an insecure channel.
func (c *Conn) requestPublicKey(requestByte byte) (*rsa.PublicKey, error) {
	// Ask the server to send us its public key.
	data := c.startEphemeralPacket(1)
	data[0] = requestByte
	if err := c.writeEphemeralPacket(); err != nil {
		return nil, sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}

	response, err := c.readPacket()
	if err != nil {
		return nil, wrapReadError(err)
	}
	if response[0] == ErrPacket {
		return nil, ParseErrorPacket(response)
	}

	// The public key is in a AuthMoreDataPacket.
	pub, err := parsePublicKey(response[1:])
	if err != nil {
		return nil, sqlerror.NewSQLError(sqlerror.CRServerHandshakeErr, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return pub, nil
}

func parseAuthSwitchRequest(data []byte) (AuthMethodDescription, []byte, error) {
	pos := 1
	pluginName, pos, ok := readNullString(data, pos)
	if !ok {
		return "", nil, fmt.Errorf("cannot get plugin name from AuthSwitchRequest: %v", data)
	}

	// If this was a request with a salt in it, max 20 bytes.
	salt := data[pos:]
	if len(salt) > 20 {
		salt = salt[:20]
	}
	// A trailing zero is not part of the salt.
	if len(salt) > 0 && salt[len(salt)-1] == 0 {
		salt = salt[:len(salt)-1]
	}
	return AuthMethodDescription(pluginName), salt, nil
}

// writeClearTextPassword writes the clear text password.
// Returns a SQLError.
func (c *Conn) writeClearTextPassword(params *ConnParams) error {
	length := len(params.Pass) + 1
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeNullString(data, pos, params.Pass)
	// Sanity check.
	if pos != len(data) {
		return fmt.Errorf("error building ClearTextPassword packet: got %v bytes expected %v", pos, len(data))
	}

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// writeScrambledPassword writes the encrypted mysql password.
func (c *Conn) writeScrambledPassword(scrambledPassword []byte) error {
	data := c.startEphemeralPacket(len(scrambledPassword))
	pos := 0
	pos += copy(data[pos:], scrambledPassword)
	// Sanity check.
	if pos != len(data) {
		return fmt.Errorf("error building MysqlNativePassword packet: got %v bytes expected %v", pos, len(data))
	}

	if err := c.writeEphemeralPacket(); err != nil {
		return sqlerror.NewSQLError(sqlerror.CRServerGone, sqlerror.SSUnknownSQLState, "%v", err)
	}
	return nil
}

// TLSEnabled returns true if this connection is using TLS.
func (c *Conn) TLSEnabled() bool {
	return c.Capabilities&CapabilityClientSSL > 0
}

// IsUnixSocket returns true if the server connection is over a Unix socket.
func (c *Conn) IsUnixSocket() bool {
	_, ok := c.conn.(*net.UnixConn)
	return ok
}
