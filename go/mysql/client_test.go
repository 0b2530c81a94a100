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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.dev/mywire/go/mysql/sqlerror"
)

// testServerVersion goes out in the scripted greetings.
const testServerVersion = "8.0.34-mywire"

// testServerCapabilities is the capability set the scripted greetings
// advertise.
const testServerCapabilities = CapabilityClientProtocol41 |
	CapabilityClientSecureConnection |
	CapabilityClientPluginAuth |
	CapabilityClientPluginAuthLenencClientData |
	CapabilityClientDeprecateEOF

// writeInitialHandshake writes the server greeting, with the given
// 20-byte salt and default auth method.
func writeInitialHandshake(t *testing.T, sConn *Conn, salt []byte, authMethod AuthMethodDescription) {
	t.Helper()
	require.Len(t, salt, 20)

	length := 1 + // protocol version
		lenNullString(testServerVersion) +
		4 + // connection id
		8 + // auth-plugin-data-part-1
		1 + // filler
		2 + // capability flags (lower 2 bytes)
		1 + // character set
		2 + // status flags
		2 + // capability flags (upper 2 bytes)
		1 + // length of auth-plugin-data
		10 + // reserved
		13 + // auth-plugin-data-part-2
		lenNullString(string(authMethod))

	data := sConn.startEphemeralPacket(length)
	pos := writeByte(data, 0, protocolVersion)
	pos = writeNullString(data, pos, testServerVersion)
	pos = writeUint32(data, pos, 1234)
	pos += copy(data[pos:], salt[:8])
	pos = writeByte(data, pos, 0)
	pos = writeUint16(data, pos, uint16(testServerCapabilities&0xffff))
	pos = writeByte(data, pos, CharacterSetUtf8)
	pos = writeUint16(data, pos, 0)
	pos = writeUint16(data, pos, uint16(testServerCapabilities>>16))
	pos = writeByte(data, pos, 21)
	pos = writeZeroes(data, pos, 10)
	pos += copy(data[pos:], salt[8:])
	pos = writeByte(data, pos, 0)
	writeNullString(data, pos, string(authMethod))
	require.NoError(t, sConn.writeEphemeralPacket())
}

// readHandshakeResponse reads the client's HandshakeResponse41 and
// returns the username, the auth response and the auth plugin name.
func readHandshakeResponse(t *testing.T, sConn *Conn) (string, []byte, string) {
	t.Helper()
	data, err := sConn.ReadPacket()
	require.NoError(t, err)

	capabilities, pos, ok := readUint32(data, 0)
	require.True(t, ok)
	_, pos, ok = readUint32(data, pos) // max packet size
	require.True(t, ok)
	_, pos, ok = readByte(data, pos) // character set
	require.True(t, ok)
	pos += 23 // reserved

	user, pos, ok := readNullString(data, pos)
	require.True(t, ok)

	var authResponse []byte
	if capabilities&CapabilityClientPluginAuthLenencClientData != 0 {
		var l uint64
		l, pos, ok = readLenEncInt(data, pos)
		require.True(t, ok)
		authResponse, pos, ok = readBytesCopy(data, pos, int(l))
		require.True(t, ok)
	} else {
		var l byte
		l, pos, ok = readByte(data, pos)
		require.True(t, ok)
		authResponse, pos, ok = readBytesCopy(data, pos, int(l))
		require.True(t, ok)
	}

	authMethod, _, ok := readNullString(data, pos)
	require.True(t, ok)
	return user, authResponse, authMethod
}

func TestClientHandshake(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	salt := []byte("0123456789abcdefghij")
	params := &ConnParams{Uname: "app", Pass: "password"}

	go func() {
		writeInitialHandshake(t, sConn, salt, MysqlNativePassword)
		user, authResponse, authMethod := readHandshakeResponse(t, sConn)
		assert.Equal(t, "app", user)
		assert.Equal(t, string(MysqlNativePassword), authMethod)
		assert.Equal(t, ScrambleMysqlNativePassword(salt, []byte("password")), authResponse)
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	require.NoError(t, cConn.clientHandshake(params))
	assert.Equal(t, testServerVersion, cConn.ServerVersion)
	assert.EqualValues(t, 1234, cConn.ConnectionID)
	assert.Equal(t, "app", cConn.User)
	assert.NotZero(t, cConn.Capabilities&CapabilityClientDeprecateEOF)
}

func TestClientHandshakeAuthSwitch(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	salt := []byte("0123456789abcdefghij")
	newSalt := []byte("jihgfedcba9876543210")
	params := &ConnParams{Uname: "app", Pass: "password"}

	go func() {
		writeInitialHandshake(t, sConn, salt, CachingSha2Password)
		_, _, authMethod := readHandshakeResponse(t, sConn)
		assert.Equal(t, string(CachingSha2Password), authMethod)

		// Switch the client to mysql_native_password, with a fresh
		// salt.
		length := 1 + lenNullString(string(MysqlNativePassword)) + len(newSalt) + 1
		data := sConn.startEphemeralPacket(length)
		pos := writeByte(data, 0, AuthSwitchRequestPacket)
		pos = writeNullString(data, pos, string(MysqlNativePassword))
		pos += copy(data[pos:], newSalt)
		writeByte(data, pos, 0)
		assert.NoError(t, sConn.writeEphemeralPacket())

		// The client has to recompute the scramble for the new
		// plugin and salt.
		response, err := sConn.ReadPacket()
		assert.NoError(t, err)
		assert.Equal(t, ScrambleMysqlNativePassword(newSalt, []byte("password")), response)
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	require.NoError(t, cConn.clientHandshake(params))
}

func TestClientHandshakeCachingSha2FastAuth(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	salt := []byte("0123456789abcdefghij")
	params := &ConnParams{Uname: "app", Pass: "password"}

	go func() {
		writeInitialHandshake(t, sConn, salt, CachingSha2Password)
		_, authResponse, _ := readHandshakeResponse(t, sConn)
		assert.Equal(t, ScrambleCachingSha2Password(salt, []byte("password")), authResponse)

		// The scramble matched the cache, an OK follows.
		data := sConn.startEphemeralPacket(2)
		data[0] = AuthMoreDataPacket
		data[1] = CachingSha2FastAuth
		assert.NoError(t, sConn.writeEphemeralPacket())
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	require.NoError(t, cConn.clientHandshake(params))
}

func TestClientHandshakeCachingSha2FullAuth(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	salt := []byte("0123456789abcdefghij")
	params := &ConnParams{Uname: "app", Pass: "password"}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	go func() {
		writeInitialHandshake(t, sConn, salt, CachingSha2Password)
		readHandshakeResponse(t, sConn)

		// The scramble was not cached, ask for the full password.
		data := sConn.startEphemeralPacket(2)
		data[0] = AuthMoreDataPacket
		data[1] = CachingSha2FullAuth
		assert.NoError(t, sConn.writeEphemeralPacket())

		// Over plain TCP the client asks for our public key before
		// it sends anything.
		request, err := sConn.ReadPacket()
		assert.NoError(t, err)
		assert.Equal(t, []byte{AuthRequestPublicKey}, request)

		data = sConn.startEphemeralPacket(1 + len(pemData))
		data[0] = AuthMoreDataPacket
		copy(data[1:], pemData)
		assert.NoError(t, sConn.writeEphemeralPacket())

		encrypted, err := sConn.ReadPacket()
		assert.NoError(t, err)
		plain, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, key, encrypted, nil)
		assert.NoError(t, err)
		for i := range plain {
			plain[i] ^= salt[i%len(salt)]
		}
		assert.Equal(t, "password\x00", string(plain))
		assert.NoError(t, sConn.writeOKPacket(&PacketOK{}))
	}()

	require.NoError(t, cConn.clientHandshake(params))
}

func TestClientHandshakeAccessDenied(t *testing.T) {
	listener, sConn, cConn := createSocketPair(t)
	defer func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	}()

	salt := []byte("0123456789abcdefghij")
	params := &ConnParams{Uname: "app", Pass: "wrong"}

	go func() {
		writeInitialHandshake(t, sConn, salt, MysqlNativePassword)
		readHandshakeResponse(t, sConn)
		assert.NoError(t, sConn.writeErrorPacket(sqlerror.ERAccessDeniedError, sqlerror.SSAccessDeniedError, "Access denied for user 'app'"))
	}()

	err := cConn.clientHandshake(params)
	require.Error(t, err)
	sqlErr, ok := err.(*sqlerror.SQLError)
	require.True(t, ok, "expected a SQLError, got %T", err)
	assert.Equal(t, sqlerror.ERAccessDeniedError, sqlErr.Number())
}
