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

// This file contains the constant definitions for this package.

const (
	// MaxPacketSize is the maximum payload length of a packet
	// the server supports.
	MaxPacketSize = (1 << 24) - 1

	// protocolVersion is the current version of the protocol.
	// Always 10.
	protocolVersion = 10
)

// AuthMethodDescription is the type for different supported and
// implemented authentication methods.
type AuthMethodDescription string

// Supported auth forms.
const (
	// MysqlNativePassword uses a salt and transmits a hash on the wire.
	MysqlNativePassword = AuthMethodDescription("mysql_native_password")

	// MysqlClearPassword transmits the password in the clear.
	MysqlClearPassword = AuthMethodDescription("mysql_clear_password")

	// CachingSha2Password uses a salt and transmits a SHA256 hash on
	// the wire.
	CachingSha2Password = AuthMethodDescription("caching_sha2_password")

	// Sha256Password transmits an RSA-encrypted password, or the clear
	// password over a secure channel.
	Sha256Password = AuthMethodDescription("sha256_password")
)

// Capability flags.
// Originally found in include/mysql/mysql_com.h
const (
	// CapabilityClientLongPassword is CLIENT_LONG_PASSWORD.
	// New more secure passwords. Assumed to be set since 4.1.1.
	CapabilityClientLongPassword = 1

	// CapabilityClientFoundRows is CLIENT_FOUND_ROWS.
	CapabilityClientFoundRows = 1 << 1

	// CapabilityClientLongFlag is CLIENT_LONG_FLAG.
	// Longer flags in Protocol::ColumnDefinition320.
	// Set it everywhere, not used, as we use Protocol::ColumnDefinition41.
	CapabilityClientLongFlag = 1 << 2

	// CapabilityClientConnectWithDB is CLIENT_CONNECT_WITH_DB.
	// One can specify db on connect.
	CapabilityClientConnectWithDB = 1 << 3

	// CLIENT_NO_SCHEMA 1 << 4
	// Do not permit database.table.column. We do permit it.

	// CLIENT_COMPRESS 1 << 5
	// We do not support compression. CPU is usually our bottleneck.

	// CLIENT_ODBC 1 << 6
	// No special behavior since 3.22.

	// CLIENT_LOCAL_FILES 1 << 7
	// Client can use LOCAL INFILE request of LOAD DATA|XML.
	// We do not set it.

	// CLIENT_IGNORE_SPACE 1 << 8
	// Parser can ignore spaces before '('.
	// We ignore this.

	// CapabilityClientProtocol41 is CLIENT_PROTOCOL_41.
	// New 4.1 protocol. Enforced everywhere.
	CapabilityClientProtocol41 = 1 << 9

	// CLIENT_INTERACTIVE 1 << 10
	// Not specified, ignored.

	// CapabilityClientSSL is CLIENT_SSL.
	// Switch to SSL after handshake.
	CapabilityClientSSL = 1 << 11

	// CLIENT_IGNORE_SIGPIPE 1 << 12
	// Do not issue SIGPIPE if network failures occur (libmysqlclient only).

	// CapabilityClientTransactions is CLIENT_TRANSACTIONS.
	// Can send status flags in EOF_Packet.
	CapabilityClientTransactions = 1 << 13

	// CLIENT_RESERVED 1 << 14

	// CapabilityClientSecureConnection is CLIENT_SECURE_CONNECTION.
	// New 4.1 authentication.
	CapabilityClientSecureConnection = 1 << 15

	// CapabilityClientMultiStatements is CLIENT_MULTI_STATEMENTS
	// Can handle multiple statements per COM_QUERY and COM_STMT_PREPARE.
	CapabilityClientMultiStatements = 1 << 16

	// CapabilityClientMultiResults is CLIENT_MULTI_RESULTS
	// Can send multiple resultsets for COM_QUERY.
	CapabilityClientMultiResults = 1 << 17

	// CapabilityClientPluginAuth is CLIENT_PLUGIN_AUTH.
	// Client supports plugin authentication.
	CapabilityClientPluginAuth = 1 << 19

	// CapabilityClientConnAttr is CLIENT_CONNECT_ATTRS
	// Permits connection attributes in Protocol::HandshakeResponse41.
	CapabilityClientConnAttr = 1 << 20

	// CapabilityClientPluginAuthLenencClientData is
	// CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA
	CapabilityClientPluginAuthLenencClientData = 1 << 21

	// CLIENT_CAN_HANDLE_EXPIRED_PASSWORDS 1 << 22
	// Announces support for expired password extension.
	// Not yet supported.

	// CapabilityClientSessionTrack is CLIENT_SESSION_TRACK
	// Capable of handling server state change information.
	CapabilityClientSessionTrack = 1 << 23

	// CapabilityClientDeprecateEOF is CLIENT_DEPRECATE_EOF
	// Expects an OK (instead of EOF) after the resultset rows of a Text
	// Resultset.
	CapabilityClientDeprecateEOF = 1 << 24
)

// Status flags. They are returned by the server in a few cases.
// Originally found in include/mysql/mysql_com.h
// See http://dev.mysql.com/doc/internals/en/status-flags.html
const (
	// ServerStatusInTrans is SERVER_STATUS_IN_TRANS
	ServerStatusInTrans = 1

	// ServerStatusAutocommit is SERVER_STATUS_AUTOCOMMIT
	ServerStatusAutocommit = 1 << 1

	// ServerMoreResultsExists is SERVER_MORE_RESULTS_EXISTS
	ServerMoreResultsExists = 1 << 3

	// ServerStatusNoGoodIndexUsed is SERVER_QUERY_NO_GOOD_INDEX_USED
	ServerStatusNoGoodIndexUsed = 1 << 4

	// ServerStatusNoIndexUsed is SERVER_QUERY_NO_INDEX_USED
	ServerStatusNoIndexUsed = 1 << 5

	// ServerStatusCursorExists is SERVER_STATUS_CURSOR_EXISTS
	ServerStatusCursorExists = 1 << 6

	// ServerStatusLastRowSent is SERVER_STATUS_LAST_ROW_SENT
	ServerStatusLastRowSent = 1 << 7

	// ServerStatusDbDropped is SERVER_STATUS_DB_DROPPED
	ServerStatusDbDropped = 1 << 8

	// ServerStatusNoBackslashEscapes is SERVER_STATUS_NO_BACKSLASH_ESCAPES
	ServerStatusNoBackslashEscapes = 1 << 9

	// ServerStatusMetadataChanged is SERVER_STATUS_METADATA_CHANGED
	ServerStatusMetadataChanged = 1 << 10

	// ServerQueryWasSlow is SERVER_QUERY_WAS_SLOW
	ServerQueryWasSlow = 1 << 11

	// ServerPsOutParams is SERVER_PS_OUT_PARAMS
	ServerPsOutParams = 1 << 12

	// ServerStatusInTransReadonly is SERVER_STATUS_IN_TRANS_READONLY
	ServerStatusInTransReadonly = 1 << 13

	// ServerSessionStateChanged is SERVER_SESSION_STATE_CHANGED
	ServerSessionStateChanged = 1 << 14
)

// Packet types.
// Originally found in include/mysql/mysql_com.h
const (
	// ComQuit is COM_QUIT.
	ComQuit = 0x01

	// ComInitDB is COM_INIT_DB.
	ComInitDB = 0x02

	// ComQuery is COM_QUERY.
	ComQuery = 0x03

	// ComPing is COM_PING.
	ComPing = 0x0e

	// ComBinlogDump is COM_BINLOG_DUMP.
	ComBinlogDump = 0x12

	// ComChangeUser is COM_CHANGE_USER.
	ComChangeUser = 0x11

	// ComPrepare is COM_STMT_PREPARE.
	ComPrepare = 0x16

	// ComStmtExecute is COM_STMT_EXECUTE.
	ComStmtExecute = 0x17

	// ComStmtSendLongData is COM_STMT_SEND_LONG_DATA
	ComStmtSendLongData = 0x18

	// ComStmtClose is COM_STMT_CLOSE.
	ComStmtClose = 0x19

	// ComStmtReset is COM_STMT_RESET
	ComStmtReset = 0x1a

	// ComSetOption is COM_SET_OPTION
	ComSetOption = 0x1b

	// ComStmtFetch is COM_STMT_FETCH
	ComStmtFetch = 0x1c

	// ComResetConnection is COM_RESET_CONNECTION
	ComResetConnection = 0x1f

	// OKPacket is the header of the OK packet.
	OKPacket = 0x00

	// EOFPacket is the header of the EOF packet.
	EOFPacket = 0xfe

	// ErrPacket is the header of the error packet.
	ErrPacket = 0xff

	// NullValue is the encoded value of NULL.
	NullValue = 0xfb

	// AuthMoreDataPacket is the header of the auth-more-data packet.
	AuthMoreDataPacket = 0x01

	// AuthSwitchRequestPacket is the header of the auth-switch-request
	// packet. Shares its value with EOFPacket, disambiguated by packet
	// length and connection phase.
	AuthSwitchRequestPacket = 0xfe
)

// Auth packet methods.
const (
	// CachingSha2FastAuth is sent by the server as the auth-more-data
	// status when the password was found in its cache and the scramble
	// was enough. An OK packet follows.
	CachingSha2FastAuth = 0x03

	// CachingSha2FullAuth is sent by the server as the auth-more-data
	// status when a full authentication round is needed.
	CachingSha2FullAuth = 0x04

	// AuthRequestPublicKey is sent by the client during full
	// authentication over an insecure channel to obtain the server's
	// RSA public key.
	AuthRequestPublicKey = 0x02
)

// Com(Stmt)Execute cursor types, originally enum_cursor_type in
// include/mysql/mysql_com.h
const (
	// NoCursor is CURSOR_TYPE_NO_CURSOR
	NoCursor = 0x00

	// ReadOnlyCursor is CURSOR_TYPE_READ_ONLY
	ReadOnlyCursor = 0x01
)

// Character sets. This is a subset; the full collation table is a
// static lookup that lives with the server.
const (
	// CharacterSetUtf8 is for UTF8 (3 bytes), the default.
	CharacterSetUtf8 = 33

	// CharacterSetBinary is for binary.
	CharacterSetBinary = 63

	// CharacterSetUtf8mb4 is for UTF8 (4 bytes).
	CharacterSetUtf8mb4 = 255
)

// CharacterSetMap maps the charset name (used in ConnParams) to the
// integer value. Interesting ones have their own constant above.
var CharacterSetMap = map[string]uint8{
	"big5":    1,
	"latin1":  8,
	"latin2":  9,
	"ascii":   11,
	"sjis":    13,
	"hebrew":  16,
	"tis620":  18,
	"euckr":   19,
	"gb2312":  24,
	"greek":   25,
	"cp1250":  26,
	"gbk":     28,
	"latin5":  30,
	"utf8":    CharacterSetUtf8,
	"utf8mb3": CharacterSetUtf8,
	"ucs2":    35,
	"cp866":   36,
	"cp852":   40,
	"latin7":  41,
	"utf8mb4": CharacterSetUtf8mb4,
	"cp1251":  51,
	"utf16":   54,
	"binary":  CharacterSetBinary,
	"cp1256":  57,
	"cp1257":  59,
	"utf32":   60,
	"geostd8": 92,
	"cp932":   95,
	"eucjpms": 97,
}
