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

package sqlerror

import "strconv"

// ErrorCode is the MySQL error number, either a server-side ER code or a
// client-side CR code.
type ErrorCode uint16

func (e ErrorCode) ToString() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Error codes for client-side errors.
// Originally found in include/mysql/errmsg.h and
// https://dev.mysql.com/doc/mysql-errors/en/client-error-reference.html
const (
	// CRUnknownError is CR_UNKNOWN_ERROR
	CRUnknownError = ErrorCode(2000)

	// CRConnectionError is CR_CONNECTION_ERROR
	// This is returned if a connection via a Unix socket fails.
	CRConnectionError = ErrorCode(2002)

	// CRConnHostError is CR_CONN_HOST_ERROR
	// This is returned if a connection via a TCP socket fails.
	CRConnHostError = ErrorCode(2003)

	// CRUnknownHost is CR_UNKNOWN_HOST
	CRUnknownHost = ErrorCode(2005)

	// CRServerGone is CR_SERVER_GONE_ERROR.
	// This is returned if the client tries to send a command but it fails.
	CRServerGone = ErrorCode(2006)

	// CRVersionError is CR_VERSION_ERROR
	// This is returned if the server versions don't match what we support.
	CRVersionError = ErrorCode(2007)

	// CRServerHandshakeErr is CR_SERVER_HANDSHAKE_ERR
	CRServerHandshakeErr = ErrorCode(2012)

	// CRServerLost is CR_SERVER_LOST.
	// Used when:
	// - the client cannot write an initial auth packet.
	// - the client cannot read an initial auth packet.
	// - the client cannot read a response from the server.
	CRServerLost = ErrorCode(2013)

	// CRCommandsOutOfSync is CR_COMMANDS_OUT_OF_SYNC
	// Sent when the streaming calls are not done in the expected order.
	CRCommandsOutOfSync = ErrorCode(2014)

	// CRNetPacketTooLarge is CR_NET_PACKET_TOO_LARGE.
	CRNetPacketTooLarge = ErrorCode(2020)

	// CRSSLConnectionError is CR_SSL_CONNECTION_ERROR
	CRSSLConnectionError = ErrorCode(2026)

	// CRMalformedPacket is CR_MALFORMED_PACKET
	CRMalformedPacket = ErrorCode(2027)

	// CRNamedPipeStateError is CR_NAMEDPIPESETSTATE_ERROR
	CRNamedPipeStateError = ErrorCode(2018)

	// CRAuthPluginErr is CR_AUTH_PLUGIN_CANNOT_LOAD, returned for an auth
	// plugin this client does not implement.
	CRAuthPluginErr = ErrorCode(2059)
)

// Error codes for server-side errors.
// Originally found in include/mysql/mysqld_error.h and
// https://dev.mysql.com/doc/mysql-errors/en/server-error-reference.html
// The below are in sorted order by value, grouped by vterror code they should be mapped to.
const (
	// unknown
	ERUnknownError = ErrorCode(1105)

	// internal
	ERInternalError = ErrorCode(1815)

	// unimplemented
	ERNotSupportedYet = ErrorCode(1235)
	ERUnsupportedPS   = ErrorCode(1295)

	// resource exhausted
	ERDiskFull               = ErrorCode(1021)
	EROutOfMemory            = ErrorCode(1037)
	EROutOfSortMemory        = ErrorCode(1038)
	ERConCount               = ErrorCode(1040)
	EROutOfResources         = ErrorCode(1041)
	ERRecordFileFull         = ErrorCode(1114)
	ERHostIsBlocked          = ErrorCode(1129)
	ERCantCreateThread       = ErrorCode(1135)
	ERTooManyDelayedThreads  = ErrorCode(1151)
	ERNetPacketTooLarge      = ErrorCode(1153)
	ERTooManyUserConnections = ErrorCode(1203)
	ERLockTableFull          = ErrorCode(1206)
	ERUserLimitReached       = ErrorCode(1226)

	// deadline exceeded
	ERLockWaitTimeout = ErrorCode(1205)

	// unavailable
	ERServerShutdown = ErrorCode(1053)

	// not found
	ERDbDropExists       = ErrorCode(1008)
	ERCantFindFile       = ErrorCode(1017)
	ERFormNotFound       = ErrorCode(1029)
	ERKeyNotFound        = ErrorCode(1032)
	ERBadFieldError      = ErrorCode(1054)
	ERNoSuchThread       = ErrorCode(1094)
	ERUnknownTable       = ErrorCode(1109)
	ERCantFindUDF        = ErrorCode(1122)
	ERNonExistingGrant   = ErrorCode(1141)
	ERNonExistingDbGrant = ErrorCode(1144)
	ERNoSuchTable        = ErrorCode(1146)

	// permissions
	ERDBAccessDenied            = ErrorCode(1044)
	ERAccessDeniedError         = ErrorCode(1045)
	ERKillDenied                = ErrorCode(1095)
	ERNoPermissionToCreateUsers = ErrorCode(1211)
	ERSpecifiedAccessDenied     = ErrorCode(1227)

	// failed precondition
	ERNoDb                          = ErrorCode(1046)
	ERNoSQLBeforeCursor             = ErrorCode(1054)
	ERCantDoThisDuringAnTransaction = ErrorCode(1179)
	ERReadOnlyMode                  = ErrorCode(1290)
	ERCannotUser                    = ErrorCode(1396)
	ERInnodbReadOnly                = ErrorCode(1874)

	// already exists
	ERDbCreateExists = ErrorCode(1007)
	ERTableExists    = ErrorCode(1050)
	ERDupEntry       = ErrorCode(1062)
	ERFileExists     = ErrorCode(1086)
	ERUDFExists      = ErrorCode(1125)

	// aborted
	ERGotSignal          = ErrorCode(1078)
	ERForcingClose       = ErrorCode(1080)
	ERAbortingConnection = ErrorCode(1152)
	ERLockDeadlock       = ErrorCode(1213)

	// invalid arg
	ERUnknownComError            = ErrorCode(1047)
	ERBadNullError               = ErrorCode(1048)
	ERBadDb                      = ErrorCode(1049)
	ERBadTable                   = ErrorCode(1051)
	ERNonUniq                    = ErrorCode(1052)
	ERWrongFieldWithGroup        = ErrorCode(1055)
	ERWrongValueCount            = ErrorCode(1058)
	ERTooLongIdent               = ErrorCode(1059)
	ERDupFieldName               = ErrorCode(1060)
	ERDupKeyName                 = ErrorCode(1061)
	ERWrongFieldSpec             = ErrorCode(1063)
	ERParseError                 = ErrorCode(1064)
	EREmptyQuery                 = ErrorCode(1065)
	ERNonUniqTable               = ErrorCode(1066)
	ERInvalidDefault             = ErrorCode(1067)
	ERMultiplePriKey             = ErrorCode(1068)
	ERWrongValueCountOnRow       = ErrorCode(1136)
	ERSyntaxError                = ErrorCode(1149)
	ERUnknownStmtHandler         = ErrorCode(1243)
	ERTruncatedWrongValue        = ErrorCode(1292)
	ERQueryInterrupted           = ErrorCode(1317)
	ERWrongParamCountToProcedure = ErrorCode(1318)
	ERDataTooLong                = ErrorCode(1406)
	ERDataOutOfRange             = ErrorCode(1690)
)

// Error codes this library generates on its own, in the range reserved
// for applications.
const (
	// ERClientMaxRowsExceeded is returned by ExecuteFetch when a
	// result has more rows than the caller allowed.
	ERClientMaxRowsExceeded = ErrorCode(10001)
)

// Sql states for errors.
// Originally found in include/mysql/sql_state.h
const (
	// SSUnknownSQLState is ER_SIGNAL_EXCEPTION in
	// include/mysql/sql_state.h, but:
	// const char *unknown_sqlstate= "HY000"
	// in client.c. So using that one.
	SSUnknownSQLState = "HY000"

	// SSNetError is network related error
	SSNetError = "08S01"

	// SSWrongNumberOfColumns is related to columns error
	SSWrongNumberOfColumns = "21000"

	// SSWrongValueCountOnRow is related to columns count mismatch error
	SSWrongValueCountOnRow = "21S01"

	// SSDataTooLong is ER_DATA_TOO_LONG
	SSDataTooLong = "22001"

	// SSDataOutOfRange is ER_DATA_OUT_OF_RANGE
	SSDataOutOfRange = "22003"

	// SSConstraintViolation is constraint violation
	SSConstraintViolation = "23000"

	// SSCantDoThisDuringAnTransaction is
	// ER_CANT_DO_THIS_DURING_AN_TRANSACTION
	SSCantDoThisDuringAnTransaction = "25000"

	// SSAccessDeniedError is ER_ACCESS_DENIED_ERROR
	SSAccessDeniedError = "28000"

	// SSNoDB is ER_NO_DB_ERROR
	SSNoDB = "3D000"

	// SSLockDeadlock is ER_LOCK_DEADLOCK
	SSLockDeadlock = "40001"

	// SSClientError is the state on client errors
	SSClientError = "42000"

	// SSDupFieldName is ER_DUP_FIELD_NAME
	SSDupFieldName = "42S21"

	// SSBadFieldError is ER_BAD_FIELD_ERROR
	SSBadFieldError = "42S22"

	// SSUnknownTable is ER_UNKNOWN_TABLE
	SSUnknownTable = "42S02"

	// SSQueryInterrupted is ER_QUERY_INTERRUPTED
	SSQueryInterrupted = "70100"
)
