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

// Client message types, from Mysqlx.ClientMessages.Type.
const (
	ClientConCapabilitiesGet = 1
	ClientConCapabilitiesSet = 2
	ClientConClose           = 3

	ClientSessAuthenticateStart    = 4
	ClientSessAuthenticateContinue = 5
	ClientSessReset                = 6
	ClientSessClose                = 7

	ClientSQLStmtExecute = 12
)

// Server message types, from Mysqlx.ServerMessages.Type.
const (
	ServerOK    = 0
	ServerError = 1

	ServerConnCapabilities = 2

	ServerSessAuthenticateContinue = 3
	ServerSessAuthenticateOK       = 4

	ServerNotice = 11

	ServerResultsetColumnMetaData          = 12
	ServerResultsetRow                     = 13
	ServerResultsetFetchDone               = 14
	ServerResultsetFetchSuspended          = 15
	ServerResultsetFetchDoneMoreResultsets = 16

	ServerSQLStmtExecuteOK                = 17
	ServerResultsetFetchDoneMoreOutParams = 18
)

// Scalar value types, from Mysqlx.Datatypes.Scalar.Type.
const (
	scalarSint   = 1
	scalarUint   = 2
	scalarNull   = 3
	scalarOctets = 4
	scalarDouble = 5
	scalarFloat  = 6
	scalarBool   = 7
	scalarString = 8
)

// Any value types, from Mysqlx.Datatypes.Any.Type.
const (
	anyScalar = 1
	anyObject = 2
	anyArray  = 3
)

// Column field types, from Mysqlx.Resultset.ColumnMetaData.FieldType.
const (
	fieldTypeSint     = 1
	fieldTypeUint     = 2
	fieldTypeDouble   = 5
	fieldTypeFloat    = 6
	fieldTypeBytes    = 7
	fieldTypeTime     = 10
	fieldTypeDatetime = 12
	fieldTypeSet      = 15
	fieldTypeEnum     = 16
	fieldTypeBit      = 17
	fieldTypeDecimal  = 18
)

// ColumnMetaData flag bits.
const (
	// columnFlagUnsigned is shared by all numeric field types.
	columnFlagUnsigned = 0x0001
	// columnFlagTimestamp marks a DATETIME column as TIMESTAMP.
	columnFlagTimestamp = 0x0001
)

// ColumnMetaData content types for BYTES and DATETIME columns.
const (
	contentTypeGeometry = 1
	contentTypeJSON     = 2
	contentTypeXML      = 3
	contentTypeDate     = 4
)

// Notice frame types, from Mysqlx.Notice.Frame.Type.
const (
	noticeWarning               = 1
	noticeSessionVariableChange = 2
	noticeSessionStateChange    = 3
)

// Session state parameters, from
// Mysqlx.Notice.SessionStateChanged.Parameter.
const (
	sessionStateCurrentSchema     = 1
	sessionStateAccountExpired    = 2
	sessionStateGeneratedInsertID = 3
	sessionStateRowsAffected      = 4
	sessionStateProducedMessage   = 5
	sessionStateClientIDAssigned  = 6
)

// Authentication mechanism names.
const (
	// AuthMysql41 is the challenge/response mechanism matching the
	// classic protocol's mysql_native_password.
	AuthMysql41 = "MYSQL41"

	// AuthPlain sends the password in clear text. Only usable on a
	// secure channel.
	AuthPlain = "PLAIN"

	// AuthSha256Memory is the challenge/response mechanism against
	// the server's in-memory SHA256 password cache.
	AuthSha256Memory = "SHA256_MEMORY"
)
