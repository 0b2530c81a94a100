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
	"encoding/hex"

	"mywire.dev/mywire/go/mysql"
	"mywire.dev/mywire/go/mysql/sqlerror"
)

// authMechanism builds the payloads of one SASL-style authentication
// exchange. initialResponse goes out with AuthenticateStart, and
// continueResponse answers the server's AuthenticateContinue
// challenge.
type authMechanism interface {
	name() string
	initialResponse() []byte
	continueResponse(challenge []byte) ([]byte, error)
}

// mysql41Auth implements MYSQL41, the challenge/response mechanism
// matching mysql_native_password. The response to the server's
// 20-byte nonce is "schema\0user\0*hex(scramble)".
type mysql41Auth struct {
	user     string
	password string
	schema   string
}

func (a *mysql41Auth) name() string { return AuthMysql41 }

func (a *mysql41Auth) initialResponse() []byte { return nil }

func (a *mysql41Auth) continueResponse(challenge []byte) ([]byte, error) {
	data := make([]byte, 0, len(a.schema)+len(a.user)+2+1+2*20)
	data = append(data, a.schema...)
	data = append(data, 0)
	data = append(data, a.user...)
	data = append(data, 0)
	if a.password != "" {
		scramble := mysql.ScrambleMysqlNativePassword(challenge, []byte(a.password))
		data = append(data, '*')
		data = append(data, hex.EncodeToString(scramble)...)
	}
	return data, nil
}

// plainAuth implements PLAIN. The whole exchange is the single
// payload "schema\0user\0password", so it is only usable on a secure
// channel.
type plainAuth struct {
	user     string
	password string
	schema   string
}

func (a *plainAuth) name() string { return AuthPlain }

func (a *plainAuth) initialResponse() []byte {
	data := make([]byte, 0, len(a.schema)+len(a.user)+len(a.password)+2)
	data = append(data, a.schema...)
	data = append(data, 0)
	data = append(data, a.user...)
	data = append(data, 0)
	data = append(data, a.password...)
	return data
}

func (a *plainAuth) continueResponse(challenge []byte) ([]byte, error) {
	return nil, sqlerror.NewSQLError(sqlerror.CRMalformedPacket, sqlerror.SSUnknownSQLState, "PLAIN authentication received an unexpected challenge")
}

// sha256MemoryAuth implements SHA256_MEMORY, which authenticates
// against the entry caching_sha2_password left in the server's memory
// cache. The scramble is the same as the classic protocol's, hex
// encoded.
type sha256MemoryAuth struct {
	user     string
	password string
	schema   string
}

func (a *sha256MemoryAuth) name() string { return AuthSha256Memory }

func (a *sha256MemoryAuth) initialResponse() []byte { return nil }

func (a *sha256MemoryAuth) continueResponse(challenge []byte) ([]byte, error) {
	scramble := mysql.ScrambleCachingSha2Password(challenge, []byte(a.password))
	data := make([]byte, 0, len(a.schema)+len(a.user)+2+2*len(scramble))
	data = append(data, a.schema...)
	data = append(data, 0)
	data = append(data, a.user...)
	data = append(data, 0)
	data = append(data, hex.EncodeToString(scramble)...)
	return data, nil
}
