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

// Package mysql is a library to support MySQL binary protocol,
// for client connections.
//
// Most of the methods are documented with their intended use case and
// the protocol level. The protocol documentation is at:
// http://dev.mysql.com/doc/internals/en/client-server-protocol.html
//
// A few notes on the protocol:
//
//   - The 'max packet size' field in the handshake response is always
//     sent as 0. The server then uses its own max_allowed_packet value
//     to cap what it accepts; packets larger than 2^24-1 bytes are
//     split into chunks regardless, so the field carries no extra
//     information.
//
//   - The EOF packet is ambiguous on the wire: its 0xfe header byte is
//     shared with the 8-byte length-encoded integer and with the
//     AuthSwitchRequest packet. All EOF checks in this package also
//     look at the packet length, and when CLIENT_DEPRECATE_EOF is
//     negotiated, result sets are terminated by an OK packet carrying
//     the EOF header instead.
package mysql
