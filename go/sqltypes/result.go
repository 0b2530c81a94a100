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

package sqltypes

// Field describes a single column of a result set. The values mirror
// the fields of the Protocol::ColumnDefinition41 packet.
type Field struct {
	Name     string
	Type     Type
	Table    string
	OrgTable string
	Database string
	OrgName  string

	// ColumnLength is really a uint32. All 32 bits can be used.
	ColumnLength uint32

	// Charset is actually a uint16. Only the lower 16 bits are used.
	Charset uint32

	// Decimals is actually a uint8. Only the lower 8 bits are used.
	Decimals uint32

	// Flags is actually a uint16. Only the lower 16 bits are used.
	Flags uint32
}

// Result represents a query result.
type Result struct {
	Fields       []*Field `json:"fields"`
	RowsAffected uint64   `json:"rows_affected"`
	InsertID     uint64   `json:"insert_id"`
	Rows         []Row    `json:"rows"`

	// SessionStateChanges is the raw session-state payload of the
	// terminating OK packet, if the server reported one.
	SessionStateChanges string `json:"session_state_changes"`

	StatusFlags uint16 `json:"status_flags"`
	Info        string `json:"info"`
}

// Repair fixes the type info in the rows to conform to the
// supplied field types.
func (result *Result) Repair(fields []*Field) {
	// Usage of j is intentional.
	for j, f := range fields {
		for _, r := range result.Rows {
			if r[j].typ != Null {
				r[j].typ = f.Type
			}
		}
	}
}

// Copy creates a deep copy of Result.
func (result *Result) Copy() *Result {
	out := &Result{
		RowsAffected:        result.RowsAffected,
		InsertID:            result.InsertID,
		SessionStateChanges: result.SessionStateChanges,
		StatusFlags:         result.StatusFlags,
		Info:                result.Info,
	}
	if result.Fields != nil {
		out.Fields = make([]*Field, len(result.Fields))
		copy(out.Fields, result.Fields)
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, CopyRow(r))
		}
	}
	return out
}

// CopyRow makes a copy of the row.
func CopyRow(r []Value) []Value {
	// The raw bytes of the values are supposed to be treated as read-only.
	// So, there's no need to copy them.
	newRow := make([]Value, len(r))
	copy(newRow, r)
	return newRow
}

// AppendResult will combine the Results Objects of one result
// to another result. Useful for batch results.
func (result *Result) AppendResult(src *Result) {
	if src.RowsAffected == 0 && len(src.Rows) == 0 && len(src.Fields) == 0 {
		return
	}
	if result.Fields == nil {
		result.Fields = src.Fields
	}
	result.RowsAffected += src.RowsAffected
	if src.InsertID != 0 {
		result.InsertID = src.InsertID
	}
	result.Rows = append(result.Rows, src.Rows...)
}

// Equal compares the Result with another one.
// reflect.DeepEqual shouldn't be used because of the protos.
func (result *Result) Equal(other *Result) bool {
	// Check for nil cases
	if result == nil {
		return other == nil
	}
	if other == nil {
		return false
	}

	// Compare Fields, RowsAffected, InsertID, Rows.
	return FieldsEqual(result.Fields, other.Fields) &&
		result.RowsAffected == other.RowsAffected &&
		result.InsertID == other.InsertID &&
		RowsEqual(result.Rows, other.Rows)
}

// RowsEqual compares two arrays of rows.
func RowsEqual(r1, r2 []Row) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, r := range r1 {
		if len(r) != len(r2[i]) {
			return false
		}
		for j, v := range r {
			if v.typ != r2[i][j].typ || string(v.val) != string(r2[i][j].val) {
				return false
			}
		}
	}
	return true
}

// FieldsEqual compares two arrays of fields.
func FieldsEqual(f1, f2 []*Field) bool {
	if len(f1) != len(f2) {
		return false
	}
	for i, f := range f1 {
		if *f != *f2[i] {
			return false
		}
	}
	return true
}
