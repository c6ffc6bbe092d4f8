/*
 *     Copyright (c) 2023. Raft LLC
 *
 *     This program is free software: you can redistribute it and/or modify
 *     it under the terms of the GNU General Public License as published by
 *     the Free Software Foundation, either version 3 of the License, or
 *     (at your option) any later version.
 *
 *     This program is distributed in the hope that it will be useful,
 *     but WITHOUT ANY WARRANTY; without even the implied warranty of
 *     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *     GNU General Public License for more details.
 *
 *     You should have received a copy of the GNU General Public License
 *     along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 */

package types

import (
	"reflect"
)

// Value is a kind-tagged payload. Payload Go types per kind:
//
//	BOOL bool, CHAR byte, INT8..UINT64 the matching int/uint type,
//	FLOAT float32, DOUBLE float64, COMPLEX_FLOAT complex64,
//	COMPLEX_DOUBLE complex128, STRING string, VECTOR_<scalar> the slice of
//	the scalar type, VECTOR_CHAR and BYTE_ARRAY []byte, NONE nil.
//
// HASH, VECTOR_HASH and SCHEMA payloads are owned by the hash package and are
// only checked for non-nil here.
type Value struct {
	kind Kind
	data any
}

var payloadTypes = map[Kind]reflect.Type{
	Bool:                reflect.TypeOf(false),
	Char:                reflect.TypeOf(byte(0)),
	Int8:                reflect.TypeOf(int8(0)),
	Uint8:               reflect.TypeOf(uint8(0)),
	Int16:               reflect.TypeOf(int16(0)),
	Uint16:              reflect.TypeOf(uint16(0)),
	Int32:               reflect.TypeOf(int32(0)),
	Uint32:              reflect.TypeOf(uint32(0)),
	Int64:               reflect.TypeOf(int64(0)),
	Uint64:              reflect.TypeOf(uint64(0)),
	Float:               reflect.TypeOf(float32(0)),
	Double:              reflect.TypeOf(float64(0)),
	ComplexFloat:        reflect.TypeOf(complex64(0)),
	ComplexDouble:       reflect.TypeOf(complex128(0)),
	String:              reflect.TypeOf(""),
	VectorBool:          reflect.TypeOf([]bool(nil)),
	VectorChar:          reflect.TypeOf([]byte(nil)),
	VectorInt8:          reflect.TypeOf([]int8(nil)),
	VectorUint8:         reflect.TypeOf([]uint8(nil)),
	VectorInt16:         reflect.TypeOf([]int16(nil)),
	VectorUint16:        reflect.TypeOf([]uint16(nil)),
	VectorInt32:         reflect.TypeOf([]int32(nil)),
	VectorUint32:        reflect.TypeOf([]uint32(nil)),
	VectorInt64:         reflect.TypeOf([]int64(nil)),
	VectorUint64:        reflect.TypeOf([]uint64(nil)),
	VectorFloat:         reflect.TypeOf([]float32(nil)),
	VectorDouble:        reflect.TypeOf([]float64(nil)),
	VectorComplexFloat:  reflect.TypeOf([]complex64(nil)),
	VectorComplexDouble: reflect.TypeOf([]complex128(nil)),
	VectorString:        reflect.TypeOf([]string(nil)),
	ByteArray:           reflect.TypeOf([]byte(nil)),
}

// NewValue pairs a payload with a kind, checking that the payload has the Go
// type the kind dictates.
func NewValue(k Kind, data any) (Value, error) {
	if !k.Valid() {
		return Value{}, NewUnknownTypeError("invalid kind %d", uint32(k))
	}
	switch {
	case k == None:
		if data != nil {
			return Value{}, NewTypeError("NONE takes no payload, got %T", data)
		}
	case k.IsAggregate():
		if data == nil {
			return Value{}, NewTypeError("%s payload must not be nil", k)
		}
	default:
		t, ok := payloadTypes[k]
		if !ok {
			return Value{}, NewUnknownTypeError("kind %s cannot hold values", k)
		}
		if data == nil || reflect.TypeOf(data) != t {
			return Value{}, NewTypeError("%s payload must be %s, got %T", k, t, data)
		}
		if k.IsVector() || k.IsBytes() {
			if reflect.ValueOf(data).IsNil() {
				data = reflect.MakeSlice(t, 0, 0).Interface()
			}
		}
	}
	return Value{kind: k, data: data}, nil
}

// MustValue is NewValue that panics on mismatch.
func MustValue(k Kind, data any) Value {
	v, err := NewValue(k, data)
	if err != nil {
		panic(err)
	}
	return v
}

// NoneValue is the single value of kind NONE.
func NoneValue() Value {
	return Value{kind: None}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) Data() any {
	return v.data
}

func (v Value) IsZero() bool {
	return v.kind == Bool && v.data == nil
}

// Len is the element count of a vector or byte payload, -1 otherwise.
func (v Value) Len() int {
	if v.kind.IsVector() || v.kind.IsBytes() {
		return reflect.ValueOf(v.data).Len()
	}
	return -1
}

// Copy returns a value whose slice payload does not alias v. Aggregate
// payloads are returned as is; the hash package clones those.
func (v Value) Copy() Value {
	if v.kind.IsVector() || v.kind.IsBytes() {
		src := reflect.ValueOf(v.data)
		dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		reflect.Copy(dst, src)
		return Value{kind: v.kind, data: dst.Interface()}
	}
	return v
}

func (v Value) String() string {
	if s, err := ToText(v); err == nil {
		return s
	}
	return "<" + v.kind.String() + ">"
}
