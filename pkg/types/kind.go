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

import "strconv"

// Kind identifies how a value is stored, compared and serialized. The numeric
// value of a Kind is its wire id and never changes; new kinds are appended.
type Kind uint32

const (
	Bool Kind = iota
	VectorBool
	Char
	VectorChar
	Int8
	VectorInt8
	Uint8
	VectorUint8
	Int16
	VectorInt16
	Uint16
	VectorUint16
	Int32
	VectorInt32
	Uint32
	VectorUint32
	Int64
	VectorInt64
	Uint64
	VectorUint64
	Float
	VectorFloat
	Double
	VectorDouble
	ComplexFloat
	VectorComplexFloat
	ComplexDouble
	VectorComplexDouble
	String
	VectorString
	Hash
	VectorHash
	PtrBool
	PtrChar
	PtrInt8
	PtrUint8
	PtrInt16
	PtrUint16
	PtrInt32
	PtrUint32
	PtrInt64
	PtrUint64
	PtrFloat
	PtrDouble
	PtrComplexFloat
	PtrComplexDouble
	PtrString
	Schema
	Any
	None
	VectorNone
	ByteArray
	Unknown
	Simple
	Sequence
	Pointer
	HashPointer
	VectorHashPointer

	kindCount
)

type family uint8

const (
	scalarFamily family = iota + 1
	vectorFamily
	bytesFamily
	aggregateFamily
	sentinelFamily
	reservedFamily
)

type kindInfo struct {
	name   string
	family family
	size   int  // fixed payload width in bytes, 0 when variable
	pair   Kind // vector kind of a scalar, element kind of a vector
}

var registry = [kindCount]kindInfo{
	Bool:                {"BOOL", scalarFamily, 1, VectorBool},
	VectorBool:          {"VECTOR_BOOL", vectorFamily, 0, Bool},
	Char:                {"CHAR", scalarFamily, 1, VectorChar},
	VectorChar:          {"VECTOR_CHAR", bytesFamily, 0, Char},
	Int8:                {"INT8", scalarFamily, 1, VectorInt8},
	VectorInt8:          {"VECTOR_INT8", vectorFamily, 0, Int8},
	Uint8:               {"UINT8", scalarFamily, 1, VectorUint8},
	VectorUint8:         {"VECTOR_UINT8", vectorFamily, 0, Uint8},
	Int16:               {"INT16", scalarFamily, 2, VectorInt16},
	VectorInt16:         {"VECTOR_INT16", vectorFamily, 0, Int16},
	Uint16:              {"UINT16", scalarFamily, 2, VectorUint16},
	VectorUint16:        {"VECTOR_UINT16", vectorFamily, 0, Uint16},
	Int32:               {"INT32", scalarFamily, 4, VectorInt32},
	VectorInt32:         {"VECTOR_INT32", vectorFamily, 0, Int32},
	Uint32:              {"UINT32", scalarFamily, 4, VectorUint32},
	VectorUint32:        {"VECTOR_UINT32", vectorFamily, 0, Uint32},
	Int64:               {"INT64", scalarFamily, 8, VectorInt64},
	VectorInt64:         {"VECTOR_INT64", vectorFamily, 0, Int64},
	Uint64:              {"UINT64", scalarFamily, 8, VectorUint64},
	VectorUint64:        {"VECTOR_UINT64", vectorFamily, 0, Uint64},
	Float:               {"FLOAT", scalarFamily, 4, VectorFloat},
	VectorFloat:         {"VECTOR_FLOAT", vectorFamily, 0, Float},
	Double:              {"DOUBLE", scalarFamily, 8, VectorDouble},
	VectorDouble:        {"VECTOR_DOUBLE", vectorFamily, 0, Double},
	ComplexFloat:        {"COMPLEX_FLOAT", scalarFamily, 8, VectorComplexFloat},
	VectorComplexFloat:  {"VECTOR_COMPLEX_FLOAT", vectorFamily, 0, ComplexFloat},
	ComplexDouble:       {"COMPLEX_DOUBLE", scalarFamily, 16, VectorComplexDouble},
	VectorComplexDouble: {"VECTOR_COMPLEX_DOUBLE", vectorFamily, 0, ComplexDouble},
	String:              {"STRING", scalarFamily, 0, VectorString},
	VectorString:        {"VECTOR_STRING", vectorFamily, 0, String},
	Hash:                {"HASH", aggregateFamily, 0, VectorHash},
	VectorHash:          {"VECTOR_HASH", aggregateFamily, 0, Hash},
	PtrBool:             {"PTR_BOOL", reservedFamily, 0, Unknown},
	PtrChar:             {"PTR_CHAR", reservedFamily, 0, Unknown},
	PtrInt8:             {"PTR_INT8", reservedFamily, 0, Unknown},
	PtrUint8:            {"PTR_UINT8", reservedFamily, 0, Unknown},
	PtrInt16:            {"PTR_INT16", reservedFamily, 0, Unknown},
	PtrUint16:           {"PTR_UINT16", reservedFamily, 0, Unknown},
	PtrInt32:            {"PTR_INT32", reservedFamily, 0, Unknown},
	PtrUint32:           {"PTR_UINT32", reservedFamily, 0, Unknown},
	PtrInt64:            {"PTR_INT64", reservedFamily, 0, Unknown},
	PtrUint64:           {"PTR_UINT64", reservedFamily, 0, Unknown},
	PtrFloat:            {"PTR_FLOAT", reservedFamily, 0, Unknown},
	PtrDouble:           {"PTR_DOUBLE", reservedFamily, 0, Unknown},
	PtrComplexFloat:     {"PTR_COMPLEX_FLOAT", reservedFamily, 0, Unknown},
	PtrComplexDouble:    {"PTR_COMPLEX_DOUBLE", reservedFamily, 0, Unknown},
	PtrString:           {"PTR_STRING", reservedFamily, 0, Unknown},
	Schema:              {"SCHEMA", aggregateFamily, 0, Unknown},
	Any:                 {"ANY", reservedFamily, 0, Unknown},
	None:                {"NONE", sentinelFamily, 0, Unknown},
	VectorNone:          {"VECTOR_NONE", reservedFamily, 0, Unknown},
	ByteArray:           {"BYTE_ARRAY", bytesFamily, 0, Unknown},
	Unknown:             {"UNKNOWN", sentinelFamily, 0, Unknown},
	Simple:              {"SIMPLE", reservedFamily, 0, Unknown},
	Sequence:            {"SEQUENCE", reservedFamily, 0, Unknown},
	Pointer:             {"POINTER", reservedFamily, 0, Unknown},
	HashPointer:         {"HASH_POINTER", reservedFamily, 0, Unknown},
	VectorHashPointer:   {"VECTOR_HASH_POINTER", reservedFamily, 0, Unknown},
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[registry[k].name] = k
	}
	return m
}()

// FromID looks a kind up by its wire id.
func FromID(id uint32) (Kind, error) {
	if id >= uint32(kindCount) {
		return Unknown, NewUnknownTypeError("no kind with id %d", id)
	}
	return Kind(id), nil
}

// FromName looks a kind up by its canonical name, e.g. "VECTOR_INT32".
func FromName(name string) (Kind, error) {
	if k, ok := byName[name]; ok {
		return k, nil
	}
	return Unknown, NewUnknownTypeError("no kind named %q", name)
}

func (k Kind) String() string {
	if k < kindCount {
		return registry[k].name
	}
	return "KIND(" + strconv.FormatUint(uint64(k), 10) + ")"
}

func (k Kind) ID() uint32 {
	return uint32(k)
}

func (k Kind) Valid() bool {
	return k < kindCount
}

// Serializable reports whether the codecs can carry values of this kind.
func (k Kind) Serializable() bool {
	if k >= kindCount {
		return false
	}
	switch registry[k].family {
	case scalarFamily, vectorFamily, bytesFamily, aggregateFamily:
		return true
	}
	return k == None
}

func (k Kind) IsScalar() bool {
	return k < kindCount && registry[k].family == scalarFamily
}

// IsVector is true for the typed vectors, including VECTOR_CHAR.
func (k Kind) IsVector() bool {
	return k < kindCount && (registry[k].family == vectorFamily || k == VectorChar)
}

func (k Kind) IsBytes() bool {
	return k == VectorChar || k == ByteArray
}

func (k Kind) IsAggregate() bool {
	return k == Hash || k == VectorHash || k == Schema
}

func (k Kind) IsNumeric() bool {
	switch k {
	case Char, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float, Double, ComplexFloat, ComplexDouble:
		return true
	}
	return false
}

func (k Kind) IsInteger() bool {
	switch k {
	case Char, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	}
	return false
}

func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Float, Double, ComplexFloat, ComplexDouble:
		return true
	}
	return false
}

func (k Kind) IsFloat() bool {
	return k == Float || k == Double
}

func (k Kind) IsComplex() bool {
	return k == ComplexFloat || k == ComplexDouble
}

// Size is the fixed payload width of a scalar kind, 0 for variable width.
func (k Kind) Size() int {
	if k < kindCount {
		return registry[k].size
	}
	return 0
}

// VectorKind returns the vector kind holding elements of scalar kind k.
func (k Kind) VectorKind() (Kind, bool) {
	if k.IsScalar() || k == Hash {
		return registry[k].pair, true
	}
	return Unknown, false
}

// ElementKind returns the element kind of a vector kind.
func (k Kind) ElementKind() (Kind, bool) {
	if k.IsVector() || k == VectorHash {
		return registry[k].pair, true
	}
	return Unknown, false
}
