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
	"math"
)

// Infer determines the kind of a native Go value. Platform sized int and uint
// map to the 32-bit kind when every value fits and to the 64-bit kind
// otherwise. []byte is VECTOR_CHAR; use an explicit kind for VECTOR_UINT8.
// A []any infers to the vector of its single element kind; mixed or nil
// elements fail with a type error. Aggregates are not known here.
func Infer(v any) (Value, error) {
	switch d := v.(type) {
	case nil:
		return NoneValue(), nil
	case Value:
		return d, nil
	case bool:
		return Value{kind: Bool, data: d}, nil
	case int8:
		return Value{kind: Int8, data: d}, nil
	case uint8:
		return Value{kind: Uint8, data: d}, nil
	case int16:
		return Value{kind: Int16, data: d}, nil
	case uint16:
		return Value{kind: Uint16, data: d}, nil
	case int32:
		return Value{kind: Int32, data: d}, nil
	case uint32:
		return Value{kind: Uint32, data: d}, nil
	case int64:
		return Value{kind: Int64, data: d}, nil
	case uint64:
		return Value{kind: Uint64, data: d}, nil
	case int:
		if d >= math.MinInt32 && d <= math.MaxInt32 {
			return Value{kind: Int32, data: int32(d)}, nil
		}
		return Value{kind: Int64, data: int64(d)}, nil
	case uint:
		if d <= math.MaxUint32 {
			return Value{kind: Uint32, data: uint32(d)}, nil
		}
		return Value{kind: Uint64, data: uint64(d)}, nil
	case float32:
		return Value{kind: Float, data: d}, nil
	case float64:
		return Value{kind: Double, data: d}, nil
	case complex64:
		return Value{kind: ComplexFloat, data: d}, nil
	case complex128:
		return Value{kind: ComplexDouble, data: d}, nil
	case string:
		return Value{kind: String, data: d}, nil
	case []byte:
		return Value{kind: VectorChar, data: d}, nil
	case []bool:
		return Value{kind: VectorBool, data: d}, nil
	case []int8:
		return Value{kind: VectorInt8, data: d}, nil
	case []int16:
		return Value{kind: VectorInt16, data: d}, nil
	case []uint16:
		return Value{kind: VectorUint16, data: d}, nil
	case []int32:
		return Value{kind: VectorInt32, data: d}, nil
	case []uint32:
		return Value{kind: VectorUint32, data: d}, nil
	case []int64:
		return Value{kind: VectorInt64, data: d}, nil
	case []uint64:
		return Value{kind: VectorUint64, data: d}, nil
	case []float32:
		return Value{kind: VectorFloat, data: d}, nil
	case []float64:
		return Value{kind: VectorDouble, data: d}, nil
	case []complex64:
		return Value{kind: VectorComplexFloat, data: d}, nil
	case []complex128:
		return Value{kind: VectorComplexDouble, data: d}, nil
	case []string:
		return Value{kind: VectorString, data: d}, nil
	case []int:
		return inferInts(d), nil
	case []uint:
		return inferUints(d), nil
	case []any:
		return inferList(d)
	}
	return Value{}, NewTypeError("cannot infer a kind for %T", v)
}

func inferInts(d []int) Value {
	small := true
	for _, i := range d {
		if i < math.MinInt32 || i > math.MaxInt32 {
			small = false
			break
		}
	}
	if small {
		out := make([]int32, len(d))
		for i := range d {
			out[i] = int32(d[i])
		}
		return Value{kind: VectorInt32, data: out}
	}
	out := make([]int64, len(d))
	for i := range d {
		out[i] = int64(d[i])
	}
	return Value{kind: VectorInt64, data: out}
}

func inferUints(d []uint) Value {
	small := true
	for _, u := range d {
		if u > math.MaxUint32 {
			small = false
			break
		}
	}
	if small {
		out := make([]uint32, len(d))
		for i := range d {
			out[i] = uint32(d[i])
		}
		return Value{kind: VectorUint32, data: out}
	}
	out := make([]uint64, len(d))
	for i := range d {
		out[i] = uint64(d[i])
	}
	return Value{kind: VectorUint64, data: out}
}

func inferList(d []any) (Value, error) {
	if len(d) == 0 {
		return Value{kind: VectorString, data: []string{}}, nil
	}
	ints := make([]int, 0, len(d))
	for _, e := range d {
		if i, ok := e.(int); ok {
			ints = append(ints, i)
		}
	}
	if len(ints) == len(d) {
		return inferInts(ints), nil
	}
	var elem Kind
	for i, e := range d {
		if e == nil {
			return Value{}, NewTypeError("element %d of list is nil", i)
		}
		v, err := Infer(e)
		if err != nil {
			return Value{}, err
		}
		if !v.kind.IsScalar() {
			return Value{}, NewTypeError("element %d of list is %s, not a scalar", i, v.kind)
		}
		if i == 0 {
			elem = v.kind
		} else if v.kind != elem {
			return Value{}, NewTypeError("mixed kinds in list: %s and %s", elem, v.kind)
		}
	}
	vk, _ := elem.VectorKind()
	out, err := makeVector(vk, len(d), func(i int) (any, error) {
		v, err := Infer(d[i])
		return v.data, err
	})
	if err != nil {
		return Value{}, err
	}
	return Value{kind: vk, data: out}, nil
}
