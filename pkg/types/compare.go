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
	"reflect"
)

// Equal compares kinds and payloads. Floats compare bitwise, so NaN equals an
// identical NaN and 0 differs from -0. Aggregate payloads fall back to
// reflect.DeepEqual; the hash package compares those itself.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch x := a.data.(type) {
	case float32:
		return math.Float32bits(x) == math.Float32bits(b.data.(float32))
	case float64:
		return math.Float64bits(x) == math.Float64bits(b.data.(float64))
	case complex64:
		y := b.data.(complex64)
		return math.Float32bits(real(x)) == math.Float32bits(real(y)) &&
			math.Float32bits(imag(x)) == math.Float32bits(imag(y))
	case complex128:
		y := b.data.(complex128)
		return math.Float64bits(real(x)) == math.Float64bits(real(y)) &&
			math.Float64bits(imag(x)) == math.Float64bits(imag(y))
	case []float32:
		y := b.data.([]float32)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float32bits(x[i]) != math.Float32bits(y[i]) {
				return false
			}
		}
		return true
	case []float64:
		y := b.data.([]float64)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float64bits(x[i]) != math.Float64bits(y[i]) {
				return false
			}
		}
		return true
	case []complex64, []complex128:
		ra, rb := reflect.ValueOf(a.data), reflect.ValueOf(b.data)
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !Equal(Value{kind: ComplexDouble, data: ra.Index(i).Complex()}, Value{kind: ComplexDouble, data: rb.Index(i).Complex()}) {
				return false
			}
		}
		return true
	}
	if a.kind.IsVector() || a.kind.IsBytes() || a.kind.IsAggregate() {
		return reflect.DeepEqual(a.data, b.data)
	}
	return a.data == b.data
}

// Compare orders two numeric values of possibly different kinds. Integers
// compare exactly; as soon as a float is involved both sides compare as
// float64. Complex and non-numeric kinds cannot be ordered. A NaN operand
// yields a RangeError.
func Compare(a, b Value) (int, error) {
	x, ok := toNum(a.data)
	if !ok || x.kind == complexNum || a.kind == String {
		return 0, NewTypeError("%s values cannot be ordered", a.kind)
	}
	y, ok := toNum(b.data)
	if !ok || y.kind == complexNum || b.kind == String {
		return 0, NewTypeError("%s values cannot be ordered", b.kind)
	}
	switch {
	case x.kind == floatNum || y.kind == floatNum:
		fx, fy := x.float(), y.float()
		if math.IsNaN(fx) || math.IsNaN(fy) {
			return 0, NewRangeError("NaN cannot be ordered")
		}
		return cmp3(fx, fy), nil
	case x.kind == intNum && y.kind == intNum:
		return cmp3(x.i, y.i), nil
	case x.kind == uintNum && y.kind == uintNum:
		return cmp3(x.u, y.u), nil
	case x.kind == intNum:
		if x.i < 0 {
			return -1, nil
		}
		return cmp3(uint64(x.i), y.u), nil
	default:
		if y.i < 0 {
			return 1, nil
		}
		return cmp3(x.u, uint64(y.i)), nil
	}
}

func cmp3[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
