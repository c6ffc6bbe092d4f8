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

// Convert converts v to kind to following the canonical rules: identity is
// exact, scalars widen to single element vectors, STRING round trips through
// the textual form, numeric narrowing and float to integer conversions fail
// with a range error when the value does not fit.
func Convert(v Value, to Kind) (Value, error) {
	if v.kind == to {
		return v, nil
	}
	if !to.Valid() {
		return Value{}, NewUnknownTypeError("invalid target kind %d", uint32(to))
	}
	from := v.kind
	switch {
	case from.IsAggregate() || to.IsAggregate():
		return Value{}, NewTypeError("cannot convert %s to %s", from, to)
	case to == String:
		s, err := ToText(v)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: String, data: s}, nil
	case from == String:
		return FromText(v.data.(string), to)
	case from.IsBytes() && (to.IsBytes() || to == VectorUint8):
		return Value{kind: to, data: copyBytes(v.data.([]byte))}, nil
	case from == VectorUint8 && to.IsBytes():
		return Value{kind: to, data: copyBytes(v.data.([]byte))}, nil
	case from.IsScalar() && to.IsVector():
		elem, _ := to.ElementKind()
		d, err := convertScalar(v.data, from, elem)
		if err != nil {
			return Value{}, err
		}
		out, err := makeVector(to, 1, func(int) (any, error) { return d, nil })
		if err != nil {
			return Value{}, err
		}
		return Value{kind: to, data: out}, nil
	case from.IsVector() && to.IsVector():
		src := reflect.ValueOf(v.data)
		fromElem, _ := from.ElementKind()
		toElem, _ := to.ElementKind()
		out, err := makeVector(to, src.Len(), func(i int) (any, error) {
			return convertScalar(src.Index(i).Interface(), fromElem, toElem)
		})
		if err != nil {
			return Value{}, err
		}
		return Value{kind: to, data: out}, nil
	case from.IsScalar() && to.IsScalar():
		d, err := convertScalar(v.data, from, to)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: to, data: d}, nil
	}
	return Value{}, NewTypeError("cannot convert %s to %s", from, to)
}

// ConvertData converts a bare payload of kind from to kind to.
func ConvertData(d any, from, to Kind) (any, error) {
	v, err := NewValue(from, d)
	if err != nil {
		return nil, err
	}
	if v, err = Convert(v, to); err != nil {
		return nil, err
	}
	return v.data, nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func makeVector(k Kind, n int, elem func(int) (any, error)) (any, error) {
	t, ok := payloadTypes[k]
	if !ok {
		return nil, NewTypeError("%s is not a vector kind", k)
	}
	out := reflect.MakeSlice(t, n, n)
	for i := 0; i < n; i++ {
		d, err := elem(i)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(reflect.ValueOf(d))
	}
	return out.Interface(), nil
}

func convertScalar(d any, from, to Kind) (any, error) {
	if from == to {
		return d, nil
	}
	switch {
	case to == String:
		return ToText(Value{kind: from, data: d})
	case from == String:
		return parseScalar(d.(string), to)
	}
	n, ok := toNum(d)
	if !ok {
		return nil, NewTypeError("cannot convert %s to %s", from, to)
	}
	return n.to(to)
}

type numKind uint8

const (
	intNum numKind = iota
	uintNum
	floatNum
	complexNum
)

type num struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
	c    complex128
}

func toNum(d any) (num, bool) {
	switch n := d.(type) {
	case bool:
		if n {
			return num{kind: uintNum, u: 1}, true
		}
		return num{kind: uintNum}, true
	case int8:
		return num{kind: intNum, i: int64(n)}, true
	case int16:
		return num{kind: intNum, i: int64(n)}, true
	case int32:
		return num{kind: intNum, i: int64(n)}, true
	case int64:
		return num{kind: intNum, i: n}, true
	case uint8:
		return num{kind: uintNum, u: uint64(n)}, true
	case uint16:
		return num{kind: uintNum, u: uint64(n)}, true
	case uint32:
		return num{kind: uintNum, u: uint64(n)}, true
	case uint64:
		return num{kind: uintNum, u: n}, true
	case float32:
		return num{kind: floatNum, f: float64(n)}, true
	case float64:
		return num{kind: floatNum, f: n}, true
	case complex64:
		return num{kind: complexNum, c: complex128(n)}, true
	case complex128:
		return num{kind: complexNum, c: n}, true
	}
	return num{}, false
}

func (n num) isZero() bool {
	switch n.kind {
	case intNum:
		return n.i == 0
	case uintNum:
		return n.u == 0
	case floatNum:
		return n.f == 0
	}
	return n.c == 0
}

// real drops a zero imaginary part; a non-zero one cannot be converted.
func (n num) real(to Kind) (num, error) {
	if n.kind != complexNum {
		return n, nil
	}
	if imag(n.c) != 0 {
		return n, NewTypeError("complex value %v has an imaginary part, cannot convert to %s", n.c, to)
	}
	return num{kind: floatNum, f: real(n.c)}, nil
}

func (n num) float() float64 {
	switch n.kind {
	case intNum:
		return float64(n.i)
	case uintNum:
		return float64(n.u)
	case complexNum:
		return real(n.c)
	}
	return n.f
}

func (n num) to(k Kind) (any, error) {
	switch k {
	case Bool:
		return !n.isZero(), nil
	case Float, Double:
		r, err := n.real(k)
		if err != nil {
			return nil, err
		}
		f := r.float()
		if k == Double {
			return f, nil
		}
		if r.kind == floatNum && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, NewRangeError("%v does not fit FLOAT", f)
		}
		return float32(f), nil
	case ComplexFloat, ComplexDouble:
		c := n.c
		if n.kind != complexNum {
			c = complex(n.float(), 0)
		}
		if k == ComplexDouble {
			return c, nil
		}
		for _, p := range [2]float64{real(c), imag(c)} {
			if !math.IsInf(p, 0) && !math.IsNaN(p) && math.Abs(p) > math.MaxFloat32 {
				return nil, NewRangeError("%v does not fit COMPLEX_FLOAT", c)
			}
		}
		return complex64(c), nil
	case Int8, Int16, Int32, Int64:
		r, err := n.real(k)
		if err != nil {
			return nil, err
		}
		i, err := r.signed(k)
		if err != nil {
			return nil, err
		}
		return narrowInt(i, k), nil
	case Char, Uint8, Uint16, Uint32, Uint64:
		r, err := n.real(k)
		if err != nil {
			return nil, err
		}
		u, err := r.unsigned(k)
		if err != nil {
			return nil, err
		}
		return narrowUint(u, k), nil
	}
	return nil, NewTypeError("cannot convert number to %s", k)
}

func (n num) signed(k Kind) (int64, error) {
	bits := uint(k.Size() * 8)
	lo, hi := -(int64(1) << (bits - 1)), int64(uint64(1)<<(bits-1)-1)
	switch n.kind {
	case intNum:
		if n.i < lo || n.i > hi {
			return 0, NewRangeError("%d does not fit %s", n.i, k)
		}
		return n.i, nil
	case uintNum:
		if n.u > uint64(hi) {
			return 0, NewRangeError("%d does not fit %s", n.u, k)
		}
		return int64(n.u), nil
	}
	f := math.Trunc(n.f)
	// 2^(bits-1) is exact in float64 for every width
	limit := math.Ldexp(1, int(bits-1))
	if math.IsNaN(f) || f < -limit || f >= limit {
		return 0, NewRangeError("%v does not fit %s", n.f, k)
	}
	return int64(f), nil
}

func (n num) unsigned(k Kind) (uint64, error) {
	bits := uint(k.Size() * 8)
	hi := uint64(math.MaxUint64)
	if bits < 64 {
		hi = uint64(1)<<bits - 1
	}
	switch n.kind {
	case intNum:
		if n.i < 0 || uint64(n.i) > hi {
			return 0, NewRangeError("%d does not fit %s", n.i, k)
		}
		return uint64(n.i), nil
	case uintNum:
		if n.u > hi {
			return 0, NewRangeError("%d does not fit %s", n.u, k)
		}
		return n.u, nil
	}
	f := math.Trunc(n.f)
	limit := math.Ldexp(1, int(bits))
	if math.IsNaN(f) || f < 0 || f >= limit {
		return 0, NewRangeError("%v does not fit %s", n.f, k)
	}
	return uint64(f), nil
}
