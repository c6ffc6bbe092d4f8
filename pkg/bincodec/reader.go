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

package bincodec

import (
	"fmt"
	"io"
	"math"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// MaxDepth bounds the nesting of Hashes a reader accepts.
const MaxDepth = 512

// minimal encoded sizes, used to bound counts before allocating
const (
	minEntrySize = 1 + 4 + 4
	minAttrSize  = 1 + 4
	minHashSize  = 4
	minLenSize   = 4
)

// Unmarshal decodes a single Hash that must span all of data.
func Unmarshal(data []byte) (*hash.Hash, error) {
	h, n, err := UnmarshalPrefix(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, types.NewParseError(n, types.Hash, "trailing bytes after Hash")
	}
	return h, nil
}

// UnmarshalPrefix decodes the Hash at the start of data and returns the
// number of bytes it used.
func UnmarshalPrefix(data []byte) (*hash.Hash, int, error) {
	r := &reader{data: data}
	h, err := r.hash()
	if err != nil {
		return nil, r.pos, err
	}
	return h, r.pos, nil
}

// Read decodes a Hash from the whole of r.
func Read(r io.Reader) (*hash.Hash, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

type reader struct {
	data  []byte
	pos   int
	depth int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) take(n int, expected types.Kind) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, types.NewParseError(r.pos, expected, fmt.Sprintf("need %d bytes, %d left", n, r.remaining()))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8(expected types.Kind) (uint8, error) {
	b, err := r.take(1, expected)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32(expected types.Kind) (uint32, error) {
	b, err := r.take(4, expected)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func (r *reader) u64(expected types.Kind) (uint64, error) {
	b, err := r.take(8, expected)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// count reads a u32 element count and refuses counts that cannot fit in the
// remaining input at minSize bytes per element.
func (r *reader) count(expected types.Kind, minSize int) (int, error) {
	at := r.pos
	n, err := r.u32(expected)
	if err != nil {
		return 0, err
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(r.remaining()) {
		return 0, types.NewResourceError("at offset %d: %s declares %d elements of at least %d bytes, only %d bytes left",
			at, expected, n, minSize, r.remaining())
	}
	return int(n), nil
}

func (r *reader) key() (string, error) {
	n, err := r.u8(types.String)
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), types.String)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) kind() (types.Kind, error) {
	at := r.pos
	id, err := r.u32(types.Unknown)
	if err != nil {
		return types.Unknown, err
	}
	k, err := types.FromID(id)
	if err != nil {
		return types.Unknown, types.Wrap(err, "at offset %d", at)
	}
	if !k.Serializable() {
		return types.Unknown, types.NewParseError(at, k, "kind cannot appear in serialized data")
	}
	return k, nil
}

func (r *reader) hash() (*hash.Hash, error) {
	if r.depth >= MaxDepth {
		return nil, types.NewResourceError("at offset %d: Hash nesting deeper than %d", r.pos, MaxDepth)
	}
	r.depth++
	defer func() { r.depth-- }()

	n, err := r.count(types.Hash, minEntrySize)
	if err != nil {
		return nil, err
	}
	h := hash.New()
	for i := 0; i < n; i++ {
		at := r.pos
		key, err := r.key()
		if err != nil {
			return nil, err
		}
		k, err := r.kind()
		if err != nil {
			return nil, types.Wrap(err, "key %q", key)
		}
		nAttrs, err := r.count(types.Unknown, minAttrSize)
		if err != nil {
			return nil, types.Wrap(err, "key %q", key)
		}
		attrs := hash.NewAttributes()
		for j := 0; j < nAttrs; j++ {
			name, err := r.key()
			if err != nil {
				return nil, types.Wrap(err, "key %q", key)
			}
			ak, err := r.kind()
			if err != nil {
				return nil, types.Wrap(err, "key %q attribute %q", key, name)
			}
			av, err := r.value(ak)
			if err != nil {
				return nil, types.Wrap(err, "key %q attribute %q", key, name)
			}
			if attrs.Has(name) {
				return nil, types.Wrap(types.NewDuplicateKeyError(name), "at offset %d: key %q attribute", at, key)
			}
			attrs.SetValue(name, av)
		}
		v, err := r.value(k)
		if err != nil {
			return nil, types.Wrap(err, "key %q", key)
		}
		if k == types.Hash {
			if err = hash.CheckNDArray(v.Data().(*hash.Hash), attrs); err != nil {
				return nil, types.Wrap(err, "at offset %d: key %q", at, key)
			}
		}
		if err = h.Append(key, v, attrs); err != nil {
			return nil, types.Wrap(err, "at offset %d", at)
		}
	}
	return h, nil
}

func (r *reader) value(k types.Kind) (types.Value, error) {
	d, err := r.payload(k)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewValue(k, d)
}

func (r *reader) payload(k types.Kind) (any, error) {
	switch k {
	case types.None:
		return nil, nil
	case types.Bool:
		b, err := r.u8(k)
		return b != 0, err
	case types.Char, types.Uint8:
		return r.u8(k)
	case types.Int8:
		b, err := r.u8(k)
		return int8(b), err
	case types.Int16, types.Uint16:
		b, err := r.take(2, k)
		if err != nil {
			return nil, err
		}
		if k == types.Int16 {
			return int16(order.Uint16(b)), nil
		}
		return order.Uint16(b), nil
	case types.Int32:
		u, err := r.u32(k)
		return int32(u), err
	case types.Uint32:
		return r.u32(k)
	case types.Int64:
		u, err := r.u64(k)
		return int64(u), err
	case types.Uint64:
		return r.u64(k)
	case types.Float:
		u, err := r.u32(k)
		return math.Float32frombits(u), err
	case types.Double:
		u, err := r.u64(k)
		return math.Float64frombits(u), err
	case types.ComplexFloat:
		b, err := r.take(8, k)
		if err != nil {
			return nil, err
		}
		return complex(math.Float32frombits(order.Uint32(b)), math.Float32frombits(order.Uint32(b[4:]))), nil
	case types.ComplexDouble:
		b, err := r.take(16, k)
		if err != nil {
			return nil, err
		}
		return complex(math.Float64frombits(order.Uint64(b)), math.Float64frombits(order.Uint64(b[8:]))), nil
	case types.String:
		n, err := r.count(k, 1)
		if err != nil {
			return nil, err
		}
		b, err := r.take(n, k)
		return string(b), err
	case types.VectorChar, types.ByteArray:
		n, err := r.count(k, 1)
		if err != nil {
			return nil, err
		}
		b, err := r.take(n, k)
		if err != nil {
			return nil, err
		}
		return append([]byte{}, b...), nil
	case types.VectorString:
		n, err := r.count(k, minLenSize)
		if err != nil {
			return nil, err
		}
		out := make([]string, n)
		for i := range out {
			s, err := r.payload(types.String)
			if err != nil {
				return nil, types.Wrap(err, "element %d", i)
			}
			out[i] = s.(string)
		}
		return out, nil
	case types.Hash:
		return r.hash()
	case types.VectorHash:
		n, err := r.count(k, minHashSize)
		if err != nil {
			return nil, err
		}
		out := make([]*hash.Hash, n)
		for i := range out {
			if out[i], err = r.hash(); err != nil {
				return nil, types.Wrap(err, "element %d", i)
			}
		}
		return out, nil
	case types.Schema:
		return r.schema()
	}
	if k.IsVector() {
		return r.vector(k)
	}
	return nil, types.NewParseError(r.pos, k, "kind cannot appear in serialized data")
}

func (r *reader) vector(k types.Kind) (any, error) {
	elem, _ := k.ElementKind()
	n, err := r.count(k, elem.Size())
	if err != nil {
		return nil, err
	}
	b, err := r.take(n*elem.Size(), k)
	if err != nil {
		return nil, err
	}
	switch k {
	case types.VectorBool:
		out := make([]bool, n)
		for i := range out {
			out[i] = b[i] != 0
		}
		return out, nil
	case types.VectorInt8:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(b[i])
		}
		return out, nil
	case types.VectorUint8:
		return append([]byte{}, b...), nil
	case types.VectorInt16:
		return decodeFixed(b, n, 2, func(e []byte) int16 { return int16(order.Uint16(e)) }), nil
	case types.VectorUint16:
		return decodeFixed(b, n, 2, order.Uint16), nil
	case types.VectorInt32:
		return decodeFixed(b, n, 4, func(e []byte) int32 { return int32(order.Uint32(e)) }), nil
	case types.VectorUint32:
		return decodeFixed(b, n, 4, order.Uint32), nil
	case types.VectorInt64:
		return decodeFixed(b, n, 8, func(e []byte) int64 { return int64(order.Uint64(e)) }), nil
	case types.VectorUint64:
		return decodeFixed(b, n, 8, order.Uint64), nil
	case types.VectorFloat:
		return decodeFixed(b, n, 4, func(e []byte) float32 { return math.Float32frombits(order.Uint32(e)) }), nil
	case types.VectorDouble:
		return decodeFixed(b, n, 8, func(e []byte) float64 { return math.Float64frombits(order.Uint64(e)) }), nil
	case types.VectorComplexFloat:
		return decodeFixed(b, n, 8, func(e []byte) complex64 {
			return complex(math.Float32frombits(order.Uint32(e)), math.Float32frombits(order.Uint32(e[4:])))
		}), nil
	case types.VectorComplexDouble:
		return decodeFixed(b, n, 16, func(e []byte) complex128 {
			return complex(math.Float64frombits(order.Uint64(e)), math.Float64frombits(order.Uint64(e[8:])))
		}), nil
	}
	return nil, types.NewParseError(r.pos, k, "not a fixed width vector")
}

func decodeFixed[T any](b []byte, n, size int, get func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = get(b[i*size : (i+1)*size])
	}
	return out
}

// schema reads u32 totalLen, u64 rootNameLen, root name and Hash, and checks
// that they add up to totalLen.
func (r *reader) schema() (hash.SchemaValue, error) {
	total, err := r.count(types.Schema, 1)
	if err != nil {
		return nil, err
	}
	end := r.pos + total
	sub := &reader{data: r.data[:end], pos: r.pos, depth: r.depth}
	nameLen, err := sub.u64(types.Schema)
	if err != nil {
		return nil, err
	}
	if nameLen > uint64(sub.remaining()) {
		return nil, types.NewParseError(r.pos, types.Schema, fmt.Sprintf("root name of %d bytes overruns the schema", nameLen))
	}
	name, err := sub.take(int(nameLen), types.Schema)
	if err != nil {
		return nil, err
	}
	params, err := sub.hash()
	if err != nil {
		return nil, types.Wrap(err, "schema %q", string(name))
	}
	if sub.pos != end {
		return nil, types.NewParseError(sub.pos, types.Schema, "schema length does not match its content")
	}
	r.pos = end
	return schema.FromHash(string(name), params), nil
}
