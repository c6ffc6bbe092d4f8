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

// Package bincodec reads and writes the little-endian, length-prefixed binary
// form of a Hash:
//
//	Hash    := u32 nEntries Entry{nEntries}
//	Entry   := Key u32 kindId u32 nAttrs Attr{nAttrs} Payload(kind)
//	Attr    := Key u32 kindId Payload(kind)
//	Key     := u8 keyLen byte[keyLen]
//
// Readers bound every allocation by the bytes left in the input.
package bincodec

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/valyala/bytebufferpool"
)

// MaxKeyLength is the longest key the format can carry.
const MaxKeyLength = hash.MaxKeyLength

var order = binary.LittleEndian

// Marshal encodes h.
func Marshal(h *hash.Hash) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	b, err := AppendHash(buf.B[:0], h)
	if err != nil {
		return nil, err
	}
	buf.B = b
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Write encodes h to w.
func Write(w io.Writer, h *hash.Hash) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	b, err := AppendHash(buf.B[:0], h)
	if err != nil {
		return err
	}
	buf.B = b
	_, err = buf.WriteTo(w)
	return err
}

// AppendHash appends the encoding of h to dst.
func AppendHash(dst []byte, h *hash.Hash) ([]byte, error) {
	if uint64(h.Len()) > math.MaxUint32 {
		return dst, types.NewSizeError("%d entries do not fit the format", h.Len())
	}
	dst = order.AppendUint32(dst, uint32(h.Len()))
	for _, n := range h.Nodes() {
		var err error
		if dst, err = appendEntry(dst, n); err != nil {
			return dst, types.Wrap(err, "key %q", n.Key())
		}
	}
	return dst, nil
}

func appendEntry(dst []byte, n *hash.Node) ([]byte, error) {
	dst, err := appendKey(dst, n.Key())
	if err != nil {
		return dst, err
	}
	v := n.Value()
	if !v.Kind().Serializable() {
		return dst, types.NewTypeError("kind %s is not serializable", v.Kind())
	}
	attrs := n.Attributes()
	dst = order.AppendUint32(dst, v.Kind().ID())
	dst = order.AppendUint32(dst, uint32(attrs.Len()))
	err = attrs.Each(func(name string, a types.Value) error {
		if dst, err = appendKey(dst, name); err != nil {
			return err
		}
		if !a.Kind().Serializable() {
			return types.NewTypeError("attribute %q: kind %s is not serializable", name, a.Kind())
		}
		dst = order.AppendUint32(dst, a.Kind().ID())
		if dst, err = AppendValue(dst, a); err != nil {
			return types.Wrap(err, "attribute %q", name)
		}
		return nil
	})
	if err != nil {
		return dst, err
	}
	return AppendValue(dst, v)
}

func appendKey(dst []byte, key string) ([]byte, error) {
	if len(key) > MaxKeyLength {
		return dst, types.NewSizeError("key of %d bytes exceeds %d", len(key), MaxKeyLength)
	}
	dst = append(dst, byte(len(key)))
	return append(dst, key...), nil
}

func appendLen(dst []byte, n int) ([]byte, error) {
	if uint64(n) > math.MaxUint32 {
		return dst, types.NewSizeError("length %d does not fit u32", n)
	}
	return order.AppendUint32(dst, uint32(n)), nil
}

// AppendValue appends the payload of v, without kind id.
func AppendValue(dst []byte, v types.Value) ([]byte, error) {
	var err error
	switch d := v.Data().(type) {
	case nil:
		if v.Kind() != types.None {
			return dst, types.NewTypeError("%s without payload", v.Kind())
		}
		return dst, nil
	case bool:
		return appendBool(dst, d), nil
	case int8:
		return append(dst, byte(d)), nil
	case uint8:
		return append(dst, d), nil
	case int16:
		return order.AppendUint16(dst, uint16(d)), nil
	case uint16:
		return order.AppendUint16(dst, d), nil
	case int32:
		return order.AppendUint32(dst, uint32(d)), nil
	case uint32:
		return order.AppendUint32(dst, d), nil
	case int64:
		return order.AppendUint64(dst, uint64(d)), nil
	case uint64:
		return order.AppendUint64(dst, d), nil
	case float32:
		return order.AppendUint32(dst, math.Float32bits(d)), nil
	case float64:
		return order.AppendUint64(dst, math.Float64bits(d)), nil
	case complex64:
		dst = order.AppendUint32(dst, math.Float32bits(real(d)))
		return order.AppendUint32(dst, math.Float32bits(imag(d))), nil
	case complex128:
		dst = order.AppendUint64(dst, math.Float64bits(real(d)))
		return order.AppendUint64(dst, math.Float64bits(imag(d))), nil
	case string:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		return append(dst, d...), nil
	case []byte:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		return append(dst, d...), nil
	case []bool:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		for _, e := range d {
			dst = appendBool(dst, e)
		}
		return dst, nil
	case []int8:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		for _, e := range d {
			dst = append(dst, byte(e))
		}
		return dst, nil
	case []int16:
		return appendFixed(dst, d, func(b []byte, e int16) []byte { return order.AppendUint16(b, uint16(e)) })
	case []uint16:
		return appendFixed(dst, d, order.AppendUint16)
	case []int32:
		return appendFixed(dst, d, func(b []byte, e int32) []byte { return order.AppendUint32(b, uint32(e)) })
	case []uint32:
		return appendFixed(dst, d, order.AppendUint32)
	case []int64:
		return appendFixed(dst, d, func(b []byte, e int64) []byte { return order.AppendUint64(b, uint64(e)) })
	case []uint64:
		return appendFixed(dst, d, order.AppendUint64)
	case []float32:
		return appendFixed(dst, d, func(b []byte, e float32) []byte { return order.AppendUint32(b, math.Float32bits(e)) })
	case []float64:
		return appendFixed(dst, d, func(b []byte, e float64) []byte { return order.AppendUint64(b, math.Float64bits(e)) })
	case []complex64:
		return appendFixed(dst, d, func(b []byte, e complex64) []byte {
			b = order.AppendUint32(b, math.Float32bits(real(e)))
			return order.AppendUint32(b, math.Float32bits(imag(e)))
		})
	case []complex128:
		return appendFixed(dst, d, func(b []byte, e complex128) []byte {
			b = order.AppendUint64(b, math.Float64bits(real(e)))
			return order.AppendUint64(b, math.Float64bits(imag(e)))
		})
	case []string:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		for _, s := range d {
			if dst, err = appendLen(dst, len(s)); err != nil {
				return dst, err
			}
			dst = append(dst, s...)
		}
		return dst, nil
	case *hash.Hash:
		return AppendHash(dst, d)
	case []*hash.Hash:
		if dst, err = appendLen(dst, len(d)); err != nil {
			return dst, err
		}
		for i, e := range d {
			if dst, err = AppendHash(dst, e); err != nil {
				return dst, types.Wrap(err, "element %d", i)
			}
		}
		return dst, nil
	case hash.SchemaValue:
		return appendSchema(dst, d)
	}
	return dst, types.NewTypeError("cannot encode %s payload %T", v.Kind(), v.Data())
}

func appendBool(dst []byte, b bool) []byte {
	if b {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func appendFixed[T any](dst []byte, d []T, put func([]byte, T) []byte) ([]byte, error) {
	dst, err := appendLen(dst, len(d))
	if err != nil {
		return dst, err
	}
	for _, e := range d {
		dst = put(dst, e)
	}
	return dst, nil
}

// appendSchema writes u32 totalLen, u64 rootNameLen, the root name and the
// parameter Hash. totalLen counts the bytes after itself.
func appendSchema(dst []byte, s hash.SchemaValue) ([]byte, error) {
	start := len(dst)
	dst = order.AppendUint32(dst, 0)
	root := s.RootName()
	dst = order.AppendUint64(dst, uint64(len(root)))
	dst = append(dst, root...)
	dst, err := AppendHash(dst, s.Parameters())
	if err != nil {
		return dst, types.Wrap(err, "schema %q", root)
	}
	total := len(dst) - start - 4
	if uint64(total) > math.MaxUint32 {
		return dst, types.NewSizeError("schema %q of %d bytes does not fit u32", root, total)
	}
	order.PutUint32(dst[start:], uint32(total))
	return dst, nil
}
