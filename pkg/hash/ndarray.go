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

package hash

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"strconv"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// ClassIDAttribute tags nodes whose Hash follows a known class layout.
const ClassIDAttribute = "__classId"

// NDArrayClassID is the ClassIDAttribute value of NDArray nodes.
const NDArrayClassID = "NDArray"

// NDArray is a dense multidimensional array stored as the Hash
// {data: BYTE_ARRAY, type: INT32, shape: VECTOR_UINT64, isBigEndian: BOOL}.
type NDArray struct {
	Kind      types.Kind
	Shape     []uint64
	Data      []byte
	BigEndian bool
}

var hostBigEndian = binary.NativeEndian.Uint16([]byte{0, 1}) == 1

// NewNDArray wraps host order data, checking its length against shape.
func NewNDArray(k types.Kind, shape []uint64, data []byte) (*NDArray, error) {
	a := &NDArray{Kind: k, Shape: append([]uint64(nil), shape...), Data: data, BigEndian: hostBigEndian}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

// NDArrayOf encodes values in host order. Without a shape the array is one
// dimensional.
func NDArrayOf[T bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | complex64 | complex128](values []T, shape ...uint64) (*NDArray, error) {
	v, err := types.Infer(values)
	if err != nil {
		return nil, err
	}
	elem, _ := v.Kind().ElementKind()
	if v.Kind() == types.VectorChar {
		elem = types.Uint8
	}
	if len(shape) == 0 {
		shape = []uint64{uint64(len(values))}
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, values); err != nil {
		return nil, types.NewTypeError("cannot encode %s array: %v", elem, err)
	}
	return NewNDArray(elem, shape, buf.Bytes())
}

// Size is the number of elements the shape describes.
func (a *NDArray) Size() (uint64, bool) {
	n := uint64(1)
	for _, d := range a.Shape {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return 0, false
		}
		n = lo
	}
	return n, true
}

// Check verifies that the element kind is a fixed width scalar and that Data
// holds exactly shape elements of it.
func (a *NDArray) Check() error {
	if !a.Kind.IsScalar() || a.Kind.Size() == 0 {
		return types.NewInconsistentArrayError("%s is not a valid array element kind", a.Kind)
	}
	n, ok := a.Size()
	hi, want := bits.Mul64(n, uint64(a.Kind.Size()))
	if !ok || hi != 0 {
		return types.NewInconsistentArrayError("shape %s of %s overflows", shapeText(a.Shape), a.Kind)
	}
	switch got := uint64(len(a.Data)); {
	case got < want:
		return types.NewInconsistentArrayError("%d are too few bytes for shape %s of %s", got, shapeText(a.Shape), a.Kind)
	case got > want:
		return types.NewInconsistentArrayError("%d are too many bytes for shape %s of %s", got, shapeText(a.Shape), a.Kind)
	}
	return nil
}

func shapeText(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatUint(d, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ToHostOrder byte swaps Data in place when it is not in host order.
func (a *NDArray) ToHostOrder() {
	if a.BigEndian == hostBigEndian {
		return
	}
	w := a.Kind.Size()
	if a.Kind.IsComplex() {
		w /= 2
	}
	if w > 1 {
		for i := 0; i+w <= len(a.Data); i += w {
			e := a.Data[i : i+w]
			for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
				e[l], e[r] = e[r], e[l]
			}
		}
	}
	a.BigEndian = hostBigEndian
}

// Hash renders the array in its Hash layout. The data is not copied.
func (a *NDArray) Hash() *Hash {
	h := New()
	h.appendNode("data", types.MustValue(types.ByteArray, a.Data), nil)
	h.appendNode("type", types.MustValue(types.Int32, int32(a.Kind.ID())), nil)
	h.appendNode("shape", types.MustValue(types.VectorUint64, append([]uint64{}, a.Shape...)), nil)
	h.appendNode("isBigEndian", types.MustValue(types.Bool, a.BigEndian), nil)
	return h
}

// IsNDArray reports whether n is tagged as an NDArray node.
func IsNDArray(n *Node) bool {
	if n == nil || n.value.Kind() != types.Hash {
		return false
	}
	v, ok := n.attrs.Value(ClassIDAttribute)
	return ok && v.Kind() == types.String && v.Data().(string) == NDArrayClassID
}

// NDArrayFromHash reads the array layout back from h. The result is checked
// but not converted to host order.
func NDArrayFromHash(h *Hash) (*NDArray, error) {
	data, err := ndField(h, "data", types.ByteArray)
	if err != nil {
		return nil, err
	}
	kind, err := h.GetAs("type", types.Int32)
	if err != nil {
		return nil, types.Wrap(err, "NDArray type")
	}
	k, err := types.FromID(uint32(kind.(int32)))
	if err != nil {
		return nil, types.Wrap(err, "NDArray type")
	}
	shape, err := ndField(h, "shape", types.VectorUint64)
	if err != nil {
		return nil, err
	}
	a := &NDArray{Kind: k, Shape: shape.([]uint64), Data: data.([]byte), BigEndian: false}
	if h.Has("isBigEndian") {
		be, err := h.GetAs("isBigEndian", types.Bool)
		if err != nil {
			return nil, types.Wrap(err, "NDArray isBigEndian")
		}
		a.BigEndian = be.(bool)
	}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

func ndField(h *Hash, key string, k types.Kind) (any, error) {
	v, err := h.GetValue(key)
	if err != nil {
		return nil, types.NewInconsistentArrayError("NDArray has no %q", key)
	}
	if v.Kind() == k {
		return v.Data(), nil
	}
	d, err := types.ConvertData(v.Data(), v.Kind(), k)
	if err != nil {
		return nil, types.Wrap(err, "NDArray %s", key)
	}
	return d, nil
}

// SetNDArray stores a at path and tags the node.
func (h *Hash) SetNDArray(path string, a *NDArray) error {
	if err := a.Check(); err != nil {
		return err
	}
	c := *a
	c.Data = append([]byte{}, a.Data...)
	if err := h.SetValue(path, types.MustValue(types.Hash, c.Hash())); err != nil {
		return err
	}
	return h.SetAttribute(path, ClassIDAttribute, NDArrayClassID)
}

// GetNDArray reads the NDArray at path in host order.
func (h *Hash) GetNDArray(path string) (*NDArray, error) {
	n, err := h.Find(path)
	if err != nil {
		return nil, err
	}
	if !IsNDArray(n) {
		return nil, types.NewTypeError("%q is not an NDArray", path)
	}
	child, _ := n.Hash()
	a, err := NDArrayFromHash(child)
	if err != nil {
		return nil, types.Wrap(err, "%q", path)
	}
	a.Data = append([]byte{}, a.Data...)
	a.ToHostOrder()
	return a, nil
}

// NDArrayValues decodes the host order data of a as a []T. T must match the
// element kind exactly.
func NDArrayValues[T bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | complex64 | complex128](a *NDArray) ([]T, error) {
	var zero T
	v, _ := types.Infer(zero)
	if v.Kind() != a.Kind && !(a.Kind == types.Char && v.Kind() == types.Uint8) {
		return nil, types.NewTypeError("NDArray holds %s, not %s", a.Kind, v.Kind())
	}
	n, ok := a.Size()
	if !ok {
		return nil, types.NewInconsistentArrayError("shape %s overflows", shapeText(a.Shape))
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if a.BigEndian {
		order = binary.BigEndian
	}
	out := make([]T, n)
	if err := binary.Read(bytes.NewReader(a.Data), order, out); err != nil {
		return nil, types.NewInconsistentArrayError("decoding %s array: %v", a.Kind, err)
	}
	return out, nil
}

// CheckNDArray cross-checks a decoded Hash that is tagged or shaped as an
// NDArray and brings its data into host order. Other Hashes pass unchanged.
func CheckNDArray(h *Hash, attrs *Attributes) error {
	tagged := false
	if v, ok := attrs.Value(ClassIDAttribute); ok && v.Kind() == types.String {
		tagged = v.Data().(string) == NDArrayClassID
	}
	if !tagged {
		data := h.Node("data")
		if data == nil || data.Kind() != types.ByteArray || h.Node("type") == nil || h.Node("shape") == nil {
			return nil
		}
	}
	a, err := NDArrayFromHash(h)
	if err != nil {
		return err
	}
	wasBigEndian := a.BigEndian
	a.ToHostOrder()
	if a.BigEndian == wasBigEndian {
		return nil
	}
	if err = h.SetValue("data", types.MustValue(types.ByteArray, a.Data)); err != nil {
		return err
	}
	return h.SetValue("isBigEndian", types.MustValue(types.Bool, a.BigEndian))
}
