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

package schema

import (
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// Scalar lists the payload types of the scalar kinds.
type Scalar interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 |
		float32 | float64 | complex64 | complex128 | string
}

// assigned carries access mode and assignment.
type assigned[B any] struct {
	ret        B
	access     AccessMode
	assignment Assignment
}

func (a *assigned[B]) AssignmentOptional() B {
	a.assignment = Optional
	return a.ret
}

func (a *assigned[B]) AssignmentMandatory() B {
	a.assignment = Mandatory
	return a.ret
}

func (a *assigned[B]) AssignmentInternal() B {
	a.assignment = Internal
	return a.ret
}

// Init makes the key settable at instantiation only.
func (a *assigned[B]) Init() B {
	a.access = Init
	return a.ret
}

func (a *assigned[B]) Reconfigurable() B {
	a.access = Write
	return a.ret
}

func (a *assigned[B]) ReadOnly() B {
	a.access = ReadOnly
	return a.ret
}

func (a *assigned[B]) head(t NodeType) *hash.Attributes {
	h := headAttrs(t)
	_ = h.SetAs(AccessModeAttr, int32(a.access), types.Int32)
	_ = h.SetAs(AssignmentAttr, int32(a.assignment), types.Int32)
	return h
}

// leaf adds the value type, default and constraints.
type leaf[B any] struct {
	element[B]
	assigned[B]
	kind types.Kind
	def  *types.Value
}

func (l *leaf[B]) initLeaf(s *Schema, self B, k types.Kind) {
	l.init(s, self)
	l.ret = self
	l.kind = k
	l.access = Write
	l.assignment = Optional
}

func (l *leaf[B]) Unit(symbol string) B {
	return l.set(UnitSymbolAttr, symbol)
}

func (l *leaf[B]) MetricPrefix(symbol string) B {
	return l.set(MetricPrefixSymbolAttr, symbol)
}

func (l *leaf[B]) AbsoluteError(v float64) B {
	return l.set(AbsoluteErrorAttr, v)
}

func (l *leaf[B]) RelativeError(v float64) B {
	return l.set(RelativeErrorAttr, v)
}

func (l *leaf[B]) defaultValue(v any) B {
	val, err := hash.Infer(v)
	if err == nil {
		val, err = types.Convert(val, l.kind)
	}
	if err != nil {
		l.fail(types.Wrap(err, "default value"))
		return l.self
	}
	l.def = &val
	return l.self
}

func (l *leaf[B]) bound(name string, v any) B {
	if !l.kind.IsNumeric() || l.kind.IsComplex() {
		l.fail(types.NewTypeError("%s does not apply to %s", name, l.kind))
		return l.self
	}
	return l.setAs(name, v, l.kind)
}

func (l *leaf[B]) size(name string, n uint32) B {
	if !l.kind.IsVector() && !l.kind.IsBytes() && l.kind != types.VectorHash {
		l.fail(types.NewTypeError("%s does not apply to %s", name, l.kind))
		return l.self
	}
	return l.setAs(name, n, types.Uint32)
}

// commitLeaf checks the default against the constraints and stores the
// description.
func (l *leaf[B]) commitLeaf(extra func(*hash.Attributes)) error {
	if l.err != nil {
		return l.err
	}
	if l.access == ReadOnly && l.assignment == Mandatory {
		return types.NewTypeError("element %q: read-only keys cannot be mandatory", l.key)
	}
	if l.def != nil && l.assignment == Mandatory {
		return types.NewTypeError("element %q: mandatory keys take no default value", l.key)
	}
	head := l.head(Leaf)
	_ = head.Set(ValueTypeAttr, l.kind.String())
	if l.def != nil {
		if err := Check(l.attrs, *l.def); err != nil {
			return types.Wrap(err, "element %q: default value", l.key)
		}
		head.SetValue(DefaultValueAttr, *l.def)
	}
	if extra != nil {
		extra(head)
	}
	return l.place(types.NoneValue(), head, Node)
}

// LeafElement builds a scalar parameter.
type LeafElement[T Scalar] struct {
	leaf[*LeafElement[T]]
}

func newLeaf[T Scalar](s *Schema, k types.Kind) *LeafElement[T] {
	e := &LeafElement[T]{}
	e.initLeaf(s, e, k)
	return e
}

func BoolElement(s *Schema) *LeafElement[bool]      { return newLeaf[bool](s, types.Bool) }
func CharElement(s *Schema) *LeafElement[byte]      { return newLeaf[byte](s, types.Char) }
func Int8Element(s *Schema) *LeafElement[int8]      { return newLeaf[int8](s, types.Int8) }
func Uint8Element(s *Schema) *LeafElement[uint8]    { return newLeaf[uint8](s, types.Uint8) }
func Int16Element(s *Schema) *LeafElement[int16]    { return newLeaf[int16](s, types.Int16) }
func Uint16Element(s *Schema) *LeafElement[uint16]  { return newLeaf[uint16](s, types.Uint16) }
func Int32Element(s *Schema) *LeafElement[int32]    { return newLeaf[int32](s, types.Int32) }
func Uint32Element(s *Schema) *LeafElement[uint32]  { return newLeaf[uint32](s, types.Uint32) }
func Int64Element(s *Schema) *LeafElement[int64]    { return newLeaf[int64](s, types.Int64) }
func Uint64Element(s *Schema) *LeafElement[uint64]  { return newLeaf[uint64](s, types.Uint64) }
func FloatElement(s *Schema) *LeafElement[float32]  { return newLeaf[float32](s, types.Float) }
func DoubleElement(s *Schema) *LeafElement[float64] { return newLeaf[float64](s, types.Double) }
func StringElement(s *Schema) *LeafElement[string]  { return newLeaf[string](s, types.String) }

func ComplexFloatElement(s *Schema) *LeafElement[complex64] {
	return newLeaf[complex64](s, types.ComplexFloat)
}

func ComplexDoubleElement(s *Schema) *LeafElement[complex128] {
	return newLeaf[complex128](s, types.ComplexDouble)
}

func (e *LeafElement[T]) DefaultValue(v T) *LeafElement[T] {
	return e.defaultValue(v)
}

// InitialValue is the default of a read-only key.
func (e *LeafElement[T]) InitialValue(v T) *LeafElement[T] {
	return e.defaultValue(v)
}

func (e *LeafElement[T]) MinInc(v T) *LeafElement[T] {
	return e.bound(MinIncAttr, v)
}

func (e *LeafElement[T]) MaxInc(v T) *LeafElement[T] {
	return e.bound(MaxIncAttr, v)
}

func (e *LeafElement[T]) MinExc(v T) *LeafElement[T] {
	return e.bound(MinExcAttr, v)
}

func (e *LeafElement[T]) MaxExc(v T) *LeafElement[T] {
	return e.bound(MaxExcAttr, v)
}

// Options restricts the key to the listed values.
func (e *LeafElement[T]) Options(opts ...T) *LeafElement[T] {
	vk, ok := e.kind.VectorKind()
	if !ok {
		e.fail(types.NewTypeError("options do not apply to %s", e.kind))
		return e
	}
	return e.setAs(OptionsAttr, append([]T{}, opts...), vk)
}

func (e *LeafElement[T]) Commit() error {
	return e.commitLeaf(nil)
}

// VectorElement builds a vector parameter.
type VectorElement[T Scalar] struct {
	leaf[*VectorElement[T]]
}

func newVector[T Scalar](s *Schema, k types.Kind) *VectorElement[T] {
	e := &VectorElement[T]{}
	e.initLeaf(s, e, k)
	return e
}

func VectorBoolElement(s *Schema) *VectorElement[bool] {
	return newVector[bool](s, types.VectorBool)
}

func VectorCharElement(s *Schema) *VectorElement[byte] {
	return newVector[byte](s, types.VectorChar)
}

func VectorInt8Element(s *Schema) *VectorElement[int8] {
	return newVector[int8](s, types.VectorInt8)
}

func VectorUint8Element(s *Schema) *VectorElement[uint8] {
	return newVector[uint8](s, types.VectorUint8)
}

func VectorInt16Element(s *Schema) *VectorElement[int16] {
	return newVector[int16](s, types.VectorInt16)
}

func VectorUint16Element(s *Schema) *VectorElement[uint16] {
	return newVector[uint16](s, types.VectorUint16)
}

func VectorInt32Element(s *Schema) *VectorElement[int32] {
	return newVector[int32](s, types.VectorInt32)
}

func VectorUint32Element(s *Schema) *VectorElement[uint32] {
	return newVector[uint32](s, types.VectorUint32)
}

func VectorInt64Element(s *Schema) *VectorElement[int64] {
	return newVector[int64](s, types.VectorInt64)
}

func VectorUint64Element(s *Schema) *VectorElement[uint64] {
	return newVector[uint64](s, types.VectorUint64)
}

func VectorFloatElement(s *Schema) *VectorElement[float32] {
	return newVector[float32](s, types.VectorFloat)
}

func VectorDoubleElement(s *Schema) *VectorElement[float64] {
	return newVector[float64](s, types.VectorDouble)
}

func VectorComplexFloatElement(s *Schema) *VectorElement[complex64] {
	return newVector[complex64](s, types.VectorComplexFloat)
}

func VectorComplexDoubleElement(s *Schema) *VectorElement[complex128] {
	return newVector[complex128](s, types.VectorComplexDouble)
}

func VectorStringElement(s *Schema) *VectorElement[string] {
	return newVector[string](s, types.VectorString)
}

// ByteArrayElement describes a raw byte payload.
func ByteArrayElement(s *Schema) *VectorElement[byte] {
	return newVector[byte](s, types.ByteArray)
}

func (e *VectorElement[T]) DefaultValue(v []T) *VectorElement[T] {
	return e.defaultValue(append([]T{}, v...))
}

func (e *VectorElement[T]) InitialValue(v []T) *VectorElement[T] {
	return e.DefaultValue(v)
}

func (e *VectorElement[T]) MinSize(n uint32) *VectorElement[T] {
	return e.size(MinSizeAttr, n)
}

func (e *VectorElement[T]) MaxSize(n uint32) *VectorElement[T] {
	return e.size(MaxSizeAttr, n)
}

func (e *VectorElement[T]) Commit() error {
	return e.commitLeaf(nil)
}
