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
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// SetAttribute sets attribute name on the existing entry at path, inferring
// the kind of v.
func (h *Hash) SetAttribute(path, name string, v any) error {
	n, err := h.Find(path)
	if err != nil {
		return err
	}
	return n.attrs.Set(name, v)
}

// SetAttributeAs sets attribute name converted to kind k.
func (h *Hash) SetAttributeAs(path, name string, v any, k types.Kind) error {
	n, err := h.Find(path)
	if err != nil {
		return err
	}
	return n.attrs.SetAs(name, v, k)
}

// SetAttributes replaces every attribute of the entry at path with a copy of
// attrs.
func (h *Hash) SetAttributes(path string, attrs *Attributes) error {
	n, err := h.Find(path)
	if err != nil {
		return err
	}
	n.attrs = attrs.Clone()
	return nil
}

// Attributes returns the live attribute map of the entry at path.
func (h *Hash) Attributes(path string) (*Attributes, error) {
	n, err := h.Find(path)
	if err != nil {
		return nil, err
	}
	return n.attrs, nil
}

func (h *Hash) GetAttribute(path, name string) (any, error) {
	v, err := h.GetAttributeValue(path, name)
	if err != nil {
		return nil, err
	}
	return v.Data(), nil
}

func (h *Hash) GetAttributeValue(path, name string) (types.Value, error) {
	n, err := h.Find(path)
	if err != nil {
		return types.Value{}, err
	}
	v, ok := n.attrs.Value(name)
	if !ok {
		return types.Value{}, types.NewKeyError("%q has no attribute %q", path, name)
	}
	return v, nil
}

func (h *Hash) GetAttributeAs(path, name string, k types.Kind) (any, error) {
	v, err := h.GetAttributeValue(path, name)
	if err != nil {
		return nil, err
	}
	c, err := types.Convert(v, k)
	if err != nil {
		return nil, types.Wrap(err, "%q attribute %q", path, name)
	}
	return c.Data(), nil
}

func (h *Hash) GetAttributeKind(path, name string) (types.Kind, error) {
	v, err := h.GetAttributeValue(path, name)
	if err != nil {
		return types.Unknown, err
	}
	return v.Kind(), nil
}

func (h *Hash) HasAttribute(path, name string) bool {
	n, err := h.Find(path)
	return err == nil && n.attrs.Has(name)
}

func (h *Hash) EraseAttribute(path, name string) bool {
	n, err := h.Find(path)
	return err == nil && n.attrs.Erase(name)
}

// Value returns the payload at path as a T, failing with a type error when the
// stored payload is not a T. No conversion takes place; see GetAs.
func Value[T any](h *Hash, path string) (T, error) {
	var zero T
	v, err := h.GetValue(path)
	if err != nil {
		return zero, err
	}
	t, ok := v.Data().(T)
	if !ok {
		return zero, types.NewTypeError("%q holds %s, not %T", path, v.Kind(), zero)
	}
	return t, nil
}

// Attribute is Value for attributes.
func Attribute[T any](h *Hash, path, name string) (T, error) {
	var zero T
	v, err := h.GetAttributeValue(path, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.Data().(T)
	if !ok {
		return zero, types.NewTypeError("%q attribute %q holds %s, not %T", path, name, v.Kind(), zero)
	}
	return t, nil
}

func (h *Hash) GetBool(path string) (bool, error) {
	return Value[bool](h, path)
}

func (h *Hash) GetInt32(path string) (int32, error) {
	return Value[int32](h, path)
}

func (h *Hash) GetUint32(path string) (uint32, error) {
	return Value[uint32](h, path)
}

func (h *Hash) GetInt64(path string) (int64, error) {
	return Value[int64](h, path)
}

func (h *Hash) GetUint64(path string) (uint64, error) {
	return Value[uint64](h, path)
}

func (h *Hash) GetDouble(path string) (float64, error) {
	return Value[float64](h, path)
}

func (h *Hash) GetString(path string) (string, error) {
	return Value[string](h, path)
}

func (h *Hash) GetVectorString(path string) ([]string, error) {
	return Value[[]string](h, path)
}

func (h *Hash) GetHash(path string) (*Hash, error) {
	return Value[*Hash](h, path)
}

func (h *Hash) GetVectorHash(path string) ([]*Hash, error) {
	return Value[[]*Hash](h, path)
}
