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

// SchemaValue is the payload of a SCHEMA value: a root name plus the Hash
// describing another Hash.
type SchemaValue interface {
	RootName() string
	Parameters() *Hash
	CloneSchema() SchemaValue
}

// Infer extends types.Infer with the aggregate kinds. *Hash and Hash infer to
// HASH, []*Hash, []Hash and lists of *Hash to VECTOR_HASH, a SchemaValue to
// SCHEMA. The result never aliases v.
func Infer(v any) (types.Value, error) {
	switch d := v.(type) {
	case *Hash:
		if d == nil {
			return types.Value{}, types.NewTypeError("nil *Hash")
		}
		return types.MustValue(types.Hash, d.Clone()), nil
	case Hash:
		return types.MustValue(types.Hash, d.Clone()), nil
	case []*Hash:
		out := make([]*Hash, len(d))
		for i, e := range d {
			if e == nil {
				return types.Value{}, types.NewTypeError("element %d of VECTOR_HASH is nil", i)
			}
			out[i] = e.Clone()
		}
		return types.MustValue(types.VectorHash, out), nil
	case []Hash:
		out := make([]*Hash, len(d))
		for i := range d {
			out[i] = d[i].Clone()
		}
		return types.MustValue(types.VectorHash, out), nil
	case SchemaValue:
		if d == nil {
			return types.Value{}, types.NewTypeError("nil schema")
		}
		return types.MustValue(types.Schema, d.CloneSchema()), nil
	case types.Value:
		return cloneValue(d), nil
	case []any:
		if len(d) > 0 {
			if hs, ok := hashList(d); ok {
				return Infer(hs)
			}
		}
	}
	v2, err := types.Infer(v)
	if err != nil {
		return types.Value{}, err
	}
	return v2.Copy(), nil
}

func hashList(d []any) ([]*Hash, bool) {
	out := make([]*Hash, len(d))
	for i, e := range d {
		h, ok := e.(*Hash)
		if !ok {
			return nil, false
		}
		out[i] = h
	}
	return out, true
}

func inferAs(v any, k types.Kind) (types.Value, error) {
	val, err := Infer(v)
	if err != nil {
		return types.Value{}, err
	}
	return types.Convert(val, k)
}

// cloneValue deep copies slices and aggregates.
func cloneValue(v types.Value) types.Value {
	switch v.Kind() {
	case types.Hash:
		return types.MustValue(types.Hash, v.Data().(*Hash).Clone())
	case types.VectorHash:
		src := v.Data().([]*Hash)
		out := make([]*Hash, len(src))
		for i := range src {
			out[i] = src[i].Clone()
		}
		return types.MustValue(types.VectorHash, out)
	case types.Schema:
		return types.MustValue(types.Schema, v.Data().(SchemaValue).CloneSchema())
	}
	return v.Copy()
}

func valuesEqual(a, b types.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case types.Hash:
		return a.Data().(*Hash).Equal(b.Data().(*Hash))
	case types.VectorHash:
		x, y := a.Data().([]*Hash), b.Data().([]*Hash)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !x[i].Equal(y[i]) {
				return false
			}
		}
		return true
	case types.Schema:
		x, y := a.Data().(SchemaValue), b.Data().(SchemaValue)
		return x.RootName() == y.RootName() && x.Parameters().Equal(y.Parameters())
	}
	return types.Equal(a, b)
}
