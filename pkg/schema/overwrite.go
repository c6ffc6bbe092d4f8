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

// OverwriteElementBuilder changes attributes of an already committed key,
// typically one inherited through AppendParametersOf or AppendSchema.
type OverwriteElementBuilder struct {
	schema  *Schema
	key     string
	changes []func(path string, attrs *hash.Attributes) error
}

func OverwriteElement(s *Schema) *OverwriteElementBuilder {
	return &OverwriteElementBuilder{schema: s}
}

func (o *OverwriteElementBuilder) Key(key string) *OverwriteElementBuilder {
	o.key = key
	return o
}

func (o *OverwriteElementBuilder) change(fn func(path string, attrs *hash.Attributes) error) *OverwriteElementBuilder {
	o.changes = append(o.changes, fn)
	return o
}

// setTyped stores v converted to the declared value type of a leaf, or to k
// for nodes.
func (o *OverwriteElementBuilder) setTyped(name string, v any, vector bool) *OverwriteElementBuilder {
	return o.change(func(path string, attrs *hash.Attributes) error {
		k, err := o.targetKind(path, attrs, vector)
		if err != nil {
			return err
		}
		return attrs.SetAs(name, v, k)
	})
}

func (o *OverwriteElementBuilder) targetKind(path string, attrs *hash.Attributes, vector bool) (types.Kind, error) {
	switch nodeType(attrs) {
	case ChoiceOfNodes:
		return types.String, nil
	case ListOfNodes:
		return types.VectorString, nil
	case Leaf:
		k, err := o.schema.ValueType(path)
		if err != nil {
			return types.Unknown, err
		}
		if !vector {
			return k, nil
		}
		vk, ok := k.VectorKind()
		if !ok {
			return types.Unknown, types.NewTypeError("%q: %s takes no options", path, k)
		}
		return vk, nil
	}
	return types.Unknown, types.NewTypeError("%q: nodes have no value", path)
}

func (o *OverwriteElementBuilder) SetNewDefaultValue(v any) *OverwriteElementBuilder {
	return o.setTyped(DefaultValueAttr, v, false)
}

func (o *OverwriteElementBuilder) SetNewOptions(v ...any) *OverwriteElementBuilder {
	return o.setTyped(OptionsAttr, v, true)
}

func (o *OverwriteElementBuilder) SetNewMinInc(v any) *OverwriteElementBuilder {
	return o.setTyped(MinIncAttr, v, false)
}

func (o *OverwriteElementBuilder) SetNewMaxInc(v any) *OverwriteElementBuilder {
	return o.setTyped(MaxIncAttr, v, false)
}

func (o *OverwriteElementBuilder) SetNewMinExc(v any) *OverwriteElementBuilder {
	return o.setTyped(MinExcAttr, v, false)
}

func (o *OverwriteElementBuilder) SetNewMaxExc(v any) *OverwriteElementBuilder {
	return o.setTyped(MaxExcAttr, v, false)
}

func (o *OverwriteElementBuilder) SetNewAllowedStates(states ...string) *OverwriteElementBuilder {
	list := append([]string{}, states...)
	return o.change(func(_ string, attrs *hash.Attributes) error {
		return attrs.SetAs(AllowedStatesAttr, list, types.VectorString)
	})
}

func (o *OverwriteElementBuilder) SetNewDisplayedName(name string) *OverwriteElementBuilder {
	return o.change(func(_ string, attrs *hash.Attributes) error {
		return attrs.Set(DisplayedNameAttr, name)
	})
}

func (o *OverwriteElementBuilder) SetNewDescription(text string) *OverwriteElementBuilder {
	return o.change(func(_ string, attrs *hash.Attributes) error {
		return attrs.Set(DescriptionAttr, text)
	})
}

func (o *OverwriteElementBuilder) SetNewAccessMode(m AccessMode) *OverwriteElementBuilder {
	return o.change(func(path string, attrs *hash.Attributes) error {
		if !attrs.Has(AccessModeAttr) {
			return types.NewTypeError("%q has no access mode", path)
		}
		return attrs.SetAs(AccessModeAttr, int32(m), types.Int32)
	})
}

func (o *OverwriteElementBuilder) SetNowInit() *OverwriteElementBuilder {
	return o.SetNewAccessMode(Init)
}

func (o *OverwriteElementBuilder) SetNowReconfigurable() *OverwriteElementBuilder {
	return o.SetNewAccessMode(Write)
}

func (o *OverwriteElementBuilder) SetNowReadOnly() *OverwriteElementBuilder {
	return o.SetNewAccessMode(ReadOnly)
}

func (o *OverwriteElementBuilder) SetNewAssignment(a Assignment) *OverwriteElementBuilder {
	return o.change(func(path string, attrs *hash.Attributes) error {
		if !attrs.Has(AssignmentAttr) {
			return types.NewTypeError("%q has no assignment", path)
		}
		return attrs.SetAs(AssignmentAttr, int32(a), types.Int32)
	})
}

// Commit applies all changes or none of them. A leaf's default must still
// satisfy its constraints afterwards.
func (o *OverwriteElementBuilder) Commit() error {
	n, err := o.schema.params.Find(o.key)
	if err != nil {
		return types.Wrap(err, "overwrite")
	}
	attrs := n.Attributes().Clone()
	for _, fn := range o.changes {
		if err := fn(o.key, attrs); err != nil {
			return types.Wrap(err, "overwrite %q", o.key)
		}
	}
	if nodeType(attrs) == Leaf {
		if def, ok := attrs.Value(DefaultValueAttr); ok {
			if err := Check(attrs, def); err != nil {
				return types.Wrap(err, "overwrite %q: default value", o.key)
			}
		}
	}
	return o.schema.params.SetAttributes(o.key, attrs)
}
