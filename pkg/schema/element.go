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
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// element holds what every builder shares. B is the concrete builder type so
// that the chained setters keep returning it.
type element[B any] struct {
	self   B
	schema *Schema
	key    string
	attrs  *hash.Attributes
	err    error
}

func (e *element[B]) init(s *Schema, self B) {
	e.self = self
	e.schema = s
	e.attrs = hash.NewAttributes()
}

func (e *element[B]) fail(err error) {
	if e.err == nil && err != nil {
		e.err = types.Wrap(err, "element %q", e.key)
	}
}

func (e *element[B]) set(name string, v any) B {
	e.fail(e.attrs.Set(name, v))
	return e.self
}

func (e *element[B]) setAs(name string, v any, k types.Kind) B {
	e.fail(e.attrs.SetAs(name, v, k))
	return e.self
}

// Key names the element. Dotted keys place it below an existing node.
func (e *element[B]) Key(key string) B {
	e.key = key
	return e.self
}

func (e *element[B]) DisplayedName(name string) B {
	return e.set(DisplayedNameAttr, name)
}

func (e *element[B]) Description(text string) B {
	return e.set(DescriptionAttr, text)
}

func (e *element[B]) Alias(v any) B {
	return e.set(AliasAttr, v)
}

func (e *element[B]) Tags(tags ...string) B {
	return e.setAs(TagsAttr, append([]string{}, tags...), types.VectorString)
}

func (e *element[B]) DisplayType(t string) B {
	return e.set(DisplayTypeAttr, t)
}

func (e *element[B]) AllowedStates(states ...string) B {
	return e.setAs(AllowedStatesAttr, append([]string{}, states...), types.VectorString)
}

func (e *element[B]) RequiredAccessLevel(l AccessLevel) B {
	return e.setAs(RequiredAccessLevelAttr, int32(l), types.Int32)
}

func (e *element[B]) ObserverAccess() B {
	return e.RequiredAccessLevel(Observer)
}

func (e *element[B]) UserAccess() B {
	return e.RequiredAccessLevel(User)
}

func (e *element[B]) OperatorAccess() B {
	return e.RequiredAccessLevel(Operator)
}

func (e *element[B]) ExpertAccess() B {
	return e.RequiredAccessLevel(Expert)
}

func (e *element[B]) AdminAccess() B {
	return e.RequiredAccessLevel(Admin)
}

// place stores the description at the element's key. head attributes come
// first, followed by the ones collected by the setters.
func (e *element[B]) place(v types.Value, head *hash.Attributes, parents ...NodeType) error {
	if e.err != nil {
		return e.err
	}
	if e.key == "" {
		return types.NewKeyError("element without key")
	}
	if strings.ContainsAny(e.key, "[]") {
		return types.NewKeyError("element %q: key must not contain brackets", e.key)
	}
	params := e.schema.params
	if params.Has(e.key) {
		return types.NewKeyError("element %q is already defined", e.key)
	}
	if parent, _ := hash.SplitPath(e.key); parent != "" {
		n, err := params.Find(parent)
		if err != nil {
			return types.Wrap(err, "element %q: parent", e.key)
		}
		t := nodeType(n.Attributes())
		if _, ok := n.Hash(); !ok || !contains(parents, t) {
			return types.NewTypeError("element %q cannot be placed below a %s", e.key, t)
		}
	}
	attrs := head
	attrs.Merge(e.attrs)
	if err := params.SetValue(e.key, v); err != nil {
		return types.Wrap(err, "element %q", e.key)
	}
	return params.SetAttributes(e.key, attrs)
}

func contains[T comparable](list []T, v T) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func headAttrs(t NodeType) *hash.Attributes {
	a := hash.NewAttributes()
	_ = a.SetAs(NodeTypeAttr, int32(t), types.Int32)
	return a
}
