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

// NodeElementBuilder builds a node grouping other parameters.
type NodeElementBuilder struct {
	element[*NodeElementBuilder]
	classID  string
	children *hash.Hash
}

func NodeElement(s *Schema) *NodeElementBuilder {
	e := &NodeElementBuilder{children: hash.New()}
	e.init(s, e)
	return e
}

// AppendParametersOf fills the node with the schema of a registered class.
func (e *NodeElementBuilder) AppendParametersOf(classID string) *NodeElementBuilder {
	cs, err := ClassSchema(classID)
	if err != nil {
		e.fail(err)
		return e
	}
	e.classID = classID
	e.children.Merge(cs.params, hash.ReplaceAttributes)
	return e
}

// AppendSchema fills the node with a copy of other.
func (e *NodeElementBuilder) AppendSchema(other *Schema) *NodeElementBuilder {
	e.children.Merge(other.params, hash.ReplaceAttributes)
	return e
}

func (e *NodeElementBuilder) Commit() error {
	head := headAttrs(Node)
	if e.classID != "" {
		_ = head.Set(ClassIDAttr, e.classID)
	}
	return e.place(types.MustValue(types.Hash, e.children), head, Node, ChoiceOfNodes, ListOfNodes)
}

// alternatives collects the nodes a choice or list selects from.
type alternatives struct {
	nodes *hash.Hash
}

func (a *alternatives) add(name string, params *hash.Hash, classID string) error {
	if a.nodes.Has(name) {
		return types.NewKeyError("alternative %q is already defined", name)
	}
	attrs := headAttrs(Node)
	if classID != "" {
		_ = attrs.Set(ClassIDAttr, classID)
	}
	return a.nodes.Append(name, types.MustValue(types.Hash, params.Clone()), attrs)
}

func (a *alternatives) appendClassesOf(base string) error {
	for _, id := range ClassesOf(base) {
		cs, err := ClassSchema(id)
		if err != nil {
			return err
		}
		if err := a.add(id, cs.params, id); err != nil {
			return err
		}
	}
	return nil
}

// ChoiceElementBuilder builds a choice of exactly one node out of several.
type ChoiceElementBuilder struct {
	element[*ChoiceElementBuilder]
	assigned[*ChoiceElementBuilder]
	alternatives
	def *string
}

func ChoiceElement(s *Schema) *ChoiceElementBuilder {
	e := &ChoiceElementBuilder{alternatives: alternatives{nodes: hash.New()}}
	e.init(s, e)
	e.ret = e
	e.access = Write
	return e
}

// AppendNodesOf adds one alternative per registered class deriving from
// base.
func (e *ChoiceElementBuilder) AppendNodesOf(base string) *ChoiceElementBuilder {
	e.fail(e.appendClassesOf(base))
	return e
}

// Alternative adds a node named name described by s.
func (e *ChoiceElementBuilder) Alternative(name string, s *Schema) *ChoiceElementBuilder {
	e.fail(e.add(name, s.params, ""))
	return e
}

func (e *ChoiceElementBuilder) DefaultValue(name string) *ChoiceElementBuilder {
	e.def = &name
	return e
}

func (e *ChoiceElementBuilder) Commit() error {
	if e.def != nil && e.assignment == Mandatory {
		return types.NewTypeError("element %q: mandatory keys take no default value", e.key)
	}
	head := e.head(ChoiceOfNodes)
	if e.def != nil {
		if e.nodes.Len() > 0 && !e.nodes.Has(*e.def) {
			return types.NewKeyError("element %q: default %q is not an alternative", e.key, *e.def)
		}
		_ = head.Set(DefaultValueAttr, *e.def)
	}
	return e.place(types.MustValue(types.Hash, e.nodes), head, Node)
}

// ListElementBuilder builds an ordered list of nodes picked from a set of
// alternatives.
type ListElementBuilder struct {
	element[*ListElementBuilder]
	assigned[*ListElementBuilder]
	alternatives
	def []string
}

func ListElement(s *Schema) *ListElementBuilder {
	e := &ListElementBuilder{alternatives: alternatives{nodes: hash.New()}}
	e.init(s, e)
	e.ret = e
	e.access = Write
	return e
}

func (e *ListElementBuilder) AppendNodesOf(base string) *ListElementBuilder {
	e.fail(e.appendClassesOf(base))
	return e
}

func (e *ListElementBuilder) Alternative(name string, s *Schema) *ListElementBuilder {
	e.fail(e.add(name, s.params, ""))
	return e
}

func (e *ListElementBuilder) DefaultValue(names ...string) *ListElementBuilder {
	e.def = append([]string{}, names...)
	return e
}

func (e *ListElementBuilder) MinSize(n uint32) *ListElementBuilder {
	return e.setAs(MinSizeAttr, n, types.Uint32)
}

func (e *ListElementBuilder) MaxSize(n uint32) *ListElementBuilder {
	return e.setAs(MaxSizeAttr, n, types.Uint32)
}

func (e *ListElementBuilder) Commit() error {
	if e.def != nil && e.assignment == Mandatory {
		return types.NewTypeError("element %q: mandatory keys take no default value", e.key)
	}
	head := e.head(ListOfNodes)
	if e.def != nil {
		for _, name := range e.def {
			if e.nodes.Len() > 0 && !e.nodes.Has(name) {
				return types.NewKeyError("element %q: default %q is not an alternative", e.key, name)
			}
		}
		_ = head.SetAs(DefaultValueAttr, e.def, types.VectorString)
	}
	return e.place(types.MustValue(types.Hash, e.nodes), head, Node)
}

// SlotElementBuilder declares a callable slot.
type SlotElementBuilder struct {
	element[*SlotElementBuilder]
}

func SlotElement(s *Schema) *SlotElementBuilder {
	e := &SlotElementBuilder{}
	e.init(s, e)
	return e
}

func (e *SlotElementBuilder) Commit() error {
	head := headAttrs(Node)
	_ = head.Set(DisplayTypeAttr, SlotDisplayType)
	_ = head.Set(ClassIDAttr, SlotDisplayType)
	return e.place(types.MustValue(types.Hash, hash.New()), head, Node)
}
