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

// Package schema describes the expected shape of a Hash: which keys exist,
// their value types, access modes, defaults and constraints.
//
// A Schema is itself a Hash of parameter descriptions. Leaves carry a NONE
// value and describe themselves through attributes; nodes, choices and lists
// carry a nested Hash of their children. Schemas are built with the element
// builders of this package:
//
//	s := schema.New("Camera")
//	err := schema.DoubleElement(s).Key("exposure").
//		Unit("s").MinInc(0).MaxInc(10).
//		AssignmentOptional().DefaultValue(0.1).Reconfigurable().
//		Commit()
package schema

import (
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

type Schema struct {
	root   string
	params *hash.Hash
}

var _ hash.SchemaValue = (*Schema)(nil)

func New(root string) *Schema {
	return &Schema{root: root, params: hash.New()}
}

// FromHash wraps an already built parameter Hash. The Schema takes ownership
// of params.
func FromHash(root string, params *hash.Hash) *Schema {
	if params == nil {
		params = hash.New()
	}
	return &Schema{root: root, params: params}
}

// RootName is usually the class id the Schema describes.
func (s *Schema) RootName() string {
	return s.root
}

func (s *Schema) SetRootName(root string) {
	s.root = root
}

// Parameters returns the underlying description Hash, not a copy.
func (s *Schema) Parameters() *hash.Hash {
	return s.params
}

func (s *Schema) CloneSchema() hash.SchemaValue {
	return s.Clone()
}

func (s *Schema) Clone() *Schema {
	return &Schema{root: s.root, params: s.params.Clone()}
}

func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.root == other.root && s.params.Equal(other.params)
}

func (s *Schema) Empty() bool {
	return s.params.Empty()
}

func (s *Schema) String() string {
	return "Schema " + s.root + "\n" + s.params.String()
}

// AsSchema accepts the payload of a SCHEMA value.
func AsSchema(v hash.SchemaValue) *Schema {
	if s, ok := v.(*Schema); ok {
		return s
	}
	return FromHash(v.RootName(), v.Parameters())
}

// AppendSchema splices the top-level entries of other into s.
func (s *Schema) AppendSchema(other *Schema) error {
	for _, n := range other.params.Nodes() {
		if s.params.Has(n.Key()) {
			return types.NewKeyError("%q is already defined in %s", n.Key(), s.root)
		}
	}
	s.params.Merge(other.params, hash.ReplaceAttributes)
	return nil
}

func (s *Schema) Has(path string) bool {
	return s.params.Has(path)
}

// Keys lists the direct children of path, or the top-level keys when path is
// empty.
func (s *Schema) Keys(path string) ([]string, error) {
	if path == "" {
		return s.params.Keys(), nil
	}
	n, err := s.params.Find(path)
	if err != nil {
		return nil, err
	}
	child, ok := n.Hash()
	if !ok {
		return nil, types.NewTypeError("%q is a leaf", path)
	}
	return child.Keys(), nil
}

// Paths lists every leaf path, including those below choices and lists.
func (s *Schema) Paths() []string {
	var out []string
	_ = s.params.FlatEach(true, func(path string, _ types.Value, attrs *hash.Attributes) error {
		if nodeType(attrs) == Leaf {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func (s *Schema) attrs(path string) (*hash.Attributes, error) {
	n, err := s.params.Find(path)
	if err != nil {
		return nil, err
	}
	return n.Attributes(), nil
}

func nodeType(attrs *hash.Attributes) NodeType {
	v, err := attrs.GetAs(NodeTypeAttr, types.Int32)
	if err != nil {
		return Leaf
	}
	return NodeType(v.(int32))
}

func (s *Schema) NodeType(path string) (NodeType, error) {
	a, err := s.attrs(path)
	if err != nil {
		return 0, err
	}
	if !a.Has(NodeTypeAttr) {
		return 0, types.NewKeyError("%q has no %s", path, NodeTypeAttr)
	}
	return nodeType(a), nil
}

func (s *Schema) is(path string, t NodeType) bool {
	got, err := s.NodeType(path)
	return err == nil && got == t
}

func (s *Schema) IsLeaf(path string) bool {
	return s.is(path, Leaf)
}

func (s *Schema) IsNode(path string) bool {
	return s.is(path, Node)
}

func (s *Schema) IsChoiceOfNodes(path string) bool {
	return s.is(path, ChoiceOfNodes)
}

func (s *Schema) IsListOfNodes(path string) bool {
	return s.is(path, ListOfNodes)
}

func (s *Schema) IsSlot(path string) bool {
	return s.IsNode(path) && s.displayType(path) == SlotDisplayType
}

func (s *Schema) IsTable(path string) bool {
	return s.IsLeaf(path) && s.HasAttribute(path, RowSchemaAttr)
}

func (s *Schema) displayType(path string) string {
	v, _ := s.StringAttribute(path, DisplayTypeAttr)
	return v
}

// ValueType returns the declared kind of a leaf.
func (s *Schema) ValueType(path string) (types.Kind, error) {
	name, err := s.StringAttribute(path, ValueTypeAttr)
	if err != nil {
		return 0, err
	}
	return types.FromName(name)
}

func (s *Schema) AccessMode(path string) (AccessMode, error) {
	v, err := s.int32Attribute(path, AccessModeAttr)
	return AccessMode(v), err
}

func (s *Schema) Assignment(path string) (Assignment, error) {
	v, err := s.int32Attribute(path, AssignmentAttr)
	return Assignment(v), err
}

func (s *Schema) RequiredAccessLevel(path string) (AccessLevel, error) {
	v, err := s.int32Attribute(path, RequiredAccessLevelAttr)
	return AccessLevel(v), err
}

// DefaultValue returns the declared default of path.
func (s *Schema) DefaultValue(path string) (types.Value, bool) {
	return s.Attribute(path, DefaultValueAttr)
}

func (s *Schema) HasDefaultValue(path string) bool {
	return s.HasAttribute(path, DefaultValueAttr)
}

func (s *Schema) Options(path string) (types.Value, bool) {
	return s.Attribute(path, OptionsAttr)
}

func (s *Schema) AllowedStates(path string) []string {
	v, err := s.attrAs(path, AllowedStatesAttr, types.VectorString)
	if err != nil {
		return nil
	}
	return v.([]string)
}

func (s *Schema) Tags(path string) []string {
	v, err := s.attrAs(path, TagsAttr, types.VectorString)
	if err != nil {
		return nil
	}
	return v.([]string)
}

func (s *Schema) DisplayedName(path string) string {
	v, _ := s.StringAttribute(path, DisplayedNameAttr)
	return v
}

func (s *Schema) Description(path string) string {
	v, _ := s.StringAttribute(path, DescriptionAttr)
	return v
}

func (s *Schema) UnitSymbol(path string) string {
	v, _ := s.StringAttribute(path, UnitSymbolAttr)
	return v
}

// RowSchema returns the row description of a table element.
func (s *Schema) RowSchema(path string) (*Schema, bool) {
	v, ok := s.Attribute(path, RowSchemaAttr)
	if !ok || v.Kind() != types.Schema {
		return nil, false
	}
	return AsSchema(v.Data().(hash.SchemaValue)), true
}

// Attribute returns a copy-free view of an attribute of path.
func (s *Schema) Attribute(path, name string) (types.Value, bool) {
	a, err := s.attrs(path)
	if err != nil {
		return types.Value{}, false
	}
	return a.Value(name)
}

func (s *Schema) HasAttribute(path, name string) bool {
	_, ok := s.Attribute(path, name)
	return ok
}

func (s *Schema) StringAttribute(path, name string) (string, error) {
	v, err := s.attrAs(path, name, types.String)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Schema) int32Attribute(path, name string) (int32, error) {
	v, err := s.attrAs(path, name, types.Int32)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

func (s *Schema) attrAs(path, name string, k types.Kind) (any, error) {
	a, err := s.attrs(path)
	if err != nil {
		return nil, err
	}
	if !a.Has(name) {
		return nil, types.NewKeyError("%q has no attribute %q", path, name)
	}
	return a.GetAs(name, k)
}

// Subschema returns the description below path as a Schema of its own.
func (s *Schema) Subschema(path string) (*Schema, error) {
	n, err := s.params.Find(path)
	if err != nil {
		return nil, err
	}
	child, ok := n.Hash()
	if !ok {
		return nil, types.NewTypeError("%q is a leaf", path)
	}
	return &Schema{root: path, params: child.Clone()}, nil
}

// Defaults builds the Hash of every default value. Choices contribute the
// default alternative, lists the default members.
func (s *Schema) Defaults() *hash.Hash {
	out := hash.New()
	s.defaults(s.params, "", out)
	return out
}

func (s *Schema) defaults(params *hash.Hash, prefix string, out *hash.Hash) {
	for _, n := range params.Nodes() {
		path := hash.JoinPath(prefix, n.Key())
		attrs := n.Attributes()
		child, _ := n.Hash()
		switch nodeType(attrs) {
		case Leaf:
			if v, ok := attrs.Value(DefaultValueAttr); ok {
				_ = out.Set(path, v)
			}
		case Node:
			if child.Empty() {
				continue
			}
			s.defaults(child, path, out)
		case ChoiceOfNodes:
			def, err := attrs.GetAs(DefaultValueAttr, types.String)
			if err != nil {
				continue
			}
			name := def.(string)
			if alt := child.Node(name); alt != nil {
				sub, _ := alt.Hash()
				s.defaults(sub, hash.JoinPath(path, name), out)
				if !out.Has(hash.JoinPath(path, name)) {
					_ = out.Set(hash.JoinPath(path, name), hash.New())
				}
			}
		case ListOfNodes:
			def, err := attrs.GetAs(DefaultValueAttr, types.VectorString)
			if err != nil {
				continue
			}
			rows := make([]*hash.Hash, 0)
			for _, name := range def.([]string) {
				alt := child.Node(name)
				if alt == nil {
					continue
				}
				sub, _ := alt.Hash()
				row := hash.New()
				s.defaults(sub, name, row)
				if !row.Has(name) {
					_ = row.Set(name, hash.New())
				}
				rows = append(rows, row)
			}
			_ = out.Set(path, rows)
		}
	}
}
