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

// TableElementBuilder describes a VECTOR_HASH whose rows follow a row schema.
type TableElementBuilder struct {
	leaf[*TableElementBuilder]
	rows *Schema
}

func TableElement(s *Schema) *TableElementBuilder {
	e := &TableElementBuilder{}
	e.initLeaf(s, e, types.VectorHash)
	return e
}

func (e *TableElementBuilder) RowSchema(rows *Schema) *TableElementBuilder {
	e.rows = rows.Clone()
	return e
}

func (e *TableElementBuilder) DefaultValue(rows []*hash.Hash) *TableElementBuilder {
	return e.defaultValue(rows)
}

func (e *TableElementBuilder) MinSize(n uint32) *TableElementBuilder {
	return e.size(MinSizeAttr, n)
}

func (e *TableElementBuilder) MaxSize(n uint32) *TableElementBuilder {
	return e.size(MaxSizeAttr, n)
}

func (e *TableElementBuilder) Commit() error {
	if e.rows == nil {
		return types.NewKeyError("table %q without row schema", e.key)
	}
	return e.commitLeaf(func(head *hash.Attributes) {
		_ = head.Set(DisplayTypeAttr, TableDisplayType)
		head.SetValue(RowSchemaAttr, types.MustValue(types.Schema, e.rows))
	})
}

// StateElementBuilder describes the read-only state of a device.
type StateElementBuilder struct {
	leaf[*StateElementBuilder]
	displayType string
}

func StateElement(s *Schema) *StateElementBuilder {
	e := &StateElementBuilder{displayType: StateDisplayType}
	e.initLeaf(s, e, types.String)
	e.access = ReadOnly
	return e
}

// AlarmConditionElement describes the read-only alarm condition, "none"
// unless set otherwise.
func AlarmConditionElement(s *Schema) *StateElementBuilder {
	e := &StateElementBuilder{displayType: AlarmConditionDisplayType}
	e.initLeaf(s, e, types.String)
	e.access = ReadOnly
	return e.InitialValue("none")
}

func (e *StateElementBuilder) Options(values ...string) *StateElementBuilder {
	return e.setAs(OptionsAttr, append([]string{}, values...), types.VectorString)
}

func (e *StateElementBuilder) InitialValue(v string) *StateElementBuilder {
	return e.defaultValue(v)
}

func (e *StateElementBuilder) Commit() error {
	e.access = ReadOnly
	return e.commitLeaf(func(head *hash.Attributes) {
		_ = head.Set(DisplayTypeAttr, e.displayType)
		_ = head.Set(ClassIDAttr, e.displayType)
	})
}
