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
	"strconv"
)

// Well-known attribute names of schema entries.
const (
	NodeTypeAttr            = "nodeType"
	ValueTypeAttr           = "valueType"
	AccessModeAttr          = "accessMode"
	AssignmentAttr          = "assignment"
	DefaultValueAttr        = "defaultValue"
	RequiredAccessLevelAttr = "requiredAccessLevel"
	MinIncAttr              = "minInc"
	MaxIncAttr              = "maxInc"
	MinExcAttr              = "minExc"
	MaxExcAttr              = "maxExc"
	MinSizeAttr             = "minSize"
	MaxSizeAttr             = "maxSize"
	OptionsAttr             = "options"
	AllowedStatesAttr       = "allowedStates"
	UnitSymbolAttr          = "unitSymbol"
	MetricPrefixSymbolAttr  = "metricPrefixSymbol"
	DisplayTypeAttr         = "displayType"
	AliasAttr               = "alias"
	TagsAttr                = "tags"
	DisplayedNameAttr       = "displayedName"
	DescriptionAttr         = "description"
	AbsoluteErrorAttr       = "absoluteError"
	RelativeErrorAttr       = "relativeError"
	RowSchemaAttr           = "rowSchema"
	ClassIDAttr             = "classId"
)

type NodeType int32

const (
	Leaf NodeType = iota
	Node
	ChoiceOfNodes
	ListOfNodes
)

func (t NodeType) String() string {
	switch t {
	case Leaf:
		return "Leaf"
	case Node:
		return "Node"
	case ChoiceOfNodes:
		return "ChoiceOfNodes"
	case ListOfNodes:
		return "ListOfNodes"
	}
	return "NodeType(" + strconv.Itoa(int(t)) + ")"
}

// AccessMode is a bit set; a key readable only is READ, reconfigurable keys
// are WRITE.
type AccessMode int32

const (
	Init     AccessMode = 1
	ReadOnly AccessMode = 2
	Write    AccessMode = 4
)

func (m AccessMode) String() string {
	switch m {
	case Init:
		return "INIT"
	case ReadOnly:
		return "READ"
	case Write:
		return "WRITE"
	}
	return "AccessMode(" + strconv.Itoa(int(m)) + ")"
}

type Assignment int32

const (
	Optional Assignment = iota
	Mandatory
	Internal
)

func (a Assignment) String() string {
	switch a {
	case Optional:
		return "OPTIONAL"
	case Mandatory:
		return "MANDATORY"
	case Internal:
		return "INTERNAL"
	}
	return "Assignment(" + strconv.Itoa(int(a)) + ")"
}

type AccessLevel int32

const (
	Observer AccessLevel = iota
	User
	Operator
	Expert
	Admin
)

// Display types and class ids of the special elements.
const (
	SlotDisplayType           = "Slot"
	StateDisplayType          = "State"
	AlarmConditionDisplayType = "AlarmCondition"
	TableDisplayType          = "Table"
)
