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
	"strconv"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// String renders h one entry per line:
//
//	'a' +
//	  'b' unit="m" => 1 INT32
//	'list' @
//	  [0]
//	    'x' => y STRING
func (h *Hash) String() string {
	var sb strings.Builder
	h.format(&sb, 0)
	return sb.String()
}

func (h *Hash) format(sb *strings.Builder, depth int) {
	for _, n := range h.Nodes() {
		indent(sb, depth)
		sb.WriteString("'" + n.key + "'")
		_ = n.attrs.Each(func(name string, v types.Value) error {
			sb.WriteString(" " + name + "=" + strconv.Quote(summary(v)))
			return nil
		})
		switch n.value.Kind() {
		case types.Hash:
			sb.WriteString(" +\n")
			n.value.Data().(*Hash).format(sb, depth+1)
		case types.VectorHash:
			sb.WriteString(" @\n")
			for i, e := range n.value.Data().([]*Hash) {
				indent(sb, depth+1)
				sb.WriteString("[" + strconv.Itoa(i) + "]\n")
				e.format(sb, depth+2)
			}
		case types.Schema:
			s := n.value.Data().(SchemaValue)
			sb.WriteString(" => " + s.RootName() + " SCHEMA\n")
			s.Parameters().format(sb, depth+1)
		default:
			sb.WriteString(" => " + summary(n.value) + " " + n.value.Kind().String() + "\n")
		}
	}
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

func summary(v types.Value) string {
	switch v.Kind() {
	case types.Hash:
		return "<HASH>"
	case types.VectorHash:
		return "<VECTOR_HASH>"
	case types.Schema:
		return "<SCHEMA " + v.Data().(SchemaValue).RootName() + ">"
	case types.VectorChar, types.ByteArray:
		return "<" + strconv.Itoa(v.Len()) + " bytes>"
	}
	return v.String()
}
