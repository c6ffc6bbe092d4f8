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

// Separator divides the segments of a path.
const Separator = '.'

// segment is one step of a path: a key, optionally indexing into a
// VECTOR_HASH as in "items[2]".
type segment struct {
	key   string
	index int
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, types.NewKeyError("empty path")
	}
	parts := strings.Split(path, string(Separator))
	segs := make([]segment, len(parts))
	for i, p := range parts {
		s, err := parseSegment(p)
		if err != nil {
			return nil, types.Wrap(err, "path %q", path)
		}
		segs[i] = s
	}
	return segs, nil
}

func parseSegment(p string) (segment, error) {
	s := segment{key: p, index: -1}
	if open := strings.IndexByte(p, '['); open >= 0 && strings.HasSuffix(p, "]") {
		n, err := strconv.Atoi(p[open+1 : len(p)-1])
		if err != nil || n < 0 {
			return s, types.NewKeyError("bad index in %q", p)
		}
		s.key, s.index = p[:open], n
	}
	if s.key == "" {
		return s, types.NewKeyError("empty key segment")
	}
	return s, nil
}

func (s segment) String() string {
	if s.index < 0 {
		return s.key
	}
	return s.key + "[" + strconv.Itoa(s.index) + "]"
}

// JoinPath joins keys with the path separator, skipping empty prefixes.
func JoinPath(keys ...string) string {
	var sb strings.Builder
	for _, k := range keys {
		if k == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(Separator)
		}
		sb.WriteString(k)
	}
	return sb.String()
}

// SplitPath splits path into its parent path and last key.
func SplitPath(path string) (string, string) {
	if i := strings.LastIndexByte(path, Separator); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// walk resolves every segment but the last, returning the Hash that holds
// the last one. With create set, missing intermediate Hashes are added and a
// VECTOR_HASH may grow by exactly one element.
func (h *Hash) walk(segs []segment, create bool) (*Hash, error) {
	cur := h
	for i, s := range segs[:len(segs)-1] {
		n := cur.node(s.key)
		if n == nil {
			if !create {
				return nil, types.NewKeyError("%q has no key %q", pathOf(segs[:i]), s.key)
			}
			if s.index > 0 {
				return nil, types.NewKeyError("index %d out of range for new key %q", s.index, s.key)
			}
			child := New()
			if s.index == 0 {
				cur.appendNode(s.key, types.MustValue(types.VectorHash, []*Hash{child}), nil)
			} else {
				cur.appendNode(s.key, types.MustValue(types.Hash, child), nil)
			}
			cur = child
			continue
		}
		next, err := n.descend(s, create)
		if err != nil {
			return nil, types.Wrap(err, "%q", pathOf(segs[:i+1]))
		}
		cur = next
	}
	return cur, nil
}

func (n *Node) descend(s segment, create bool) (*Hash, error) {
	if s.index < 0 {
		if n.value.Kind() != types.Hash {
			return nil, types.NewTypeError("%s is not a HASH", n.value.Kind())
		}
		return n.value.Data().(*Hash), nil
	}
	if n.value.Kind() != types.VectorHash {
		return nil, types.NewTypeError("%s cannot be indexed", n.value.Kind())
	}
	vec := n.value.Data().([]*Hash)
	switch {
	case s.index < len(vec):
		return vec[s.index], nil
	case create && s.index == len(vec):
		child := New()
		n.value = types.MustValue(types.VectorHash, append(vec, child))
		return child, nil
	}
	return nil, types.NewKeyError("index %d out of range, VECTOR_HASH has %d elements", s.index, len(vec))
}

func pathOf(segs []segment) string {
	parts := make([]string, len(segs))
	for i := range segs {
		parts[i] = segs[i].String()
	}
	return strings.Join(parts, string(Separator))
}
