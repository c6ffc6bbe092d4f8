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
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// MergePolicy decides what happens to the attributes of entries present in
// both Hashes.
type MergePolicy int

const (
	// ReplaceAttributes drops the existing attributes of a touched entry.
	ReplaceAttributes MergePolicy = iota
	// MergeAttributes keeps existing attributes, overwriting same-named ones.
	MergeAttributes
)

// Merge copies other into h. Nested Hashes merge recursively; any other value
// of other, vectors included, overwrites the value in h. New keys are appended
// in the order of other.
func (h *Hash) Merge(other *Hash, policy MergePolicy) {
	for _, src := range other.Nodes() {
		dst := h.node(src.key)
		if dst == nil {
			h.appendNode(src.key, cloneValue(src.value), src.attrs.Clone())
			continue
		}
		switch policy {
		case MergeAttributes:
			dst.attrs.Merge(src.attrs)
		default:
			dst.attrs = src.attrs.Clone()
		}
		mine, ok1 := dst.Hash()
		theirs, ok2 := src.Hash()
		if ok1 && ok2 {
			mine.Merge(theirs, policy)
			continue
		}
		dst.value = cloneValue(src.value)
	}
}

// Subset returns a copy of the entries at paths, with their ancestors. The
// ancestors carry their attributes but no other children. Missing paths are
// a key error.
func (h *Hash) Subset(paths ...string) (*Hash, error) {
	out := New()
	for _, p := range paths {
		segs, err := parsePath(p)
		if err != nil {
			return nil, err
		}
		src, dst := h, out
		for i, s := range segs {
			if s.index >= 0 {
				return nil, types.NewKeyError("%q: indexed paths cannot be selected", p)
			}
			n := src.node(s.key)
			if n == nil {
				return nil, types.NewKeyError("no key %q", p)
			}
			if i == len(segs)-1 {
				if existing := dst.node(s.key); existing != nil {
					existing.value = cloneValue(n.value)
					existing.attrs = n.attrs.Clone()
				} else {
					dst.appendNode(s.key, cloneValue(n.value), n.attrs.Clone())
				}
				break
			}
			child, ok := n.Hash()
			if !ok {
				return nil, types.NewTypeError("%q: %s is not a HASH", pathOf(segs[:i+1]), n.value.Kind())
			}
			next := dst.node(s.key)
			if next == nil {
				next = dst.appendNode(s.key, types.MustValue(types.Hash, New()), n.attrs.Clone())
			}
			nested, ok := next.Hash()
			if !ok {
				return nil, types.NewTypeError("%q: conflicting selection", p)
			}
			src, dst = child, nested
		}
	}
	return out, nil
}

// Flatten returns a single level Hash keyed by the full paths of the leaves
// of h joined with sep. Empty Hashes are kept as leaves.
func (h *Hash) Flatten(sep string) *Hash {
	out := New()
	var walk func(prefix string, src *Hash)
	walk = func(prefix string, src *Hash) {
		for _, n := range src.nodes {
			key := n.key
			if prefix != "" {
				key = prefix + sep + n.key
			}
			if child, ok := n.Hash(); ok && !child.Empty() {
				walk(key, child)
				continue
			}
			out.appendNode(key, cloneValue(n.value), n.attrs.Clone())
		}
	}
	walk("", h)
	return out
}

// Unflatten is the inverse of Flatten: top-level keys of h are split on sep
// into nested Hashes.
func (h *Hash) Unflatten(sep string) (*Hash, error) {
	out := New()
	for _, n := range h.nodes {
		keys := strings.Split(n.key, sep)
		segs := make([]segment, len(keys))
		for i, k := range keys {
			if k == "" {
				return nil, types.NewKeyError("empty segment in %q", n.key)
			}
			segs[i] = segment{key: k, index: -1}
		}
		if err := out.setSegments(segs, cloneValue(n.value)); err != nil {
			return nil, err
		}
		leaf, err := out.find(segs)
		if err != nil {
			return nil, err
		}
		leaf.attrs = n.attrs.Clone()
	}
	return out, nil
}
