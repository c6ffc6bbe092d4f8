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

// Package hash implements the ordered, typed, attributed tree that carries
// every configuration, message and schema.
//
// A Hash maps keys to nodes in insertion order. Each node holds a typed value
// and its own ordered attribute map. Dotted paths such as "a.b.c" descend into
// nested Hashes and "list[1].x" indexes into a VECTOR_HASH. Values are copied
// on insertion, so a Hash is always a tree.
//
// A Hash is not safe for concurrent mutation; concurrent reads are fine once
// published.
package hash

import (
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

type Hash struct {
	nodes []*Node
	index map[string]int
}

// Node is a single entry of a Hash.
type Node struct {
	key   string
	value types.Value
	attrs *Attributes
}

func (n *Node) Key() string {
	return n.key
}

func (n *Node) Value() types.Value {
	return n.value
}

func (n *Node) Kind() types.Kind {
	return n.value.Kind()
}

func (n *Node) Data() any {
	return n.value.Data()
}

func (n *Node) Attributes() *Attributes {
	return n.attrs
}

// Hash returns the nested Hash of a HASH node.
func (n *Node) Hash() (*Hash, bool) {
	h, ok := n.value.Data().(*Hash)
	return h, ok && n.value.Kind() == types.Hash
}

func New() *Hash {
	return &Hash{index: make(map[string]int)}
}

// Build creates a Hash from path/value pairs, e.g.
// Build("a.b.c", int32(1), "x", "y").
func Build(pairs ...any) (*Hash, error) {
	if len(pairs)%2 != 0 {
		return nil, types.NewSizeError("odd number of arguments to Build")
	}
	h := New()
	for i := 0; i < len(pairs); i += 2 {
		path, ok := pairs[i].(string)
		if !ok {
			return nil, types.NewTypeError("argument %d: path must be a string, got %T", i, pairs[i])
		}
		if err := h.Set(path, pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// MustBuild is Build that panics on error.
func MustBuild(pairs ...any) *Hash {
	h, err := Build(pairs...)
	if err != nil {
		panic(err)
	}
	return h
}

// Len counts the top-level keys.
func (h *Hash) Len() int {
	if h == nil {
		return 0
	}
	return len(h.nodes)
}

func (h *Hash) Empty() bool {
	return h.Len() == 0
}

// Keys returns the top-level keys in insertion order.
func (h *Hash) Keys() []string {
	keys := make([]string, h.Len())
	for i := range keys {
		keys[i] = h.nodes[i].key
	}
	return keys
}

// Nodes returns the top-level nodes in insertion order.
func (h *Hash) Nodes() []*Node {
	out := make([]*Node, h.Len())
	if h != nil {
		copy(out, h.nodes)
	}
	return out
}

// Node returns the top-level node key, without path parsing.
func (h *Hash) Node(key string) *Node {
	return h.node(key)
}

func (h *Hash) node(key string) *Node {
	if h == nil {
		return nil
	}
	if i, ok := h.index[key]; ok {
		return h.nodes[i]
	}
	return nil
}

func (h *Hash) appendNode(key string, v types.Value, attrs *Attributes) *Node {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	if attrs == nil {
		attrs = NewAttributes()
	}
	n := &Node{key: key, value: v, attrs: attrs}
	h.index[key] = len(h.nodes)
	h.nodes = append(h.nodes, n)
	return n
}

// MaxKeyLength is the longest key any codec can carry.
const MaxKeyLength = 255

// CheckKey accepts the keys a decoder may insert: non-empty ASCII of at most
// MaxKeyLength bytes without the path separator.
func CheckKey(key string) error {
	if key == "" {
		return types.NewKeyError("empty key")
	}
	if len(key) > MaxKeyLength {
		return types.NewKeyError("key of %d bytes exceeds %d", len(key), MaxKeyLength)
	}
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == Separator:
			return types.NewKeyError("key %q contains the path separator", key)
		case c >= 0x80:
			return types.NewKeyError("key %q is not ASCII", key)
		}
	}
	return nil
}

// Append adds a top-level entry without path parsing or copying. It is meant
// for decoders and fails on a key that CheckKey refuses or that is already
// present.
func (h *Hash) Append(key string, v types.Value, attrs *Attributes) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if _, ok := h.index[key]; ok {
		return types.NewDuplicateKeyError(key)
	}
	h.appendNode(key, v, attrs)
	return nil
}

// Find returns the node at path.
func (h *Hash) Find(path string) (*Node, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	return h.find(segs)
}

func (h *Hash) find(segs []segment) (*Node, error) {
	parent, err := h.walk(segs, false)
	if err != nil {
		return nil, err
	}
	last := segs[len(segs)-1]
	n := parent.node(last.key)
	if n == nil {
		return nil, types.NewKeyError("no key %q", pathOf(segs))
	}
	if last.index >= 0 {
		return nil, types.NewKeyError("%q addresses a VECTOR_HASH element, not a node", pathOf(segs))
	}
	return n, nil
}

// Has reports whether path resolves.
func (h *Hash) Has(path string) bool {
	segs, err := parsePath(path)
	if err != nil {
		return false
	}
	parent, err := h.walk(segs, false)
	if err != nil {
		return false
	}
	last := segs[len(segs)-1]
	n := parent.node(last.key)
	if n == nil {
		return false
	}
	if last.index >= 0 {
		_, err = n.descend(last, false)
		return err == nil
	}
	return true
}

// Get returns the payload at path. A trailing index returns the *Hash element
// of a VECTOR_HASH. Aggregates are returned by reference.
func (h *Hash) Get(path string) (any, error) {
	v, err := h.GetValue(path)
	if err != nil {
		return nil, err
	}
	return v.Data(), nil
}

// GetValue returns the typed value at path.
func (h *Hash) GetValue(path string) (types.Value, error) {
	segs, err := parsePath(path)
	if err != nil {
		return types.Value{}, err
	}
	parent, err := h.walk(segs, false)
	if err != nil {
		return types.Value{}, err
	}
	last := segs[len(segs)-1]
	n := parent.node(last.key)
	if n == nil {
		return types.Value{}, types.NewKeyError("no key %q", path)
	}
	if last.index >= 0 {
		e, err := n.descend(last, false)
		if err != nil {
			return types.Value{}, types.Wrap(err, "%q", path)
		}
		return types.MustValue(types.Hash, e), nil
	}
	return n.value, nil
}

// GetAs returns the payload at path converted to kind k.
func (h *Hash) GetAs(path string, k types.Kind) (any, error) {
	v, err := h.GetValue(path)
	if err != nil {
		return nil, err
	}
	c, err := types.Convert(v, k)
	if err != nil {
		return nil, types.Wrap(err, "%q", path)
	}
	return c.Data(), nil
}

// Kind returns the kind stored at path.
func (h *Hash) Kind(path string) (types.Kind, error) {
	v, err := h.GetValue(path)
	if err != nil {
		return types.Unknown, err
	}
	return v.Kind(), nil
}

// Set stores a copy of v at path, inferring its kind. Missing intermediate
// Hashes are created; an existing intermediate that is not a Hash is an
// error. Updating a key keeps its position and attributes.
func (h *Hash) Set(path string, v any) error {
	val, err := Infer(v)
	if err != nil {
		return types.Wrap(err, "%q", path)
	}
	return h.SetValue(path, val)
}

// SetAs stores v at path converted to kind k.
func (h *Hash) SetAs(path string, v any, k types.Kind) error {
	val, err := inferAs(v, k)
	if err != nil {
		return types.Wrap(err, "%q", path)
	}
	return h.SetValue(path, val)
}

// SetValue stores v at path. v is stored as given, callers that keep a
// reference to its payload should clone it first.
func (h *Hash) SetValue(path string, v types.Value) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	return h.setSegments(segs, v)
}

func (h *Hash) setSegments(segs []segment, v types.Value) error {
	if v.IsZero() || !v.Kind().Serializable() {
		return types.NewTypeError("kind %s cannot be stored", v.Kind())
	}
	parent, err := h.walk(segs, true)
	if err != nil {
		return err
	}
	last := segs[len(segs)-1]
	n := parent.node(last.key)
	if last.index >= 0 {
		if v.Kind() != types.Hash {
			return types.NewTypeError("%q: VECTOR_HASH element must be a HASH, got %s", pathOf(segs), v.Kind())
		}
		if n == nil {
			if last.index != 0 {
				return types.NewKeyError("%q: index out of range", pathOf(segs))
			}
			parent.appendNode(last.key, types.MustValue(types.VectorHash, []*Hash{v.Data().(*Hash)}), nil)
			return nil
		}
		if n.value.Kind() != types.VectorHash {
			return types.NewTypeError("%q: %s cannot be indexed", pathOf(segs), n.value.Kind())
		}
		vec := n.value.Data().([]*Hash)
		switch {
		case last.index < len(vec):
			vec[last.index] = v.Data().(*Hash)
		case last.index == len(vec):
			n.value = types.MustValue(types.VectorHash, append(vec, v.Data().(*Hash)))
		default:
			return types.NewKeyError("%q: index out of range, VECTOR_HASH has %d elements", pathOf(segs), len(vec))
		}
		return nil
	}
	if n != nil {
		n.value = v
		return nil
	}
	parent.appendNode(last.key, v, nil)
	return nil
}

// Erase removes path and reports whether something was removed. A trailing
// index removes one element of a VECTOR_HASH.
func (h *Hash) Erase(path string) bool {
	segs, err := parsePath(path)
	if err != nil {
		return false
	}
	parent, err := h.walk(segs, false)
	if err != nil {
		return false
	}
	last := segs[len(segs)-1]
	i, ok := parent.index[last.key]
	if !ok {
		return false
	}
	if last.index >= 0 {
		n := parent.nodes[i]
		if n.value.Kind() != types.VectorHash {
			return false
		}
		vec := n.value.Data().([]*Hash)
		if last.index >= len(vec) {
			return false
		}
		out := make([]*Hash, 0, len(vec)-1)
		out = append(out, vec[:last.index]...)
		n.value = types.MustValue(types.VectorHash, append(out, vec[last.index+1:]...))
		return true
	}
	parent.removeAt(i)
	return true
}

func (h *Hash) removeAt(i int) {
	delete(h.index, h.nodes[i].key)
	h.nodes = append(h.nodes[:i], h.nodes[i+1:]...)
	for j := i; j < len(h.nodes); j++ {
		h.index[h.nodes[j].key] = j
	}
}

// Clear removes every entry.
func (h *Hash) Clear() {
	h.nodes = nil
	h.index = make(map[string]int)
}

// Paths lists the paths in depth-first insertion order. Leaves, empty Hashes
// and VECTOR_HASH entries are always listed; with intermediate set the
// non-empty Hash nodes are listed too, before their children.
func (h *Hash) Paths(intermediate bool) []string {
	var out []string
	h.paths("", intermediate, &out)
	return out
}

func (h *Hash) paths(prefix string, intermediate bool, out *[]string) {
	for _, n := range h.Nodes() {
		p := JoinPath(prefix, n.key)
		child, ok := n.Hash()
		if !ok || child.Empty() {
			*out = append(*out, p)
			continue
		}
		if intermediate {
			*out = append(*out, p)
		}
		child.paths(p, intermediate, out)
	}
}

// Each visits the top-level entries in insertion order until fn returns an
// error.
func (h *Hash) Each(fn func(key string, v types.Value, attrs *Attributes) error) error {
	for _, n := range h.Nodes() {
		if err := fn(n.key, n.value, n.Attributes()); err != nil {
			return err
		}
	}
	return nil
}

// FlatEach visits the leaves depth first with their full paths. With empty
// set, empty Hashes are visited as leaves too.
func (h *Hash) FlatEach(empty bool, fn func(path string, v types.Value, attrs *Attributes) error) error {
	return h.flatEach("", empty, fn)
}

func (h *Hash) flatEach(prefix string, empty bool, fn func(string, types.Value, *Attributes) error) error {
	for _, n := range h.Nodes() {
		p := JoinPath(prefix, n.key)
		if child, ok := n.Hash(); ok {
			if child.Empty() {
				if empty {
					if err := fn(p, n.value, n.Attributes()); err != nil {
						return err
					}
				}
				continue
			}
			if err := child.flatEach(p, empty, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(p, n.value, n.Attributes()); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep copies h including attributes.
func (h *Hash) Clone() *Hash {
	c := &Hash{index: make(map[string]int, h.Len())}
	if h == nil {
		return c
	}
	c.nodes = make([]*Node, len(h.nodes))
	for i, n := range h.nodes {
		c.nodes[i] = &Node{key: n.key, value: cloneValue(n.value), attrs: n.attrs.Clone()}
		c.index[n.key] = i
	}
	return c
}

// Equal requires the same keys in the same order with equal kinds, payloads
// and attributes, recursively. Floats compare bitwise.
func (h *Hash) Equal(other *Hash) bool {
	if h.Len() != other.Len() {
		return false
	}
	for i := 0; i < h.Len(); i++ {
		x, y := h.nodes[i], other.nodes[i]
		if x.key != y.key || !valuesEqual(x.value, y.value) || !x.attrs.Equal(y.attrs) {
			return false
		}
	}
	return true
}
