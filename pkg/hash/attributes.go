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
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// Attributes is the ordered, typed attribute map of a Hash entry.
type Attributes struct {
	entries []attribute
	index   map[string]int
}

type attribute struct {
	name  string
	value types.Value
}

func NewAttributes() *Attributes {
	return &Attributes{index: make(map[string]int)}
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Names returns the attribute names in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	names := make([]string, len(a.entries))
	for i := range a.entries {
		names[i] = a.entries[i].name
	}
	return names
}

func (a *Attributes) Has(name string) bool {
	if a == nil {
		return false
	}
	_, ok := a.index[name]
	return ok
}

// Value returns the typed value of attribute name.
func (a *Attributes) Value(name string) (types.Value, bool) {
	if a == nil {
		return types.Value{}, false
	}
	if i, ok := a.index[name]; ok {
		return a.entries[i].value, true
	}
	return types.Value{}, false
}

// Get returns the payload of attribute name or a key error.
func (a *Attributes) Get(name string) (any, error) {
	if v, ok := a.Value(name); ok {
		return v.Data(), nil
	}
	return nil, types.NewKeyError("no attribute %q", name)
}

// GetAs returns attribute name converted to kind k.
func (a *Attributes) GetAs(name string, k types.Kind) (any, error) {
	v, ok := a.Value(name)
	if !ok {
		return nil, types.NewKeyError("no attribute %q", name)
	}
	c, err := types.Convert(v, k)
	if err != nil {
		return nil, types.Wrap(err, "attribute %q", name)
	}
	return c.Data(), nil
}

// Set infers the kind of v and stores a copy of it. An existing attribute
// keeps its position.
func (a *Attributes) Set(name string, v any) error {
	val, err := Infer(v)
	if err != nil {
		return types.Wrap(err, "attribute %q", name)
	}
	a.SetValue(name, val)
	return nil
}

// SetAs stores v converted to kind k.
func (a *Attributes) SetAs(name string, v any, k types.Kind) error {
	val, err := inferAs(v, k)
	if err != nil {
		return types.Wrap(err, "attribute %q", name)
	}
	a.SetValue(name, val)
	return nil
}

// SetValue stores v without copying it.
func (a *Attributes) SetValue(name string, v types.Value) {
	if i, ok := a.index[name]; ok {
		a.entries[i].value = v
		return
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, attribute{name: name, value: v})
}

// Erase removes attribute name and reports whether it existed.
func (a *Attributes) Erase(name string) bool {
	i, ok := a.index[name]
	if !ok {
		return false
	}
	a.entries = append(a.entries[:i], a.entries[i+1:]...)
	delete(a.index, name)
	for j := i; j < len(a.entries); j++ {
		a.index[a.entries[j].name] = j
	}
	return true
}

// Each visits the attributes in order until fn returns an error.
func (a *Attributes) Each(fn func(name string, v types.Value) error) error {
	if a == nil {
		return nil
	}
	for _, e := range a.entries {
		if err := fn(e.name, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Merge copies every attribute of other into a.
func (a *Attributes) Merge(other *Attributes) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		a.SetValue(e.name, cloneValue(e.value))
	}
}

func (a *Attributes) Clone() *Attributes {
	c := &Attributes{index: make(map[string]int, a.Len())}
	if a == nil {
		return c
	}
	c.entries = make([]attribute, len(a.entries))
	for i, e := range a.entries {
		c.entries[i] = attribute{name: e.name, value: cloneValue(e.value)}
		c.index[e.name] = i
	}
	return c
}

// Equal requires the same names in the same order with equal values.
func (a *Attributes) Equal(other *Attributes) bool {
	if a.Len() != other.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		x, y := a.entries[i], other.entries[i]
		if x.name != y.name || !valuesEqual(x.value, y.value) {
			return false
		}
	}
	return true
}
