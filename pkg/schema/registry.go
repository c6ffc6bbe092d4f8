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
	"sync"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// Describer is implemented by configurable classes; Describe adds the
// class's expected parameters to s.
type Describer interface {
	Describe(s *Schema) error
}

// DescribeFunc adapts a function to Describer.
type DescribeFunc func(s *Schema) error

func (f DescribeFunc) Describe(s *Schema) error {
	return f(s)
}

type class struct {
	id   string
	base string
	d    Describer
}

var registry = struct {
	sync.RWMutex
	byID  map[string]*class
	order []string
}{byID: make(map[string]*class)}

// RegisterClass makes classID known. base names the class it derives from
// and may be empty or unregistered; the Describe of a registered base runs
// before that of the derived class.
func RegisterClass(classID, base string, d Describer) error {
	if classID == "" {
		return types.NewKeyError("empty class id")
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.byID[classID]; ok {
		return types.NewKeyError("class %q is already registered", classID)
	}
	registry.byID[classID] = &class{id: classID, base: base, d: d}
	registry.order = append(registry.order, classID)
	return nil
}

// UnregisterClass forgets classID.
func UnregisterClass(classID string) {
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.byID[classID]; !ok {
		return
	}
	delete(registry.byID, classID)
	for i, id := range registry.order {
		if id == classID {
			registry.order = append(registry.order[:i], registry.order[i+1:]...)
			break
		}
	}
}

// ClassSchema builds a fresh Schema of classID.
func ClassSchema(classID string) (*Schema, error) {
	registry.RLock()
	var chain []*class
	c, ok := registry.byID[classID]
	for ok && len(chain) <= len(registry.order) {
		chain = append(chain, c)
		c, ok = registry.byID[c.base]
	}
	registry.RUnlock()
	if len(chain) == 0 {
		return nil, types.NewKeyError("class %q is not registered", classID)
	}
	s := New(classID)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].d == nil {
			continue
		}
		if err := chain[i].d.Describe(s); err != nil {
			return nil, types.Wrap(err, "describing %q", chain[i].id)
		}
	}
	return s, nil
}

// ClassesOf lists, in registration order, the classes deriving directly or
// indirectly from base.
func ClassesOf(base string) []string {
	registry.RLock()
	defer registry.RUnlock()
	var out []string
	for _, id := range registry.order {
		c := registry.byID[id]
		for hops := 0; c != nil && hops <= len(registry.order); hops++ {
			if c.base == base {
				out = append(out, id)
				break
			}
			c = registry.byID[c.base]
		}
	}
	return out
}

// Classes lists every registered class id.
func Classes() []string {
	registry.RLock()
	defer registry.RUnlock()
	return append([]string{}, registry.order...)
}
