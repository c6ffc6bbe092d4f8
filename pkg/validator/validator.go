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

// Package validator checks a configuration Hash against a Schema, converts
// its leaves to the declared kinds and fills in defaults.
package validator

import (
	"fmt"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/metrics"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

type Rules struct {
	// InjectDefaults fills in missing keys that have a default.
	InjectDefaults bool
	// AllowUnrootedConfiguration accepts input that is not wrapped in a
	// single key named after the Schema root.
	AllowUnrootedConfiguration bool
	// AllowAdditionalKeys copies keys unknown to the Schema instead of
	// reporting them.
	AllowAdditionalKeys bool
	// AllowMissingKeys tolerates absent mandatory keys.
	AllowMissingKeys bool
	// InjectTimestamps stamps every validated leaf from the clock.
	InjectTimestamps bool
	// CurrentState, when set, is checked against allowedStates of the
	// supplied keys.
	CurrentState string
	// BestEffort returns the partial result along with the violations.
	BestEffort bool
}

// DefaultRules injects defaults and accepts unrooted input; everything else
// is strict.
func DefaultRules() Rules {
	return Rules{
		InjectDefaults:             true,
		AllowUnrootedConfiguration: true,
	}
}

// ReconfigurationRules validate a partial update: missing keys are fine and
// nothing is injected.
func ReconfigurationRules(state string) Rules {
	return Rules{
		AllowUnrootedConfiguration: true,
		AllowMissingKeys:           true,
		CurrentState:               state,
	}
}

type Option func(*Validator)

func WithClock(c timestamp.Clock) Option {
	return func(v *Validator) {
		if c != nil {
			v.clock = c
		}
	}
}

func WithMetrics(col metrics.ValidatorCollector) Option {
	return func(v *Validator) {
		if col != nil {
			v.metrics = col
		}
	}
}

// Validator is stateless between calls and safe for concurrent use.
type Validator struct {
	rules   Rules
	clock   timestamp.Clock
	metrics metrics.ValidatorCollector
}

func New(rules Rules, opts ...Option) *Validator {
	v := &Validator{rules: rules, clock: timestamp.Now, metrics: metrics.ForValidator(nil)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate returns the validated copy of in. On failure the error is
// Violations listing every problem; the partial result is returned too when
// the rules ask for best effort. in is not modified.
func (v *Validator) Validate(s *schema.Schema, in *hash.Hash) (*hash.Hash, error) {
	w := &walk{rules: v.rules, s: s}
	if v.rules.InjectTimestamps {
		w.stamp = v.clock()
	}
	if in == nil {
		in = hash.New()
	}
	cfg, rooted := w.unroot(in)
	out := hash.New()
	w.level("", cfg, out, "")
	if rooted {
		wrapped := hash.New()
		_ = wrapped.Append(s.RootName(), types.MustValue(types.Hash, out), nil)
		out = wrapped
	}
	v.metrics.Validated(len(w.violations))
	if len(w.violations) > 0 {
		if v.rules.BestEffort {
			return out, w.violations
		}
		return nil, w.violations
	}
	return out, nil
}

// Validate validates with the default rules.
func Validate(s *schema.Schema, in *hash.Hash) (*hash.Hash, error) {
	return New(DefaultRules()).Validate(s, in)
}

type walk struct {
	rules      Rules
	s          *schema.Schema
	stamp      timestamp.Timestamp
	violations Violations
}

func (w *walk) report(path string, r Reason, format string, args ...any) {
	w.violations = append(w.violations, Violation{Path: path, Reason: r, Message: fmt.Sprintf(format, args...)})
}

// unroot strips the single root key when in is wrapped in it.
func (w *walk) unroot(in *hash.Hash) (*hash.Hash, bool) {
	root := w.s.RootName()
	if root != "" && in.Len() == 1 && !w.s.Has(root) {
		if n := in.Node(root); n != nil {
			if child, ok := n.Hash(); ok {
				return child, true
			}
		}
	}
	if !w.rules.AllowUnrootedConfiguration && root != "" {
		w.report(root, MissingMandatory, "configuration must be rooted at %q", root)
	}
	return in, false
}

// level validates the entries of in against the children of schemaPath.
func (w *walk) level(schemaPath string, in, out *hash.Hash, path string) {
	keys, err := w.s.Keys(schemaPath)
	if err != nil {
		w.report(path, TypeMismatch, "%v", err)
		return
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
		sp, p := hash.JoinPath(schemaPath, k), hash.JoinPath(path, k)
		if w.s.IsSlot(sp) {
			continue
		}
		nt, _ := w.s.NodeType(sp)
		switch nt {
		case schema.Leaf:
			w.leaf(sp, k, in, out, p)
		case schema.Node:
			w.node(sp, k, in, out, p)
		case schema.ChoiceOfNodes:
			w.choice(sp, k, in, out, p)
		case schema.ListOfNodes:
			w.list(sp, k, in, out, p)
		}
	}
	for _, n := range in.Nodes() {
		if known[n.Key()] {
			continue
		}
		if !w.rules.AllowAdditionalKeys {
			w.report(hash.JoinPath(path, n.Key()), UnexpectedKey, "key is not described by the schema")
			continue
		}
		_ = out.Append(n.Key(), clone(n.Value()), n.Attributes().Clone())
	}
}

// absent handles a key missing from the input. It returns the default to
// inject, if any.
func (w *walk) absent(sp, path string) (types.Value, bool) {
	if a, _ := w.s.Assignment(sp); a == schema.Mandatory {
		if !w.rules.AllowMissingKeys {
			w.report(path, MissingMandatory, "mandatory key is missing")
		}
		return types.Value{}, false
	}
	if !w.rules.InjectDefaults {
		return types.Value{}, false
	}
	return w.s.DefaultValue(sp)
}

func (w *walk) checkState(sp, path string) {
	if w.rules.CurrentState == "" {
		return
	}
	states := w.s.AllowedStates(sp)
	if len(states) == 0 {
		return
	}
	for _, st := range states {
		if st == w.rules.CurrentState {
			return
		}
	}
	w.report(path, StateViolation, "cannot be set in state %s, allowed are %s", w.rules.CurrentState, strings.Join(states, ","))
}

// attrs copies the input attributes of n and adds the timestamp.
func (w *walk) attrs(n *hash.Node, leaf bool) *hash.Attributes {
	attrs := hash.NewAttributes()
	if n != nil {
		attrs = n.Attributes().Clone()
	}
	if leaf && w.rules.InjectTimestamps {
		attrs.Merge(w.stamp.Attributes())
	}
	return attrs
}

func (w *walk) leaf(sp, key string, in, out *hash.Hash, path string) {
	n := in.Node(key)
	if n == nil {
		if def, ok := w.absent(sp, path); ok {
			_ = out.Append(key, clone(def), w.attrs(nil, true))
		}
		return
	}
	w.checkState(sp, path)
	k, err := w.s.ValueType(sp)
	if err != nil {
		w.report(path, TypeMismatch, "schema declares no value type: %v", err)
		return
	}
	v := n.Value()
	if v.Kind() != k {
		if v, err = types.Convert(v, k); err != nil {
			w.report(path, reasonOf(err), "%v", err)
			return
		}
	}
	if w.s.IsTable(sp) {
		if v, err = w.table(sp, v, path); err != nil {
			return
		}
	}
	constraints, _ := w.s.Parameters().Attributes(sp)
	if err = schema.Check(constraints, v); err != nil {
		w.report(path, reasonOf(err), "%v", err)
		return
	}
	_ = out.Append(key, clone(v), w.attrs(n, true))
}

// table validates every row against the row schema of sp. Violations are
// reported with the row index; err only signals that some row failed.
func (w *walk) table(sp string, v types.Value, path string) (types.Value, error) {
	rowSchema, ok := w.s.RowSchema(sp)
	if !ok {
		return v, nil
	}
	rows := v.Data().([]*hash.Hash)
	out := make([]*hash.Hash, 0, len(rows))
	rules := w.rules
	rules.InjectTimestamps = false
	rules.CurrentState = ""
	failed := false
	for i, row := range rows {
		rw := &walk{rules: rules, s: rowSchema}
		validated := hash.New()
		rw.level("", row, validated, fmt.Sprintf("%s[%d]", path, i))
		if len(rw.violations) > 0 {
			w.violations = append(w.violations, rw.violations...)
			failed = true
			continue
		}
		out = append(out, validated)
	}
	if failed {
		return types.Value{}, types.NewTypeError("table rows violate the row schema")
	}
	return types.MustValue(types.VectorHash, out), nil
}

func (w *walk) node(sp, key string, in, out *hash.Hash, path string) {
	n := in.Node(key)
	sub := hash.New()
	if n == nil {
		w.level(sp, hash.New(), sub, path)
		if !sub.Empty() || w.rules.InjectDefaults {
			_ = out.Append(key, types.MustValue(types.Hash, sub), nil)
		}
		return
	}
	child, ok := n.Hash()
	if !ok {
		w.report(path, TypeMismatch, "expected a HASH, got %s", n.Kind())
		return
	}
	w.level(sp, child, sub, path)
	_ = out.Append(key, types.MustValue(types.Hash, sub), w.attrs(n, false))
}

// choice accepts a Hash with exactly one key naming an alternative, or the
// bare name of the alternative as a string.
func (w *walk) choice(sp, key string, in, out *hash.Hash, path string) {
	alternatives, _ := w.s.Keys(sp)
	n := in.Node(key)
	var (
		selected string
		config   = hash.New()
	)
	switch {
	case n == nil:
		def, ok := w.absent(sp, path)
		if !ok {
			return
		}
		name, err := types.Convert(def, types.String)
		if err != nil {
			w.report(path, TypeMismatch, "default alternative: %v", err)
			return
		}
		selected = name.Data().(string)
	case n.Kind() == types.String:
		w.checkState(sp, path)
		selected = n.Data().(string)
	case n.Kind() == types.Hash:
		w.checkState(sp, path)
		h := n.Data().(*hash.Hash)
		if h.Len() != 1 {
			w.report(path, AmbiguousChoice, "exactly one of %s must be chosen, got %d keys %s", strings.Join(alternatives, ","), h.Len(), strings.Join(h.Keys(), ","))
			return
		}
		c := h.Nodes()[0]
		selected = c.Key()
		if child, ok := c.Hash(); ok {
			config = child
		} else if c.Kind() != types.None {
			w.report(hash.JoinPath(path, selected), TypeMismatch, "expected a HASH, got %s", c.Kind())
			return
		}
	default:
		w.report(path, TypeMismatch, "expected a HASH or STRING choice, got %s", n.Kind())
		return
	}
	if !contains(alternatives, selected) {
		w.report(path, AmbiguousChoice, "%q is none of %s", selected, strings.Join(alternatives, ","))
		return
	}
	sub := hash.New()
	w.level(hash.JoinPath(sp, selected), config, sub, hash.JoinPath(path, selected))
	chosen := hash.New()
	_ = chosen.Append(selected, types.MustValue(types.Hash, sub), nil)
	_ = out.Append(key, types.MustValue(types.Hash, chosen), w.attrs(n, false))
}

type listItem struct {
	name   string
	config *hash.Hash
}

// list accepts rows of single-key Hashes or a list of alternative names.
func (w *walk) list(sp, key string, in, out *hash.Hash, path string) {
	alternatives, _ := w.s.Keys(sp)
	n := in.Node(key)
	var items []listItem
	names := func(v types.Value) bool {
		list, err := types.Convert(v, types.VectorString)
		if err != nil {
			w.report(path, TypeMismatch, "%v", err)
			return false
		}
		for _, name := range list.Data().([]string) {
			items = append(items, listItem{name: name, config: hash.New()})
		}
		return true
	}
	switch {
	case n == nil:
		def, ok := w.absent(sp, path)
		if !ok || !names(def) {
			return
		}
	case n.Kind() == types.VectorHash:
		w.checkState(sp, path)
		for i, row := range n.Data().([]*hash.Hash) {
			rp := fmt.Sprintf("%s[%d]", path, i)
			if row.Len() != 1 {
				w.report(rp, AmbiguousChoice, "a list entry needs exactly one key, got %d", row.Len())
				continue
			}
			c := row.Nodes()[0]
			item := listItem{name: c.Key(), config: hash.New()}
			if child, ok := c.Hash(); ok {
				item.config = child
			} else if c.Kind() != types.None {
				w.report(hash.JoinPath(rp, c.Key()), TypeMismatch, "expected a HASH, got %s", c.Kind())
				continue
			}
			items = append(items, item)
		}
	default:
		w.checkState(sp, path)
		if !names(n.Value()) {
			return
		}
	}
	rows := make([]*hash.Hash, 0, len(items))
	for i, item := range items {
		rp := fmt.Sprintf("%s[%d]", path, i)
		if !contains(alternatives, item.name) {
			w.report(rp, UnexpectedKey, "%q is none of %s", item.name, strings.Join(alternatives, ","))
			continue
		}
		sub := hash.New()
		w.level(hash.JoinPath(sp, item.name), item.config, sub, hash.JoinPath(rp, item.name))
		row := hash.New()
		_ = row.Append(item.name, types.MustValue(types.Hash, sub), nil)
		rows = append(rows, row)
	}
	v := types.MustValue(types.VectorHash, rows)
	constraints, _ := w.s.Parameters().Attributes(sp)
	if err := schema.Check(constraints, v); err != nil {
		w.report(path, reasonOf(err), "%v", err)
		return
	}
	_ = out.Append(key, v, w.attrs(n, false))
}

// clone deep copies v so that the result never aliases input or schema.
func clone(v types.Value) types.Value {
	c, err := hash.Infer(v)
	if err != nil {
		return v
	}
	return c
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
