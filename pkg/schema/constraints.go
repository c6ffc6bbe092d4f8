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
	"errors"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// ConstraintError names the constraint attribute a value violates.
type ConstraintError struct {
	Constraint string
	err        *types.Error
}

func (e *ConstraintError) Error() string {
	return e.err.Error()
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

func violated(constraint string, err *types.Error) error {
	return &ConstraintError{Constraint: constraint, err: err}
}

var bounds = []struct {
	attr string
	ok   func(c int) bool
	text string
}{
	{MinIncAttr, func(c int) bool { return c >= 0 }, "below the minimum"},
	{MaxIncAttr, func(c int) bool { return c <= 0 }, "above the maximum"},
	{MinExcAttr, func(c int) bool { return c > 0 }, "not above the exclusive minimum"},
	{MaxExcAttr, func(c int) bool { return c < 0 }, "not below the exclusive maximum"},
}

// Check tests v, already of the declared kind, against the range, size and
// option constraints found in attrs. It returns a *ConstraintError for the
// first violation.
func Check(attrs *hash.Attributes, v types.Value) error {
	for _, b := range bounds {
		limit, ok := attrs.Value(b.attr)
		if !ok {
			continue
		}
		c, err := types.Compare(v, limit)
		if errors.Is(err, types.ErrRange) {
			return violated(b.attr, types.NewRangeError("value %s is %s %s: %v", v, b.text, limit, err))
		}
		if err != nil {
			return violated(b.attr, types.NewTypeError("%s: %v", b.attr, err))
		}
		if !b.ok(c) {
			return violated(b.attr, types.NewRangeError("value %s is %s %s", v, b.text, limit))
		}
	}
	if n := length(v); n >= 0 {
		if lo, err := attrs.GetAs(MinSizeAttr, types.Uint32); err == nil && uint64(n) < uint64(lo.(uint32)) {
			return violated(MinSizeAttr, types.NewSizeError("%d elements, at least %d required", n, lo))
		}
		if hi, err := attrs.GetAs(MaxSizeAttr, types.Uint32); err == nil && uint64(n) > uint64(hi.(uint32)) {
			return violated(MaxSizeAttr, types.NewSizeError("%d elements, at most %d allowed", n, hi))
		}
	}
	if opts, ok := attrs.Value(OptionsAttr); ok && !isOption(opts, v) {
		return violated(OptionsAttr, types.NewRangeError("value %s is not one of %s", v, opts))
	}
	return nil
}

func length(v types.Value) int {
	if v.Kind() == types.VectorHash {
		return len(v.Data().([]*hash.Hash))
	}
	return v.Len()
}

// isOption compares textual forms so that options declared with a
// different numeric width still match.
func isOption(opts types.Value, v types.Value) bool {
	texts, err := types.Convert(opts, types.VectorString)
	if err != nil {
		return false
	}
	text, err := types.ToText(v)
	if err != nil {
		return false
	}
	for _, o := range texts.Data().([]string) {
		if o == text {
			return true
		}
	}
	return false
}
