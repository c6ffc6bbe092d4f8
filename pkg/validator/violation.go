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

package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

type Reason string

const (
	TypeMismatch     Reason = "TypeMismatch"
	OutOfRange       Reason = "OutOfRange"
	SizeViolation    Reason = "SizeViolation"
	DisallowedOption Reason = "DisallowedOption"
	StateViolation   Reason = "StateViolation"
	MissingMandatory Reason = "MissingMandatory"
	UnexpectedKey    Reason = "UnexpectedKey"
	AmbiguousChoice  Reason = "AmbiguousChoice"
)

// Violation is one way in which a configuration breaks its Schema. Path
// uses the Hash path syntax, with [i] for rows of tables and lists.
type Violation struct {
	Path    string
	Reason  Reason
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Reason, v.Message)
}

// Violations lists every problem found by one validation, in schema order.
type Violations []Violation

func (vs Violations) Error() string {
	switch len(vs) {
	case 0:
		return "no schema violations"
	case 1:
		return "schema violation: " + vs[0].String()
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%d schema violations: %s", len(vs), strings.Join(parts, "; "))
}

// Has reports whether any violation has reason r.
func (vs Violations) Has(r Reason) bool {
	for _, v := range vs {
		if v.Reason == r {
			return true
		}
	}
	return false
}

// At returns the violations reported for path.
func (vs Violations) At(path string) Violations {
	var out Violations
	for _, v := range vs {
		if v.Path == path {
			out = append(out, v)
		}
	}
	return out
}

// AsViolations extracts the Violations carried by err.
func AsViolations(err error) (Violations, bool) {
	var vs Violations
	ok := errors.As(err, &vs)
	return vs, ok
}

// reasonOf classifies a conversion or constraint failure.
func reasonOf(err error) Reason {
	var ce *schema.ConstraintError
	if errors.As(err, &ce) {
		switch ce.Constraint {
		case schema.MinSizeAttr, schema.MaxSizeAttr:
			return SizeViolation
		case schema.OptionsAttr:
			return DisallowedOption
		}
		if errors.Is(err, types.ErrRange) {
			return OutOfRange
		}
		return TypeMismatch
	}
	if errors.Is(err, types.ErrRange) {
		return OutOfRange
	}
	if errors.Is(err, types.ErrSize) {
		return SizeViolation
	}
	return TypeMismatch
}
