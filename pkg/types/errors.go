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

package types

import (
	"errors"
	"fmt"
)

type errType uint

const (
	unknownError errType = iota
	keyError
	typeError
	rangeError
	sizeError
	parseError
	unknownTypeError
	resourceError
	inconsistentArrayError
	duplicateKeyError
)

var errTypeNames = map[errType]string{
	unknownError:           "error",
	keyError:               "key error",
	typeError:              "type error",
	rangeError:             "range error",
	sizeError:              "size error",
	parseError:             "parse error",
	unknownTypeError:       "unknown type",
	resourceError:          "resource error",
	inconsistentArrayError: "inconsistent array",
	duplicateKeyError:      "duplicate key",
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its class.
var (
	ErrKey               = &Error{errors.New(errTypeNames[keyError]), keyError, nil}
	ErrType              = &Error{errors.New(errTypeNames[typeError]), typeError, nil}
	ErrRange             = &Error{errors.New(errTypeNames[rangeError]), rangeError, nil}
	ErrSize              = &Error{errors.New(errTypeNames[sizeError]), sizeError, nil}
	ErrParse             = &Error{errors.New(errTypeNames[parseError]), parseError, nil}
	ErrUnknownType       = &Error{errors.New(errTypeNames[unknownTypeError]), unknownTypeError, nil}
	ErrResource          = &Error{errors.New(errTypeNames[resourceError]), resourceError, nil}
	ErrInconsistentArray = &Error{errors.New(errTypeNames[inconsistentArrayError]), inconsistentArrayError, nil}
	ErrDuplicateKey      = &Error{errors.New(errTypeNames[duplicateKeyError]), duplicateKeyError, nil}
)

type Error struct {
	error
	errType
	wrapped []error
}

func newError(t errType, msg string, err ...error) *Error {
	return &Error{
		error:   errors.New(msg),
		errType: t,
		wrapped: err,
	}
}

func NewKeyError(format string, args ...any) *Error {
	return newError(keyError, fmt.Sprintf(format, args...))
}

func NewTypeError(format string, args ...any) *Error {
	return newError(typeError, fmt.Sprintf(format, args...))
}

func NewRangeError(format string, args ...any) *Error {
	return newError(rangeError, fmt.Sprintf(format, args...))
}

func NewSizeError(format string, args ...any) *Error {
	return newError(sizeError, fmt.Sprintf(format, args...))
}

func NewUnknownTypeError(format string, args ...any) *Error {
	return newError(unknownTypeError, fmt.Sprintf(format, args...))
}

func NewResourceError(format string, args ...any) *Error {
	return newError(resourceError, fmt.Sprintf(format, args...))
}

func NewInconsistentArrayError(format string, args ...any) *Error {
	return newError(inconsistentArrayError, fmt.Sprintf(format, args...))
}

func NewDuplicateKeyError(key string) *Error {
	return newError(duplicateKeyError, fmt.Sprintf("duplicate key %q", key))
}

// NewParseError reports malformed input at a byte offset, or at an unknown
// position when offset is negative.
func NewParseError(offset int, expected Kind, msg string, err ...error) *Error {
	var s string
	if offset >= 0 {
		s = fmt.Sprintf("at offset %d reading %s: %s", offset, expected, msg)
	} else {
		s = fmt.Sprintf("reading %s: %s", expected, msg)
	}
	return newError(parseError, s, err...)
}

// Wrap prefixes err with context while keeping its class.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			error:   fmt.Errorf("%s: %w", msg, e.error),
			errType: e.errType,
			wrapped: e.wrapped,
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return errTypeNames[e.errType] + ": " + e.error.Error()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.errType == e.errType
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if l := len(e.wrapped); l > 0 {
		err := &Error{
			error:   e.wrapped[0],
			errType: e.errType,
		}
		if l > 1 {
			err.wrapped = e.wrapped[1:]
		}
		return err
	}
	return errors.Unwrap(e.error)
}

func (e *Error) IsKeyError() bool {
	return e.errType == keyError
}

func (e *Error) IsTypeError() bool {
	return e.errType == typeError
}

func (e *Error) IsRangeError() bool {
	return e.errType == rangeError
}

func (e *Error) IsParseError() bool {
	return e.errType == parseError
}

func (e *Error) IsResourceError() bool {
	return e.errType == resourceError
}

func (e *Error) IsConsistencyError() bool {
	return e.errType == inconsistentArrayError || e.errType == duplicateKeyError
}
