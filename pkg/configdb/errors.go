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

package configdb

import "errors"

type errType uint

const (
	unknownError errType = iota
	databaseError
	notFoundError
	dataError
)

var (
	errNotFound = errors.New("no such configuration")

	// ErrNotFound matches every not-found error with errors.Is.
	ErrNotFound = &Error{error: errNotFound, errType: notFoundError}
)

type Error struct {
	error
	errType
	wrapped []error
}

func NewDatabaseError(err error) *Error {
	return &Error{err, databaseError, nil}
}

func NewNotFoundError(deviceID, name string) *Error {
	return &Error{
		error:   errNotFound,
		errType: notFoundError,
		wrapped: []error{errors.New(deviceID + "/" + name)},
	}
}

func NewDataError(msg string, err ...error) *Error {
	return &Error{
		error:   errors.New(msg),
		errType: dataError,
		wrapped: err,
	}
}

func (e *Error) Error() string {
	if e.errType == notFoundError && len(e.wrapped) > 0 {
		return e.error.Error() + ": " + e.wrapped[0].Error()
	}
	return e.error.Error()
}

func (e *Error) IsDatabaseError() bool {
	return e.errType == databaseError
}

func (e *Error) IsNotFoundError() bool {
	return e.errType == notFoundError
}

func (e *Error) IsDataError() bool {
	return e.errType == dataError
}

// Is makes every not-found error match ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.errType == notFoundError && e.errType == notFoundError
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return append([]error{e.error}, e.wrapped...)
}
