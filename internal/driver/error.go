// Copyright 2025 QueryStream Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"fmt"
	"slices"
)

// ErrorCode represents a driver error code.
type ErrorCode int

// Driver error codes.
const (
	_ ErrorCode = iota

	ErrorCodeUnsupportedType
	ErrorCodeConnect
	ErrorCodeQuery
	ErrorCodeStream
)

// String implements fmt.Stringer.
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeUnsupportedType:
		return "UnsupportedBackend"
	case ErrorCodeConnect:
		return "ConnectError"
	case ErrorCodeQuery:
		return "QueryError"
	case ErrorCodeStream:
		return "StreamError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(code))
	}
}

// Error represents an error returned by a driver or the driver registry.
type Error struct {
	// The wrapped error. May be nil.
	err error

	arg string

	code ErrorCode

	// Retryable reports that the backend classified the failure as transient
	// (serialization failure, deadlock, shutdown in progress, etc).
	// No retry is performed by this process; the flag is informational
	// and surfaces to the caller unchanged.
	retryable bool
}

// NewError creates a new driver error.
//
// Code must not be 0. Err may be nil.
func NewError(code ErrorCode, err error, arg string) *Error {
	if code == 0 {
		panic("driver.NewError: code must not be 0")
	}

	return &Error{
		code: code,
		err:  err,
		arg:  arg,
	}
}

// NewRetryableError creates a new driver error with the retryable flag set.
func NewRetryableError(code ErrorCode, err error) *Error {
	e := NewError(code, err, "")
	e.retryable = true

	return e
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Retryable returns the retryable classification.
func (e *Error) Retryable() bool {
	return e.retryable
}

// Error implements error interface.
func (e *Error) Error() string {
	switch {
	case e.err != nil && e.arg != "":
		return fmt.Sprintf("%s: %s: %v", e.code, e.arg, e.err)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.code, e.err)
	case e.arg != "":
		return fmt.Sprintf("%s: %s", e.code, e.arg)
	default:
		return e.code.String()
	}
}

// Unwrap implements error unwrapping.
func (e *Error) Unwrap() error {
	return e.err
}

// ErrorCodeIs returns true if err is *Error with one of the given error codes.
//
// At least one error code must be given.
func ErrorCodeIs(err error, code ErrorCode, codes ...ErrorCode) bool {
	e, ok := err.(*Error) //nolint:errorlint // do not inspect error chain
	if !ok {
		return false
	}

	return e.code == code || slices.Contains(codes, e.code)
}

// Retryable returns true if err is *Error classified as retryable.
func Retryable(err error) bool {
	e, ok := err.(*Error) //nolint:errorlint // do not inspect error chain
	if !ok {
		return false
	}

	return e.retryable
}

// check interfaces
var (
	_ error = (*Error)(nil)
)
