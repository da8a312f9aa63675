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

package executor

import (
	"errors"

	"github.com/querystream/querystream/internal/driver"
)

// ErrorCode represents error kinds that cross the wire protocol boundary.
// The String form is the "code" field of error frames.
type ErrorCode int

const (
	_ ErrorCode = iota

	// ErrorCodeInvalidRequest indicates a malformed or incomplete request frame.
	ErrorCodeInvalidRequest

	// ErrorCodeDuplicateStream indicates a stream ID already active on the connection.
	ErrorCodeDuplicateStream

	// ErrorCodeQueueFull indicates the connection's task queue is at capacity.
	ErrorCodeQueueFull

	// ErrorCodeStreamNotFound indicates a cancel for an unknown stream ID.
	ErrorCodeStreamNotFound

	// ErrorCodeQueryNotFound indicates an unknown stored query ID.
	ErrorCodeQueryNotFound

	// ErrorCodeConnectorNotFound indicates an unknown connector ID.
	ErrorCodeConnectorNotFound

	// ErrorCodeUnsupportedBackend indicates a connector type with no registered driver.
	ErrorCodeUnsupportedBackend

	// ErrorCodeTemplateParse indicates invalid template syntax in stored query content.
	ErrorCodeTemplateParse

	// ErrorCodeTemplateRender indicates a template execution failure.
	ErrorCodeTemplateRender

	// ErrorCodeConnect indicates a backend connection failure.
	ErrorCodeConnect

	// ErrorCodeQuery indicates a backend query execution failure.
	ErrorCodeQuery

	// ErrorCodeStream indicates a failure while iterating results.
	ErrorCodeStream
)

// String implements fmt.Stringer.
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeInvalidRequest:
		return "InvalidRequest"
	case ErrorCodeDuplicateStream:
		return "DuplicateStream"
	case ErrorCodeQueueFull:
		return "QueueFull"
	case ErrorCodeStreamNotFound:
		return "StreamNotFound"
	case ErrorCodeQueryNotFound:
		return "QueryNotFound"
	case ErrorCodeConnectorNotFound:
		return "ConnectorNotFound"
	case ErrorCodeUnsupportedBackend:
		return "UnsupportedBackend"
	case ErrorCodeTemplateParse:
		return "TemplateParseError"
	case ErrorCodeTemplateRender:
		return "TemplateRenderError"
	case ErrorCodeConnect:
		return "ConnectError"
	case ErrorCodeQuery:
		return "QueryError"
	case ErrorCodeStream:
		return "StreamError"
	default:
		return "Unknown"
	}
}

// Error is an error that carries a wire-visible error code.
type Error struct {
	err  error
	code ErrorCode
}

// NewError creates a new error with the given code.
// Error must not be nil, code must not be zero.
func NewError(code ErrorCode, err error) error {
	if code == 0 {
		panic("code must not be zero")
	}
	if err == nil {
		panic("err must not be nil")
	}

	return &Error{
		err:  err,
		code: code,
	}
}

// Code returns the error code.
func (err *Error) Code() ErrorCode {
	return err.code
}

// Error implements error.
func (err *Error) Error() string {
	return err.code.String() + ": " + err.err.Error()
}

// Unwrap implements error unwrapping.
func (err *Error) Unwrap() error {
	return err.err
}

// CodeOf extracts the error code carried by err.
// Driver errors map to their wire-level codes;
// anything untyped gets the fallback.
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}

	var de *driver.Error
	if errors.As(err, &de) {
		switch de.Code() {
		case driver.ErrorCodeUnsupportedType:
			return ErrorCodeUnsupportedBackend
		case driver.ErrorCodeConnect:
			return ErrorCodeConnect
		case driver.ErrorCodeQuery:
			return ErrorCodeQuery
		case driver.ErrorCodeStream:
			return ErrorCodeStream
		}
	}

	return fallback
}

// check interfaces
var (
	_ error = (*Error)(nil)
)
