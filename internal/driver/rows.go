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

import "errors"

// ErrStop is the sentinel returned by a stream consumer to stop iteration cleanly.
var ErrStop = errors.New("driver: stop iteration")

// RowStream drives a lazy, finite, single-shot sequence of result frames.
//
// The yield callback is invoked exactly once with column names and a nil row
// before any row, then once per row with nil columns.
// If yield returns ErrStop, iteration stops and the stream returns nil.
// Any other error halts iteration and propagates.
// The stream closes its backend cursor on every exit path.
type RowStream func(yield func(columns []string, row []any) error) error

// QueryResult represents the streaming result of a query.
type QueryResult struct {
	Stream RowStream
}

// Result is the consumer-side interface of a query result.
type Result interface {
	// Stream iterates over the result set, invoking the callback
	// per the RowStream contract.
	Stream(func(columns []string, row []any) error) error
}

// CollectRows drains the whole stream into memory.
// It is meant for tests and small administrative queries.
func CollectRows(stream RowStream) ([]string, [][]any, error) {
	var columns []string
	var rows [][]any

	err := stream(func(cols []string, row []any) error {
		if cols != nil {
			columns = cols
			return nil
		}
		rows = append(rows, row)

		return nil
	})

	return columns, rows, err
}
