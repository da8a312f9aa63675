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

// Package driver provides a uniform streaming contract over heterogeneous query backends.
//
// A Driver wraps a single backend session. Its lifecycle is
// build -> Connect -> (Query -> stream)* -> Close; the worker that built it
// is the sole user until Close.
//
// Row values crossing the driver boundary are restricted to portable kinds:
// nil, bool, int64, float64, *big.Float (arbitrary-precision decimal), string,
// []byte, time.Time (UTC instant), civil.Date and uuid.UUID.
// Backend-specific wrappers are decoded by each driver; when decoding is
// unsafe, the text form is passed through instead.
package driver

import (
	"context"
	"encoding/json"
	"sync"
)

// Type represents a backend type tag.
type Type string

// Known backend types. Only postgres, bigquery and athena have
// in-tree drivers; the remaining tags are reserved.
const (
	Postgres  Type = "postgres"
	BigQuery  Type = "bigquery"
	Athena    Type = "athena"
	MySQL     Type = "mysql"
	SQLite    Type = "sqlite3"
	SQLServer Type = "sqlserver"
	Oracle    Type = "oracle"
	ODBC      Type = "odbc"
)

// Driver is a generic interface for all backend drivers.
//
// A driver exclusively owns its backend connection.
// Close is idempotent and safe to call after a failed Connect.
type Driver interface {
	// Connect establishes and validates a live backend session.
	// It must honor ctx cancellation.
	Connect(ctx context.Context) error

	// Query begins streaming execution of the given query text.
	// The returned result must not have materialized any rows yet.
	Query(ctx context.Context, query string) (*QueryResult, error)

	// Close releases the backend session.
	Close() error
}

// Factory constructs a driver from its backend-specific configuration.
//
// Factories validate the configuration and never perform I/O.
type Factory func(config json.RawMessage) (Driver, error)

// registry maps backend type tags to driver factories.
// It is populated from init() functions of the driver packages
// and is effectively read-only afterwards.
var (
	registryM sync.RWMutex
	registry  = map[Type]Factory{}
)

// Register registers a driver factory for the given backend type.
//
// It must be called from initialization code paths only,
// before any call to New.
func Register(typ Type, factory Factory) {
	if typ == "" {
		panic("driver.Register: type must not be empty")
	}
	if factory == nil {
		panic("driver.Register: factory must not be nil")
	}

	registryM.Lock()
	defer registryM.Unlock()

	registry[typ] = factory
}

// New creates a new driver instance for the given backend type and configuration.
func New(typ Type, config json.RawMessage) (Driver, error) {
	registryM.RLock()
	factory := registry[typ]
	registryM.RUnlock()

	if factory == nil {
		return nil, NewError(ErrorCodeUnsupportedType, nil, string(typ))
	}

	return factory(config)
}

// Types returns the registered backend types.
func Types() []Type {
	registryM.RLock()
	defer registryM.RUnlock()

	types := make([]Type, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}

	return types
}
