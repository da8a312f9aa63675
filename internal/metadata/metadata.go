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

// Package metadata provides access to stored query and connector definitions.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Errors returned by Store implementations.
var (
	ErrQueryNotFound     = errors.New("query not found")
	ErrConnectorNotFound = errors.New("connector not found")
)

// Query represents a stored query definition.
//
// Content is a text/template over the target database's SQL dialect.
type Query struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ConnectorID    string    `json:"connector_id"`
	Name           string    `json:"name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Connector represents a stored database connection definition.
//
// Config is driver-specific and opaque at this layer.
type Connector struct {
	ID                  string          `json:"id"`
	OrganizationID      string          `json:"organization_id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	Config              json.RawMessage `json:"config"`
	Status              string          `json:"status"`
	LastConnectionCheck time.Time       `json:"last_connection_check"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Store provides read access to query and connector definitions.
type Store interface {
	// Query returns the query definition with the given ID,
	// or ErrQueryNotFound.
	Query(ctx context.Context, id string) (*Query, error)

	// Connector returns the connector definition with the given ID,
	// or ErrConnectorNotFound.
	Connector(ctx context.Context, id string) (*Connector, error)
}
