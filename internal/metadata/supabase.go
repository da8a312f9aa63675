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

package metadata

import (
	"context"
	"encoding/json"

	supabase "github.com/supabase-community/supabase-go"

	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// SupabaseStore implements Store backed by Supabase tables
// "queries" and "connectors".
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabase creates a Store backed by the given Supabase project.
func NewSupabase(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &SupabaseStore{client: client}, nil
}

// Query implements Store.
//
// The underlying PostgREST client does not accept a context;
// ctx is checked before the request is made.
func (s *SupabaseStore) Query(ctx context.Context, id string) (*Query, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, _, err := s.client.From("queries").Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	var queries []Query
	if err := json.Unmarshal(resp, &queries); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if len(queries) == 0 {
		return nil, ErrQueryNotFound
	}

	return &queries[0], nil
}

// Connector implements Store.
func (s *SupabaseStore) Connector(ctx context.Context, id string) (*Connector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, _, err := s.client.From("connectors").Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	var connectors []Connector
	if err := json.Unmarshal(resp, &connectors); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if len(connectors) == 0 {
		return nil, ErrConnectorNotFound
	}

	return &connectors[0], nil
}

// check interfaces
var (
	_ Store = (*SupabaseStore)(nil)
)
