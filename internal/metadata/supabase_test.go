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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querystream/querystream/internal/util/testutil"
)

// newTestStore starts a PostgREST-compatible stub serving the given
// rows for the "queries" and "connectors" tables.
func newTestStore(t *testing.T, queries, connectors string) *SupabaseStore {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/queries", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(queries))
	})
	mux.HandleFunc("/rest/v1/connectors", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(connectors))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := NewSupabase(srv.URL, "test-key")
	require.NoError(t, err)

	return store
}

func TestSupabaseQuery(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	t.Run("Found", func(t *testing.T) {
		store := newTestStore(t, `[{
			"id": "q-1",
			"organization_id": "org-1",
			"connector_id": "c-1",
			"name": "daily revenue",
			"content": "SELECT * FROM revenue WHERE day = {{.day}}"
		}]`, `[]`)

		query, err := store.Query(ctx, "q-1")
		require.NoError(t, err)

		assert.Equal(t, "q-1", query.ID)
		assert.Equal(t, "c-1", query.ConnectorID)
		assert.Contains(t, query.Content, "{{.day}}")
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newTestStore(t, `[]`, `[]`)

		_, err := store.Query(ctx, "q-missing")
		assert.ErrorIs(t, err, ErrQueryNotFound)
	})
}

func TestSupabaseConnector(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	t.Run("Found", func(t *testing.T) {
		store := newTestStore(t, `[]`, `[{
			"id": "c-1",
			"organization_id": "org-1",
			"name": "warehouse",
			"type": "postgres",
			"config": {"host": "db.example.com"},
			"status": "active"
		}]`)

		connector, err := store.Connector(ctx, "c-1")
		require.NoError(t, err)

		assert.Equal(t, "postgres", connector.Type)
		assert.JSONEq(t, `{"host": "db.example.com"}`, string(connector.Config))
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newTestStore(t, `[]`, `[]`)

		_, err := store.Connector(ctx, "c-missing")
		assert.ErrorIs(t, err, ErrConnectorNotFound)
	})
}
