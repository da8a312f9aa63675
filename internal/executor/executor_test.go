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
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querystream/querystream/internal/driver"
	"github.com/querystream/querystream/internal/metadata"
	"github.com/querystream/querystream/internal/util/testutil"
)

// fakeStore serves fixed query and connector definitions.
type fakeStore struct {
	queries    map[string]*metadata.Query
	connectors map[string]*metadata.Connector
}

func (s *fakeStore) Query(_ context.Context, id string) (*metadata.Query, error) {
	q, ok := s.queries[id]
	if !ok {
		return nil, metadata.ErrQueryNotFound
	}

	return q, nil
}

func (s *fakeStore) Connector(_ context.Context, id string) (*metadata.Connector, error) {
	c, ok := s.connectors[id]
	if !ok {
		return nil, metadata.ErrConnectorNotFound
	}

	return c, nil
}

// fakeDriver records lifecycle calls and serves fixed rows.
type fakeDriver struct {
	gotQuery    string
	rows        [][]any
	connectErr  error
	queryErr    error
	connected   bool
	closedCount int
}

func (d *fakeDriver) Connect(_ context.Context) error {
	if d.connectErr != nil {
		return d.connectErr
	}

	d.connected = true

	return nil
}

func (d *fakeDriver) Query(_ context.Context, query string) (*driver.QueryResult, error) {
	d.gotQuery = query

	if d.queryErr != nil {
		return nil, d.queryErr
	}

	return &driver.QueryResult{
		Stream: func(yield func(columns []string, row []any) error) error {
			if err := yield([]string{"id", "name"}, nil); err != nil {
				if errors.Is(err, driver.ErrStop) {
					return nil
				}

				return err
			}

			for _, row := range d.rows {
				if err := yield(nil, row); err != nil {
					if errors.Is(err, driver.ErrStop) {
						return nil
					}

					return err
				}
			}

			return nil
		},
	}, nil
}

func (d *fakeDriver) Close() error {
	d.closedCount++
	return nil
}

// newFakeExecutor registers drv under its own backend type and returns an
// executor whose store resolves query "q-1" to that backend.
func newFakeExecutor(t *testing.T, content string, drv *fakeDriver) *Executor {
	t.Helper()

	typ := driver.Type("fake-" + t.Name())
	driver.Register(typ, func(_ json.RawMessage) (driver.Driver, error) {
		return drv, nil
	})

	store := &fakeStore{
		queries: map[string]*metadata.Query{
			"q-1": {
				ID:          "q-1",
				ConnectorID: "c-1",
				Content:     content,
			},
		},
		connectors: map[string]*metadata.Connector{
			"c-1": {
				ID:     "c-1",
				Type:   string(typ),
				Config: json.RawMessage(`{}`),
			},
		},
	}

	return New(store, testutil.Logger(t))
}

func TestExecute(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	t.Run("RendersTemplateAndStreams", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{rows: [][]any{{int64(1), "alpha"}, {int64(2), "beta"}}}
		e := newFakeExecutor(t, "SELECT * FROM revenue WHERE day = '{{.day}}'", drv)

		res, err := e.Execute(ctx, "q-1", map[string]any{"day": "2025-03-14"})
		require.NoError(t, err)

		assert.True(t, drv.connected)
		assert.Equal(t, "SELECT * FROM revenue WHERE day = '2025-03-14'", drv.gotQuery)

		columns, rows, err := driver.CollectRows(res.Stream)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, columns)
		assert.Equal(t, [][]any{{int64(1), "alpha"}, {int64(2), "beta"}}, rows)

		require.NoError(t, res.Close())
		require.NoError(t, res.Close())
		assert.Equal(t, 1, drv.closedCount)
	})

	t.Run("MissingTemplateKey", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{}
		e := newFakeExecutor(t, "SELECT {{.missing}}", drv)

		res, err := e.Execute(ctx, "q-1", map[string]any{})
		require.NoError(t, err)
		defer res.Close() //nolint:errcheck // test

		assert.Equal(t, "SELECT <no value>", drv.gotQuery)
	})

	t.Run("QueryNotFound", func(t *testing.T) {
		t.Parallel()

		e := newFakeExecutor(t, "SELECT 1", &fakeDriver{})

		_, err := e.Execute(ctx, "q-missing", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeQueryNotFound, CodeOf(err, 0))
	})

	t.Run("ConnectorNotFound", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{}
		e := newFakeExecutor(t, "SELECT 1", drv)
		e.store.(*fakeStore).queries["q-1"].ConnectorID = "c-missing"

		_, err := e.Execute(ctx, "q-1", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeConnectorNotFound, CodeOf(err, 0))
	})

	t.Run("UnsupportedBackend", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{}
		e := newFakeExecutor(t, "SELECT 1", drv)
		e.store.(*fakeStore).connectors["c-1"].Type = "oracle"

		_, err := e.Execute(ctx, "q-1", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeUnsupportedBackend, CodeOf(err, 0))
	})

	t.Run("TemplateParse", func(t *testing.T) {
		t.Parallel()

		e := newFakeExecutor(t, "SELECT {{.day", &fakeDriver{})

		_, err := e.Execute(ctx, "q-1", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeTemplateParse, CodeOf(err, 0))
	})

	t.Run("TemplateRender", func(t *testing.T) {
		t.Parallel()

		e := newFakeExecutor(t, "SELECT {{.a.b}}", &fakeDriver{})

		_, err := e.Execute(ctx, "q-1", map[string]any{"a": "scalar"})
		require.Error(t, err)
		assert.Equal(t, ErrorCodeTemplateRender, CodeOf(err, 0))
	})

	t.Run("ConnectError", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{
			connectErr: driver.NewError(driver.ErrorCodeConnect, errors.New("refused"), ""),
		}
		e := newFakeExecutor(t, "SELECT 1", drv)

		_, err := e.Execute(ctx, "q-1", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeConnect, CodeOf(err, 0))
		assert.Equal(t, 1, drv.closedCount)
	})

	t.Run("QueryError", func(t *testing.T) {
		t.Parallel()

		drv := &fakeDriver{
			queryErr: driver.NewError(driver.ErrorCodeQuery, errors.New("syntax error"), ""),
		}
		e := newFakeExecutor(t, "SELECT 1", drv)

		_, err := e.Execute(ctx, "q-1", nil)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeQuery, CodeOf(err, 0))
		assert.Equal(t, 1, drv.closedCount)
	})
}

func TestErrorCodeStrings(t *testing.T) {
	t.Parallel()

	for code, expected := range map[ErrorCode]string{
		ErrorCodeInvalidRequest:     "InvalidRequest",
		ErrorCodeDuplicateStream:    "DuplicateStream",
		ErrorCodeQueueFull:          "QueueFull",
		ErrorCodeStreamNotFound:     "StreamNotFound",
		ErrorCodeQueryNotFound:      "QueryNotFound",
		ErrorCodeConnectorNotFound:  "ConnectorNotFound",
		ErrorCodeUnsupportedBackend: "UnsupportedBackend",
		ErrorCodeTemplateParse:      "TemplateParseError",
		ErrorCodeTemplateRender:     "TemplateRenderError",
		ErrorCodeConnect:            "ConnectError",
		ErrorCodeQuery:              "QueryError",
		ErrorCodeStream:             "StreamError",
	} {
		assert.Equal(t, expected, code.String())
	}
}
