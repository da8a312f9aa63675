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

// Package executor resolves stored queries and runs them against their
// backing database.
//
// Resolution goes through fixed steps: fetch the query definition,
// render its template, fetch the connector, build and connect the
// driver, execute, and hand back a streaming result that owns the
// driver connection.
package executor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"text/template"

	"go.uber.org/zap"

	"github.com/querystream/querystream/internal/driver"
	"github.com/querystream/querystream/internal/metadata"
)

// Executor resolves and runs stored queries.
// It is stateless and safe for concurrent use.
type Executor struct {
	store metadata.Store
	l     *zap.Logger
}

// New creates a new Executor over the given metadata store.
func New(store metadata.Store, l *zap.Logger) *Executor {
	return &Executor{
		store: store,
		l:     l,
	}
}

// Execute resolves the stored query with the given ID, renders its
// template with templateData, connects to the backing database and
// starts the query.
//
// On success, the caller owns the returned StreamResult and must close it.
// All errors carry a wire-visible code.
func (e *Executor) Execute(ctx context.Context, queryID string, templateData any) (*StreamResult, error) {
	query, err := e.store.Query(ctx, queryID)
	if err != nil {
		if errors.Is(err, metadata.ErrQueryNotFound) {
			return nil, NewError(ErrorCodeQueryNotFound, err)
		}

		return nil, NewError(ErrorCodeQuery, err)
	}

	rendered, err := renderTemplate(query.Content, templateData)
	if err != nil {
		return nil, err
	}

	connector, err := e.store.Connector(ctx, query.ConnectorID)
	if err != nil {
		if errors.Is(err, metadata.ErrConnectorNotFound) {
			return nil, NewError(ErrorCodeConnectorNotFound, err)
		}

		return nil, NewError(ErrorCodeQuery, err)
	}

	drv, err := driver.New(driver.Type(connector.Type), connector.Config)
	if err != nil {
		return nil, NewError(CodeOf(err, ErrorCodeUnsupportedBackend), err)
	}

	if err = drv.Connect(ctx); err != nil {
		_ = drv.Close()
		return nil, NewError(CodeOf(err, ErrorCodeConnect), err)
	}

	result, err := drv.Query(ctx, rendered)
	if err != nil {
		_ = drv.Close()
		return nil, NewError(CodeOf(err, ErrorCodeQuery), err)
	}

	e.l.Debug(
		"Query started",
		zap.String("query_id", queryID),
		zap.String("connector_id", connector.ID),
		zap.String("connector_type", connector.Type),
	)

	return &StreamResult{
		stream: result.Stream,
		drv:    drv,
	}, nil
}

// renderTemplate renders stored query content with the given data.
// Missing keys render as "<no value>".
func renderTemplate(content string, data any) (string, error) {
	tmpl, err := template.New("query").Parse(content)
	if err != nil {
		return "", NewError(ErrorCodeTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewError(ErrorCodeTemplateRender, err)
	}

	return buf.String(), nil
}

// StreamResult is a handle over a started query.
// It owns the driver connection until Close is called.
type StreamResult struct {
	stream driver.RowStream
	drv    driver.Driver

	closeOnce sync.Once
	closeErr  error
}

// Stream yields the header and then each row through the callback.
// See driver.RowStream for the callback contract.
func (r *StreamResult) Stream(yield func(columns []string, row []any) error) error {
	if r.stream == nil {
		return NewError(ErrorCodeStream, errors.New("no stream"))
	}

	return r.stream(yield)
}

// Close releases the underlying driver connection.
// It is safe to call multiple times.
func (r *StreamResult) Close() error {
	r.closeOnce.Do(func() {
		if r.drv != nil {
			r.closeErr = r.drv.Close()
		}
	})

	return r.closeErr
}
