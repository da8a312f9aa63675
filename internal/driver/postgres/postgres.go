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

// Package postgres provides the PostgreSQL driver.
package postgres

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/querystream/querystream/internal/driver"
	"github.com/querystream/querystream/internal/util/lazyerrors"
	"github.com/querystream/querystream/internal/util/logging"
)

// Driver implements driver.Driver for PostgreSQL over a single pgx connection.
type Driver struct {
	config *Config
	conn   *pgx.Conn
}

func init() {
	driver.Register(driver.Postgres, New)
}

// New creates a new PostgreSQL driver from the given configuration.
// It performs no I/O.
func New(config json.RawMessage) (driver.Driver, error) {
	cfg, err := FromJSON(config)
	if err != nil {
		return nil, err
	}

	return &Driver{config: cfg}, nil
}

// connConfig builds the pgx connection configuration.
func (d *Driver) connConfig() (*pgx.ConnConfig, error) {
	config, err := pgx.ParseConfig(d.config.DSN())
	if err != nil {
		return nil, lazyerrors.Errorf("parse connection string: %w", err)
	}

	config.ConnectTimeout = 10 * time.Second

	if config.RuntimeParams == nil {
		config.RuntimeParams = make(map[string]string)
	}

	// backend-side timeouts; no overall query timeout is imposed here
	config.RuntimeParams["statement_timeout"] = "30000"
	config.RuntimeParams["lock_timeout"] = "10000"

	config.Tracer = logging.NewPgxTracer(zap.L().Named("pgx"))

	if d.config.SSLRootCert == "" {
		return config, nil
	}

	// ssl_root_cert (and the optional ssl_cert/ssl_key pair) carry PEM contents,
	// not file paths
	rootCertPool := x509.NewCertPool()
	if ok := rootCertPool.AppendCertsFromPEM([]byte(d.config.SSLRootCert)); !ok {
		return nil, lazyerrors.New("append CA certificate")
	}

	tlsConfig := &tls.Config{
		RootCAs:    rootCertPool,
		MinVersion: tls.VersionTLS12,
	}

	if d.config.SSLCert != "" && d.config.SSLKey != "" {
		clientCert, err := tls.X509KeyPair([]byte(d.config.SSLCert), []byte(d.config.SSLKey))
		if err != nil {
			return nil, lazyerrors.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	config.TLSConfig = tlsConfig

	return config, nil
}

// Connect implements driver.Driver.
func (d *Driver) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := d.connConfig()
	if err != nil {
		return driver.NewError(driver.ErrorCodeConnect, err, "")
	}

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return driver.NewError(driver.ErrorCodeConnect, err, "")
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return driver.NewError(driver.ErrorCodeConnect, err, "")
	}

	d.conn = conn

	return nil
}

// Query implements driver.Driver.
func (d *Driver) Query(ctx context.Context, query string) (*driver.QueryResult, error) {
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		if isRetryable(err) {
			return nil, driver.NewRetryableError(driver.ErrorCodeQuery, err)
		}

		return nil, driver.NewError(driver.ErrorCodeQuery, err, "")
	}

	return &driver.QueryResult{
		Stream: d.streamRows(rows),
	}, nil
}

// streamRows adapts pgx rows to the RowStream contract.
func (d *Driver) streamRows(rows pgx.Rows) driver.RowStream {
	return func(yield func(columns []string, row []any) error) error {
		defer rows.Close()

		fields := rows.FieldDescriptions()
		columns := make([]string, len(fields))
		for i, field := range fields {
			columns[i] = field.Name
		}

		if err := yield(columns, nil); err != nil {
			if errors.Is(err, driver.ErrStop) {
				return nil
			}

			return err
		}

		typeMap := d.conn.TypeMap()

		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return driver.NewError(driver.ErrorCodeStream, err, "")
			}

			row, err := convertRowValues(fields, values, typeMap)
			if err != nil {
				return driver.NewError(driver.ErrorCodeStream, err, "")
			}

			if err := yield(nil, row); err != nil {
				if errors.Is(err, driver.ErrStop) {
					return nil
				}

				return err
			}
		}

		if err := rows.Err(); err != nil {
			return driver.NewError(driver.ErrorCodeStream, err, "")
		}

		return nil
	}
}

// Execute runs a statement that returns no rows.
func (d *Driver) Execute(ctx context.Context, query string) error {
	if _, err := d.conn.Exec(ctx, query); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// Ping checks that the backend session is alive.
func (d *Driver) Ping(ctx context.Context) error {
	return d.conn.Ping(ctx)
}

// Close implements driver.Driver.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}

	conn := d.conn
	d.conn = nil

	return conn.Close(context.Background())
}

// isRetryable reports whether the backend classified the error as transient.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected,
		pgerrcode.LockNotAvailable,
		pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown,
		pgerrcode.CannotConnectNow:
		return true
	default:
		return false
	}
}

// check interfaces
var (
	_ driver.Driver = (*Driver)(nil)
)
