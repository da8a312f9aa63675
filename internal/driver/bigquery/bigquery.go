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

// Package bigquery provides the Google BigQuery driver.
//
// BigQuery executes queries as jobs: the driver submits the statement,
// waits for the job to reach a terminal state, then pages through the
// result rows.
package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/querystream/querystream/internal/driver"
)

// Driver implements driver.Driver for Google BigQuery.
type Driver struct {
	config *Config
	client *bigquery.Client
}

func init() {
	driver.Register(driver.BigQuery, New)
}

// New creates a new BigQuery driver from the given configuration.
// It performs no I/O.
func New(config json.RawMessage) (driver.Driver, error) {
	cfg, err := FromJSON(config)
	if err != nil {
		return nil, err
	}

	return &Driver{config: cfg}, nil
}

// Connect implements driver.Driver.
func (d *Driver) Connect(ctx context.Context) error {
	var opts []option.ClientOption

	switch {
	case d.config.Credentials != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(d.config.Credentials)))
	case d.config.KeyFile != "":
		opts = append(opts, option.WithCredentialsFile(d.config.KeyFile))
	}

	client, err := bigquery.NewClient(ctx, d.config.ProjectID, opts...)
	if err != nil {
		return driver.NewError(driver.ErrorCodeConnect, err, "")
	}

	d.client = client

	return nil
}

// Query implements driver.Driver.
func (d *Driver) Query(ctx context.Context, query string) (*driver.QueryResult, error) {
	q := d.client.Query(query)
	q.DefaultDatasetID = d.config.Dataset
	q.Location = d.config.Location

	if d.config.MaxBillingTier > 0 {
		q.MaxBillingTier = d.config.MaxBillingTier
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, driver.NewError(driver.ErrorCodeQuery, err, "")
	}

	// Wait polls the job and honors ctx between polls.
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, driver.NewError(driver.ErrorCodeQuery, err, "")
	}

	if err := status.Err(); err != nil {
		return nil, driver.NewError(driver.ErrorCodeQuery, err, "")
	}

	return &driver.QueryResult{
		Stream: d.streamRows(ctx, job),
	}, nil
}

// streamRows adapts the job's row iterator to the RowStream contract.
func (d *Driver) streamRows(ctx context.Context, job *bigquery.Job) driver.RowStream {
	return func(yield func(columns []string, row []any) error) error {
		it, err := job.Read(ctx)
		if err != nil {
			return driver.NewError(driver.ErrorCodeStream, err, "")
		}

		columns := make([]string, len(it.Schema))
		for i, field := range it.Schema {
			columns[i] = field.Name
		}

		if err := yield(columns, nil); err != nil {
			if errors.Is(err, driver.ErrStop) {
				return nil
			}

			return err
		}

		for {
			var values []bigquery.Value

			err := it.Next(&values)
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return driver.NewError(driver.ErrorCodeStream, err, "")
			}

			row := make([]any, len(values))
			for i, v := range values {
				row[i] = convertValue(v)
			}

			if err := yield(nil, row); err != nil {
				if errors.Is(err, driver.ErrStop) {
					return nil
				}

				return err
			}
		}
	}
}

// Close implements driver.Driver.
func (d *Driver) Close() error {
	if d.client == nil {
		return nil
	}

	client := d.client
	d.client = nil

	return client.Close()
}

// convertValue converts BigQuery values to portable kinds.
//
// The BigQuery client already yields int64, float64, bool, string, []byte,
// time.Time, civil date/time kinds and *big.Rat for NUMERIC.
func convertValue(v bigquery.Value) any {
	switch v := v.(type) {
	case *big.Rat:
		return big.NewFloat(0).SetPrec(256).SetRat(v)
	case civil.Time:
		return v.String()
	case civil.DateTime:
		return v.String()
	case nil:
		return nil
	default:
		return v
	}
}

// check interfaces
var (
	_ driver.Driver = (*Driver)(nil)
)
