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

// Package athena provides the AWS Athena driver.
//
// Athena is fully asynchronous: the driver starts a query execution,
// polls until it reaches a terminal state, then pages through results.
// The first row of the first result page repeats the column names and
// is skipped.
package athena

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/querystream/querystream/internal/driver"
	"github.com/querystream/querystream/internal/util/ctxutil"
)

// pollInterval is the delay between query execution state checks.
const pollInterval = time.Second

// Driver implements driver.Driver for AWS Athena.
type Driver struct {
	config *Config
	client *athena.Client
}

func init() {
	driver.Register(driver.Athena, New)
}

// New creates a new Athena driver from the given configuration.
// It performs no I/O.
func New(cfg json.RawMessage) (driver.Driver, error) {
	c, err := FromJSON(cfg)
	if err != nil {
		return nil, err
	}

	return &Driver{config: c}, nil
}

// Connect implements driver.Driver.
func (d *Driver) Connect(ctx context.Context) error {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(d.config.Region))
	if err != nil {
		return driver.NewError(driver.ErrorCodeConnect, err, "")
	}

	if d.config.AccessKeyID != "" && d.config.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			d.config.AccessKeyID,
			d.config.SecretAccessKey,
			d.config.SessionToken,
		)
	}

	d.client = athena.NewFromConfig(awsCfg)

	return nil
}

// Query implements driver.Driver.
func (d *Driver) Query(ctx context.Context, query string) (*driver.QueryResult, error) {
	startOutput, err := d.client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: &query,
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: &d.config.Database,
			Catalog:  &d.config.Catalog,
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: &d.config.OutputLocation,
		},
		WorkGroup: &d.config.WorkGroup,
	})
	if err != nil {
		return nil, driver.NewError(driver.ErrorCodeQuery, err, "")
	}

	queryID := startOutput.QueryExecutionId

	if err := d.waitForQuery(ctx, queryID); err != nil {
		return nil, err
	}

	return &driver.QueryResult{
		Stream: d.streamResults(ctx, queryID),
	}, nil
}

// waitForQuery polls the execution state until the query reaches
// a terminal state or ctx is done.
func (d *Driver) waitForQuery(ctx context.Context, queryID *string) error {
	for {
		statusOutput, err := d.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: queryID,
		})
		if err != nil {
			return driver.NewError(driver.ErrorCodeQuery, err, "")
		}

		status := statusOutput.QueryExecution.Status

		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil

		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			reason := "query " + string(status.State)
			if status.StateChangeReason != nil {
				reason = *status.StateChangeReason
			}

			return driver.NewError(driver.ErrorCodeQuery, errors.New(reason), "")

		case types.QueryExecutionStateQueued, types.QueryExecutionStateRunning:
			// poll again
		}

		ctxutil.Sleep(ctx, pollInterval)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// streamResults adapts paginated GetQueryResults calls to the RowStream contract.
func (d *Driver) streamResults(ctx context.Context, queryID *string) driver.RowStream {
	return func(yield func(columns []string, row []any) error) error {
		var columnInfo []types.ColumnInfo
		var nextToken *string
		firstPage := true

		for {
			output, err := d.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
				QueryExecutionId: queryID,
				NextToken:        nextToken,
			})
			if err != nil {
				return driver.NewError(driver.ErrorCodeStream, err, "")
			}

			rows := output.ResultSet.Rows

			if firstPage {
				firstPage = false
				columnInfo = output.ResultSet.ResultSetMetadata.ColumnInfo

				columns := make([]string, len(columnInfo))
				for i, col := range columnInfo {
					columns[i] = *col.Name
				}

				if err := yield(columns, nil); err != nil {
					if errors.Is(err, driver.ErrStop) {
						return nil
					}

					return err
				}

				// the first row of the first page repeats the column names
				if len(rows) > 0 {
					rows = rows[1:]
				}
			}

			for _, row := range rows {
				rowData := make([]any, len(row.Data))
				for i, datum := range row.Data {
					var typ *string
					if i < len(columnInfo) {
						typ = columnInfo[i].Type
					}

					rowData[i] = convertValue(datum.VarCharValue, typ)
				}

				if err := yield(nil, rowData); err != nil {
					if errors.Is(err, driver.ErrStop) {
						return nil
					}

					return err
				}
			}

			nextToken = output.NextToken
			if nextToken == nil {
				return nil
			}
		}
	}
}

// Close implements driver.Driver.
//
// Athena has no persistent connection.
func (d *Driver) Close() error {
	d.client = nil
	return nil
}

// check interfaces
var (
	_ driver.Driver = (*Driver)(nil)
)
