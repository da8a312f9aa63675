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

package bigquery

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()

		cfg, err := FromJSON(json.RawMessage(`{
			"project_id": "acme-prod",
			"dataset": "analytics",
			"key_file": "/etc/bq/key.json",
			"location": "EU"
		}`))
		require.NoError(t, err)

		assert.Equal(t, "acme-prod", cfg.ProjectID)
		assert.Equal(t, "analytics", cfg.Dataset)
		assert.Equal(t, "/etc/bq/key.json", cfg.KeyFile)
		assert.Equal(t, "EU", cfg.Location)
	})

	for name, tc := range map[string]struct {
		config string
		err    string
	}{
		"NoProject": {
			config: `{"dataset":"d","key_file":"k"}`,
			err:    "project_id is required",
		},
		"NoDataset": {
			config: `{"project_id":"p","key_file":"k"}`,
			err:    "dataset is required",
		},
		"NoCredentials": {
			config: `{"project_id":"p","dataset":"d"}`,
			err:    "either credentials or key_file must be provided",
		},
		"BadJSON": {
			config: `{`,
			err:    "parse bigquery config",
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := FromJSON(json.RawMessage(tc.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestConvertValue(t *testing.T) {
	t.Parallel()

	instant := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("Numeric", func(t *testing.T) {
		t.Parallel()

		f, ok := convertValue(big.NewRat(12345, 100)).(*big.Float)
		require.True(t, ok)
		assert.Zero(t, f.Cmp(big.NewFloat(123.45)))
	})

	for name, tc := range map[string]struct {
		value    any
		expected any
	}{
		"Null":     {nil, nil},
		"Int":      {int64(42), int64(42)},
		"Float":    {float64(1.5), float64(1.5)},
		"Bool":     {true, true},
		"String":   {"alpha", "alpha"},
		"Bytes":    {[]byte{0xde, 0xad}, []byte{0xde, 0xad}},
		"Instant":  {instant, instant},
		"Date":     {civil.Date{Year: 2025, Month: 3, Day: 14}, civil.Date{Year: 2025, Month: 3, Day: 14}},
		"Time":     {civil.Time{Hour: 9, Minute: 26, Second: 53}, "09:26:53"},
		"DateTime": {civil.DateTime{Date: civil.Date{Year: 2025, Month: 3, Day: 14}, Time: civil.Time{Hour: 9}}, "2025-03-14T09:00:00"},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, convertValue(tc.value))
		})
	}
}
