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

package athena

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

	t.Run("Defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := FromJSON(json.RawMessage(`{
			"region": "us-east-1",
			"database": "analytics",
			"output_location": "s3://results/"
		}`))
		require.NoError(t, err)

		assert.Equal(t, "AwsDataCatalog", cfg.Catalog)
		assert.Equal(t, "primary", cfg.WorkGroup)
	})

	for name, tc := range map[string]struct {
		config string
		err    string
	}{
		"NoRegion": {
			config: `{"database":"d","output_location":"s3://r/"}`,
			err:    "region is required",
		},
		"NoDatabase": {
			config: `{"region":"us-east-1","output_location":"s3://r/"}`,
			err:    "database is required",
		},
		"NoOutputLocation": {
			config: `{"region":"us-east-1","database":"d"}`,
			err:    "output_location is required",
		},
		"BadJSON": {
			config: `{`,
			err:    "parse athena config",
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

	str := func(s string) *string { return &s }

	t.Run("Decimal", func(t *testing.T) {
		t.Parallel()

		f, ok := convertValue(str("12345.6789"), str("decimal")).(*big.Float)
		require.True(t, ok)
		assert.Zero(t, f.Cmp(big.NewFloat(12345.6789).SetPrec(256)))
	})

	for name, tc := range map[string]struct {
		value    *string
		dataType *string
		expected any
	}{
		"Null":          {nil, str("varchar"), nil},
		"NoType":        {str("alpha"), nil, "alpha"},
		"Varchar":       {str("alpha"), str("varchar"), "alpha"},
		"Bigint":        {str("42"), str("bigint"), int64(42)},
		"Integer":       {str("7"), str("integer"), int64(7)},
		"IntegerJunk":   {str("seven"), str("integer"), "seven"},
		"Double":        {str("1.5"), str("double"), float64(1.5)},
		"BooleanTrue":   {str("true"), str("boolean"), true},
		"BooleanFalse":  {str("false"), str("boolean"), false},
		"Timestamp":     {str("2025-03-14 09:26:53.000"), str("timestamp"), time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)},
		"TimestampJunk": {str("yesterday"), str("timestamp"), "yesterday"},
		"Date":          {str("2025-03-14"), str("date"), civil.Date{Year: 2025, Month: 3, Day: 14}},
		"Varbinary":     {str("deadbeef"), str("varbinary"), []byte{0xde, 0xad, 0xbe, 0xef}},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, convertValue(tc.value, tc.dataType))
		})
	}
}
