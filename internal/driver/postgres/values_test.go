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

package postgres

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertValue(t *testing.T) {
	t.Parallel()

	typeMap := pgtype.NewMap()
	u := uuid.MustParse("aec65753-66e0-473a-aabb-edcfc7a16421")
	instant := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))

	for name, tc := range map[string]struct {
		oid      uint32
		value    any
		expected any
	}{
		"Null":           {pgtype.TextOID, nil, nil},
		"Text":           {pgtype.TextOID, "alpha", "alpha"},
		"Int8":           {pgtype.Int8OID, int64(42), int64(42)},
		"Int4Widened":    {pgtype.Int4OID, int32(7), int64(7)},
		"Int2Widened":    {pgtype.Int2OID, int16(3), int64(3)},
		"Float4Widened":  {pgtype.Float4OID, float32(1.5), float64(1.5)},
		"Bool":           {pgtype.BoolOID, true, true},
		"Bytea":          {pgtype.ByteaOID, []byte{0xde, 0xad}, []byte{0xde, 0xad}},
		"UUIDBinary":     {pgtype.UUIDOID, [16]byte(u), u},
		"UUIDText":       {pgtype.UUIDOID, u.String(), u},
		"UUIDInvalid":    {pgtype.UUIDOID, "not-a-uuid", "not-a-uuid"},
		"TimestampUTC":   {pgtype.TimestamptzOID, instant, instant.UTC()},
		"TimestampText":  {pgtype.TimestampOID, "2025-03-14 09:26:53", time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)},
		"TimestampJunk":  {pgtype.TimestampOID, "yesterday", "yesterday"},
		"Date":           {pgtype.DateOID, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), civil.Date{Year: 2025, Month: 3, Day: 14}},
		"DateText":       {pgtype.DateOID, "2025-03-14", civil.Date{Year: 2025, Month: 3, Day: 14}},
		"NumericText":    {pgtype.NumericOID, "12345.6789", big.NewFloat(12345.6789).SetPrec(256)},
		"NumericInvalid": {pgtype.NumericOID, "NaN-ish", "NaN-ish"},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual := convertValue(tc.oid, tc.value, typeMap)

			if f, ok := tc.expected.(*big.Float); ok {
				actualF, ok := actual.(*big.Float)
				require.True(t, ok, "expected *big.Float, got %T", actual)
				assert.Zero(t, f.Cmp(actualF))
				return
			}

			assert.Equal(t, tc.expected, actual)
		})
	}
}

// TestConvertIdempotent checks that converting an already portable value is a no-op.
func TestConvertIdempotent(t *testing.T) {
	t.Parallel()

	typeMap := pgtype.NewMap()
	u := uuid.New()
	instant := time.Now().UTC()

	assert.Equal(t, u, convertValue(pgtype.UUIDOID, convertValue(pgtype.UUIDOID, [16]byte(u), typeMap), typeMap))
	assert.Equal(t, instant, convertValue(pgtype.TimestamptzOID, convertValue(pgtype.TimestamptzOID, instant, typeMap), typeMap))
}

func TestConvertRowValues(t *testing.T) {
	t.Parallel()

	typeMap := pgtype.NewMap()
	fields := []pgconn.FieldDescription{
		{Name: "id", DataTypeOID: pgtype.Int8OID},
		{Name: "name", DataTypeOID: pgtype.TextOID},
	}

	row, err := convertRowValues(fields, []any{int64(1), "alpha"}, typeMap)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "alpha"}, row)

	_, err = convertRowValues(fields, []any{int64(1)}, typeMap)
	require.Error(t, err)
}
