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
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// convertRowValues converts a row of pgx values into portable kinds
// using the field descriptions and the connection's type map.
func convertRowValues(fields []pgconn.FieldDescription, values []any, typeMap *pgtype.Map) ([]any, error) {
	if len(fields) != len(values) {
		return nil, lazyerrors.Errorf("%d fields, %d values", len(fields), len(values))
	}

	converted := make([]any, len(values))
	for i, v := range values {
		converted[i] = convertValue(fields[i].DataTypeOID, v, typeMap)
	}

	return converted, nil
}

// convertValue converts a single column value based on its PostgreSQL OID.
//
// Values that decode cleanly become portable kinds;
// anything unsafe falls back to its text form.
func convertValue(oid uint32, v any, typeMap *pgtype.Map) any {
	if v == nil {
		return nil
	}

	name := ""
	if typeMap != nil {
		if typeInfo, ok := typeMap.TypeForOID(oid); ok {
			name = typeInfo.Name
		}
	}

	switch name {
	case "uuid":
		return convertUUID(v)
	case "timestamp", "timestamptz":
		return convertTimestamp(v)
	case "date":
		return convertDate(v)
	case "numeric":
		return convertNumeric(v)
	}

	// no type map info; decide by well-known OID
	switch oid {
	case pgtype.UUIDOID:
		return convertUUID(v)
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return convertTimestamp(v)
	case pgtype.DateOID:
		return convertDate(v)
	case pgtype.NumericOID:
		return convertNumeric(v)
	}

	return normalize(v)
}

// normalize widens small numeric types so that every integer crosses
// the boundary as int64 and every float as float64.
func normalize(v any) any {
	switch v := v.(type) {
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

func convertUUID(v any) any {
	switch v := v.(type) {
	case [16]byte:
		return uuid.UUID(v)
	case []byte:
		if len(v) == 16 {
			var u uuid.UUID
			copy(u[:], v)
			return u
		}

		if u, err := uuid.Parse(string(v)); err == nil {
			return u
		}

		return string(v)
	case string:
		if u, err := uuid.Parse(v); err == nil {
			return u
		}

		return v
	default:
		return v
	}
}

func convertTimestamp(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.UTC()
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return v
	}
}

// parseTime parses common PostgreSQL timestamp text forms,
// returning the original string when parsing fails.
func parseTime(s string) any {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}

	const pgTimeFormat = "2006-01-02 15:04:05.999999999"
	if t, err := time.Parse(pgTimeFormat, s); err == nil {
		return t.UTC()
	}

	return s
}

func convertDate(v any) any {
	switch v := v.(type) {
	case time.Time:
		return civil.DateOf(v)
	case string:
		if d, err := civil.ParseDate(v); err == nil {
			return d
		}

		return v
	default:
		return v
	}
}

func convertNumeric(v any) any {
	var s string

	switch v := v.(type) {
	case pgtype.Numeric:
		value, err := v.Value()
		if err != nil {
			return v
		}

		var ok bool
		if s, ok = value.(string); !ok {
			return v
		}
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		return big.NewFloat(0).SetInt64(v)
	case float64:
		return big.NewFloat(v)
	default:
		return v
	}

	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return s
	}

	return f
}
