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
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// athenaTimeFormat is the text form Athena uses for timestamps.
const athenaTimeFormat = "2006-01-02 15:04:05.999999999"

// convertValue converts the text form Athena returns for a column
// into a portable kind based on the declared column type.
// Values that fail to parse keep their text form.
func convertValue(value, dataType *string) any {
	if value == nil {
		return nil
	}
	if dataType == nil {
		return *value
	}

	s := *value

	switch strings.ToLower(*dataType) {
	case "tinyint", "smallint", "integer", "int", "bigint":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}

		return s

	case "double", "float", "real":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}

		return s

	case "decimal":
		if f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven); err == nil {
			return f
		}

		return s

	case "boolean":
		return s == "true"

	case "timestamp", "timestamp with time zone":
		if t, err := time.Parse(athenaTimeFormat, s); err == nil {
			return t.UTC()
		}

		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}

		return s

	case "date":
		if d, err := civil.ParseDate(s); err == nil {
			return d
		}

		return s

	case "varbinary":
		if b, err := hex.DecodeString(strings.ReplaceAll(s, " ", "")); err == nil {
			return b
		}

		return s

	default:
		return s
	}
}
