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

	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// Config represents Athena connector configuration.
type Config struct {
	Region          string `json:"region"`
	Database        string `json:"database"`
	OutputLocation  string `json:"output_location"` // S3 location for query results
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
	WorkGroup       string `json:"workgroup,omitempty"`
	Catalog         string `json:"catalog,omitempty"`
}

// FromJSON creates a Config from JSON data, applying defaults.
func FromJSON(data json.RawMessage) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, lazyerrors.Errorf("parse athena config: %w", err)
	}

	if config.Region == "" {
		return nil, lazyerrors.New("region is required")
	}
	if config.Database == "" {
		return nil, lazyerrors.New("database is required")
	}
	if config.OutputLocation == "" {
		return nil, lazyerrors.New("output_location is required")
	}

	if config.Catalog == "" {
		config.Catalog = "AwsDataCatalog"
	}
	if config.WorkGroup == "" {
		config.WorkGroup = "primary"
	}

	return &config, nil
}
