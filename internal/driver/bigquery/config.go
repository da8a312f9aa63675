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

	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// Config represents BigQuery connector configuration.
type Config struct {
	ProjectID      string `json:"project_id"`
	Dataset        string `json:"dataset"`
	Credentials    string `json:"credentials,omitempty"` // JSON credentials content
	KeyFile        string `json:"key_file,omitempty"`    // path to a credentials file
	Location       string `json:"location,omitempty"`    // e.g. "US", "EU"
	MaxBillingTier int    `json:"max_billing_tier,omitempty"`
}

// FromJSON creates a Config from JSON data.
func FromJSON(data json.RawMessage) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, lazyerrors.Errorf("parse bigquery config: %w", err)
	}

	if config.ProjectID == "" {
		return nil, lazyerrors.New("project_id is required")
	}
	if config.Dataset == "" {
		return nil, lazyerrors.New("dataset is required")
	}
	if config.Credentials == "" && config.KeyFile == "" {
		return nil, lazyerrors.New("either credentials or key_file must be provided")
	}

	return &config, nil
}
