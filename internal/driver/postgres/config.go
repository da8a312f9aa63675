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
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// Config represents PostgreSQL connector configuration.
type Config struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode,omitempty"`
	SSLCert         string        `json:"ssl_cert,omitempty"`
	SSLKey          string        `json:"ssl_key,omitempty"`
	SSLRootCert     string        `json:"ssl_root_cert,omitempty"`
	SearchPath      string        `json:"search_path,omitempty"`
	ApplicationName string        `json:"application_name,omitempty"`
	MaxOpenConns    int           `json:"max_open_conns,omitempty"`
	MaxIdleConns    int           `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime,omitempty"`
}

// sslModes are the accepted ssl_mode values.
var sslModes = []string{"disable", "require", "verify-ca", "verify-full"}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return lazyerrors.New("host is required")
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Database == "" {
		return lazyerrors.New("database is required")
	}
	if c.Username == "" {
		return lazyerrors.New("username is required")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}

	var valid bool
	for _, m := range sslModes {
		if c.SSLMode == m {
			valid = true
			break
		}
	}
	if !valid {
		return lazyerrors.Errorf("invalid ssl_mode %q (expected one of %s)", c.SSLMode, strings.Join(sslModes, ", "))
	}

	if (c.SSLCert == "") != (c.SSLKey == "") {
		return lazyerrors.New("ssl_cert and ssl_key must be provided together")
	}

	if c.MaxOpenConns < 0 {
		return lazyerrors.New("max_open_conns must be >= 0")
	}
	if c.MaxIdleConns < 0 {
		return lazyerrors.New("max_idle_conns must be >= 0")
	}
	if c.MaxOpenConns != 0 && c.MaxIdleConns > c.MaxOpenConns {
		return lazyerrors.New("max_idle_conns cannot be greater than max_open_conns")
	}

	return nil
}

// FromJSON creates a Config from JSON data.
func FromJSON(data json.RawMessage) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, lazyerrors.Errorf("parse postgres config: %w", err)
	}

	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 2
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DSN returns the connection string in postgres:// URL form.
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
		Path:   c.Database,
	}

	q := url.Values{}

	if c.SSLMode != "" {
		q.Add("sslmode", c.SSLMode)
	}
	if c.SearchPath != "" {
		q.Add("search_path", c.SearchPath)
	}
	if c.ApplicationName != "" {
		q.Add("application_name", c.ApplicationName)
	}

	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// ParseDSN parses a postgres:// connection string into a Config.
func ParseDSN(dsn string) (*Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, lazyerrors.Errorf("invalid DSN: %w", err)
	}

	if u.Scheme != "postgres" {
		return nil, lazyerrors.Errorf("invalid scheme %q", u.Scheme)
	}

	port := 5432
	if portStr := u.Port(); portStr != "" {
		if port, err = strconv.Atoi(portStr); err != nil {
			return nil, lazyerrors.Errorf("invalid port: %w", err)
		}
	}

	password, _ := u.User.Password()

	config := &Config{
		Host:     u.Hostname(),
		Port:     port,
		Database: strings.TrimPrefix(u.Path, "/"),
		Username: u.User.Username(),
		Password: password,
	}

	q := u.Query()
	config.SSLMode = q.Get("sslmode")
	config.SearchPath = q.Get("search_path")
	config.ApplicationName = q.Get("application_name")

	return config, nil
}
