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

// Package main is the querystream server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/querystream/querystream/build/version"
	"github.com/querystream/querystream/internal/clientconn"
	_ "github.com/querystream/querystream/internal/driver/athena"
	_ "github.com/querystream/querystream/internal/driver/bigquery"
	_ "github.com/querystream/querystream/internal/driver/postgres"
	"github.com/querystream/querystream/internal/executor"
	"github.com/querystream/querystream/internal/metadata"
	"github.com/querystream/querystream/internal/util/ctxutil"
	"github.com/querystream/querystream/internal/util/debug"
	"github.com/querystream/querystream/internal/util/logging"
)

// The cli struct represents all command-line commands, fields and flags.
// Flags override the corresponding config file options.
var cli struct {
	Version bool `default:"false" help:"Print version to stdout and exit."`

	ConfigFile string `default:"querystream.toml" help:"Config file path."`

	ListenAddr string `default:"" help:"Listen address; overrides the config file port."`
	DebugAddr  string `default:"127.0.0.1:8088" help:"Debug address for /debug endpoints."`

	SupabaseURL string `name:"supabase-url" default:"" env:"SUPABASE_URL" help:"Metadata store URL."`
	SupabaseKey string `name:"supabase-key" default:"" env:"SUPABASE_KEY" help:"Metadata store key."`

	MaxWorkers    int `default:"0" help:"Workers per connection; overrides the config file."`
	QueueCapacity int `default:"0" help:"Queue capacity per connection; overrides the config file."`

	Log struct {
		Level  string `default:"info" help:"Log level: debug, info, warn, error."`
		Format string `default:"console" help:"Log format: console, json."`
	} `embed:"" prefix:"log-"`
}

// config represents the config file contents.
type config struct {
	SupabaseURL   string `toml:"supabase_url"`
	SupabaseKey   string `toml:"supabase_key"`
	Port          string `toml:"port"`
	MaxWorkers    int    `toml:"max_workers"`
	QueueCapacity int    `toml:"queue_capacity"`
}

func main() {
	kong.Parse(&cli)

	run()
}

// defaults fills unset config options.
func (cfg *config) defaults() {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 3
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 100
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config, error) {
	var cfg config

	if _, err := toml.DecodeFile(cli.ConfigFile, &cfg); err != nil {
		// the config file is optional when flags provide everything
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if cli.SupabaseURL != "" {
		cfg.SupabaseURL = cli.SupabaseURL
	}
	if cli.SupabaseKey != "" {
		cfg.SupabaseKey = cli.SupabaseKey
	}
	if cli.MaxWorkers != 0 {
		cfg.MaxWorkers = cli.MaxWorkers
	}
	if cli.QueueCapacity != 0 {
		cfg.QueueCapacity = cli.QueueCapacity
	}

	cfg.defaults()

	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, errors.New("supabase_url and supabase_key must be set")
	}

	return &cfg, nil
}

// run sets up environment and runs the server until it is stopped.
func run() {
	info := version.Get()

	if cli.Version {
		fmt.Fprintln(os.Stdout, "version:", info.Version)
		fmt.Fprintln(os.Stdout, "commit:", info.Commit)
		fmt.Fprintln(os.Stdout, "dirty:", info.Dirty)

		return
	}

	var level zapcore.Level
	if err := level.Set(cli.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.Setup(level, cli.Log.Format)
	logger := zap.L()

	cfg, err := loadConfig()
	if err != nil {
		logger.Sugar().Fatalf("Failed to load config: %s.", err)
	}

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	logger.Info(
		"Starting querystream "+info.Version+"...",
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.Bool("dirty", info.Dirty),
	)

	ctx, stop := ctxutil.SigTerm(context.Background())
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Stopping...")
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	go debug.RunHandler(ctx, cli.DebugAddr, registry, logger.Named("debug"))

	store, err := metadata.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		logger.Sugar().Fatalf("Failed to create metadata store: %s.", err)
	}

	listenAddr := cli.ListenAddr
	if listenAddr == "" {
		listenAddr = ":" + cfg.Port
	}

	l := clientconn.NewListener(&clientconn.NewListenerOpts{
		ListenAddr:    listenAddr,
		Executor:      executor.New(store, logger.Named("executor")),
		Metrics:       clientconn.NewListenerMetrics(),
		Logger:        logger,
		MaxWorkers:    cfg.MaxWorkers,
		QueueCapacity: cfg.QueueCapacity,
	})

	registry.MustRegister(l)

	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Listener stopped", zap.Error(err))
	}

	logger.Info("Stopped.")
}
