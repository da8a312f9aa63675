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

// Package clientconn provides the WebSocket server and per-connection
// query stream handling.
package clientconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/querystream/querystream/internal/executor"
	"github.com/querystream/querystream/internal/util/ctxutil"
	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// shutdownTimeout is the time allowed for the HTTP server to drain on shutdown.
const shutdownTimeout = 30 * time.Second

// Listener accepts incoming client connections.
type Listener struct {
	opts      *NewListenerOpts
	metrics   *ListenerMetrics
	upgrader  websocket.Upgrader
	listener  net.Listener
	listening chan struct{}
}

// NewListenerOpts represents listener configuration.
type NewListenerOpts struct {
	ListenAddr         string
	Executor           *executor.Executor
	Metrics            *ListenerMetrics
	Logger             *zap.Logger
	MaxWorkers         int
	QueueCapacity      int
	MaxFrameSize       int64
	TestRunCancelDelay time.Duration
}

// NewListener returns a new listener, configured by the NewListenerOpts argument.
func NewListener(opts *NewListenerOpts) *Listener {
	return &Listener{
		opts:    opts,
		metrics: opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				// origin policy is enforced by the deployment in front of us
				return true
			},
		},
		listening: make(chan struct{}),
	}
}

// Run runs the listener until ctx is done or some unrecoverable error occurs.
//
// When this method returns, the listener and all connections are closed.
func (l *Listener) Run(ctx context.Context) error {
	logger := l.opts.Logger.Named("listener")

	var err error
	if l.listener, err = net.Listen("tcp", l.opts.ListenAddr); err != nil {
		return lazyerrors.Error(err)
	}

	close(l.listening)
	logger.Sugar().Infof("Listening on %s ...", l.Addr())

	var wg sync.WaitGroup

	mux := http.NewServeMux()
	mux.HandleFunc("/health", l.handleHealth)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		l.handleWebSocket(ctx, &wg, w, r)
	})

	srv := &http.Server{
		Handler:  mux,
		ErrorLog: zap.NewStdLog(logger),
	}

	serveDone := make(chan struct{})

	go func() {
		defer close(serveDone)

		if e := srv.Serve(l.listener); !errors.Is(e, http.ErrServerClosed) {
			logger.Error("Serving failed", zap.Error(e))
		}
	}()

	<-ctx.Done()

	// Shutdown does not wait for hijacked WebSocket connections;
	// those are stopped through the delayed per-connection contexts
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	logger.Info("Waiting for all connections to stop...")
	wg.Wait()
	<-serveDone

	return ctx.Err()
}

// handleHealth handles health check requests.
func (l *Listener) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}

// handleWebSocket upgrades the request and runs the connection
// until it stops or ctx is done.
func (l *Listener) handleWebSocket(ctx context.Context, wg *sync.WaitGroup, w http.ResponseWriter, r *http.Request) {
	logger := l.opts.Logger.Named("listener")

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.metrics.Accepts.WithLabelValues("1").Inc()
		logger.Warn("Failed to upgrade connection", zap.Error(err))

		return
	}

	wg.Add(1)
	l.metrics.Accepts.WithLabelValues("0").Inc()
	l.metrics.ConnectedClients.Inc()

	defer func() {
		_ = ws.Close()
		l.metrics.ConnectedClients.Dec()
		wg.Done()
	}()

	connID := fmt.Sprintf("%s -> %s", ws.RemoteAddr(), ws.LocalAddr())

	// give clients a few seconds to disconnect after ctx is canceled
	runCancelDelay := l.opts.TestRunCancelDelay
	if runCancelDelay == 0 {
		runCancelDelay = 3 * time.Second
	}

	runCtx, runCancel := ctxutil.WithDelay(ctx.Done(), runCancelDelay)
	defer runCancel()

	defer pprof.SetGoroutineLabels(runCtx)
	runCtx = pprof.WithLabels(runCtx, pprof.Labels("conn", connID))
	pprof.SetGoroutineLabels(runCtx)

	opts := &newConnOpts{
		ws:            ws,
		executor:      l.opts.Executor,
		l:             l.opts.Logger.Named("// " + connID + " "), // derive from the original unnamed logger
		connMetrics:   l.metrics.ConnMetrics,
		maxWorkers:    l.opts.MaxWorkers,
		queueCapacity: l.opts.QueueCapacity,
		maxFrameSize:  l.opts.MaxFrameSize,
	}

	conn, e := newConn(opts)
	if e != nil {
		logger.Warn("Failed to create connection", zap.String("conn", connID), zap.Error(e))
		return
	}

	logger.Info("Connection started", zap.String("conn", connID))

	e = conn.run(runCtx)
	if errors.Is(e, io.EOF) {
		logger.Info("Connection stopped", zap.String("conn", connID))
	} else {
		logger.Warn("Connection stopped", zap.String("conn", connID), zap.Error(e))
	}
}

// Addr returns listener's address.
// It can be used to determine an actually used port, if it was zero.
func (l *Listener) Addr() net.Addr {
	<-l.listening
	return l.listener.Addr()
}

// Describe implements prometheus.Collector.
func (l *Listener) Describe(ch chan<- *prometheus.Desc) {
	l.metrics.Describe(ch)
}

// Collect implements prometheus.Collector.
func (l *Listener) Collect(ch chan<- prometheus.Metric) {
	l.metrics.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Listener)(nil)
)
