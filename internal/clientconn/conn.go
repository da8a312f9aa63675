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

package clientconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/querystream/querystream/internal/executor"
	"github.com/querystream/querystream/internal/util/lazyerrors"
	"github.com/querystream/querystream/internal/wire"
)

const (
	// writeWait is the time allowed to write a single frame to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the period between pings; it must be less than pongWait.
	pingPeriod = pongWait * 9 / 10
)

// conn represents one client connection.
//
// All outbound frames are written while holding writeM, so concurrent
// workers produce a totally ordered byte stream.
type conn struct {
	ws   *websocket.Conn
	exec *executor.Executor
	l    *zap.Logger
	m    *ConnMetrics

	queue        chan *queryTask
	maxWorkers   int
	maxFrameSize int64

	writeM sync.Mutex

	tasksM sync.RWMutex
	tasks  map[string]*queryTask
}

// newConnOpts represents conn configuration.
type newConnOpts struct {
	ws            *websocket.Conn
	executor      *executor.Executor
	l             *zap.Logger
	connMetrics   *ConnMetrics
	maxWorkers    int
	queueCapacity int
	maxFrameSize  int64
}

// newConn creates a new client connection for the given WebSocket transport.
func newConn(opts *newConnOpts) (*conn, error) {
	if opts.maxWorkers <= 0 {
		return nil, lazyerrors.New("maxWorkers must be positive")
	}
	if opts.queueCapacity <= 0 {
		return nil, lazyerrors.New("queueCapacity must be positive")
	}

	maxFrameSize := opts.maxFrameSize
	if maxFrameSize == 0 {
		maxFrameSize = wire.DefaultMaxFrameSize
	}

	return &conn{
		ws:           opts.ws,
		exec:         opts.executor,
		l:            opts.l,
		m:            opts.connMetrics,
		queue:        make(chan *queryTask, opts.queueCapacity),
		maxWorkers:   opts.maxWorkers,
		maxFrameSize: maxFrameSize,
	}, nil
}

// run processes the connection until ctx is done or the client disconnects.
//
// When it returns, all workers have exited and every driver opened by
// them has been closed. The return value is io.EOF on clean client
// disconnect.
func (c *conn) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.tasks = map[string]*queryTask{}

	c.ws.SetReadLimit(c.maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	var wg sync.WaitGroup

	for i := 0; i < c.maxWorkers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			c.worker(ctx)
		}()
	}

	wg.Add(1)

	go func() {
		defer wg.Done()
		c.pings(ctx)
	}()

	// unblock the read loop when ctx is done
	wg.Add(1)

	go func() {
		defer wg.Done()

		<-ctx.Done()
		c.writeClose(websocket.CloseGoingAway, "server shutdown")
		_ = c.ws.SetReadDeadline(time.Now())
	}()

	err := c.readLoop(ctx)

	cancel()
	c.cancelAll()
	wg.Wait()
	_ = c.ws.Close()

	return err
}

// readLoop reads and dispatches inbound frames until an error occurs.
func (c *conn) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return io.EOF
			}

			return lazyerrors.Error(err)
		}

		var req wire.Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.writeClose(websocket.CloseInvalidFramePayloadData, "malformed frame")
			return lazyerrors.Error(err)
		}

		switch req.Type {
		case wire.MessageTypeQuery:
			c.m.requests.WithLabelValues("query").Inc()

			if err := c.handleQuery(ctx, &req); err != nil {
				return err
			}

		case wire.MessageTypeCancel:
			c.m.requests.WithLabelValues("cancel").Inc()

			if err := c.handleCancel(&req); err != nil {
				return err
			}

		default:
			c.m.requests.WithLabelValues("invalid").Inc()

			if req.StreamID == "" {
				c.writeClose(websocket.CloseInvalidFramePayloadData, "unknown frame type")
				return lazyerrors.Errorf("unknown frame type %q", req.Type)
			}

			_ = c.sendFrame(wire.NewError(
				req.StreamID,
				executor.ErrorCodeInvalidRequest.String(),
				fmt.Sprintf("unknown frame type %q", req.Type),
			))
		}
	}
}

// handleQuery admits a query frame into the task queue.
//
// The returned error is fatal to the transport; admission failures are
// reported to the client as error frames instead.
func (c *conn) handleQuery(ctx context.Context, req *wire.Request) error {
	if err := req.Validate(); err != nil {
		if req.StreamID == "" {
			c.writeClose(websocket.CloseInvalidFramePayloadData, "streamId is required")
			return lazyerrors.Error(err)
		}

		return c.sendFrame(wire.NewError(
			req.StreamID,
			executor.ErrorCodeInvalidRequest.String(),
			err.Error(),
		))
	}

	taskCtx, taskCancel := context.WithCancel(ctx)
	task := &queryTask{
		req:    req,
		ctx:    taskCtx,
		cancel: taskCancel,
		status: wire.StatusQueued,
	}

	c.tasksM.Lock()

	if _, dup := c.tasks[req.StreamID]; dup {
		c.tasksM.Unlock()
		taskCancel()

		return c.sendFrame(wire.NewError(
			req.StreamID,
			executor.ErrorCodeDuplicateStream.String(),
			fmt.Sprintf("stream %q is already active", req.StreamID),
		))
	}

	c.tasks[req.StreamID] = task
	c.tasksM.Unlock()

	// enqueue and emit queued under one write lock hold, so the queued
	// status always hits the wire before the worker's running status
	c.writeM.Lock()

	select {
	case c.queue <- task:
		err := c.writeFrame(wire.NewStatus(req.StreamID, wire.StatusQueued))
		c.writeM.Unlock()

		if err != nil {
			return lazyerrors.Error(err)
		}

		return nil

	default:
		c.writeM.Unlock()

		c.removeTask(req.StreamID)
		taskCancel()
		c.m.streams.WithLabelValues("failed").Inc()

		if err := c.sendFrame(wire.NewError(
			req.StreamID,
			executor.ErrorCodeQueueFull.String(),
			"query queue is full",
		)); err != nil {
			return lazyerrors.Error(err)
		}

		return c.sendFrame(wire.NewStatus(req.StreamID, wire.StatusFailed))
	}
}

// handleCancel cancels a queued or running task.
func (c *conn) handleCancel(req *wire.Request) error {
	if err := req.Validate(); err != nil {
		c.writeClose(websocket.CloseInvalidFramePayloadData, "streamId is required")
		return lazyerrors.Error(err)
	}

	c.tasksM.Lock()
	task, ok := c.tasks[req.StreamID]

	if !ok {
		c.tasksM.Unlock()

		return c.sendFrame(wire.NewError(
			req.StreamID,
			executor.ErrorCodeStreamNotFound.String(),
			fmt.Sprintf("stream %q not found", req.StreamID),
		))
	}

	task.status = wire.StatusCancelled
	delete(c.tasks, req.StreamID)
	c.tasksM.Unlock()

	// the flag must be set before the cancelled status is written;
	// any later frame for this task is dropped under the write lock
	task.cancelled.Store(true)
	task.cancel()

	c.m.streams.WithLabelValues("cancelled").Inc()

	return c.sendFrame(wire.NewStatus(req.StreamID, wire.StatusCancelled))
}

// worker drains the task queue until ctx is done.
func (c *conn) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case task := <-c.queue:
			if task == nil {
				return
			}

			c.runTask(task)
		}
	}
}

// runTask executes a single task to its terminal state.
func (c *conn) runTask(task *queryTask) {
	streamID := task.req.StreamID

	defer task.cancel()

	// cancelled while queued; the cancel path already cleaned up
	if task.cancelled.Load() || task.ctx.Err() != nil {
		return
	}

	c.setStatus(task, wire.StatusRunning)
	task.executedAt = time.Now()

	if err := c.sendTaskFrame(task, wire.NewStatus(streamID, wire.StatusRunning)); err != nil {
		c.removeTask(streamID)
		return
	}

	err := c.streamTask(task)

	switch {
	case task.cancelled.Load():
		// status:cancelled was the last frame for this stream

	case err == nil:
		c.setStatus(task, wire.StatusCompleted)
		c.removeTask(streamID)
		c.m.streams.WithLabelValues("completed").Inc()

		_ = c.sendTaskFrame(task, wire.NewStatus(streamID, wire.StatusCompleted))

	case errors.Is(err, context.Canceled):
		// transport teardown; no further frames
		c.removeTask(streamID)

	default:
		c.setStatus(task, wire.StatusFailed)
		c.removeTask(streamID)
		c.m.streams.WithLabelValues("failed").Inc()

		code := executor.CodeOf(err, executor.ErrorCodeQuery)
		c.l.Debug("Task failed", zap.String("stream_id", streamID), zap.Error(err))

		// the frame's code field carries the classification;
		// the message is the backend's own text
		msg := err.Error()

		var e *executor.Error
		if errors.As(err, &e) {
			msg = e.Unwrap().Error()
		}

		_ = c.sendTaskFrame(task, wire.NewError(streamID, code.String(), msg))
		_ = c.sendTaskFrame(task, wire.NewStatus(streamID, wire.StatusFailed))
	}
}

// streamTask resolves the stored query and emits metadata, rows
// and the complete frame.
//
// The driver connection is fully closed before streamTask returns.
func (c *conn) streamTask(task *queryTask) error {
	streamID := task.req.StreamID

	res, err := c.exec.Execute(task.ctx, task.req.QueryID, task.req.TemplateData)
	if err != nil {
		return err
	}

	defer res.Close() //nolint:errcheck // the driver's session is gone either way

	var totalRows int64

	err = res.Stream(func(columns []string, row []any) error {
		if err := task.ctx.Err(); err != nil {
			return err
		}

		if columns != nil {
			return c.sendTaskFrame(task, wire.NewMetadata(streamID, columns))
		}

		totalRows++

		return c.sendTaskFrame(task, wire.NewRow(streamID, row))
	})
	if err != nil {
		return err
	}

	if task.cancelled.Load() {
		return context.Canceled
	}

	c.m.rows.Add(float64(totalRows))

	return c.sendTaskFrame(task, wire.NewComplete(streamID, totalRows))
}

// writeFrame writes a frame; the caller must hold the write lock.
func (c *conn) writeFrame(frame *wire.Frame) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

	return c.ws.WriteJSON(frame)
}

// sendFrame writes a frame under the write lock.
func (c *conn) sendFrame(frame *wire.Frame) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()

	return c.writeFrame(frame)
}

// sendTaskFrame writes a frame for the given task under the write lock,
// dropping it if the task was cancelled.
func (c *conn) sendTaskFrame(task *queryTask, frame *wire.Frame) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()

	if task.cancelled.Load() {
		return context.Canceled
	}

	return c.writeFrame(frame)
}

// writeClose sends a close message to the peer.
func (c *conn) writeClose(code int, text string) {
	c.writeM.Lock()
	defer c.writeM.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

// setStatus updates the task status under the index lock.
func (c *conn) setStatus(task *queryTask, status wire.Status) {
	c.tasksM.Lock()
	defer c.tasksM.Unlock()

	task.status = status
}

// removeTask removes the task from the active index.
func (c *conn) removeTask(streamID string) {
	c.tasksM.Lock()
	defer c.tasksM.Unlock()

	delete(c.tasks, streamID)
}

// cancelAll cancels every active task and suppresses their frames.
func (c *conn) cancelAll() {
	c.tasksM.Lock()
	defer c.tasksM.Unlock()

	for _, task := range c.tasks {
		task.cancelled.Store(true)
		task.cancel()
	}

	c.tasks = map[string]*queryTask{}
}

// pings sends periodic ping messages until ctx is done.
func (c *conn) pings(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			c.writeM.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeM.Unlock()

			if err != nil {
				return
			}
		}
	}
}
