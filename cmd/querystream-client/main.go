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

// Package main is a small example client that submits one query
// and prints every frame until the stream terminates.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/querystream/querystream/internal/wire"
)

var cli struct {
	URL          string        `default:"ws://127.0.0.1:8080/ws" help:"Server WebSocket URL."`
	QueryID      string        `arg:"" help:"Stored query ID to execute."`
	TemplateData string        `default:"{}" help:"Template data as a JSON object."`
	Timeout      time.Duration `default:"60s" help:"Give up after this long."`
}

func main() {
	kong.Parse(&cli)

	var templateData map[string]any
	if err := json.Unmarshal([]byte(cli.TemplateData), &templateData); err != nil {
		fmt.Fprintln(os.Stderr, "invalid template data:", err)
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(cli.URL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	streamID := uuid.NewString()

	req := wire.Request{
		Type:         wire.MessageTypeQuery,
		StreamID:     streamID,
		QueryID:      cli.QueryID,
		TemplateData: templateData,
	}
	if err := conn.WriteJSON(&req); err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		os.Exit(1)
	}

	_ = conn.SetReadDeadline(time.Now().Add(cli.Timeout))

	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}

		b, _ := json.Marshal(frame)
		fmt.Println(string(b))

		if frame.Type != wire.MessageTypeStatus {
			continue
		}

		switch wire.Status(fmt.Sprint(frame.Payload["status"])) {
		case wire.StatusCompleted, wire.StatusFailed, wire.StatusCancelled:
			return
		case wire.StatusQueued, wire.StatusRunning:
		}
	}
}
