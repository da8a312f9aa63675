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

// Package wire provides the JSON frame protocol spoken over the WebSocket transport.
//
// Every transport message carries exactly one frame.
// Inbound frames form a closed set (query, cancel);
// outbound frames carry a type, the stream identifier, and a typed payload.
package wire

import (
	"github.com/querystream/querystream/internal/util/lazyerrors"
)

// MessageType represents the frame type discriminant.
type MessageType string

// Inbound frame types.
const (
	MessageTypeQuery  MessageType = "query"
	MessageTypeCancel MessageType = "cancel"
)

// Outbound frame types.
const (
	MessageTypeStatus   MessageType = "status"
	MessageTypeMetadata MessageType = "metadata"
	MessageTypeRow      MessageType = "row"
	MessageTypeComplete MessageType = "complete"
	MessageTypeError    MessageType = "error"
)

// Status represents the lifecycle state of a single stream.
type Status string

// Stream statuses. A stream is terminal in completed, failed and cancelled.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// DefaultMaxFrameSize is the default limit on a single inbound frame.
const DefaultMaxFrameSize = 64 * 1024 // 64 KiB

// Request represents a single inbound frame.
type Request struct {
	Type         MessageType    `json:"type"`
	StreamID     string         `json:"streamId"`
	QueryID      string         `json:"queryId,omitempty"`
	TemplateData map[string]any `json:"templateData,omitempty"`
}

// Validate checks that the request is one of the closed set of inbound frames
// and carries all fields that frame type requires.
func (r *Request) Validate() error {
	switch r.Type {
	case MessageTypeQuery:
		if r.StreamID == "" {
			return lazyerrors.New("streamId is required")
		}
		if r.QueryID == "" {
			return lazyerrors.New("queryId is required")
		}

		return nil

	case MessageTypeCancel:
		if r.StreamID == "" {
			return lazyerrors.New("streamId is required")
		}

		return nil

	default:
		return lazyerrors.Errorf("unknown frame type %q", r.Type)
	}
}

// Frame represents a single outbound frame.
type Frame struct {
	Type     MessageType    `json:"type"`
	StreamID string         `json:"streamId"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Metadata represents the metadata payload sent once before any row.
//
// TotalRows is zero at header time for almost every backend;
// the authoritative count is carried by the complete frame.
type Metadata struct {
	Columns   []string `json:"columns"`
	TotalRows int64    `json:"totalRows"`
}

// NewStatus returns a status frame for the given stream.
func NewStatus(streamID string, status Status) *Frame {
	return &Frame{
		Type:     MessageTypeStatus,
		StreamID: streamID,
		Payload: map[string]any{
			"status": status,
		},
	}
}

// NewMetadata returns the metadata frame for the given stream.
func NewMetadata(streamID string, columns []string) *Frame {
	return &Frame{
		Type:     MessageTypeMetadata,
		StreamID: streamID,
		Payload: map[string]any{
			"metadata": Metadata{
				Columns: columns,
			},
		},
	}
}

// NewRow returns a row frame with values in backend order.
func NewRow(streamID string, values []any) *Frame {
	return &Frame{
		Type:     MessageTypeRow,
		StreamID: streamID,
		Payload: map[string]any{
			"data": values,
		},
	}
}

// NewComplete returns the normal terminal frame with the authoritative row count.
func NewComplete(streamID string, totalRows int64) *Frame {
	return &Frame{
		Type:     MessageTypeComplete,
		StreamID: streamID,
		Payload: map[string]any{
			"totalRows": totalRows,
		},
	}
}

// NewError returns the failure terminal frame.
// Code may be empty for errors that have no protocol-level classification.
func NewError(streamID, code, message string) *Frame {
	payload := map[string]any{
		"error": message,
	}
	if code != "" {
		payload["code"] = code
	}

	return &Frame{
		Type:     MessageTypeError,
		StreamID: streamID,
		Payload:  payload,
	}
}
