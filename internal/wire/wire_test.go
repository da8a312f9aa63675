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

package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		req Request
		err string
	}{
		"Query": {
			req: Request{Type: MessageTypeQuery, StreamID: "s1", QueryID: "q1"},
		},
		"QueryTemplateData": {
			req: Request{
				Type:         MessageTypeQuery,
				StreamID:     "s1",
				QueryID:      "q1",
				TemplateData: map[string]any{"region": "us"},
			},
		},
		"QueryNoStreamID": {
			req: Request{Type: MessageTypeQuery, QueryID: "q1"},
			err: "streamId is required",
		},
		"QueryNoQueryID": {
			req: Request{Type: MessageTypeQuery, StreamID: "s1"},
			err: "queryId is required",
		},
		"Cancel": {
			req: Request{Type: MessageTypeCancel, StreamID: "s1"},
		},
		"CancelNoStreamID": {
			req: Request{Type: MessageTypeCancel},
			err: "streamId is required",
		},
		"UnknownType": {
			req: Request{Type: "subscribe", StreamID: "s1"},
			err: `unknown frame type "subscribe"`,
		},
		"EmptyType": {
			req: Request{StreamID: "s1"},
			err: `unknown frame type ""`,
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.req.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestRequestDecode(t *testing.T) {
	t.Parallel()

	b := []byte(`{"type":"query","streamId":"s1","queryId":"Q-42","templateData":{"region":"us"}}`)

	var req Request
	require.NoError(t, json.Unmarshal(b, &req))

	assert.Equal(t, MessageTypeQuery, req.Type)
	assert.Equal(t, "s1", req.StreamID)
	assert.Equal(t, "Q-42", req.QueryID)
	assert.Equal(t, map[string]any{"region": "us"}, req.TemplateData)
}

func TestFrameMarshal(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		frame    *Frame
		expected string
	}{
		"Status": {
			frame:    NewStatus("s1", StatusQueued),
			expected: `{"type":"status","streamId":"s1","payload":{"status":"queued"}}`,
		},
		"Metadata": {
			frame:    NewMetadata("s1", []string{"id", "name"}),
			expected: `{"type":"metadata","streamId":"s1","payload":{"metadata":{"columns":["id","name"],"totalRows":0}}}`,
		},
		"Row": {
			frame:    NewRow("s1", []any{int64(1), "alpha"}),
			expected: `{"type":"row","streamId":"s1","payload":{"data":[1,"alpha"]}}`,
		},
		"Complete": {
			frame:    NewComplete("s1", 2),
			expected: `{"type":"complete","streamId":"s1","payload":{"totalRows":2}}`,
		},
		"Error": {
			frame:    NewError("s1", "QueryNotFound", "query not found"),
			expected: `{"type":"error","streamId":"s1","payload":{"code":"QueryNotFound","error":"query not found"}}`,
		},
		"ErrorNoCode": {
			frame:    NewError("s1", "", "boom"),
			expected: `{"type":"error","streamId":"s1","payload":{"error":"boom"}}`,
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b, err := json.Marshal(tc.frame)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(b))
		})
	}
}
