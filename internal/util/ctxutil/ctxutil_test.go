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

package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDelay(t *testing.T) {
	t.Parallel()

	t.Run("Delay", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})
		ctx, cancel := WithDelay(done, 10*time.Millisecond)
		defer cancel()

		assert.NoError(t, ctx.Err())

		close(done)

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			require.Fail(t, "context was not canceled")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})
		ctx, cancel := WithDelay(done, time.Hour)

		cancel()

		<-ctx.Done()
		assert.Equal(t, context.Canceled, context.Cause(ctx))
	})
}

func TestSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}
