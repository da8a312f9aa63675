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
	"sync/atomic"
	"time"

	"github.com/querystream/querystream/internal/wire"
)

// queryTask represents one admitted query on a connection.
//
// A task moves queued -> running -> completed|failed|cancelled.
// status is guarded by conn.tasksM. The cancelled flag is checked
// under the write lock so that no frame for a cancelled stream can
// follow the status:cancelled frame.
type queryTask struct {
	req        *wire.Request
	ctx        context.Context
	cancel     context.CancelFunc
	executedAt time.Time
	status     wire.Status
	cancelled  atomic.Bool
}
