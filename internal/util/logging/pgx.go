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

package logging

import (
	zapadapter "github.com/jackc/pgx-zap"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

// NewPgxTracer returns a pgx query tracer that logs through the given zap logger.
//
// pgx logs queries at its info level; we map the whole trace to the given
// zap logger unchanged and let the logger's level do the filtering.
func NewPgxTracer(l *zap.Logger) *tracelog.TraceLog {
	level := tracelog.LogLevelWarn
	if l.Core().Enabled(zap.DebugLevel) {
		level = tracelog.LogLevelDebug
	}

	return &tracelog.TraceLog{
		Logger:   zapadapter.NewLogger(l),
		LogLevel: level,
	}
}
