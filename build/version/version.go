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

// Package version provides information about QueryStream version and build configuration.
package version

import (
	runtimedebug "runtime/debug"
)

// Info provides details about the current build.
type Info struct {
	Version string
	Commit  string
	Dirty   bool
	GoArch  string
	GoOS    string
}

// Version is overridden with the release tag by the linker.
var version = "unknown"

// info singleton instance set by init().
var info *Info

// Get returns current build's info.
//
// It returns a shared instance without any synchronization.
// Callers must not modify it.
func Get() *Info {
	return info
}

func init() {
	info = &Info{
		Version: version,
		Commit:  "unknown",
	}

	buildInfo, ok := runtimedebug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "GOARCH":
			info.GoArch = s.Value
		case "GOOS":
			info.GoOS = s.Value
		}
	}
}
