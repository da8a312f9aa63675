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

package lazyerrors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	err := New("err")
	err1 := Errorf("err1: %w", err)
	err2 := Error(err1)

	assert.Contains(t, err.Error(), "lazyerrors_test.go")
	assert.Contains(t, err.Error(), "err")
	assert.Contains(t, err1.Error(), "err1")

	assert.True(t, errors.Is(err1, err))
	assert.True(t, errors.Is(err2, err1))
	assert.True(t, errors.Is(err2, err))
}

func TestErrorNil(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		_ = Error(nil)
	})
}

func TestUnwrapAll(t *testing.T) {
	t.Parallel()

	assert.Nil(t, UnwrapAll(nil))

	err := Errorf("err1: %w", Errorf("err2: %w", io.EOF))
	assert.Equal(t, io.EOF, UnwrapAll(err))
}
