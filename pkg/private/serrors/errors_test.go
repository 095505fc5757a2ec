// Copyright 2016 ETH Zurich
// Copyright 2025 OpenOptics Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

type testToErr struct {
	msg     string
	timeout bool
	cause   error
}

func (e *testToErr) Error() string { return e.msg }
func (e *testToErr) Timeout() bool { return e.timeout }
func (e *testToErr) Unwrap() error { return e.cause }

func TestIsTimeout(t *testing.T) {
	assert.False(t, serrors.IsTimeout(serrors.New("no timeout")))
	assert.True(t, serrors.IsTimeout(serrors.Wrap("timeout", &testToErr{timeout: true})))
	noTimeoutWrappingTimeout := serrors.Wrap("notimeout", &testToErr{
		msg:   "non timeout wraps timeout",
		cause: &testToErr{msg: "timeout", timeout: true},
	})
	assert.False(t, serrors.IsTimeout(noTimeoutWrappingTimeout))
}

func TestErrorString(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected string
	}{
		"new without context": {
			err:      serrors.New("simple"),
			expected: "simple",
		},
		"new with sorted context": {
			err:      serrors.New("ctx", "port", 3, "a", "b"),
			expected: "ctx {a=b; port=3}",
		},
		"wrap": {
			err:      serrors.Wrap("outer", errors.New("inner"), "slot", 1),
			expected: "outer {slot=1}: inner",
		},
		"join": {
			err:      serrors.Join(errors.New("base"), errors.New("cause"), "k", "v"),
			expected: "base {k=v}: cause",
		},
		"list": {
			err:      serrors.List{errors.New("a"), errors.New("b")},
			expected: "[ a; b ]",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestIs(t *testing.T) {
	base := errors.New("base")
	cause := errors.New("cause")
	joined := serrors.Join(base, cause, "k", 1)
	assert.ErrorIs(t, joined, base)
	assert.ErrorIs(t, joined, cause)
	assert.ErrorIs(t, serrors.Wrap("msg", base), base)
	assert.Nil(t, serrors.Join(nil, nil))
	assert.ErrorIs(t, serrors.Join(nil, cause), cause)
}

func TestListToError(t *testing.T) {
	assert.NoError(t, serrors.List{}.ToError())
	assert.Error(t, serrors.List{errors.New("x")}.ToError())
}

func TestMarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	err := serrors.Wrap("outer", errors.New("inner"), "port", 7)
	m, ok := err.(zapcore.ObjectMarshaler)
	assert.True(t, ok)
	assert.NoError(t, m.MarshalLogObject(enc))
	assert.Equal(t, "outer", enc.Fields["msg"])
	assert.Equal(t, "inner", enc.Fields["cause"])
	assert.EqualValues(t, 7, enc.Fields["port"])
}
