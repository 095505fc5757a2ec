// Copyright 2016 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package serrors builds errors that carry key/value context for structured
// logging. Context keys are sorted so the rendered message is stable.
//
// Every error returned by this package is a pointer, so errors.Is(err, err)
// holds. Wrapped causes and joined base errors are reachable through
// errors.Is and errors.As.
package serrors

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type field struct {
	key string
	val any
}

// fields is a list of context pairs sorted by key.
type fields []field

func newFields(kv []any) fields {
	fs := make(fields, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fs = append(fs, field{key: fmt.Sprint(kv[i]), val: kv[i+1]})
	}
	slices.SortStableFunc(fs, func(a, b field) int { return strings.Compare(a.key, b.key) })
	return fs
}

func (fs fields) writeTo(b *strings.Builder) {
	if len(fs) == 0 {
		return
	}
	b.WriteString(" {")
	for i, f := range fs {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s=%v", f.key, f.val)
	}
	b.WriteByte('}')
}

// ctxError is an error with a head, optional context and an optional cause.
// The head is either msg or the base error.
type ctxError struct {
	msg    string
	base   error
	cause  error
	fields fields
}

func (e *ctxError) head() string {
	if e.base != nil {
		return e.base.Error()
	}
	return e.msg
}

func (e *ctxError) Error() string {
	var b strings.Builder
	b.WriteString(e.head())
	e.fields.writeTo(&b)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ctxError) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.base, e.cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// MarshalLogObject renders the error as a structured log object.
func (e *ctxError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.head())
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	for _, f := range e.fields {
		zap.Any(f.key, f.val).AddTo(enc)
	}
	return nil
}

// New returns an error with msg and the key/value context kv. Sentinel
// errors should use errors.New instead.
func New(msg string, kv ...any) error {
	return &ctxError{msg: msg, fields: newFields(kv)}
}

// Wrap returns an error with msg and context kv that wraps cause.
func Wrap(msg string, cause error, kv ...any) error {
	return &ctxError{msg: msg, cause: cause, fields: newFields(kv)}
}

// Join attaches context kv and an optional cause to base, typically a
// sentinel error. Both base and cause satisfy errors.Is on the result. Join
// returns nil if both are nil.
func Join(base, cause error, kv ...any) error {
	switch {
	case base == nil && cause == nil:
		return nil
	case base == nil:
		return Wrap("error", cause, kv...)
	}
	return &ctxError{base: base, cause: cause, fields: newFields(kv)}
}

// IsTimeout reports whether the first error in the chain of err that knows
// about timeouts is one.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// List collects independent errors, for example from validating several
// items.
type List []error

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return "[ " + strings.Join(msgs, "; ") + " ]"
}

// ToError returns nil for an empty list and the list otherwise.
func (l List) ToError() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// MarshalLogArray renders every error of the list, structured if possible.
func (l List) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, err := range l {
		m, ok := err.(zapcore.ObjectMarshaler)
		if !ok {
			enc.AppendString(err.Error())
			continue
		}
		if err := enc.AppendObject(m); err != nil {
			return err
		}
	}
	return nil
}
