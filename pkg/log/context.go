// Copyright 2018 ETH Zurich
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

package log

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
)

type ctxKey struct{}

// CtxWith returns a copy of ctx carrying logger. It replaces any logger ctx
// already carries.
func CtxWith(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromCtx returns the logger carried by ctx, or the root logger. When ctx
// holds a jaeger span, the logger is labelled with its trace ID as debug_id.
// The result is never nil.
func FromCtx(ctx context.Context) Logger {
	if ctx == nil {
		return Root()
	}
	l, ok := ctx.Value(ctxKey{}).(Logger)
	if !ok {
		l = Root()
	}
	if traceID := spanTraceID(ctx); traceID != "" {
		return l.New("debug_id", traceID)
	}
	return l
}

// WithLabels adds labels to the logger of ctx and returns both the new
// context and the new logger.
func WithLabels(ctx context.Context, labels ...any) (context.Context, Logger) {
	l := FromCtx(ctx).New(labels...)
	return CtxWith(ctx, l), l
}

func spanTraceID(ctx context.Context) string {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	sc, ok := span.Context().(jaeger.SpanContext)
	if !ok {
		return ""
	}
	return sc.TraceID().String()
}
