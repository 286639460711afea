// Package middleware carries the request-scoped concerns of the
// gateway: request-id propagation, environment validation, time
// format selection and panic recovery.
package middleware

import (
	"context"

	"datagate/internal/document"
)

type contextKey string

const (
	requestIDKey  contextKey = "requestID"
	timeFormatKey contextKey = "timeFormat"
)

// RequestIDFrom returns the request id bound to ctx, or empty.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRequestID binds a request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// TimeFormatFrom returns the requested audit time format, or the
// default.
func TimeFormatFrom(ctx context.Context) document.TimeFormat {
	if format, ok := ctx.Value(timeFormatKey).(document.TimeFormat); ok {
		return format
	}
	return document.DefaultTimeFormat
}

// WithTimeFormat binds a time format to ctx.
func WithTimeFormat(ctx context.Context, format document.TimeFormat) context.Context {
	return context.WithValue(ctx, timeFormatKey, format)
}
