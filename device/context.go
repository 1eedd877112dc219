// Package device resolves a stable anonymous device identity per request.
package device

import "context"

type ctxKey int

const deviceKey ctxKey = iota

// WithID stores a device id in a context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceKey, id)
}

// IDFromContext returns the device id from a context.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceKey).(string)
	return id, ok && id != ""
}
