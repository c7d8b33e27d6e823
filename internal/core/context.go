package core

import "context"

type contextKey string

const ctxKeyIPAddress contextKey = "import_ip"

// ContextWithIPAddress records the caller's address for import history.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// IPAddressFromContext extracts the address set by ContextWithIPAddress.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
