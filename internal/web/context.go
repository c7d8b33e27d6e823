package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/web/middleware"
)

// withRequestMetadata records the client address for import history.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
}
