package testutil

import (
	"context"
	"net/http"
	"time"

	authmw "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/auth"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// WithActor sets the acting operator and their roles, as RequireAuth does
// for an authenticated request.
func WithActor(req *http.Request, actor string, roles ...string) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actor)
	if len(roles) > 0 {
		ctx = authmw.WithRoles(ctx, roles...)
	}
	return req.WithContext(ctx)
}

// WithAdmin is WithActor with the admin role.
func WithAdmin(req *http.Request, actor string) *http.Request {
	return WithActor(req, actor, authmw.RoleAdmin)
}

// WithRequestTime pins requestcontext.Now for the request.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
