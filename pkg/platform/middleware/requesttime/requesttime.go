// Package requesttime pins a single "now" per request so audit timestamps and
// domain transitions within one request agree.
package requesttime

import (
	"net/http"
	"time"

	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
