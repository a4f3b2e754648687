package sentry

import (
	"net/http"

	"github.com/getsentry/sentry-go"
)

// HTTPMiddleware binds a request-scoped hub to the context and recovers
// panics. After a panic the fallback handler writes the response.
func HTTPMiddleware(fallback http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					hub.RecoverWithContext(ctx, err)
					fallback(w, r.WithContext(ctx))
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
