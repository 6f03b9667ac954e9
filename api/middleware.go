package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type ctxKey int

const actorKey ctxKey = iota

// WithActor stores the caller in ctx.
func WithActor(ctx context.Context, actor generic.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func actorFrom(ctx context.Context) generic.Actor {
	actor, _ := ctx.Value(actorKey).(generic.Actor)
	return actor
}

// RequireActor resolves the caller from the identity headers. A missing
// user or an unknown role is refused with 401. The role defaults to
// employee.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+HeaderUserID+" header", nil)
			return
		}

		role := generic.RoleEmployee
		if raw := strings.TrimSpace(r.Header.Get(HeaderUserRole)); raw != "" {
			parsed, err := generic.ParseRole(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unknown role", err)
				return
			}
			role = parsed
		}

		ctx := WithActor(r.Context(), generic.Actor{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				entry := log.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
				})
				if ww.Status() >= http.StatusInternalServerError {
					entry.Warn("request completed")
					return
				}
				entry.Info("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
