package middleware

import (
	"context"
	"net/http"

	"github.com/aditya/go-dispatch/internal/models"
)

// Actor identity arrives from the upstream identity layer in trusted headers.
// The role is never read from request bodies.
const (
	ActorIDHeader   = "X-Actor-Id"
	ActorRoleHeader = "X-Actor-Role"
)

type actorCtxKey struct{}

// Actor is the verified caller of a request.
type Actor struct {
	ID   string
	Role string
}

// WithActor extracts the actor headers into the request context. Requests
// without them pass through; handlers that need an actor reject those.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ActorIDHeader)
		role := r.Header.Get(ActorRoleHeader)
		if id != "" {
			ctx := context.WithValue(r.Context(), actorCtxKey{}, &Actor{ID: id, Role: role})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFrom returns the request actor, or nil when none was supplied.
func ActorFrom(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorCtxKey{}).(*Actor)
	return actor
}

// RiderFrom returns the actor if it is a rider.
func RiderFrom(ctx context.Context) *Actor {
	if actor := ActorFrom(ctx); actor != nil && actor.Role == models.RoleRider {
		return actor
	}
	return nil
}

// DriverFrom returns the actor if it is a driver.
func DriverFrom(ctx context.Context) *Actor {
	if actor := ActorFrom(ctx); actor != nil && actor.Role == models.RoleDriver {
		return actor
	}
	return nil
}
