package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/hbnb-api/internal/services"
)

type entitiesKey struct{}

// WithEntities binds the entity service a request should use to its context.
func WithEntities(ctx context.Context, svc services.EntityServiceProvider) context.Context {
	return context.WithValue(ctx, entitiesKey{}, svc)
}

// entities returns the service bound to r, or fallback when there is none.
func entities(r *http.Request, fallback services.EntityServiceProvider) services.EntityServiceProvider {
	if svc, ok := r.Context().Value(entitiesKey{}).(services.EntityServiceProvider); ok {
		return svc
	}
	return fallback
}
