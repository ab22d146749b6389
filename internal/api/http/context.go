package http

import (
	"context"
	"errors"
)

type userIDKey struct{}

var errNoUser = errors.New("user_id is not provided in request context")

// WithUserID binds the authenticated caller to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserIDFromContext returns the caller set by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	if !ok || userID == "" {
		return "", errNoUser
	}
	return userID, nil
}
