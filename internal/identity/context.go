package identity

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const userKey ctxKey = "hospital.user_id"

// WithUserID stores the authenticated user id in context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserIDFromContext extracts the user id if present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(userKey)
	if val == nil {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
