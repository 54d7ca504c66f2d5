package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithUserIDAndUserIDFromContext(t *testing.T) {
	id := uuid.New()
	ctx := WithUserID(context.Background(), id)

	got, ok := UserIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected user id to be present")
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestUserIDFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("expected missing user id to return false")
	}

	ctx = context.WithValue(ctx, userKey, "not-a-uuid")
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("expected non-uuid value to return false")
	}

	ctx = WithUserID(context.Background(), uuid.Nil)
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("expected nil user id to return false")
	}
}
