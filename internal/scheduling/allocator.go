package scheduling

import (
	"context"
	"fmt"
)

// TokenSource reports the highest token issued on a day, 0 when none.
type TokenSource interface {
	MaxToken(ctx context.Context, day Day) (int, error)
}

// NextToken returns max+1 for day. Callers must hold the day's lock (or run
// inside a transaction that does) between this read and the write that
// stores the token.
func NextToken(ctx context.Context, src TokenSource, day Day) (int, error) {
	current, err := src.MaxToken(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("scheduling: read max token: %w", err)
	}
	if current < 0 {
		current = 0
	}
	return current + 1, nil
}
