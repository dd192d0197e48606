// Package session keeps one InputState per form session. Sessions expire
// after an idle TTL; the clock is injectable so tests can freeze time.
package session

import (
	"context"
	"errors"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Store persists InputState per session ID.
type Store interface {
	Create(ctx context.Context, state domain.InputState) (string, error)
	Get(ctx context.Context, id string) (domain.InputState, error)
	Put(ctx context.Context, id string, state domain.InputState) error
	Delete(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

func newID() string {
	return uuid.NewString()
}
