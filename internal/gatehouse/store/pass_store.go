package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

type PassStore interface {
	// FindActivePass returns an active pass for dni covering at, or nil.
	FindActivePass(ctx context.Context, dni string, at time.Time) (*model.TemporaryPass, error)

	CreatePass(ctx context.Context, pass model.TemporaryPass) error

	// GetPass returns ErrNotFound for an unknown id.
	GetPass(ctx context.Context, id string) (*model.TemporaryPass, error)

	// RevokePass marks an active pass revoked. Passes that are already
	// revoked or expired are left untouched.
	RevokePass(ctx context.Context, id string, at time.Time) error

	// ListPasses returns the passes of dni, newest first. An empty dni
	// lists every pass.
	ListPasses(ctx context.Context, dni string) ([]model.TemporaryPass, error)

	// ExpirePasses marks active passes whose validity ended before now as
	// expired and returns how many changed.
	ExpirePasses(ctx context.Context, now time.Time) (int64, error)
}
