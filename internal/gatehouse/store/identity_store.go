package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

type IdentityStore interface {
	// FindGallery returns every identity with an active signature, in
	// enrollment order (then DNI). Inactive identities are included so
	// the matcher can report identity_inactive rather than no_match.
	FindGallery(ctx context.Context) ([]model.GalleryEntry, error)

	// FindIdentity returns nil, nil when dni is not enrolled.
	FindIdentity(ctx context.Context, dni string) (*model.Identity, error)

	// ListIdentities returns identities ordered by DNI. A zero category
	// lists every category.
	ListIdentities(ctx context.Context, category model.Category) ([]model.Identity, error)

	// SaveIdentity inserts or replaces the identity keyed by DNI.
	SaveIdentity(ctx context.Context, identity model.Identity) error

	// SetStatus changes only the administrative status of dni. Returns
	// ErrNotFound when the identity does not exist.
	SetStatus(ctx context.Context, dni string, status model.IdentityStatus, at time.Time) error

	// EnrollSignature makes sig the active signature of dni. Earlier
	// signatures are kept but deactivated. Returns ErrNotFound when the
	// identity does not exist.
	EnrollSignature(ctx context.Context, dni string, sig model.Signature, at time.Time) error

	// StampVisit records the actual entry or exit time of a visitor.
	StampVisit(ctx context.Context, dni string, action model.Action, at time.Time) error

	// ListScheduledExits returns active visitors whose scheduled exit lies
	// in [from, until].
	ListScheduledExits(ctx context.Context, from, until time.Time) ([]model.Identity, error)
}
