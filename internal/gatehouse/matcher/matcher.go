// Package matcher resolves a sample face signature to an enrolled identity.
//
// Matching is a linear nearest-neighbour scan over the gallery. Galleries
// hold hundreds of entries, so there is no index and no early exit. The
// nearest entry is accepted only when its distance is strictly below the
// threshold; ties keep the first entry encountered in gallery order.
//
// A Matcher is pure and safe for concurrent use.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

const DefaultThreshold = 0.6

var ErrInvalidThreshold = errors.New("threshold must be positive")

// Outcome classifies the result of identifying a sample.
type Outcome string

const (
	OutcomeMatched         Outcome = "matched"
	OutcomeNoMatch         Outcome = "no_match"
	OutcomeInactive        Outcome = "identity_inactive"
	OutcomeContractExpired Outcome = "contract_expired"
)

// Result is the outcome of Identify. Identity and Distance are populated
// whenever a nearest entry below the threshold was found, including for
// gated outcomes, so callers can log who was recognised.
type Result struct {
	Outcome  Outcome
	Identity *model.Identity
	Distance float64
}

// Matched reports whether the sample resolved to a usable identity.
func (r Result) Matched() bool { return r.Outcome == OutcomeMatched }

// Confidence is 1 - distance, clamped to [0, 1].
func (r Result) Confidence() float64 {
	if r.Identity == nil {
		return 0
	}
	return math.Max(0, math.Min(1, 1-r.Distance))
}

type Matcher struct {
	threshold float64
}

func New(threshold float64) (*Matcher, error) {
	if threshold <= 0 || math.IsNaN(threshold) {
		return nil, ErrInvalidThreshold
	}
	return &Matcher{threshold: threshold}, nil
}

func (m *Matcher) Threshold() float64 { return m.threshold }

// Nearest scans the whole gallery and returns the index and distance of
// the closest entry, or -1 for an empty gallery.
func (m *Matcher) Nearest(sample model.Signature, gallery []model.GalleryEntry) (int, float64, error) {
	best := -1
	bestDistance := math.Inf(1)
	for i, entry := range gallery {
		d, err := model.Distance(sample, entry.Signature)
		if err != nil {
			return -1, 0, fmt.Errorf("gallery entry %s: %w", entry.Identity.DNI, err)
		}
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	return best, bestDistance, nil
}

// Identify finds the nearest gallery entry and applies the identity
// gates. now is the caller's local time and is used only for the
// contract-expiry date comparison.
func (m *Matcher) Identify(sample model.Signature, gallery []model.GalleryEntry, now time.Time) (Result, error) {
	idx, distance, err := m.Nearest(sample, gallery)
	if err != nil {
		return Result{}, err
	}
	if idx < 0 || distance >= m.threshold {
		return Result{Outcome: OutcomeNoMatch}, nil
	}

	identity := gallery[idx].Identity
	return Result{
		Outcome:  Gate(identity, now),
		Identity: &identity,
		Distance: distance,
	}, nil
}

// Gate applies the identity-level checks that must pass before a
// recognised identity may be admitted.
func Gate(identity model.Identity, now time.Time) Outcome {
	if identity.Status != model.StatusActive {
		return OutcomeInactive
	}
	if identity.ContractExpiry != nil && contractExpired(*identity.ContractExpiry, now) {
		return OutcomeContractExpired
	}
	return OutcomeMatched
}

// contractExpired compares the expiry's calendar date, as recorded, with
// now's date. A contract expiring today is still valid.
func contractExpired(expiry, now time.Time) bool {
	ey, em, ed := expiry.Date()
	ny, nm, nd := now.Date()
	expiryDay := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return expiryDay.Before(today)
}
