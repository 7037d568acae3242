// Package model holds the domain types shared by the matcher, the
// admission policy and the session ledger.
package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownStatus   = errors.New("status must be active, inactive or suspended")
)

// Category is the class of person an identity belongs to.
type Category int

const (
	CategoryEmployee Category = iota + 1
	CategoryTransport
	CategoryProvider
)

func (c Category) String() string {
	switch c {
	case CategoryEmployee:
		return "employee"
	case CategoryTransport:
		return "transport"
	case CategoryProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// ParseCategory accepts the canonical names plus the labels used by the
// enrollment front-end ("Personal", "Transporte", "Chofer", "Proveedor").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee", "personal", "staff":
		return CategoryEmployee, nil
	case "transport", "transporte", "chofer", "driver":
		return CategoryTransport, nil
	case "provider", "proveedor":
		return CategoryProvider, nil
	default:
		return 0, ErrUnknownCategory
	}
}

// IdentityStatus is the administrative state of an identity.
type IdentityStatus string

const (
	StatusActive    IdentityStatus = "active"
	StatusInactive  IdentityStatus = "inactive"
	StatusSuspended IdentityStatus = "suspended"
)

// ParseIdentityStatus accepts the canonical names and the front-end
// labels. A blank value yields "" with no error so callers can tell
// "not given" apart from a real status.
func ParseIdentityStatus(s string) (IdentityStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "active", "activo":
		return StatusActive, nil
	case "inactive", "inactivo":
		return StatusInactive, nil
	case "suspended", "suspendido":
		return StatusSuspended, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Profile carries the category-specific admission terms of an identity.
// It is a closed set: EmployeeProfile or VisitorProfile.
type Profile interface {
	Category() Category
	isProfile()
}

// EmployeeProfile is a resident staff member working a recurring daily
// shift. Either bound may be unset.
type EmployeeProfile struct {
	WorkStart *ClockTime
	WorkEnd   *ClockTime
}

func (EmployeeProfile) Category() Category { return CategoryEmployee }
func (EmployeeProfile) isProfile()         {}

// VisitorProfile is a transport driver or external-provider staff member
// admitted for a specific scheduled visit rather than a daily shift.
type VisitorProfile struct {
	Kind           Category // CategoryTransport or CategoryProvider
	Company        string
	ScheduledEntry *time.Time
	ScheduledExit  *time.Time
	ActualEntry    *time.Time
	ActualExit     *time.Time
}

func (p VisitorProfile) Category() Category { return p.Kind }
func (VisitorProfile) isProfile()           {}

// Identity is an enrolled person. DNI is the natural key and is always
// stored normalised (see NormalizeDNI).
type Identity struct {
	DNI            string
	FullName       string
	Role           string
	Status         IdentityStatus
	ContractExpiry *time.Time
	Profile        Profile
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Category returns the category implied by the identity's profile, or 0
// when no profile is set.
func (i Identity) Category() Category {
	if i.Profile == nil {
		return 0
	}
	return i.Profile.Category()
}

// IsVisitor reports whether the identity is a transport or provider visitor.
func (i Identity) IsVisitor() bool {
	_, ok := i.Profile.(VisitorProfile)
	return ok
}

// NormalizeDNI trims and upper-cases a DNI so lookups are case-insensitive.
func NormalizeDNI(dni string) string {
	return strings.ToUpper(strings.TrimSpace(dni))
}

// GalleryEntry is one enrolled (identity, active signature) pair.
type GalleryEntry struct {
	Identity  Identity
	Signature Signature
}
