package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

// EnrollmentService creates and updates identities and their face
// signatures.
type EnrollmentService struct {
	identities store.IdentityStore
	sigLen     int
	loc        *time.Location
	now        func() time.Time
}

func NewEnrollmentService(identities store.IdentityStore, signatureLength int, loc *time.Location, opts ...Option) *EnrollmentService {
	if signatureLength <= 0 {
		signatureLength = model.DefaultSignatureLength
	}
	if loc == nil {
		loc = time.Local
	}
	return &EnrollmentService{identities: identities, sigLen: signatureLength, loc: loc, now: buildOptions(opts).now}
}

// Enroll upserts the identity keyed by DNI. A new identity needs a
// signature; on updates a signature is optional and, when given,
// supersedes the active one. A blank status keeps the stored one on
// updates and means active for new identities.
func (s *EnrollmentService) Enroll(ctx context.Context, req types.EnrollRequest) (types.IdentityView, error) {
	identity, err := s.buildIdentity(req)
	if err != nil {
		return types.IdentityView{}, err
	}

	var sig model.Signature
	if len(req.Signature) > 0 {
		sig = model.Signature(req.Signature)
		if err := sig.Validate(s.sigLen); err != nil {
			return types.IdentityView{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
	}

	existing, err := s.identities.FindIdentity(ctx, identity.DNI)
	if err != nil {
		return types.IdentityView{}, unavailable("find identity", err)
	}
	if existing == nil && sig == nil {
		return types.IdentityView{}, invalid(ErrInvalidSignature, "a signature is required to enroll a new identity")
	}
	if existing != nil {
		keepVisitStamps(&identity, *existing)
		if identity.Status == "" {
			identity.Status = existing.Status
		}
	}
	if identity.Status == "" {
		identity.Status = model.StatusActive
	}

	now := s.now().UTC()
	identity.UpdatedAt = now
	if existing == nil {
		identity.CreatedAt = now
	}

	if err := s.identities.SaveIdentity(ctx, identity); err != nil {
		return types.IdentityView{}, unavailable("save identity", err)
	}
	if sig != nil {
		if err := s.identities.EnrollSignature(ctx, identity.DNI, sig, now); err != nil {
			return types.IdentityView{}, unavailable("enroll signature", err)
		}
	}
	return identityView(identity, s.loc), nil
}

func (s *EnrollmentService) Get(ctx context.Context, dni string) (types.IdentityView, error) {
	dni = model.NormalizeDNI(dni)
	if dni == "" {
		return types.IdentityView{}, ErrInvalidDNI
	}
	identity, err := s.identities.FindIdentity(ctx, dni)
	if err != nil {
		return types.IdentityView{}, unavailable("find identity", err)
	}
	if identity == nil {
		return types.IdentityView{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, dni)
	}
	return identityView(*identity, s.loc), nil
}

// List returns enrolled identities ordered by DNI, optionally limited to
// one category.
func (s *EnrollmentService) List(ctx context.Context, category string) (types.IdentityList, error) {
	var cat model.Category
	if strings.TrimSpace(category) != "" {
		c, err := model.ParseCategory(category)
		if err != nil {
			return types.IdentityList{}, invalid(ErrInvalidQuery, "category %q: %v", category, err)
		}
		cat = c
	}
	ids, err := s.identities.ListIdentities(ctx, cat)
	if err != nil {
		return types.IdentityList{}, unavailable("list identities", err)
	}
	out := types.IdentityList{Identities: make([]types.IdentityView, 0, len(ids))}
	for _, id := range ids {
		out.Identities = append(out.Identities, identityView(id, s.loc))
	}
	return out, nil
}

// SetStatus activates, deactivates or suspends dni without touching the
// rest of its record.
func (s *EnrollmentService) SetStatus(ctx context.Context, dni string, req types.StatusRequest) (types.IdentityView, error) {
	dni = model.NormalizeDNI(dni)
	if dni == "" {
		return types.IdentityView{}, ErrInvalidDNI
	}
	status, err := model.ParseIdentityStatus(req.Status)
	if err != nil {
		return types.IdentityView{}, invalid(ErrInvalidIdentity, "status %q: %v", req.Status, err)
	}
	if status == "" {
		return types.IdentityView{}, invalid(ErrInvalidIdentity, "status is required")
	}

	err = s.identities.SetStatus(ctx, dni, status, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return types.IdentityView{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, dni)
	}
	if err != nil {
		return types.IdentityView{}, unavailable("set status", err)
	}
	return s.Get(ctx, dni)
}

func (s *EnrollmentService) buildIdentity(req types.EnrollRequest) (model.Identity, error) {
	identity := model.Identity{
		DNI:      model.NormalizeDNI(req.DNI),
		FullName: strings.TrimSpace(req.FullName),
		Role:     strings.TrimSpace(req.Role),
	}
	if identity.DNI == "" {
		return model.Identity{}, ErrInvalidDNI
	}
	status, err := model.ParseIdentityStatus(req.Status)
	if err != nil {
		return model.Identity{}, invalid(ErrInvalidIdentity, "status %q: %v", req.Status, err)
	}
	identity.Status = status
	if identity.FullName == "" {
		return model.Identity{}, invalid(ErrInvalidIdentity, "full_name is required")
	}

	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return model.Identity{}, invalid(ErrInvalidIdentity, "category %q: %v", req.Category, err)
	}

	if v := strings.TrimSpace(req.ContractExpiry); v != "" {
		d, err := time.Parse(contractDateLayout, v)
		if err != nil {
			return model.Identity{}, invalid(ErrInvalidIdentity, "contract_expiry must be YYYY-MM-DD")
		}
		identity.ContractExpiry = &d
	}

	if category == model.CategoryEmployee {
		var prof model.EmployeeProfile
		if prof.WorkStart, err = optionalClock(req.WorkStartTime); err != nil {
			return model.Identity{}, invalid(ErrInvalidIdentity, "work_start_time: %v", err)
		}
		if prof.WorkEnd, err = optionalClock(req.WorkEndTime); err != nil {
			return model.Identity{}, invalid(ErrInvalidIdentity, "work_end_time: %v", err)
		}
		identity.Profile = prof
		return identity, nil
	}

	prof := model.VisitorProfile{Kind: category, Company: strings.TrimSpace(req.Company)}
	if prof.ScheduledEntry, err = s.optionalInstant(req.ScheduledEntry); err != nil {
		return model.Identity{}, invalid(ErrInvalidIdentity, "scheduled_entry: %v", err)
	}
	if prof.ScheduledExit, err = s.optionalInstant(req.ScheduledExit); err != nil {
		return model.Identity{}, invalid(ErrInvalidIdentity, "scheduled_exit: %v", err)
	}
	identity.Profile = prof
	return identity, nil
}

func (s *EnrollmentService) optionalInstant(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := parseInstant(v, s.loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalClock(v string) (*model.ClockTime, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	c, err := model.ParseClockTime(v)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// keepVisitStamps carries actual entry/exit stamps across an edit so an
// administrative update does not erase an ongoing visit.
func keepVisitStamps(dst *model.Identity, prev model.Identity) {
	next, ok := dst.Profile.(model.VisitorProfile)
	if !ok {
		return
	}
	old, ok := prev.Profile.(model.VisitorProfile)
	if !ok {
		return
	}
	next.ActualEntry = old.ActualEntry
	next.ActualExit = old.ActualExit
	dst.Profile = next
}
