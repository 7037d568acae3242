package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/matcher"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

const (
	DefaultSessionLimit = 50
	MaxSessionLimit     = 500

	eventIdentify = "identify"
)

// GateConfig wires the pure decision components and the clock into a
// GateService. Location is the facility's local time zone; every "now"
// is converted to it before windows are evaluated.
type GateConfig struct {
	Matcher         *matcher.Matcher
	Policy          *policy.Policy
	SignatureLength int
	Location        *time.Location
	Now             func() time.Time
	Logger          *slog.Logger
}

// GateService exposes identify and recordAction: match, then admit, then
// commit to the ledger.
type GateService struct {
	identities store.IdentityStore
	passes     store.PassStore
	sessions   store.SessionStore
	events     store.AccessEventStore
	registry   *TerminalRegistry
	ledger     *Ledger

	matcher *matcher.Matcher
	policy  *policy.Policy
	sigLen  int
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func NewGateService(st store.Stores, reg *TerminalRegistry, cfg GateConfig) (*GateService, error) {
	if cfg.Matcher == nil {
		m, err := matcher.New(matcher.DefaultThreshold)
		if err != nil {
			return nil, err
		}
		cfg.Matcher = m
	}
	if cfg.Policy == nil {
		p, err := policy.New(policy.DefaultConfig())
		if err != nil {
			return nil, err
		}
		cfg.Policy = p
	}
	if cfg.SignatureLength <= 0 {
		cfg.SignatureLength = model.DefaultSignatureLength
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if reg == nil {
		reg = NewTerminalRegistry(st.Terminals, false, WithClock(cfg.Now))
	}

	return &GateService{
		identities: st.Identities,
		passes:     st.Passes,
		sessions:   st.Sessions,
		events:     st.Events,
		registry:   reg,
		ledger:     NewLedger(st.Sessions, st.Identities, cfg.Logger),
		matcher:    cfg.Matcher,
		policy:     cfg.Policy,
		sigLen:     cfg.SignatureLength,
		loc:        cfg.Location,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}, nil
}

func (s *GateService) localNow() time.Time {
	return s.now().In(s.loc)
}

// Identify resolves a sample signature to an enrolled identity. Match
// failures are answered with Authorized=false and a reason; only
// malformed input and store failures are errors.
func (s *GateService) Identify(ctx context.Context, req types.IdentifyRequest) (types.IdentifyResponse, error) {
	now := s.localNow()
	terminalID := strings.TrimSpace(req.TerminalID)

	resp := types.IdentifyResponse{ServerTime: serverTime(now)}
	event := store.AccessEventRecord{
		Action:     eventIdentify,
		TerminalID: terminalID,
		DecidedAt:  now.UTC(),
	}

	admitted, err := s.registry.Admit(ctx, terminalID)
	if err != nil {
		return types.IdentifyResponse{}, err
	}
	if !admitted {
		resp.Reason = types.ReasonUnknownTerminal
		resp.Message = msgUnknownTerminal
		event.Reason = resp.Reason
		s.recordEvent(ctx, event)
		return resp, nil
	}

	if len(req.Signature) == 0 {
		resp.Reason = types.ReasonNoFaceDetected
		resp.Message = msgNoFace
		event.Reason = resp.Reason
		s.recordEvent(ctx, event)
		return resp, nil
	}

	sample := model.Signature(req.Signature)
	if err := sample.Validate(s.sigLen); err != nil {
		return types.IdentifyResponse{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	gallery, err := s.identities.FindGallery(ctx)
	if err != nil {
		return types.IdentifyResponse{}, unavailable("load gallery", err)
	}

	res, err := s.matcher.Identify(sample, gallery, now)
	if err != nil {
		return types.IdentifyResponse{}, fmt.Errorf("identify: %w", err)
	}

	resp.Authorized = res.Matched()
	resp.Reason = string(res.Outcome)
	resp.Message = identifyMessage(res)
	event.Granted = resp.Authorized
	event.Reason = resp.Reason

	if res.Identity != nil {
		id := res.Identity
		distance := res.Distance
		confidence := res.Confidence()

		resp.DNI = id.DNI
		resp.FullName = id.FullName
		resp.Role = id.Role
		resp.Category = id.Category().String()
		resp.Company = companyOf(*id)
		resp.Distance = &distance
		resp.Confidence = &confidence

		event.DNI = id.DNI
		event.Distance = &distance
	}

	s.recordEvent(ctx, event)
	return resp, nil
}

// RecordAction commits an operator-confirmed entry or exit. Denials come
// back as responses with Success=false and a reason code; errors are
// reserved for invalid input, unknown identities and store failures.
func (s *GateService) RecordAction(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	now := s.localNow()

	dni := model.NormalizeDNI(req.DNI)
	if dni == "" {
		return types.AccessResponse{}, ErrInvalidDNI
	}
	action, err := model.ParseAction(req.Action)
	if err != nil {
		return types.AccessResponse{}, err
	}
	terminalID := strings.TrimSpace(req.TerminalID)

	event := store.AccessEventRecord{
		DNI:        dni,
		Action:     string(action),
		TerminalID: terminalID,
		DecidedAt:  now.UTC(),
	}
	deny := func(resp types.AccessResponse) (types.AccessResponse, error) {
		resp.Success = false
		resp.ServerTime = serverTime(now)
		event.Reason = resp.Reason
		s.recordEvent(ctx, event)
		return resp, nil
	}

	admitted, err := s.registry.Admit(ctx, terminalID)
	if err != nil {
		return types.AccessResponse{}, err
	}
	if !admitted {
		return deny(types.AccessResponse{Reason: types.ReasonUnknownTerminal, Message: msgUnknownTerminal})
	}

	identity, err := s.identities.FindIdentity(ctx, dni)
	if err != nil {
		return types.AccessResponse{}, unavailable("find identity", err)
	}
	if identity == nil {
		return types.AccessResponse{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, dni)
	}
	fillFromRequest(identity, req)

	if outcome := matcher.Gate(*identity, now); outcome != matcher.OutcomeMatched {
		return deny(types.AccessResponse{
			Reason:  string(outcome),
			Message: gateMessage(outcome, *identity),
		})
	}

	verdict, err := s.policy.Decide(ctx, *identity, action, now, s.passes)
	if err != nil {
		if errors.Is(err, policy.ErrNoProfile) {
			return types.AccessResponse{}, fmt.Errorf("%w: %s has no category", ErrInvalidIdentity, dni)
		}
		return types.AccessResponse{}, unavailable("evaluate policy", err)
	}

	if !verdict.Allowed {
		resp := verdictResponse(verdict, s.loc)
		resp.Reason = types.ReasonOutOfWindowNoPass
		resp.Message = denialMessage(verdict, s.loc)
		return deny(resp)
	}

	var sess model.Session
	switch action {
	case model.ActionEntry:
		sess, err = s.ledger.Entry(ctx, *identity, terminalID, verdict, now)
	case model.ActionExit:
		sess, err = s.ledger.Exit(ctx, *identity, verdict, now)
	}
	switch {
	case errors.Is(err, ErrSessionAlreadyOpen):
		resp := types.AccessResponse{Reason: types.ReasonSessionAlreadyOpen, Message: msgAlreadyInside}
		if sess.ID != "" {
			resp.Session = sessionView(sess, s.loc)
		}
		return deny(resp)
	case errors.Is(err, ErrExitWithoutEntry):
		return deny(types.AccessResponse{Reason: types.ReasonExitWithoutEntry, Message: msgExitWithoutEntry})
	case err != nil:
		return types.AccessResponse{}, err
	}

	resp := verdictResponse(verdict, s.loc)
	resp.Success = true
	resp.Status = sess.Outcome
	resp.Severity = string(sess.Severity)
	resp.Reason = string(verdict.Reason)
	resp.Message = recordedMessage(action, sess.Outcome, now)
	resp.Session = sessionView(sess, s.loc)
	resp.ServerTime = serverTime(now)

	event.Granted = true
	event.Reason = resp.Reason
	s.recordEvent(ctx, event)

	s.logger.Info("access recorded",
		"dni", dni,
		"action", string(action),
		"status", sess.Outcome,
		"terminal", terminalID,
	)
	return resp, nil
}

// ListSessions returns the session log, newest entry first.
func (s *GateService) ListSessions(ctx context.Context, q types.SessionQuery) (types.SessionList, error) {
	f := store.SessionFilter{DNI: model.NormalizeDNI(q.DNI), Limit: q.Limit}

	switch {
	case f.Limit < 0:
		return types.SessionList{}, invalid(ErrInvalidQuery, "limit must not be negative")
	case f.Limit == 0:
		f.Limit = DefaultSessionLimit
	case f.Limit > MaxSessionLimit:
		f.Limit = MaxSessionLimit
	}

	if date := strings.TrimSpace(q.Date); date != "" {
		day, err := time.ParseInLocation(contractDateLayout, date, s.loc)
		if err != nil {
			return types.SessionList{}, invalid(ErrInvalidQuery, "date must be YYYY-MM-DD")
		}
		f.From = day
		f.Until = day.AddDate(0, 0, 1)
	}

	sessions, err := s.sessions.ListSessions(ctx, f)
	if err != nil {
		return types.SessionList{}, unavailable("list sessions", err)
	}

	out := types.SessionList{Sessions: make([]types.SessionView, 0, len(sessions))}
	for _, sess := range sessions {
		out.Sessions = append(out.Sessions, *sessionView(sess, s.loc))
	}
	return out, nil
}

// recordEvent appends the decision to the audit log. A failed write is
// logged and never changes the decision already made.
func (s *GateService) recordEvent(ctx context.Context, rec store.AccessEventRecord) {
	if err := s.events.RecordEvent(ctx, rec); err != nil {
		s.logger.Warn("record access event failed",
			"action", rec.Action,
			"dni", rec.DNI,
			"reason", rec.Reason,
			"err", err,
		)
	}
}

func verdictResponse(v policy.Verdict, loc *time.Location) types.AccessResponse {
	resp := types.AccessResponse{
		Status:        v.Status,
		Severity:      string(v.Severity),
		AllowedWindow: v.AllowedWindow(),
		WorkStartTime: formatClockPtr(v.WorkStart),
		WorkEndTime:   formatClockPtr(v.WorkEnd),
	}
	if v.ProgrammedTime != nil {
		resp.ProgrammedTime = formatTime(*v.ProgrammedTime, loc)
	}
	return resp
}

// fillFromRequest uses the operator-supplied name and role only where
// the stored identity has none.
func fillFromRequest(id *model.Identity, req types.AccessRequest) {
	if id.FullName == "" {
		id.FullName = strings.TrimSpace(req.FullName)
	}
	if id.Role == "" {
		id.Role = strings.TrimSpace(req.Role)
	}
}
