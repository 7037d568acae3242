// Package policy decides whether an identified person may pass the gate
// at a given instant.
//
// Rules by category:
//
//	Employee  entry  [workStart - lead, workEnd]        deny unless a pass covers now
//	Employee  exit   [workEnd, workEnd + grace]         never denied, flagged when outside
//	Visitor   entry  [scheduledEntry, + visitGrace]     deny unless a pass covers now
//	Visitor   exit   unrestricted
//
// An identity without a configured schedule is always allowed. Shifts
// whose end is not after their start finish on the following day.
//
// Decide is a pure function of its inputs plus the PassLookup, which is
// only consulted when an entry falls outside its window.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

var (
	ErrNoProfile   = errors.New("identity has no category profile")
	ErrNegativeGap = errors.New("policy offsets must not be negative")
)

// Reason is a machine-readable verdict code.
type Reason string

const (
	ReasonInWindow            Reason = "in_window"
	ReasonNoSchedule          Reason = "no_schedule"
	ReasonUnrestrictedExit    Reason = "unrestricted_exit"
	ReasonOutOfWindowWithPass Reason = "out_of_window_with_pass"
	ReasonOutOfWindowNoPass   Reason = "out_of_window_no_pass"
	ReasonExitOutOfWindow     Reason = "exit_out_of_window"
)

// PassLookup answers whether an active override pass covers dni at the
// given instant. A nil pass with a nil error means none.
type PassLookup interface {
	FindActivePass(ctx context.Context, dni string, at time.Time) (*model.TemporaryPass, error)
}

// Config holds the window offsets. Zero values are replaced by defaults.
type Config struct {
	EntryLead  time.Duration // employees may enter this early
	ExitGrace  time.Duration // employees may leave this late without a flag
	VisitGrace time.Duration // visitors may arrive this late
}

func DefaultConfig() Config {
	return Config{
		EntryLead:  10 * time.Minute,
		ExitGrace:  30 * time.Minute,
		VisitGrace: 30 * time.Minute,
	}
}

// Verdict is the result of an admission decision.
type Verdict struct {
	Allowed  bool
	Reason   Reason
	Status   string
	Severity model.Severity
	Window   Window

	// Schedule echoes the configured terms for messages: the employee
	// shift bounds or the visitor's programmed entry time.
	WorkStart      *model.ClockTime
	WorkEnd        *model.ClockTime
	ProgrammedTime *time.Time

	Pass *model.TemporaryPass
}

// AllowedWindow renders the computed window for operator messages.
func (v Verdict) AllowedWindow() string { return v.Window.String() }

type Policy struct {
	entryLead  model.ClockTime
	exitGrace  model.ClockTime
	visitGrace time.Duration
}

func New(cfg Config) (*Policy, error) {
	def := DefaultConfig()
	if cfg.EntryLead == 0 {
		cfg.EntryLead = def.EntryLead
	}
	if cfg.ExitGrace == 0 {
		cfg.ExitGrace = def.ExitGrace
	}
	if cfg.VisitGrace == 0 {
		cfg.VisitGrace = def.VisitGrace
	}
	if cfg.EntryLead < 0 || cfg.ExitGrace < 0 || cfg.VisitGrace < 0 {
		return nil, ErrNegativeGap
	}
	return &Policy{
		entryLead:  model.ClockTime(cfg.EntryLead / time.Minute),
		exitGrace:  model.ClockTime(cfg.ExitGrace / time.Minute),
		visitGrace: cfg.VisitGrace.Truncate(time.Minute),
	}, nil
}

// Decide evaluates identity attempting action at now. now must already
// be in the facility's local time. Errors are returned only when the
// pass lookup fails or the identity has no profile; denials are verdicts.
func (p *Policy) Decide(ctx context.Context, identity model.Identity, action model.Action, now time.Time, passes PassLookup) (Verdict, error) {
	if action != model.ActionEntry && action != model.ActionExit {
		return Verdict{}, model.ErrUnknownAction
	}

	var v Verdict

	switch prof := identity.Profile.(type) {
	case model.EmployeeProfile:
		v = p.employee(prof, action, now)
	case model.VisitorProfile:
		v = p.visitor(prof, action, now)
	case nil:
		return Verdict{}, ErrNoProfile
	default:
		return Verdict{}, fmt.Errorf("unsupported profile %T", prof)
	}

	if v.Reason != ReasonOutOfWindowNoPass {
		return v, nil
	}

	if passes == nil {
		return v, nil
	}
	pass, err := passes.FindActivePass(ctx, identity.DNI, now)
	if err != nil {
		return Verdict{}, fmt.Errorf("find active pass: %w", err)
	}
	if pass != nil && pass.Covers(now) {
		v.Allowed = true
		v.Reason = ReasonOutOfWindowWithPass
		v.Status = model.OutcomeWithPass
		v.Severity = model.SeverityWarning
		v.Pass = pass
	}
	return v, nil
}

func (p *Policy) employee(prof model.EmployeeProfile, action model.Action, now time.Time) Verdict {
	v := Verdict{WorkStart: prof.WorkStart, WorkEnd: prof.WorkEnd}

	if action == model.ActionExit {
		if prof.WorkEnd == nil {
			return approve(v, ReasonNoSchedule)
		}
		end := *prof.WorkEnd
		if prof.WorkStart != nil {
			_, end = shiftBounds(*prof.WorkStart, end)
		}
		v.Window = dailyWindow(end, end+p.exitGrace)
		if v.Window.Contains(now) {
			return approve(v, ReasonInWindow)
		}
		v.Allowed = true
		v.Reason = ReasonExitOutOfWindow
		v.Status = model.OutcomeExitOutOfWindow
		v.Severity = model.SeverityWarning
		return v
	}

	if prof.WorkStart == nil || prof.WorkEnd == nil {
		return approve(v, ReasonNoSchedule)
	}
	start, end := shiftBounds(*prof.WorkStart, *prof.WorkEnd)
	v.Window = dailyWindow(start-p.entryLead, end)
	if v.Window.Contains(now) {
		return approve(v, ReasonInWindow)
	}
	return deny(v)
}

func (p *Policy) visitor(prof model.VisitorProfile, action model.Action, now time.Time) Verdict {
	v := Verdict{ProgrammedTime: prof.ScheduledEntry}

	if action == model.ActionExit {
		return approve(v, ReasonUnrestrictedExit)
	}

	if prof.ScheduledEntry == nil {
		return approve(v, ReasonNoSchedule)
	}
	from := prof.ScheduledEntry.In(now.Location()).Truncate(time.Minute)
	v.Window = visitWindow(from, from.Add(p.visitGrace))
	if v.Window.Contains(now) {
		return approve(v, ReasonInWindow)
	}
	return deny(v)
}

// shiftBounds returns the shift in unwrapped minutes: an end at or before
// the start belongs to the next day.
func shiftBounds(start, end model.ClockTime) (model.ClockTime, model.ClockTime) {
	if end <= start {
		end += model.MinutesPerDay
	}
	return start, end
}

func approve(v Verdict, reason Reason) Verdict {
	v.Allowed = true
	v.Reason = reason
	v.Status = model.OutcomeApproved
	v.Severity = model.SeveritySuccess
	return v
}

func deny(v Verdict) Verdict {
	v.Allowed = false
	v.Reason = ReasonOutOfWindowNoPass
	v.Status = model.OutcomeDenied
	v.Severity = model.SeverityCritical
	return v
}
