package service

import (
	"fmt"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/matcher"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/policy"
)

func identifyMessage(res matcher.Result) string {
	switch res.Outcome {
	case matcher.OutcomeMatched:
		return fmt.Sprintf("Identified %s", res.Identity.FullName)
	case matcher.OutcomeInactive:
		return fmt.Sprintf("%s is not active. Access denied.", res.Identity.FullName)
	case matcher.OutcomeContractExpired:
		return fmt.Sprintf("The contract of %s expired on %s. Access denied.",
			res.Identity.FullName, res.Identity.ContractExpiry.Format(contractDateLayout))
	default:
		return "Face not recognised. Please enroll or try again."
	}
}

func gateMessage(outcome matcher.Outcome, id model.Identity) string {
	return identifyMessage(matcher.Result{Outcome: outcome, Identity: &id})
}

// denialMessage explains an out-of-window entry with the schedule that
// applied and the window that was computed from it.
func denialMessage(v policy.Verdict, loc *time.Location) string {
	if v.ProgrammedTime != nil {
		return fmt.Sprintf("Entry outside the scheduled visit. Programmed time %s, allowed window %s. Request a temporary pass if access is needed.",
			v.ProgrammedTime.In(loc).Format("2006-01-02 15:04"), v.AllowedWindow())
	}
	return fmt.Sprintf("Entry outside working hours. Shift %s - %s, allowed window %s. Request a temporary pass if access is needed.",
		formatClockPtr(v.WorkStart), formatClockPtr(v.WorkEnd), v.AllowedWindow())
}

func recordedMessage(action model.Action, outcome string, at time.Time) string {
	verb := "Entry"
	if action == model.ActionExit {
		verb = "Exit"
	}
	if outcome == model.OutcomeApproved {
		return fmt.Sprintf("%s recorded at %s", verb, at.Format("15:04:05"))
	}
	return fmt.Sprintf("%s recorded - %s", verb, outcome)
}

const (
	msgNoFace           = "No face detected. Position the face in front of the camera."
	msgUnknownTerminal  = "This terminal is not commissioned."
	msgExitWithoutEntry = "Cannot record an exit without a prior entry. Record the entry first."
	msgAlreadyInside    = "An entry is already open for this person. Record the exit first."
)
