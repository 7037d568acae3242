package types

// Reason codes returned in Reason fields. Denials carry one of these;
// successful calls carry "matched" or a policy reason such as "in_window".
const (
	ReasonMatched             = "matched"
	ReasonNoFaceDetected      = "no_face_detected"
	ReasonNoMatch             = "no_match"
	ReasonIdentityInactive    = "identity_inactive"
	ReasonContractExpired     = "contract_expired"
	ReasonOutOfWindowNoPass   = "out_of_window_no_pass"
	ReasonOutOfWindowWithPass = "out_of_window_with_pass"
	ReasonExitWithoutEntry    = "exit_without_entry"
	ReasonSessionAlreadyOpen  = "session_already_open"
	ReasonUnknownTerminal     = "unknown_terminal"
)
