package types

// IdentifyRequest carries a sample signature from the capture terminal. An
// empty signature means the extractor found no face in the frame.
type IdentifyRequest struct {
	Signature  []float64 `json:"signature"`
	TerminalID string    `json:"terminal_id,omitempty"`
}

type IdentifyResponse struct {
	Authorized bool     `json:"authorized"`
	Reason     string   `json:"reason"`
	Message    string   `json:"message,omitempty"`
	DNI        string   `json:"dni,omitempty"`
	FullName   string   `json:"full_name,omitempty"`
	Role       string   `json:"role,omitempty"`
	Category   string   `json:"category,omitempty"`
	Company    string   `json:"company,omitempty"`
	Distance   *float64 `json:"distance,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	ServerTime string   `json:"server_time"`
}

// AccessRequest records an operator-confirmed entry or exit.
type AccessRequest struct {
	DNI        string `json:"dni"`
	FullName   string `json:"full_name,omitempty"`
	Role       string `json:"role,omitempty"`
	Action     string `json:"action"`
	Category   string `json:"category,omitempty"`
	TerminalID string `json:"terminal_id,omitempty"`
}

// AccessResponse is the result of recording an action. When Success is
// false Reason says why, and for out-of-window denials the window and
// schedule fields let the operator see what was expected.
type AccessResponse struct {
	Success        bool         `json:"success"`
	Status         string       `json:"status,omitempty"`
	Severity       string       `json:"severity,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Message        string       `json:"message"`
	AllowedWindow  string       `json:"allowed_window,omitempty"`
	WorkStartTime  string       `json:"work_start_time,omitempty"`
	WorkEndTime    string       `json:"work_end_time,omitempty"`
	ProgrammedTime string       `json:"programmed_time,omitempty"`
	Session        *SessionView `json:"session,omitempty"`
	ServerTime     string       `json:"server_time"`
}

type SessionView struct {
	ID         string `json:"id"`
	DNI        string `json:"dni"`
	FullName   string `json:"full_name"`
	Role       string `json:"role,omitempty"`
	Category   string `json:"category,omitempty"`
	TerminalID string `json:"terminal_id,omitempty"`
	EntryTime  string `json:"entry_time"`
	ExitTime   string `json:"exit_time,omitempty"`
	Status     string `json:"status"`
	Severity   string `json:"severity"`
}

// SessionQuery filters the session log. Date is a local calendar day
// (YYYY-MM-DD).
type SessionQuery struct {
	DNI   string
	Date  string
	Limit int
}

type SessionList struct {
	Sessions []SessionView `json:"sessions"`
}

type ExitAlert struct {
	DNI              string `json:"dni"`
	FullName         string `json:"full_name"`
	Category         string `json:"category"`
	Company          string `json:"company,omitempty"`
	ScheduledExit    string `json:"scheduled_exit"`
	MinutesRemaining int    `json:"minutes_remaining"`
}

type ExitAlertList struct {
	Alerts []ExitAlert `json:"alerts"`
}
