package types

// EnrollRequest creates or updates an identity. Clock times are "HH:MM",
// instants RFC 3339 and ContractExpiry "YYYY-MM-DD". Signature is optional
// on updates; when present it supersedes the active one.
type EnrollRequest struct {
	DNI            string    `json:"dni"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role,omitempty"`
	Category       string    `json:"category"`
	Status         string    `json:"status,omitempty"`
	Company        string    `json:"company,omitempty"`
	WorkStartTime  string    `json:"work_start_time,omitempty"`
	WorkEndTime    string    `json:"work_end_time,omitempty"`
	ScheduledEntry string    `json:"scheduled_entry,omitempty"`
	ScheduledExit  string    `json:"scheduled_exit,omitempty"`
	ContractExpiry string    `json:"contract_expiry,omitempty"`
	Signature      []float64 `json:"signature,omitempty"`
}

type IdentityView struct {
	DNI            string `json:"dni"`
	FullName       string `json:"full_name"`
	Role           string `json:"role,omitempty"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	Company        string `json:"company,omitempty"`
	WorkStartTime  string `json:"work_start_time,omitempty"`
	WorkEndTime    string `json:"work_end_time,omitempty"`
	ScheduledEntry string `json:"scheduled_entry,omitempty"`
	ScheduledExit  string `json:"scheduled_exit,omitempty"`
	ActualEntry    string `json:"actual_entry,omitempty"`
	ActualExit     string `json:"actual_exit,omitempty"`
	ContractExpiry string `json:"contract_expiry,omitempty"`
}

type IdentityList struct {
	Identities []IdentityView `json:"identities"`
}

// StatusRequest changes only the administrative status of an identity.
type StatusRequest struct {
	Status string `json:"status"`
}

type PassRequest struct {
	DNI        string `json:"dni"`
	ValidFrom  string `json:"valid_from"`
	ValidUntil string `json:"valid_until"`
	Reason     string `json:"reason,omitempty"`
	IssuedBy   string `json:"issued_by,omitempty"`
}

type PassView struct {
	ID         string `json:"id"`
	DNI        string `json:"dni"`
	ValidFrom  string `json:"valid_from"`
	ValidUntil string `json:"valid_until"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	IssuedBy   string `json:"issued_by,omitempty"`
	RevokedAt  string `json:"revoked_at,omitempty"`
}

type PassList struct {
	Passes []PassView `json:"passes"`
}
