package service

import (
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

const contractDateLayout = "2006-01-02"

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return formatTime(*t, loc)
}

func formatClockPtr(c *model.ClockTime) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func serverTime(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

func sessionView(s model.Session, loc *time.Location) *types.SessionView {
	v := &types.SessionView{
		ID:         s.ID,
		DNI:        s.DNI,
		FullName:   s.FullName,
		Role:       s.Role,
		TerminalID: s.Terminal,
		EntryTime:  formatTime(s.EntryTime, loc),
		ExitTime:   formatTimePtr(s.ExitTime, loc),
		Status:     s.Outcome,
		Severity:   string(s.Severity),
	}
	if s.Category != 0 {
		v.Category = s.Category.String()
	}
	return v
}

func identityView(id model.Identity, loc *time.Location) types.IdentityView {
	v := types.IdentityView{
		DNI:      id.DNI,
		FullName: id.FullName,
		Role:     id.Role,
		Category: id.Category().String(),
		Status:   string(id.Status),
	}
	if id.ContractExpiry != nil {
		v.ContractExpiry = id.ContractExpiry.Format(contractDateLayout)
	}
	switch p := id.Profile.(type) {
	case model.EmployeeProfile:
		v.WorkStartTime = formatClockPtr(p.WorkStart)
		v.WorkEndTime = formatClockPtr(p.WorkEnd)
	case model.VisitorProfile:
		v.Company = p.Company
		v.ScheduledEntry = formatTimePtr(p.ScheduledEntry, loc)
		v.ScheduledExit = formatTimePtr(p.ScheduledExit, loc)
		v.ActualEntry = formatTimePtr(p.ActualEntry, loc)
		v.ActualExit = formatTimePtr(p.ActualExit, loc)
	}
	return v
}

func passView(p model.TemporaryPass, loc *time.Location) types.PassView {
	return types.PassView{
		ID:         p.ID,
		DNI:        p.DNI,
		ValidFrom:  formatTime(p.ValidFrom, loc),
		ValidUntil: formatTime(p.ValidUntil, loc),
		Status:     string(p.Status),
		Reason:     p.Reason,
		IssuedBy:   p.IssuedBy,
		RevokedAt:  formatTimePtr(p.RevokedAt, loc),
	}
}

func companyOf(id model.Identity) string {
	if p, ok := id.Profile.(model.VisitorProfile); ok {
		return p.Company
	}
	return ""
}
