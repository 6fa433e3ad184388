// Package gatekeeper decides whether a contact form submission may be
// forwarded to the mail relay.
package gatekeeper

import (
	"time"

	"github.com/formguard/formguard/internal/core"
)

// Policy holds the tunable thresholds.
type Policy struct {
	MinFillTime    time.Duration
	MaxSubmissions int
	Window         time.Duration
}

// DefaultPolicy mirrors the thresholds the contact form shipped with.
var DefaultPolicy = Policy{
	MinFillTime:    3 * time.Second,
	MaxSubmissions: 3,
	Window:         time.Hour,
}

// Normalize fills zero values with defaults.
func (p Policy) Normalize() Policy {
	if p.MinFillTime <= 0 {
		p.MinFillTime = DefaultPolicy.MinFillTime
	}
	if p.MaxSubmissions <= 0 {
		p.MaxSubmissions = DefaultPolicy.MaxSubmissions
	}
	if p.Window <= 0 {
		p.Window = DefaultPolicy.Window
	}
	return p
}

// Gatekeeper runs the staged checks. It holds no per-call state.
type Gatekeeper struct {
	Policy Policy
}

// New returns a gatekeeper for policy.
func New(policy Policy) *Gatekeeper {
	return &Gatekeeper{Policy: policy.Normalize()}
}

// Evaluate runs every stage in order and stops at the first failure.
// The ledger is appended to when the rate-limit stage passes; the returned
// verdict reports that through LedgerChanged.
func (g *Gatekeeper) Evaluate(attempt core.SubmissionAttempt, ledger *core.Ledger, seed core.DecoySeed, now time.Time) core.Verdict {
	policy := g.policy()

	if attempt.Honeypot != "" {
		return core.Reject(core.StageHoneypot, core.ReasonGenericFailure, core.ClearBot)
	}

	if now.Sub(attempt.FormOpenedAt) < policy.MinFillTime {
		return core.Reject(core.StageTiming, core.ReasonTooFast, core.ClearNone)
	}

	if IsSpamContent(attempt.Name) || IsSpamContent(attempt.Message) {
		return core.Reject(core.StageContent, core.ReasonInvalidContent, core.ClearVisible)
	}

	if !ValidEmail(attempt.Email) {
		return core.Reject(core.StageEmail, core.ReasonInvalidEmail, core.ClearNone)
	}

	if !ValidPhone(attempt.Phone) {
		return core.Reject(core.StagePhone, core.ReasonInvalidPhone, core.ClearNone)
	}

	if ledger == nil {
		ledger = &core.Ledger{}
	}
	if !ledger.Admit(now, policy.Window, policy.MaxSubmissions) {
		return core.Reject(core.StageRateLimit, core.ReasonTooMany, core.ClearNone)
	}

	if !seed.Matches(attempt.DecoyA, attempt.DecoyB) {
		verdict := core.Reject(core.StageDecoy, core.ReasonGenericFailure, core.ClearAll)
		verdict.LedgerChanged = true
		return verdict
	}

	verdict := core.Accept()
	verdict.LedgerChanged = true
	return verdict
}

// Screen reports the heuristic signals for each field without touching a ledger.
func Screen(attempt core.SubmissionAttempt) Report {
	return Report{
		Name:    SpamSignals(attempt.Name),
		Message: SpamSignals(attempt.Message),
		Email:   EmailSignal(attempt.Email),
		Phone:   PhoneSignal(attempt.Phone),
	}
}

// Report is the per-field result of Screen.
type Report struct {
	Name    []string `json:"name"`
	Message []string `json:"message"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
}

// Clean reports whether no field tripped a rule.
func (r Report) Clean() bool {
	return len(r.Name) == 0 && len(r.Message) == 0 && r.Email == "" && r.Phone == ""
}

func (g *Gatekeeper) policy() Policy {
	if g == nil {
		return DefaultPolicy
	}
	return g.Policy.Normalize()
}
