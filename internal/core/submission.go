package core

import "time"

// SubmissionAttempt is one contact form submission as it reaches the gatekeeper.
type SubmissionAttempt struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Message      string    `json:"message"`
	Honeypot     string    `json:"website_url"`
	DecoyA       string    `json:"decoy_a"`
	DecoyB       string    `json:"decoy_b"`
	FormOpenedAt time.Time `json:"form_opened_at"`
}

// Visible returns the four fields that are forwarded to the mail relay.
func (a SubmissionAttempt) Visible() ContactMessage {
	return ContactMessage{
		Name:    a.Name,
		Email:   a.Email,
		Phone:   a.Phone,
		Message: a.Message,
	}
}

// ContactMessage is the payload accepted by the mail relay.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// DecoySeed holds the values the hidden pre-filled fields must keep.
type DecoySeed struct {
	A string `json:"decoy_a"`
	B string `json:"decoy_b"`
}

// Matches reports whether both decoy values are untouched.
func (s DecoySeed) Matches(a, b string) bool {
	return a == s.A && b == s.B
}

// VerdictKind is the gatekeeper outcome class.
type VerdictKind string

const (
	VerdictAccept            VerdictKind = "accept"
	VerdictRejectWithMessage VerdictKind = "reject"
)

// Stage identifies a gatekeeper check.
type Stage string

const (
	StageHoneypot  Stage = "honeypot"
	StageTiming    Stage = "timing"
	StageContent   Stage = "content"
	StageEmail     Stage = "email"
	StagePhone     Stage = "phone"
	StageRateLimit Stage = "rate_limit"
	StageDecoy     Stage = "decoy"
)

// ClearPolicy says which form fields the caller must reset after a verdict.
type ClearPolicy int

const (
	// ClearNone keeps everything the user typed.
	ClearNone ClearPolicy = iota
	// ClearVisible resets name, email, phone and message.
	ClearVisible
	// ClearBot resets the visible fields and the honeypot.
	ClearBot
	// ClearAll resets the visible fields, the honeypot and restores the decoys to their seed.
	ClearAll
)

// String returns a stable label for logs.
func (p ClearPolicy) String() string {
	switch p {
	case ClearVisible:
		return "visible"
	case ClearBot:
		return "bot"
	case ClearAll:
		return "all"
	default:
		return "none"
	}
}

// User-facing reason strings.
const (
	ReasonGenericFailure  = "Failed to send message. Please try again."
	ReasonTooFast         = "Please take your time filling out the form."
	ReasonInvalidContent  = "Invalid content detected. Please provide valid information."
	ReasonInvalidEmail    = "Please provide a valid email address."
	ReasonInvalidPhone    = "Please provide a valid phone number."
	ReasonTooMany         = "Too many submissions. Please try again later."
	ReasonSent            = "Thank you! Your message has been sent successfully."
	ReasonTransportFailed = "An error occurred. Please try again later."
)

// Verdict is the single pass/fail decision for one attempt.
type Verdict struct {
	Kind   VerdictKind `json:"kind"`
	Stage  Stage       `json:"stage,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Clear  ClearPolicy `json:"-"`

	// LedgerChanged is set when the rate-limit stage appended to the ledger.
	LedgerChanged bool `json:"-"`
}

// Accepted reports whether the attempt may be forwarded.
func (v Verdict) Accepted() bool {
	return v.Kind == VerdictAccept
}

// Accept builds an accepting verdict.
func Accept() Verdict {
	return Verdict{Kind: VerdictAccept}
}

// Reject builds a rejecting verdict with a user-facing reason.
func Reject(stage Stage, reason string, clear ClearPolicy) Verdict {
	return Verdict{
		Kind:   VerdictRejectWithMessage,
		Stage:  stage,
		Reason: reason,
		Clear:  clear,
	}
}
