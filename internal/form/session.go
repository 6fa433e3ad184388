// Package form holds the server-side state of rendered contact forms: the
// latched open time, the field values, and the in-flight submit guard.
package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
	"github.com/formguard/formguard/internal/core/gatekeeper"
	"github.com/formguard/formguard/internal/core/relay"
	"github.com/formguard/formguard/internal/metrics"
)

var (
	// ErrBusy is returned while a submit for the same session is in flight.
	ErrBusy = errors.New("a submission is already in progress")

	// ErrUnknownField is returned by SetField for names outside the form.
	ErrUnknownField = errors.New("unknown form field")
)

// Field names accepted by SetField.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldMessage  = "message"
	FieldHoneypot = "website_url"
	FieldDecoyA   = "decoy_a"
	FieldDecoyB   = "decoy_b"
)

// Status is the banner state shown after a submit.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Sender delivers accepted messages. *relay.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, msg core.ContactMessage) (*relay.Response, error)
}

// Deps are shared by every session.
type Deps struct {
	Gatekeeper *gatekeeper.Gatekeeper
	Keeper     *engine.LedgerKeeper
	Relay      Sender
	Seed       core.DecoySeed
	Clock      func() time.Time
	Logger     *logging.Logger
	// StoreDriver labels ledger write failures in metrics.
	StoreDriver string
}

func (d *Deps) now() time.Time {
	if d != nil && d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

// Fields are the user-editable and hidden values of one form.
type Fields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	Honeypot string `json:"website_url"`
	DecoyA   string `json:"decoy_a"`
	DecoyB   string `json:"decoy_b"`
}

// Outcome is the single banner produced by a submit.
type Outcome struct {
	Status  Status     `json:"status"`
	Message string     `json:"message"`
	Stage   core.Stage `json:"stage,omitempty"`

	// Verdict is the gatekeeper decision; RelayError is set when an accepted
	// submission could not be delivered.
	Verdict    core.Verdict `json:"-"`
	RelayError error        `json:"-"`
}

// State is a point-in-time view of a session.
type State struct {
	ID         string    `json:"session_id"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Busy       bool      `json:"busy"`
	Fields     Fields    `json:"fields"`
	OpenedAt   time.Time `json:"opened_at"`
	LastActive time.Time `json:"last_active"`
}

// Session is one rendered contact form.
type Session struct {
	id        string
	clientKey string
	deps      *Deps

	mu         sync.Mutex
	attempt    core.SubmissionAttempt
	status     Status
	message    string
	busy       bool
	lastActive time.Time
}

// NewSession returns an opened session for clientKey.
func NewSession(id, clientKey string, deps *Deps) *Session {
	s := &Session{id: id, clientKey: clientKey, deps: deps, status: StatusIdle}
	s.Open()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Open latches the open time and restores the decoys to their seed.
func (s *Session) Open() {
	now := s.deps.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.FormOpenedAt = now
	s.attempt.DecoyA = s.deps.Seed.A
	s.attempt.DecoyB = s.deps.Seed.B
	s.lastActive = now
}

// SetField updates one field. Fields are locked while a submit is in flight.
func (s *Session) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	target := s.fieldRef(name)
	if target == nil {
		return ErrUnknownField
	}
	*target = value
	s.lastActive = s.deps.now()
	return nil
}

// Submit runs the current field values through the gatekeeper and, when
// accepted, forwards them to the relay.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	return s.submit(ctx, nil)
}

// SubmitFields replaces every field with f and submits in one step.
func (s *Session) SubmitFields(ctx context.Context, f Fields) (Outcome, error) {
	return s.submit(ctx, &f)
}

func (s *Session) submit(ctx context.Context, fields *Fields) (Outcome, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if fields != nil {
		s.setFields(*fields)
	}
	s.busy = true
	s.status = StatusLoading
	s.message = ""
	attempt := s.attempt
	s.mu.Unlock()

	outcome := s.run(ctx, attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.status = outcome.Status
	s.message = outcome.Message
	s.lastActive = s.deps.now()
	return outcome, nil
}

func (s *Session) run(ctx context.Context, attempt core.SubmissionAttempt) Outcome {
	now := s.deps.now()

	var verdict core.Verdict
	update := func(ledger *core.Ledger) bool {
		verdict = s.deps.Gatekeeper.Evaluate(attempt, ledger, s.deps.Seed, now)
		return verdict.LedgerChanged
	}
	if err := s.deps.Keeper.Update(ctx, s.clientKey, update); err != nil {
		// The verdict stands; the ledger just did not persist.
		metrics.RecordLedgerWriteError(s.deps.StoreDriver)
	}

	outcomeLabel := "accept"
	if !verdict.Accepted() {
		outcomeLabel = "reject"
	}
	metrics.RecordVerdict(string(verdict.Stage), outcomeLabel)
	s.log("Submission screened",
		zap.String("stage", string(verdict.Stage)),
		zap.String("outcome", outcomeLabel),
		zap.String("clear", verdict.Clear.String()))

	if !verdict.Accepted() {
		s.mu.Lock()
		s.applyClear(verdict.Clear)
		s.mu.Unlock()
		return Outcome{
			Status:  StatusError,
			Message: verdict.Reason,
			Stage:   verdict.Stage,
			Verdict: verdict,
		}
	}

	started := time.Now()
	_, err := s.deps.Relay.Send(ctx, attempt.Visible())
	elapsed := time.Since(started)
	if err != nil {
		var relayErr *relay.Error
		result := metrics.RelayTransport
		logFields := []zap.Field{zap.Error(err)}
		if errors.As(err, &relayErr) {
			result = metrics.RelayRejected
			logFields = append(logFields, zap.Int("relay_status", relayErr.StatusCode))
			if relayErr.RetryAfter > 0 {
				logFields = append(logFields, zap.Duration("retry_after", relayErr.RetryAfter))
			}
		}
		metrics.RecordRelay(result, elapsed)
		s.log("Relay delivery failed", append(logFields, zap.String("result", result))...)
		return Outcome{
			Status:     StatusError,
			Message:    relay.UserMessage(err),
			Verdict:    verdict,
			RelayError: err,
		}
	}
	metrics.RecordRelay(metrics.RelaySuccess, elapsed)

	s.mu.Lock()
	s.applyClear(core.ClearBot)
	s.attempt.FormOpenedAt = s.deps.now()
	s.mu.Unlock()

	return Outcome{
		Status:  StatusSuccess,
		Message: core.ReasonSent,
		Verdict: verdict,
	}
}

// State returns a snapshot for rendering.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:      s.id,
		Status:  s.status,
		Message: s.message,
		Busy:    s.busy,
		Fields: Fields{
			Name:     s.attempt.Name,
			Email:    s.attempt.Email,
			Phone:    s.attempt.Phone,
			Message:  s.attempt.Message,
			Honeypot: s.attempt.Honeypot,
			DecoyA:   s.attempt.DecoyA,
			DecoyB:   s.attempt.DecoyB,
		},
		OpenedAt:   s.attempt.FormOpenedAt,
		LastActive: s.lastActive,
	}
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.busy
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// applyClear resets fields per policy. Callers hold s.mu.
func (s *Session) applyClear(policy core.ClearPolicy) {
	switch policy {
	case core.ClearNone:
		return
	case core.ClearAll:
		s.attempt.DecoyA = s.deps.Seed.A
		s.attempt.DecoyB = s.deps.Seed.B
		fallthrough
	case core.ClearBot:
		s.attempt.Honeypot = ""
		fallthrough
	case core.ClearVisible:
		s.attempt.Name = ""
		s.attempt.Email = ""
		s.attempt.Phone = ""
		s.attempt.Message = ""
	}
}

// setFields copies f into the attempt. Callers hold s.mu.
func (s *Session) setFields(f Fields) {
	s.attempt.Name = f.Name
	s.attempt.Email = f.Email
	s.attempt.Phone = f.Phone
	s.attempt.Message = f.Message
	s.attempt.Honeypot = f.Honeypot
	s.attempt.DecoyA = f.DecoyA
	s.attempt.DecoyB = f.DecoyB
}

func (s *Session) fieldRef(name string) *string {
	switch name {
	case FieldName:
		return &s.attempt.Name
	case FieldEmail:
		return &s.attempt.Email
	case FieldPhone:
		return &s.attempt.Phone
	case FieldMessage:
		return &s.attempt.Message
	case FieldHoneypot:
		return &s.attempt.Honeypot
	case FieldDecoyA:
		return &s.attempt.DecoyA
	case FieldDecoyB:
		return &s.attempt.DecoyB
	default:
		return nil
	}
}

func (s *Session) log(msg string, fields ...zap.Field) {
	if s.deps.Logger == nil {
		return
	}
	fields = append([]zap.Field{zap.String("session_id", s.id)}, fields...)
	s.deps.Logger.Info(msg, fields...)
}
