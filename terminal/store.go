package terminal

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"github.com/jaortiz16/terminal-pos/gateway/models"
	"github.com/jaortiz16/terminal-pos/internal/card"
)

// ErrSubmissionInFlight is returned by Submit while a previous submission is
// still waiting for the gateway.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// State is the submission state of the form.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status is the tagged submission status. Message is set only while State is
// StateFailed.
type Status struct {
	State   State
	Message string
}

// User-facing failure messages, one per error kind.
const (
	msgConnectivity = "No se pudo conectar con el servidor. Verifique que el servicio esté en ejecución."
	msgInvalidData  = "Datos inválidos para la transacción"
	msgNotFound     = "Terminal POS no encontrado"
	msgGateway      = "Error de comunicación con el Payment Gateway"
	msgUnknown      = "Error desconocido al procesar la transacción"
)

// Authorizer is the gateway call the store depends on.
type Authorizer interface {
	Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSuccessResetDelay sets how long a succeeded status is shown before the
// form resets.
func WithSuccessResetDelay(d time.Duration) Option {
	return func(s *Store) { s.successDelay = d }
}

// WithFailureResetDelay sets how long a failed status is shown before the
// form resets.
func WithFailureResetDelay(d time.Duration) Option {
	return func(s *Store) { s.failureDelay = d }
}

// WithNow overrides the clock used for expiry validation.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the transaction draft and its submission status. Presentation
// collaborators read snapshots and call the setters; nothing else mutates
// the draft. All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	draft  Draft
	status Status

	client Authorizer
	logger *slog.Logger
	now    func() time.Time

	successDelay time.Duration
	failureDelay time.Duration

	// gen invalidates in-flight responses and pending reset timers once a
	// newer submit or reset has taken over the form.
	gen        uint64
	resetTimer *time.Timer
}

// NewStore builds a store around the given gateway client.
func NewStore(client Authorizer, opts ...Option) *Store {
	s := &Store{
		draft:        NewDraft(),
		status:       Status{State: StateIdle},
		client:       client,
		logger:       slog.Default(),
		now:          time.Now,
		successDelay: 2 * time.Second,
		failureDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "terminal-store"))
	return s
}

// Draft returns a snapshot of the current draft.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Status returns the current submission status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) SetKind(k Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Kind = k
}

func (s *Store) SetAmount(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Amount = amount
}

func (s *Store) SetCurrency(c Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Currency = c
}

// SetCardNumber normalizes the number to digits and re-detects the brand.
func (s *Store) SetCardNumber(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	digits := card.Digits(number)
	s.draft.CardNumber = digits
	s.draft.Brand = card.DetectBrand(digits)
}

func (s *Store) SetCardholderName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.CardholderName = name
}

func (s *Store) SetCVV(cvv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.CVV = card.Digits(cvv)
}

// SetExpiry stores the display-formatted expiry ("MM" or "MM/YY").
func (s *Store) SetExpiry(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Expiry = card.FormatExpiry(raw)
}

// SetModality switches the payment modality and applies the field contract:
// single clears both modality fields, deferred selects the default
// installment count, recurring the default recurrence interval. Re-selecting
// the active modality leaves the draft unchanged.
func (s *Store) SetModality(m Modality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Modality == m {
		return
	}
	s.draft.Modality = m
	switch m {
	case ModalityDeferred:
		s.draft.Installments = DefaultInstallments
		s.draft.RecurrenceDays = 0
	case ModalityRecurring:
		s.draft.Installments = 0
		s.draft.RecurrenceDays = DefaultRecurrenceDays
	default:
		s.draft.Installments = 0
		s.draft.RecurrenceDays = 0
	}
}

// SetInstallments adjusts the installment count. It only applies while the
// deferred modality is active.
func (s *Store) SetInstallments(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Modality != ModalityDeferred || n <= 0 {
		return
	}
	s.draft.Installments = n
}

// SetRecurrenceDays adjusts the recurrence interval. It only applies while
// the recurring modality is active.
func (s *Store) SetRecurrenceDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Modality != ModalityRecurring || days <= 0 {
		return
	}
	s.draft.RecurrenceDays = days
}

// Reset restores the draft and status to their defaults and cancels any
// pending auto-reset timer. An in-flight submission's outcome is dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.resetLocked()
}

func (s *Store) resetLocked() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.draft = NewDraft()
	s.status = Status{State: StateIdle}
}

// Submit validates the draft, sends it to the gateway and records the
// outcome in the status. It is not reentrant: while a submission is in
// flight further calls return ErrSubmissionInFlight. The returned error
// mirrors what the status reports; validation failures never reach the
// network.
func (s *Store) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.status.State == StateLoading {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}

	// a blocked submission leaves the form untouched, so any pending
	// auto-reset timer keeps running and a displayed error still clears
	if err := s.draft.Validate(s.now()); err != nil {
		s.mu.Unlock()
		return err
	}

	// the submission proceeds: it supersedes any pending auto-reset
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}

	req := buildRequest(s.draft)
	s.status = Status{State: StateLoading}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.logger.Info("submitting transaction",
		slog.String("mode", req.Mode),
		slog.String("brand", req.Brand),
		slog.Float64("amount", req.Amount),
		slog.String("currency", req.Currency))

	resp, err := s.client.Authorize(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// the form was reset while the call was in flight
		return nil
	}

	if err != nil {
		msg := failureMessage(err)
		s.status = Status{State: StateFailed, Message: msg}
		s.scheduleResetLocked(s.failureDelay)
		s.logger.Info("transaction failed", slog.String("message", msg))
		return err
	}

	s.status = Status{State: StateSucceeded}
	s.scheduleResetLocked(s.successDelay)
	s.logger.Info("transaction approved",
		slog.String("id", resp.ID),
		slog.String("authorization_code", resp.AuthorizationCode))
	return nil
}

// scheduleResetLocked arms the auto-reset timer. The captured generation
// keeps a stale timer from clobbering a submission that started after it was
// armed.
func (s *Store) scheduleResetLocked(d time.Duration) {
	gen := s.gen
	s.resetTimer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.resetLocked()
	})
}

// failureMessage maps a submission error to the user-facing message. A
// message carried in the response body always wins; otherwise the error
// kind selects the fixed text.
func failureMessage(err error) string {
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		return msgUnknown
	}
	if gerr.Message != "" {
		return gerr.Message
	}
	switch gerr.Kind {
	case ErrKindConnectivity:
		return msgConnectivity
	case ErrKindInvalidData:
		return msgInvalidData
	case ErrKindNotFound:
		return msgNotFound
	case ErrKindGateway:
		return msgGateway
	}
	return msgUnknown
}
