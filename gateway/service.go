package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/jaortiz16/terminal-pos/gateway/models"
	"github.com/jaortiz16/terminal-pos/internal/card"
)

// ErrDeclined is returned when the simulated issuing bank rejects an
// otherwise valid request. The message is the fixed text shown on the wire.
var ErrDeclined = errors.New("Transacción rechazada por el banco emisor")

// ValidationError reports a request field that failed validation. The API
// turns it into a 400 with the message as body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Service implements the simulated authorization endpoint: it validates the
// request, waits for the configured processing delay and then approves with
// the configured probability.
type Service struct {
	cfg    *Config
	logger *slog.Logger
}

func NewService(cfg *Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "authorization")),
	}
}

func (s *Service) Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if s.cfg.ProcessingDelay > 0 {
		select {
		case <-time.After(s.cfg.ProcessingDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if rand.Float64() > s.cfg.ApprovalRate {
		s.logger.Info("authorization declined",
			slog.String("brand", req.Brand),
			slog.Float64("amount", req.Amount))
		return nil, ErrDeclined
	}

	resp := &models.AuthorizationResponse{
		AuthorizationRequest: req,

		ID:                newTransactionID(),
		Status:            models.StatusApproved,
		ProcessedAt:       time.Now().UTC(),
		AuthorizationCode: generateAuthorizationCode(),
	}

	s.logger.Info("authorization approved",
		slog.String("id", resp.ID),
		slog.String("brand", req.Brand),
		slog.Float64("amount", req.Amount),
		slog.String("currency", req.Currency))

	return resp, nil
}

func validate(req models.AuthorizationRequest) error {
	if req.Amount <= 0 {
		return &ValidationError{Field: "monto", Message: "El monto debe ser mayor a cero"}
	}
	if len(card.Digits(req.CardNumber)) < 13 {
		return &ValidationError{Field: "numeroTarjeta", Message: "Número de tarjeta inválido"}
	}
	if req.CardholderName == "" {
		return &ValidationError{Field: "nombreTitular", Message: "El nombre del titular es requerido"}
	}
	return nil
}

func newTransactionID() string {
	return "TX-" + uuid.New().String()
}

// generateAuthorizationCode returns a random six-digit, zero-padded code.
func generateAuthorizationCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}
