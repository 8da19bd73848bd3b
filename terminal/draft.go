// Package terminal implements the client side of the POS terminal: the
// in-progress transaction draft, the store that owns it, and the submission
// flow against the authorization gateway.
package terminal

import (
	"sort"
	"strings"
	"time"

	"github.com/jaortiz16/terminal-pos/gateway/models"
	"github.com/jaortiz16/terminal-pos/internal/card"
)

// Kind is the transaction kind.
type Kind string

const (
	KindPayment Kind = "payment"
	KindRefund  Kind = "refund"
	KindVoid    Kind = "void"
)

// Modality is the payment structure: a single charge, deferred installments
// or an interval-based recurring charge.
type Modality string

const (
	ModalitySingle    Modality = "single"
	ModalityDeferred  Modality = "deferred"
	ModalityRecurring Modality = "recurring"
)

// Currency is one of the currencies the gateway accepts.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyMXN Currency = "MXN"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyMXN:
		return true
	}
	return false
}

// Defaults applied when a modality is selected.
const (
	DefaultInstallments   = 3
	DefaultRecurrenceDays = 30
)

// Draft is the in-progress, not-yet-submitted transaction. Installments and
// RecurrenceDays are mutually exclusive: only the field matching the active
// modality is ever populated.
type Draft struct {
	Kind           Kind
	Brand          card.Brand
	Modality       Modality
	Amount         float64
	Currency       Currency
	CardNumber     string
	CardholderName string
	Installments   int
	RecurrenceDays int
	CVV            string
	Expiry         string
}

// NewDraft returns a draft with the initial form defaults.
func NewDraft() Draft {
	return Draft{
		Kind:     KindPayment,
		Brand:    card.BrandUnknown,
		Modality: ModalitySingle,
		Currency: CurrencyUSD,
	}
}

// ValidationErrors maps a field name to the inline message shown next to it.
// Validation failures block submission before any network call.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(v))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validación fallida: " + strings.Join(parts, "; ")
}

// Validate checks the draft before submission. It returns nil when the draft
// can be shaped into a request.
func (d Draft) Validate(now time.Time) error {
	errs := ValidationErrors{}

	if d.Amount <= 0 {
		errs["monto"] = "El monto debe ser mayor a 0"
	}
	if len(card.Digits(d.CardNumber)) < 13 {
		errs["numeroTarjeta"] = "Número de tarjeta inválido"
	}
	if strings.TrimSpace(d.CardholderName) == "" {
		errs["nombreTitular"] = "El nombre del titular es requerido"
	}
	if !d.Currency.Valid() {
		errs["moneda"] = "Moneda no soportada"
	}
	if d.Expiry != "" {
		if _, _, err := card.ParseExpiry(d.Expiry); err != nil {
			errs["fechaExpiracion"] = "Fecha de expiración inválida"
		} else if card.IsExpired(d.Expiry, now) {
			errs["fechaExpiracion"] = "La tarjeta ha caducado"
		}
	}
	switch d.Modality {
	case ModalityDeferred:
		if d.Installments <= 0 {
			errs["plazo"] = "Seleccione plazo"
		}
	case ModalityRecurring:
		if d.RecurrenceDays <= 0 {
			errs["frecuenciaDias"] = "Seleccione frecuencia"
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// buildRequest shapes the draft into the wire payload: kind fixed to PAG,
// unknown brand falls back to VISA, the card number is reduced to digits,
// the CVV is left-padded to three digits, and the modality-specific fields
// are included only for their modality.
func buildRequest(d Draft) models.AuthorizationRequest {
	brand := d.Brand
	if brand == card.BrandUnknown {
		brand = card.BrandVisa
	}

	req := models.AuthorizationRequest{
		Kind:           models.KindPayment,
		Brand:          brand.WireCode(),
		Mode:           wireMode(d.Modality),
		Amount:         d.Amount,
		Currency:       string(d.Currency),
		CardNumber:     card.Digits(d.CardNumber),
		CardholderName: d.CardholderName,
		Expiry:         d.Expiry,
	}

	if d.CVV != "" {
		req.CVV = padCVV(d.CVV)
	}

	// the modality fields are guaranteed by SetModality and Validate,
	// they are passed through as-is
	switch d.Modality {
	case ModalityDeferred:
		req.Installments = d.Installments
	case ModalityRecurring:
		req.Recurring = true
		req.IntervalDays = d.RecurrenceDays
	}

	return req
}

func wireMode(m Modality) string {
	switch m {
	case ModalityDeferred:
		return models.ModeDeferred
	case ModalityRecurring:
		return models.ModeRecurring
	}
	return models.ModeSingle
}

func padCVV(cvv string) string {
	for len(cvv) < 3 {
		cvv = "0" + cvv
	}
	return cvv
}
