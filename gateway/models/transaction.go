// Package models defines the wire contract between the POS terminal and the
// authorization gateway. The JSON field names are the fixed external
// interface and must not change.
package models

import "time"

// Transaction kinds.
const (
	KindPayment = "PAG"
	KindRefund  = "DEV"
	KindVoid    = "ANU"
)

// Payment modalities on the wire.
const (
	ModeSingle    = "SIM"
	ModeDeferred  = "DIF"
	ModeRecurring = "REC"
)

// StatusApproved is the estado reported for an approved authorization.
const StatusApproved = "APROBADO"

// AuthorizationRequest is the payload the terminal posts to the gateway.
// Installments is present only for deferred payments; Recurring and
// IntervalDays only for recurring ones.
type AuthorizationRequest struct {
	Kind           string  `json:"tipo"`
	Brand          string  `json:"marca"`
	Mode           string  `json:"modalidad"`
	Amount         float64 `json:"monto"`
	Currency       string  `json:"moneda"`
	CardNumber     string  `json:"numeroTarjeta"`
	CardholderName string  `json:"nombreTitular"`
	CVV            string  `json:"cvv,omitempty"`
	Expiry         string  `json:"fechaExpiracion,omitempty"`
	Installments   int     `json:"plazo,omitempty"`
	Recurring      bool    `json:"recurrente,omitempty"`
	IntervalDays   int     `json:"frecuenciaDias,omitempty"`
}

// AuthorizationResponse echoes the request and adds the synthetic
// transaction id, the approval status, the processing timestamp and the
// six-digit authorization code.
type AuthorizationResponse struct {
	AuthorizationRequest

	ID                string    `json:"id"`
	Status            string    `json:"estado"`
	ProcessedAt       time.Time `json:"fechaProcesamiento"`
	AuthorizationCode string    `json:"codigoAutorizacion"`
}

// ErrorResponse is the body of every non-2xx gateway answer.
type ErrorResponse struct {
	Message string `json:"message"`
}
