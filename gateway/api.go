package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaortiz16/terminal-pos/gateway/models"
)

// API is the HTTP surface of the gateway service.
type API struct {
	service *Service
}

func NewAPI(service *Service) *API {
	return &API{
		service: service,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/v1/transacciones", func(r chi.Router) {
		r.Post("/", a.authorize)
	})
}

func (a *API) authorize(w http.ResponseWriter, r *http.Request) {
	req := models.AuthorizationRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authorizationsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	resp, err := a.service.Authorize(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			authorizationsTotal.WithLabelValues(outcomeInvalid).Inc()
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, ErrDeclined):
			authorizationsTotal.WithLabelValues(outcomeDeclined).Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		}
		return
	}

	authorizationsTotal.WithLabelValues(outcomeApproved).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Message: message})
}
