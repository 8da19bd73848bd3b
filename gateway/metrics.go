package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApproved = "approved"
	outcomeDeclined = "declined"
	outcomeInvalid  = "invalid"
)

var authorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gateway",
	Name:      "authorizations_total",
	Help:      "Authorization requests processed, by outcome.",
}, []string{"outcome"})
