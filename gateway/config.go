package gateway

import "time"

// Config is a configuration for the gateway application.
type Config struct {
	HTTPAddr string
	// ApprovalRate is the probability in [0,1] that a valid request is
	// approved by the simulated issuing bank.
	ApprovalRate float64
	// ProcessingDelay is the artificial delay applied before answering,
	// imitating the round trip to the issuer.
	ProcessingDelay time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:        "localhost:8080",
		ApprovalRate:    0.9,
		ProcessingDelay: 1500 * time.Millisecond,
	}
}
