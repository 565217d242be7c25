package services

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a provider call produced no usable output
type FailureKind int

const (
	// FailureTimeout means the overall call bound elapsed
	FailureTimeout FailureKind = iota + 1
	// FailureTransport covers network errors and non-429 error statuses
	FailureTransport
	// FailureRateLimited means the provider answered 429
	FailureRateLimited
	// FailureMalformedResponse means a 2xx response whose content could not be used
	FailureMalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureTransport:
		return "transport"
	case FailureRateLimited:
		return "rate_limited"
	case FailureMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ProviderFailure is the error returned by the generation client and the normalizer.
// Raw holds unusable provider text for server-side logs only.
type ProviderFailure struct {
	Kind       FailureKind
	StatusCode int
	RetryAfter time.Duration
	Raw        string
	Err        error

	transient bool
}

func (f *ProviderFailure) Error() string {
	msg := "provider " + f.Kind.String()
	if f.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *ProviderFailure) Unwrap() error {
	return f.Err
}

// AsProviderFailure extracts a ProviderFailure from err's chain
func AsProviderFailure(err error) (*ProviderFailure, bool) {
	var pf *ProviderFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}

// isTransient reports whether a single retry may help: network errors and 5xx only
func isTransient(err error) bool {
	pf, ok := AsProviderFailure(err)
	return ok && pf.Kind == FailureTransport && pf.transient
}
