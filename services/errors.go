package services

import (
	"errors"
	"fmt"
)

// AggregatorErrorKind classifies failures from the financial data aggregator.
type AggregatorErrorKind string

const (
	AggregatorUnauthorized AggregatorErrorKind = "unauthorized"  // item login required, relink needed
	AggregatorRateLimited  AggregatorErrorKind = "rate_limited"  // retryable
	AggregatorUnavailable  AggregatorErrorKind = "unavailable"   // 5xx / transport failure, retryable
	AggregatorInvalidToken AggregatorErrorKind = "invalid_token" // bad public/access token, terminal
)

type AggregatorError struct {
	Kind    AggregatorErrorKind
	Code    string
	Message string
}

func (e *AggregatorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("aggregator %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("aggregator %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is transient.
func (e *AggregatorError) Retryable() bool {
	return e.Kind == AggregatorRateLimited || e.Kind == AggregatorUnavailable
}

// AsAggregatorError unwraps err into an AggregatorError if possible.
func AsAggregatorError(err error) (*AggregatorError, bool) {
	var aggErr *AggregatorError
	if errors.As(err, &aggErr) {
		return aggErr, true
	}
	return nil, false
}

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")
