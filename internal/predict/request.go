// Package predict produces temperature predictions for a (month, hour) pair by
// calling an external prediction service and applying a fallback policy when
// that call fails.
package predict

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRequest is returned when month or hour is out of range.
	ErrInvalidRequest = errors.New("invalid prediction request")
	// ErrMalformedResponse is returned when the service body cannot be used.
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// Request holds the user-supplied prediction parameters
type Request struct {
	Month int `json:"month"`
	Hour  int `json:"hour"`
}

// Validate checks month is in [1,12] and hour is in [0,23]
func (r Request) Validate() error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidRequest, r.Month)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23, got %d", ErrInvalidRequest, r.Hour)
	}
	return nil
}

// Source records where a result came from
type Source string

const (
	SourceService     Source = "service"
	SourceFallback    Source = "fallback"
	SourceUnavailable Source = "unavailable"
)

// Result is the outcome of a prediction. Temperature is only meaningful when
// Available is true.
type Result struct {
	Temperature float64 `json:"predicted_temperature"`
	Source      Source  `json:"source"`
	Available   bool    `json:"available"`
}

// Round1 rounds v to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
