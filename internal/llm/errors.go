package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrRateLimited reports that the provider rejected the call for quota reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable reports that no model client could be constructed.
	ErrUnavailable = errors.New("model unavailable")
)

// APIError is a non-200 answer from an HTTP model endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match HTTP 429 answers.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// classifyGoogleErr maps quota failures from Google client libraries onto ErrRateLimited.
func classifyGoogleErr(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
