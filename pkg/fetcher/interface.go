// Package fetcher defines the outbound HTTP abstraction used to reach
// third-party sites, together with the failure kinds it reports.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Method is the HTTP method of an outbound fetch.
type Method string

const (
	// MethodGet downloads the document body.
	MethodGet Method = http.MethodGet
	// MethodHead only resolves the final location.
	MethodHead Method = http.MethodHead
)

// Request describes a single outbound fetch.
type Request struct {
	URL    string
	Method Method
}

// Response is the terminal (non-redirect) response of a fetch.
type Response struct {
	// FinalURL is the location reached after following every redirect.
	FinalURL   string
	StatusCode int
	Header     http.Header
	// Body is empty for HEAD requests.
	Body []byte
}

// Sentinels wrapped into the errors returned by Fetcher implementations.
var (
	ErrHostNotFound      = errors.New("host not found")
	ErrConnectionRefused = errors.New("connection refused")
	ErrTimeout           = errors.New("request timed out")
	ErrTooManyRedirects  = errors.New("too many redirects")
)

// RemoteStatusError reports a terminal 4xx/5xx response.
type RemoteStatusError struct {
	StatusCode int
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("remote responded with status %d", e.StatusCode)
}

// Fetcher issues outbound requests, following redirects up to a fixed cap.
// Failures are returned as serrors carrying the matching semantic kind.
//
//go:generate mockgen -package mockfetcher -source=interface.go -destination=mock/mockfetcher.go *
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}
