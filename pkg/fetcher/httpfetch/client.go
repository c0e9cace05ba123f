// Package httpfetch provides a fetcher.Fetcher implementation backed by
// net/http with a bounded redirect chain.
package httpfetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"multiapi/pkg/fetcher"
	"multiapi/pkg/serrors"

	"github.com/andybalholm/brotli"
	"github.com/go-faster/errors"
)

const (
	// DefaultMaxRedirects is used when Options.MaxRedirects is not positive.
	DefaultMaxRedirects = 5
	// DefaultMaxBodyBytes caps downloaded documents when Options.MaxBodyBytes is not positive.
	DefaultMaxBodyBytes = 5 * 1024 * 1024
)

// Options controls outbound fetching.
type Options struct {
	// Timeout bounds the whole exchange, redirects included. Zero means no
	// timeout besides the request context.
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UserAgent    string
	// Transport overrides the default transport; tests inject a RoundTripper here.
	Transport http.RoundTripper
}

// Client fulfills fetcher.Fetcher. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
}

var _ fetcher.Fetcher = (*Client)(nil)

// New constructs a Client from opts.
func New(opts Options) *Client {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	maxRedirects := opts.MaxRedirects

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				// via holds every request already sent, so len(via) is the
				// number of redirects followed once this one is taken.
				if len(via) > maxRedirects {
					return fetcher.ErrTooManyRedirects
				}

				return nil
			},
		},
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Fetch performs req and returns the terminal response. Redirects are
// followed; a terminal status >= 400 is reported as *fetcher.RemoteStatusError.
// No retry is attempted.
func (c *Client) Fetch(ctx context.Context, req fetcher.Request) (*fetcher.Response, error) {
	method := req.Method
	if method == "" {
		method = fetcher.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(method), req.URL, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid URL")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode)
	}

	out := &fetcher.Response{
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
	if method == fetcher.MethodHead {
		return out, nil
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not read response body")
	}
	out.Body = body

	return out, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "gzip decode")
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer func() { _ = fl.Close() }()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, c.maxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, errors.Errorf("response body exceeds limit of %d bytes", c.maxBodyBytes)
	}

	return body, nil
}

// classify translates a transport failure into a semantic error.
func classify(ctx context.Context, err error) error {
	var dnsErr *net.DNSError

	switch {
	case errors.Is(err, fetcher.ErrTooManyRedirects):
		return serrors.Wrap(serrors.ErrUnavailable, fetcher.ErrTooManyRedirects, "could not follow redirects")
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return serrors.Wrap(serrors.ErrTimeout, errors.Wrap(fetcher.ErrTimeout, err.Error()), "remote request timed out")
	case errors.Is(ctx.Err(), context.Canceled):
		return serrors.Wrap(serrors.ErrUnavailable, ctx.Err(), "request cancelled")
	case errors.As(err, &dnsErr):
		return serrors.Wrap(serrors.ErrUnavailable, errors.Wrap(fetcher.ErrHostNotFound, dnsErr.Error()), "could not resolve host")
	case errors.Is(err, syscall.ECONNREFUSED):
		return serrors.Wrap(serrors.ErrUnavailable, errors.Wrap(fetcher.ErrConnectionRefused, err.Error()), "could not connect")
	default:
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
}

func isTimeout(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusError maps a terminal remote status onto a semantic kind.
func statusError(code int) error {
	cause := &fetcher.RemoteStatusError{StatusCode: code}

	switch code {
	case http.StatusNotFound, http.StatusGone:
		return serrors.Wrap(serrors.ErrNotFound, cause, "remote resource not found")
	case http.StatusUnauthorized, http.StatusForbidden:
		return serrors.Wrap(serrors.ErrForbidden, cause, "remote denied access")
	case http.StatusTooManyRequests:
		return serrors.Wrap(serrors.ErrRateLimited, cause, "remote rate limited the request")
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return serrors.Wrap(serrors.ErrTimeout, cause, "remote timed out")
	default:
		return serrors.Wrap(serrors.ErrUnavailable, cause, "remote failure")
	}
}
