package httpfetch_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"multiapi/pkg/fetcher"
	"multiapi/pkg/fetcher/httpfetch"
	"multiapi/pkg/serrors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// redirectChain serves /hop/N which redirects to /hop/N-1 until /hop/0 answers 200.
func redirectChain(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if err != nil {
			http.NotFound(w, r)

			return
		}
		if n == 0 {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>landed</html>"))

			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n-1), http.StatusMovedPermanently)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_Fetch_FollowsRedirectsUpToCap(t *testing.T) {
	srv := redirectChain(t)
	c := httpfetch.New(httpfetch.Options{MaxRedirects: 5})

	for _, method := range []fetcher.Method{fetcher.MethodHead, fetcher.MethodGet} {
		for n := 0; n <= 5; n++ {
			res, err := c.Fetch(context.Background(), fetcher.Request{URL: fmt.Sprintf("%s/hop/%d", srv.URL, n), Method: method})
			require.NoError(t, err, "method %s, %d redirects", method, n)
			require.Equal(t, srv.URL+"/hop/0", res.FinalURL)
			require.Equal(t, http.StatusOK, res.StatusCode)
			if method == fetcher.MethodHead {
				require.Empty(t, res.Body)
			} else {
				require.Equal(t, "<html>landed</html>", string(res.Body))
			}
		}
	}
}

func TestClient_Fetch_TooManyRedirects(t *testing.T) {
	srv := redirectChain(t)
	c := httpfetch.New(httpfetch.Options{MaxRedirects: 5})

	_, err := c.Fetch(context.Background(), fetcher.Request{URL: srv.URL + "/hop/6", Method: fetcher.MethodHead})
	require.Error(t, err)
	require.ErrorIs(t, err, fetcher.ErrTooManyRedirects)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
}

func TestClient_Fetch_Idempotent(t *testing.T) {
	srv := redirectChain(t)
	c := httpfetch.New(httpfetch.Options{})

	first, err := c.Fetch(context.Background(), fetcher.Request{URL: srv.URL + "/hop/3", Method: fetcher.MethodHead})
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), fetcher.Request{URL: srv.URL + "/hop/3", Method: fetcher.MethodHead})
	require.NoError(t, err)
	require.Equal(t, first.FinalURL, second.FinalURL)
}

func TestClient_Fetch_RemoteStatusKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   serrors.Kind
	}{
		{http.StatusNotFound, serrors.ErrNotFound},
		{http.StatusGone, serrors.ErrNotFound},
		{http.StatusForbidden, serrors.ErrForbidden},
		{http.StatusTooManyRequests, serrors.ErrRateLimited},
		{http.StatusGatewayTimeout, serrors.ErrTimeout},
		{http.StatusInternalServerError, serrors.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := httpfetch.New(httpfetch.Options{}).Fetch(context.Background(), fetcher.Request{URL: srv.URL})
			require.ErrorIs(t, err, tc.kind)

			var statusErr *fetcher.RemoteStatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, tc.status, statusErr.StatusCode)
		})
	}
}

func TestClient_Fetch_TransportFailures(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
		kind     serrors.Kind
	}{
		{
			name:     "dns",
			err:      &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
			sentinel: fetcher.ErrHostNotFound,
			kind:     serrors.ErrUnavailable,
		},
		{
			name:     "refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			sentinel: fetcher.ErrConnectionRefused,
			kind:     serrors.ErrUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := httpfetch.New(httpfetch.Options{Transport: rtFunc(func(*http.Request) (*http.Response, error) {
				return nil, tc.err
			})})

			_, err := c.Fetch(context.Background(), fetcher.Request{URL: "https://nope.invalid/x"})
			require.ErrorIs(t, err, tc.sentinel)
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := httpfetch.New(httpfetch.Options{Timeout: 50 * time.Millisecond})
	_, err := c.Fetch(context.Background(), fetcher.Request{URL: srv.URL})
	require.ErrorIs(t, err, serrors.ErrTimeout)
	require.ErrorIs(t, err, fetcher.ErrTimeout)
}

func TestClient_Fetch_DecodesCompressedBodies(t *testing.T) {
	const doc = `<meta property="og:title" content="acct: hi">`

	var gz bytes.Buffer
	gzw := gzip.NewWriter(&gz)
	_, _ = gzw.Write([]byte(doc))
	_ = gzw.Close()

	var br bytes.Buffer
	brw := brotli.NewWriter(&br)
	_, _ = brw.Write([]byte(doc))
	_ = brw.Close()

	encoded := map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes()}

	for enc, body := range encoded {
		t.Run(enc, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Contains(t, r.Header.Get("Accept-Encoding"), enc)
				w.Header().Set("Content-Encoding", enc)
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			res, err := httpfetch.New(httpfetch.Options{UserAgent: "test-agent"}).
				Fetch(context.Background(), fetcher.Request{URL: srv.URL, Method: fetcher.MethodGet})
			require.NoError(t, err)
			require.Equal(t, doc, string(res.Body))
		})
	}
}

func TestClient_Fetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 64))
	}))
	defer srv.Close()

	_, err := httpfetch.New(httpfetch.Options{MaxBodyBytes: 32}).
		Fetch(context.Background(), fetcher.Request{URL: srv.URL})
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Contains(t, err.Error(), "exceeds limit")
}

func TestClient_Fetch_SendsUserAgent(t *testing.T) {
	c := httpfetch.New(httpfetch.Options{
		UserAgent: "multiapi-test",
		Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "multiapi-test", r.Header.Get("User-Agent"))
			require.Equal(t, http.MethodHead, r.Method)

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       http.NoBody,
				Request:    r,
			}, nil
		}),
	})

	res, err := c.Fetch(context.Background(), fetcher.Request{URL: "https://bit.ly/abc", Method: fetcher.MethodHead})
	require.NoError(t, err)
	require.Equal(t, "https://bit.ly/abc", res.FinalURL)
}
