// Package turnstile provides a captcha.Verifier backed by a siteverify
// endpoint (Cloudflare Turnstile, or any reCAPTCHA compatible provider).
package turnstile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/jx"

	"multiapi/pkg/captcha"
	"multiapi/pkg/serrors"
)

// DefaultVerifyURL is the Cloudflare Turnstile siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Client posts tokens to a siteverify endpoint. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs requests to the provider
	secret     string       // secret is the server-side site key
	verifyURL  string
}

// verifyResult is the subset of the siteverify response we act on.
type verifyResult struct {
	Success    bool
	ErrorCodes []string
}

func (r *verifyResult) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "success":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			r.Success = v
		case "error-codes":
			return d.Arr(func(d *jx.Decoder) error {
				code, err := d.Str()
				if err != nil {
					return err
				}
				r.ErrorCodes = append(r.ErrorCodes, code)

				return nil
			})
		default:
			return d.Skip()
		}

		return nil
	})
}

// Verify asks the provider whether token is a solved challenge.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return serrors.With(serrors.ErrForbidden, "Captcha verification failed")
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not reach captcha provider")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not read captcha response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serrors.With(serrors.ErrUnavailable, "captcha provider failed: %d %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var res verifyResult
	if err := res.Decode(jx.DecodeBytes(b)); err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not decode captcha response")
	}
	if !res.Success {
		return serrors.Wrap(serrors.ErrForbidden,
			fmt.Errorf("rejected: %s", strings.Join(res.ErrorCodes, ",")),
			"Captcha verification failed")
	}

	return nil
}

// Ensure Client conforms to the captcha.Verifier interface at compile time.
var _ captcha.Verifier = (*Client)(nil)

// New constructs a Client posting to verifyURL with secret. An empty
// verifyURL selects DefaultVerifyURL.
func New(httpClient *http.Client, secret, verifyURL string) *Client {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}

	return &Client{
		httpClient: httpClient,
		secret:     secret,
		verifyURL:  verifyURL,
	}
}
