// Package captcha defines the human-verification check applied to public
// endpoints before they reach third-party sites.
package captcha

import "context"

// Verifier checks a client-supplied challenge token.
//
//go:generate mockgen -package mockcaptcha -source=interface.go -destination=mock/mockcaptcha.go *
type Verifier interface {
	// Verify returns nil when token proves a solved challenge, a
	// serrors.ErrForbidden error when it does not, and another semantic error
	// when the provider could not be asked.
	Verify(ctx context.Context, token, remoteIP string) error
}

// Noop accepts every token. It is used when no provider secret is configured.
type Noop struct{}

// Verify implements Verifier.
func (Noop) Verify(context.Context, string, string) error { return nil }
