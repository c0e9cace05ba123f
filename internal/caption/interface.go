package caption

import "context"

// Request is a caption extraction request.
type Request struct {
	URL string
	// Token is the captcha token presented by the client, if any.
	Token string
	// RemoteIP is forwarded to the captcha provider.
	RemoteIP string
}

// Caption is the extracted caption. Text is nil when the post page carries
// no og:title tag.
type Caption struct {
	Text *string
}

//go:generate mockgen -package mockcaption -source=interface.go -destination=mock/mockcaption.go *
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Caption, error)
}
