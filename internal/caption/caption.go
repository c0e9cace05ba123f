// Package caption extracts Instagram post captions from the post page's
// og:title meta tag.
package caption

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"multiapi/internal/urlnorm"
	"multiapi/pkg/captcha"
	"multiapi/pkg/fetcher"
	"multiapi/pkg/logger"
	"multiapi/pkg/metatag"
	"multiapi/pkg/serrors"
)

// extractor is the concrete implementation of the Extractor interface.
type extractor struct {
	fetcher  fetcher.Fetcher
	verifier captcha.Verifier
}

// Extract validates the URL, checks the captcha token, downloads the post page
// and reads its caption. Nothing leaves the process before the URL is known
// to be an Instagram URL.
func (e extractor) Extract(ctx context.Context, req Request) (*Caption, error) {
	target, err := urlnorm.Instagram(req.URL)
	if err != nil {
		return nil, err
	}

	if err := e.verifier.Verify(ctx, req.Token, req.RemoteIP); err != nil {
		return nil, err
	}

	res, err := e.fetcher.Fetch(ctx, fetcher.Request{URL: target, Method: fetcher.MethodGet})
	if err != nil {
		return nil, fmt.Errorf("could not fetch post: %w", err)
	}

	title, ok, err := metatag.Extract(res.Body, metatag.OGTitle)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not parse post page")
	}
	if !ok {
		logger.Info(ctx, "post page has no og:title", zap.String("url", res.FinalURL))

		return &Caption{}, nil
	}

	text := metatag.CaptionFromTitle(title)
	logger.Info(ctx, "Caption extracted successfully", zap.String("url", res.FinalURL))

	return &Caption{Text: &text}, nil
}

// New creates an Extractor. A nil verifier disables captcha checks.
func New(f fetcher.Fetcher, v captcha.Verifier) Extractor {
	if v == nil {
		v = captcha.Noop{}
	}

	return &extractor{
		fetcher:  f,
		verifier: v,
	}
}
