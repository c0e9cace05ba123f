// Package expander resolves shortened URLs by following their redirects.
package expander

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"multiapi/internal/urlnorm"
	"multiapi/pkg/fetcher"
	"multiapi/pkg/logger"
)

// expander is the concrete implementation of the Expander interface.
type expander struct {
	fetcher fetcher.Fetcher
}

// Expand validates raw, issues a HEAD request and returns the final URL.
// The body of the target is never downloaded.
func (e expander) Expand(ctx context.Context, raw string) (string, error) {
	target, err := urlnorm.Generic(raw)
	if err != nil {
		return "", err
	}

	res, err := e.fetcher.Fetch(ctx, fetcher.Request{URL: target, Method: fetcher.MethodHead})
	if err != nil {
		return "", fmt.Errorf("could not expand URL: %w", err)
	}

	logger.Info(ctx, "URL expanded successfully", zap.String("url", target), zap.String("expanded", res.FinalURL))

	return res.FinalURL, nil
}

// New creates an Expander backed by f.
func New(f fetcher.Fetcher) Expander {
	return &expander{fetcher: f}
}
