package expander_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"multiapi/internal/expander"
	"multiapi/pkg/fetcher"
	mockfetcher "multiapi/pkg/fetcher/mock"
	"multiapi/pkg/serrors"
)

func TestExpander_Expand(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mockfetcher.NewMockFetcher(ctrl)

	f.EXPECT().Fetch(gomock.Any(), fetcher.Request{URL: "https://bit.ly/3xYz", Method: fetcher.MethodHead}).
		Return(&fetcher.Response{FinalURL: "https://example.com/article?id=9", StatusCode: 200}, nil)

	got, err := expander.New(f).Expand(context.Background(), "bit.ly/3xYz")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/article?id=9", got)
}

func TestExpander_Expand_NoRedirect(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mockfetcher.NewMockFetcher(ctrl)

	f.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return(&fetcher.Response{FinalURL: "https://example.com/", StatusCode: 200}, nil)

	got, err := expander.New(f).Expand(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", got)
}

func TestExpander_Expand_InvalidURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := expander.New(mockfetcher.NewMockFetcher(ctrl))

	for _, raw := range []string{"", "not a url", "http://", "javascript:alert(1)"} {
		_, err := e.Expand(context.Background(), raw)
		require.ErrorIs(t, err, serrors.ErrBadRequest, raw)
	}
}

func TestExpander_Expand_TooManyRedirects(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mockfetcher.NewMockFetcher(ctrl)

	f.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return(nil, serrors.Wrap(serrors.ErrUnavailable, fetcher.ErrTooManyRedirects, "could not follow redirects"))

	_, err := expander.New(f).Expand(context.Background(), "https://loop.example/a")
	require.ErrorIs(t, err, fetcher.ErrTooManyRedirects)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
}
