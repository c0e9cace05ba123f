package v1handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"multiapi/internal/api/handler/v1handler"
	"multiapi/pkg/fetcher"
	"multiapi/pkg/logger"
	"multiapi/pkg/serrors"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMain(m *testing.M) {
	// Initialize logger to avoid nil pointer deref during tests
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func newHandler(t *testing.T) *v1handler.Handler {
	t.Helper()

	h, err := v1handler.New(v1handler.Deps{}, v1handler.Options{})
	require.NoError(t, err)

	return h
}

type failingMeterProvider struct{ noop.MeterProvider }

func (failingMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter { return failingMeter{} }

type failingMeter struct{ noop.Meter }

func (failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument conflict")
}

func TestNew_ReturnsInstrumentError(t *testing.T) {
	_, err := v1handler.New(v1handler.Deps{MeterProvider: failingMeterProvider{}}, v1handler.Options{})
	require.ErrorContains(t, err, "instrument conflict")
}

func TestNew_NoopMeterProvider(t *testing.T) {
	h, err := v1handler.New(v1handler.Deps{MeterProvider: noop.NewMeterProvider()}, v1handler.Options{})
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestNewError_InternalOnPlainError(t *testing.T) {
	res := newHandler(t).NewError(context.Background(), errors.New("dial tcp 10.0.0.1:25: secret detail"))
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.NotContains(t, res.Response.Message, "secret detail")
}

func TestNewError_KindSentinelDirect_NotFound(t *testing.T) {
	res := newHandler(t).NewError(context.Background(), serrors.ErrNotFound)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, serrors.ErrNotFound.Error(), res.Response.Code)
	require.Contains(t, res.Response.Message, "could not be found")
}

func TestNewError_ValidationKeepsMessage(t *testing.T) {
	res := newHandler(t).NewError(context.Background(),
		serrors.With(serrors.ErrBadRequest, "Invalid Instagram URL format"))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Invalid Instagram URL format", res.Response.Message)
}

func TestNewError_UpstreamDetailHidden(t *testing.T) {
	err := serrors.Wrap(serrors.ErrUnavailable,
		&fetcher.RemoteStatusError{StatusCode: http.StatusBadGateway}, "remote failure: provider said xyz")
	res := newHandler(t).NewError(context.Background(), err)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.NotContains(t, res.Response.Message, "xyz")
}

func TestNewError_StatusTable(t *testing.T) {
	cases := []struct {
		kind   serrors.Kind
		status int
	}{
		{serrors.ErrBadRequest, http.StatusBadRequest},
		{serrors.ErrUnauthorized, http.StatusUnauthorized},
		{serrors.ErrForbidden, http.StatusForbidden},
		{serrors.ErrNotFound, http.StatusNotFound},
		{serrors.ErrConflict, http.StatusConflict},
		{serrors.ErrTimeout, http.StatusRequestTimeout},
		{serrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{serrors.ErrRateLimited, http.StatusTooManyRequests},
		{serrors.ErrConfiguration, http.StatusInternalServerError},
		{serrors.ErrUnavailable, http.StatusServiceUnavailable},
		{serrors.ErrInternal, http.StatusInternalServerError},
	}

	h := newHandler(t)
	for _, tc := range cases {
		t.Run(tc.kind.Error(), func(t *testing.T) {
			res := h.NewError(context.Background(), serrors.KindOnly(tc.kind))
			require.Equal(t, tc.status, res.StatusCode)
			require.Equal(t, tc.kind.Error(), res.Response.Code)
			require.NotEmpty(t, res.Response.Message)
		})
	}
}

func TestNewError_ConfigurationNeverNamesSecret(t *testing.T) {
	res := newHandler(t).NewError(context.Background(),
		serrors.With(serrors.ErrConfiguration, "SMTP password is not set"))
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.NotContains(t, res.Response.Message, "password")
}
