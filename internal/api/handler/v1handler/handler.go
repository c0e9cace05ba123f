// Package v1handler implements the HTTP handlers of the public API and maps
// semantic errors onto HTTP responses.
package v1handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"multiapi/internal/caption"
	"multiapi/internal/config"
	"multiapi/internal/expander"
	"multiapi/internal/mailbot"
	"multiapi/pkg/logger"
	"multiapi/pkg/metrics"
	"multiapi/pkg/serrors"
)

// Deps are the services the handlers delegate to.
type Deps struct {
	Caption  caption.Extractor
	Expander expander.Expander
	Mail     mailbot.Service
	// MeterProvider receives request instruments. Nil disables them.
	MeterProvider metric.MeterProvider
}

// Options tune request parsing.
type Options struct {
	// UploadDir is where mail attachments are staged until sent.
	UploadDir string
	// MaxImageBytes caps QR uploads.
	MaxImageBytes int64
	// MaxAttachmentBytes caps mail attachments.
	MaxAttachmentBytes int64
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		UploadDir:          cfg.Uploads.Dir,
		MaxImageBytes:      cfg.Uploads.MaxImageBytes,
		MaxAttachmentBytes: cfg.Uploads.MaxAttachmentBytes,
	}
}

// Handler serves the v1 API. Build it with New and mount Routes.
type Handler struct {
	deps Deps
	opts Options

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New returns a Handler with defaults applied to zero-valued options. It fails
// when the request instruments cannot be created on deps.MeterProvider.
func New(deps Deps, opts Options) (*Handler, error) {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 2 << 20
	}
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = 25 << 20
	}

	mp := deps.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("multiapi/v1handler")

	h := &Handler{deps: deps, opts: opts}
	var err error
	h.requests, err = meter.Int64Counter("multiapi.api.requests",
		metric.WithDescription("API requests by endpoint and result code."))
	if err != nil {
		return nil, errors.Wrap(err, "create requests counter")
	}
	h.duration, err = meter.Float64Histogram("multiapi.api.duration",
		metric.WithDescription("API handler latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}

	return h, nil
}

// ErrorBody is the client-facing part of an error.
type ErrorBody struct {
	Code    string
	Message string
}

// ErrorResponse is an error mapped onto an HTTP status.
type ErrorResponse struct {
	StatusCode int
	Response   ErrorBody
}

// Encode encodes the error envelope {"success":false,"error":...,"code":...}.
func (r *ErrorResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("error")
	e.Str(r.Response.Message)
	e.FieldStart("code")
	e.Str(r.Response.Code)
	e.ObjEnd()
}

const (
	msgBadRequest   = "The request you sent is invalid or malformed. Please check your input data and try again."
	msgUnauthorized = "You are not authorized to access this resource. Please log in and try again."
	msgForbidden    = "You do not have permission to access this resource. " +
		"Please contact an administrator if you believe this is an error."
	msgNotFound     = "The requested resource could not be found. Please check the URL and try again."
	msgConflict     = "The request conflicts with the current state of the resource."
	msgTimeout      = "The request took too long to process and timed out. Please try again in a moment."
	msgTooLarge     = "The uploaded content is too large."
	msgRateLimited  = "You have made too many requests in a short period. Please wait a moment before trying again."
	msgConfig       = "The service is not configured to handle this request. Please contact the administrator."
	msgUnavailable  = "A third-party service is unavailable right now. Please try again later."
	msgInternal     = "An unexpected error occurred on our server. " +
		"Please try again later, and if the problem persists, contact support."
)

type errorMapping struct {
	status int
	// message is used unless the error carries its own and ownMessage is set.
	message    string
	ownMessage bool
}

//nolint: gochecknoglobals
var errorMappings = map[serrors.Kind]errorMapping{
	serrors.ErrBadRequest:      {http.StatusBadRequest, msgBadRequest, true},
	serrors.ErrUnauthorized:    {http.StatusUnauthorized, msgUnauthorized, false},
	serrors.ErrForbidden:       {http.StatusForbidden, msgForbidden, true},
	serrors.ErrNotFound:        {http.StatusNotFound, msgNotFound, false},
	serrors.ErrConflict:        {http.StatusConflict, msgConflict, false},
	serrors.ErrTimeout:         {http.StatusRequestTimeout, msgTimeout, false},
	serrors.ErrPayloadTooLarge: {http.StatusRequestEntityTooLarge, msgTooLarge, true},
	serrors.ErrRateLimited:     {http.StatusTooManyRequests, msgRateLimited, false},
	serrors.ErrConfiguration:   {http.StatusInternalServerError, msgConfig, false},
	serrors.ErrUnavailable:     {http.StatusServiceUnavailable, msgUnavailable, false},
	serrors.ErrInternal:        {http.StatusInternalServerError, msgInternal, false},
}

// NewError maps err onto an HTTP status and a client-safe message. The full
// error is logged; only validation style kinds expose their own message.
func (h Handler) NewError(ctx context.Context, err error) *ErrorResponse {
	kind := serrors.KindOf(err)
	mapping, ok := errorMappings[kind]
	if !ok {
		kind = serrors.ErrInternal
		mapping = errorMappings[kind]
	}

	msg := mapping.message
	var semErr *serrors.Error
	if mapping.ownMessage && errors.As(err, &semErr) && semErr.Message() != "" {
		msg = semErr.Message()
	}

	fields := []zap.Field{zap.Error(err), zap.Int("status_code", mapping.status), zap.String("code", kind.Error())}
	if mapping.status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", fields...)
	} else {
		logger.Warn(ctx, "request rejected", fields...)
	}

	return &ErrorResponse{
		StatusCode: mapping.status,
		Response: ErrorBody{
			Code:    kind.Error(),
			Message: msg,
		},
	}
}

// writeError maps err and writes the error envelope.
func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)
	writeJSON(w, res.StatusCode, res.Encode)
}

// observe records the outcome of one endpoint call.
func (h Handler) observe(ctx context.Context, endpoint string, start time.Time, err error) {
	code := "OK"
	if err != nil {
		code = "INTERNAL"
		if k := serrors.KindOf(err); k != nil {
			code = k.Error()
		}
	}
	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint), attribute.String("code", code))
	h.requests.Add(ctx, 1, attrs)
	h.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// NotFound answers unmatched routes.
func (h Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, serrors.With(serrors.ErrNotFound, "Route %s not found", r.URL.Path))
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, (&ErrorResponse{Response: ErrorBody{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method " + r.Method + " is not allowed on " + r.URL.Path,
	}}).Encode)
}
