package v1handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"multiapi/pkg/logger"
	"multiapi/pkg/qrdecode"
	"multiapi/pkg/serrors"
)

// multipartOverhead is the room left for boundaries and part headers.
const multipartOverhead = 64 << 10

// DecodeQR handles POST /api/qr with a multipart "image" field.
func (h Handler) DecodeQR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	data, err := h.readImage(w, r)
	var payload string
	if err == nil {
		payload, err = qrdecode.Decode(data)
	}
	h.observe(r.Context(), "qr", start, err)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	logger.Info(r.Context(), "Decoded QR code", zap.Int("bytes", len(data)))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.FieldStart("data")
		e.Str(payload)
		e.ObjEnd()
	})
}

func (h Handler) tooLarge(limit int64) error {
	return serrors.With(serrors.ErrPayloadTooLarge,
		"File too large. Please upload a file smaller than %s.", humanBytes(limit))
}

// readImage streams the "image" part, rejecting it as soon as it exceeds
// MaxImageBytes.
func (h Handler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if err := requireMultipart(r); err != nil {
		return nil, err
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxImageBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "malformed multipart body")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, serrors.With(serrors.ErrBadRequest, "No file uploaded.")
		}
		if err != nil {
			return nil, h.partError(err, h.opts.MaxImageBytes)
		}
		if part.FormName() != "image" || part.FileName() == "" {
			_ = part.Close()

			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, h.opts.MaxImageBytes+1))
		_ = part.Close()
		if err != nil {
			return nil, h.partError(err, h.opts.MaxImageBytes)
		}
		if int64(len(data)) > h.opts.MaxImageBytes {
			return nil, h.tooLarge(h.opts.MaxImageBytes)
		}

		return data, nil
	}
}

func (h Handler) partError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return h.tooLarge(limit)
	}

	return serrors.Wrap(serrors.ErrBadRequest, err, "malformed multipart body")
}

func requireMultipart(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return serrors.With(serrors.ErrBadRequest, "Expected a multipart/form-data body")
	}

	return nil
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return strconv.FormatInt(n/mib, 10) + "MB"
	}

	return strconv.FormatInt(n, 10) + " bytes"
}
