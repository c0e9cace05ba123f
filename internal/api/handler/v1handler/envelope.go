package v1handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"multiapi/pkg/serrors"
)

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// CaptionRequest is the body of POST /api/caption.
type CaptionRequest struct {
	URL   string
	Token string
}

// Decode decodes CaptionRequest from JSON. Both "token" and
// "verificationToken" carry the captcha token.
func (r *CaptionRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "url":
			return decodeStr(d, &r.URL)
		case "token", "verificationToken":
			return decodeStr(d, &r.Token)
		default:
			return d.Skip()
		}
	})
}

// URLRequest is the body of POST /api/url.
type URLRequest struct {
	URL string
}

// Decode decodes URLRequest from JSON.
func (r *URLRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) == "url" {
			return decodeStr(d, &r.URL)
		}

		return d.Skip()
	})
}

// MailRequest is the JSON form of POST /api/mail, used when no file is attached.
type MailRequest struct {
	Subject     string
	Email       string
	Description string
}

// Decode decodes MailRequest from JSON.
func (r *MailRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "subject":
			return decodeStr(d, &r.Subject)
		case "email":
			return decodeStr(d, &r.Email)
		case "description":
			return decodeStr(d, &r.Description)
		default:
			return d.Skip()
		}
	})
}

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string
	Email   string
	Message string
}

// Decode decodes ContactRequest from JSON.
func (r *ContactRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			return decodeStr(d, &r.Name)
		case "email":
			return decodeStr(d, &r.Email)
		case "message":
			return decodeStr(d, &r.Message)
		default:
			return d.Skip()
		}
	})
}

// decodeStr reads a string, treating null as empty.
func decodeStr(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v

	return nil
}

type decoder interface {
	Decode(d *jx.Decoder) error
}

// decodeBody reads a capped JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v decoder) error {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return serrors.With(serrors.ErrPayloadTooLarge, "Request body is too large")
		}

		return serrors.Wrap(serrors.ErrBadRequest, err, "could not read request body")
	}
	if len(b) == 0 {
		return serrors.With(serrors.ErrBadRequest, "Request body is required")
	}
	if err := v.Decode(jx.DecodeBytes(b)); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "Request body must be a JSON object")
	}

	return nil
}

// writeJSON writes a JSON body produced by fn with the given status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeMessage writes {"message": msg, <extra fields>}.
func writeMessage(w http.ResponseWriter, msg string, extra func(e *jx.Encoder)) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		if extra != nil {
			extra(e)
		}
		e.ObjEnd()
	})
}
