package v1handler

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"multiapi/internal/mailbot"
	"multiapi/pkg/mailer"
	"multiapi/pkg/serrors"
)

// maxFieldBytes caps a single text field of a multipart mail form.
const maxFieldBytes = 64 << 10

// SendMail handles POST /api/mail. The body is either JSON or a multipart
// form carrying the same fields plus an optional "file" attachment.
func (h Handler) SendMail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := h.readMailRequest(w, r)
	var receipt mailer.Receipt
	if err == nil {
		receipt, err = h.deps.Mail.SendMail(r.Context(), req)
	}
	h.observe(r.Context(), "mail", start, err)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeMessage(w, "Email sent successfully", func(e *jx.Encoder) {
		e.FieldStart("messageId")
		e.Str(receipt.MessageID)
	})
}

// SendContact handles POST /api/contact.
func (h Handler) SendContact(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ContactRequest
	err := decodeBody(w, r, &req)
	var receipt mailer.Receipt
	if err == nil {
		receipt, err = h.deps.Mail.SendContact(r.Context(), mailbot.ContactRequest{
			Name:    req.Name,
			Email:   req.Email,
			Message: req.Message,
		})
	}
	h.observe(r.Context(), "contact", start, err)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeMessage(w, "Message sent successfully! Thank you for contacting me.", func(e *jx.Encoder) {
		e.FieldStart("messageId")
		e.Str(receipt.MessageID)
	})
}

func (h Handler) readMailRequest(w http.ResponseWriter, r *http.Request) (mailbot.MailRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body MailRequest
		if err := decodeBody(w, r, &body); err != nil {
			return mailbot.MailRequest{}, err
		}

		return mailbot.MailRequest{
			Subject:     body.Subject,
			Email:       body.Email,
			Description: body.Description,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxAttachmentBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return mailbot.MailRequest{}, serrors.Wrap(serrors.ErrBadRequest, err, "malformed multipart body")
	}

	var req mailbot.MailRequest
	if err := h.readMailParts(mr, &req); err != nil {
		mailer.Discard(r.Context(), req.Attachment)

		return mailbot.MailRequest{}, err
	}

	return req, nil
}

func (h Handler) readMailParts(mr *multipart.Reader, req *mailbot.MailRequest) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return h.partError(err, h.opts.MaxAttachmentBytes)
		}

		switch name := part.FormName(); {
		case name == "file" && part.FileName() != "":
			if req.Attachment != nil {
				err = serrors.With(serrors.ErrBadRequest, "Only one file may be attached")
			} else {
				req.Attachment, err = h.stageAttachment(part)
			}
		case name == "subject":
			req.Subject, err = readField(part)
		case name == "email":
			req.Email, err = readField(part)
		case name == "description":
			req.Description, err = readField(part)
		}
		_ = part.Close()
		if err != nil {
			return err
		}
	}
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, err, "could not read form field")
	}
	if len(b) > maxFieldBytes {
		return "", serrors.With(serrors.ErrPayloadTooLarge, "Form field %q is too large", part.FormName())
	}

	return string(b), nil
}

// stageAttachment writes the uploaded file into the upload directory.
func (h Handler) stageAttachment(part *multipart.Part) (*mailer.Attachment, error) {
	if err := os.MkdirAll(h.opts.UploadDir, 0o750); err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not prepare upload directory")
	}

	f, err := os.CreateTemp(h.opts.UploadDir, "mail-*"+filepath.Ext(part.FileName()))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not stage attachment")
	}
	att := &mailer.Attachment{Filename: filepath.Base(part.FileName()), Path: f.Name()}

	n, err := io.Copy(f, io.LimitReader(part, h.opts.MaxAttachmentBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	switch {
	case err != nil:
		_ = os.Remove(att.Path)

		return nil, h.partError(err, h.opts.MaxAttachmentBytes)
	case n > h.opts.MaxAttachmentBytes:
		_ = os.Remove(att.Path)

		return nil, h.tooLarge(h.opts.MaxAttachmentBytes)
	}

	return att, nil
}
