// Package mailbot validates mail and contact form submissions and turns them
// into messages for the mail dispatcher.
package mailbot

import (
	"context"
	"strings"

	"multiapi/internal/config"
	"multiapi/pkg/mailer"
	"multiapi/pkg/serrors"
)

// Options configure message composition.
type Options struct {
	// ContactRecipient receives contact form submissions.
	ContactRecipient string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{ContactRecipient: cfg.SMTP.ContactRecipient}
}

// service is the concrete implementation of the Service interface.
type service struct {
	options    Options
	dispatcher *mailer.Dispatcher
}

// SendMail relays a plain message, with an optional attachment, to req.Email.
// The attachment is deleted on every path, including validation failures.
func (s service) SendMail(ctx context.Context, req MailRequest) (mailer.Receipt, error) {
	defer mailer.Discard(ctx, req.Attachment)

	req.Subject = strings.TrimSpace(req.Subject)
	req.Email = strings.TrimSpace(req.Email)
	if req.Subject == "" || req.Email == "" || strings.TrimSpace(req.Description) == "" {
		return mailer.Receipt{}, serrors.With(serrors.ErrBadRequest,
			"Missing required fields: subject, email, and description are required")
	}
	if !mailer.ValidEmail(req.Email) {
		return mailer.Receipt{}, serrors.With(serrors.ErrBadRequest, "Invalid email format")
	}

	return s.dispatcher.Send(ctx, mailer.Message{
		To:         req.Email,
		Subject:    req.Subject,
		Body:       req.Description,
		Attachment: req.Attachment,
	})
}

// SendContact forwards a contact form submission to the configured recipient
// with Reply-To set to the submitter.
func (s service) SendContact(ctx context.Context, req ContactRequest) (mailer.Receipt, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || strings.TrimSpace(req.Message) == "" {
		return mailer.Receipt{}, serrors.With(serrors.ErrBadRequest,
			"Missing required fields: name, email, and message are required")
	}
	if !mailer.ValidEmail(req.Email) {
		return mailer.Receipt{}, serrors.With(serrors.ErrBadRequest, "Invalid email format")
	}
	if s.options.ContactRecipient == "" {
		return mailer.Receipt{}, serrors.With(serrors.ErrConfiguration, "contact recipient is not configured")
	}

	return s.dispatcher.Send(ctx, mailer.Message{
		To:      s.options.ContactRecipient,
		ReplyTo: req.Email,
		Subject: "Email from " + req.Name + " via portfolio contact form",
		Body:    "Sender Email - " + req.Email + "\n\nSender message - " + req.Message,
	})
}

// New creates a Service sending through d.
func New(d *mailer.Dispatcher, options Options) Service {
	return &service{
		options:    options,
		dispatcher: d,
	}
}
