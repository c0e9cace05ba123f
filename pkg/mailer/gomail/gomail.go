// Package gomail implements mailer.Sender on top of github.com/wneessen/go-mail.
package gomail

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/wneessen/go-mail"

	"multiapi/pkg/mailer"
	"multiapi/pkg/serrors"
)

// Options configures the SMTP relay.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Sender opens one authenticated SMTP session per message.
type Sender struct {
	opts Options
}

var _ mailer.Sender = (*Sender)(nil)

// New returns a Sender for opts. Port 465 uses implicit TLS, every other port
// requires STARTTLS.
func New(opts Options) *Sender {
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Sender{opts: opts}
}

// Send composes msg and delivers it.
func (s *Sender) Send(ctx context.Context, msg mailer.Message) error {
	m, err := Compose(msg)
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not compose email")
	}

	clientOpts := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.opts.Username),
		mail.WithPassword(s.opts.Password),
		mail.WithTimeout(s.opts.Timeout),
	}
	if s.opts.Port == 465 {
		clientOpts = append(clientOpts, mail.WithSSL())
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.opts.Host, clientOpts...)
	if err != nil {
		return serrors.Wrap(serrors.ErrConfiguration, err, "invalid SMTP settings")
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return serrors.Wrap(serrors.ErrTimeout, err, "SMTP relay timed out")
		}

		return serrors.Wrap(serrors.ErrUnavailable, err, "could not send email")
	}

	return nil
}

// Compose builds the wire message for msg.
func Compose(msg mailer.Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.FromFormat(msg.FromName, msg.From); err != nil {
		return nil, errors.Wrap(err, "from")
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrap(err, "to")
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, errors.Wrap(err, "reply-to")
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.MessageID != "" {
		m.SetMessageIDWithValue(msg.MessageID)
	}
	m.SetDate()

	if a := msg.Attachment; a != nil {
		m.AttachFile(a.Path, mail.WithFileName(a.Filename))
	}

	return m, nil
}
