// Package mailer composes outbound emails and hands them to an SMTP Sender,
// guaranteeing that staged attachment files are removed once the attempt ends.
package mailer

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"multiapi/pkg/logger"
	"multiapi/pkg/serrors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr looks like a deliverable address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Attachment is a file staged on disk. Path is removed after the send attempt.
type Attachment struct {
	Filename string // name shown to the recipient
	Path     string
}

// Message is a single plain-text email.
type Message struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	Body     string
	// MessageID is filled by Dispatcher before the message reaches a Sender.
	MessageID  string
	Attachment *Attachment
}

// Receipt identifies a message accepted by the relay.
type Receipt struct {
	MessageID string
}

// Sender delivers one message over one SMTP session.
//
//go:generate mockgen -package mockmailer -source=mailer.go -destination=mock/mockmailer.go *
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds the sender identity. From empty means mail is not configured.
type Config struct {
	From     string
	FromName string
}

// Dispatcher validates messages, stamps them and hands them to a Sender.
type Dispatcher struct {
	sender Sender
	cfg    Config
}

// NewDispatcher returns a Dispatcher. A nil sender is allowed and makes every
// Send fail with serrors.ErrConfiguration.
func NewDispatcher(sender Sender, cfg Config) *Dispatcher {
	return &Dispatcher{sender: sender, cfg: cfg}
}

// Send delivers msg. From and FromName default to the configured identity.
// The attachment file, if any, is deleted before Send returns regardless of
// the outcome; a failed deletion is logged and never changes the result.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	defer Discard(ctx, msg.Attachment)

	if !ValidEmail(msg.To) {
		return Receipt{}, serrors.With(serrors.ErrBadRequest, "Invalid email format")
	}
	if msg.ReplyTo != "" && !ValidEmail(msg.ReplyTo) {
		return Receipt{}, serrors.With(serrors.ErrBadRequest, "Invalid email format")
	}
	if d.sender == nil || d.cfg.From == "" {
		return Receipt{}, serrors.With(serrors.ErrConfiguration, "mail credentials are not configured")
	}

	if msg.From == "" {
		msg.From = d.cfg.From
	}
	if msg.FromName == "" {
		msg.FromName = d.cfg.FromName
	}
	msg.MessageID = uuid.NewString() + "@" + domainOf(msg.From)

	ctx = logger.WithFields(ctx, zap.String("message_id", msg.MessageID))
	if err := d.sender.Send(ctx, msg); err != nil {
		logger.Error(ctx, "could not send email", zap.Error(err))

		return Receipt{}, err
	}
	logger.Info(ctx, "email sent")

	return Receipt{MessageID: "<" + msg.MessageID + ">"}, nil
}

// Discard deletes the staged file of a. It is safe to call with nil, and more
// than once; failures are logged only.
func Discard(ctx context.Context, a *Attachment) {
	if a == nil || a.Path == "" {
		return
	}
	if err := os.Remove(a.Path); err != nil {
		if !os.IsNotExist(err) {
			logger.Error(ctx, "could not delete attachment", zap.String("path", a.Path), zap.Error(err))
		}

		return
	}
	logger.Debug(ctx, "attachment deleted", zap.String("path", a.Path))
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}

	return "localhost"
}
