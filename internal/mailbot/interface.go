package mailbot

import (
	"context"

	"multiapi/pkg/mailer"
)

// MailRequest is a message relayed to the address the client names.
type MailRequest struct {
	Subject     string
	Email       string
	Description string
	// Attachment is an optional staged upload; it is deleted once handled.
	Attachment *mailer.Attachment
}

// ContactRequest is a contact form submission delivered to the site owner.
type ContactRequest struct {
	Name    string
	Email   string
	Message string
}

//go:generate mockgen -package mockmailbot -source=interface.go -destination=mock/mockmailbot.go *
type Service interface {
	SendMail(ctx context.Context, req MailRequest) (mailer.Receipt, error)
	SendContact(ctx context.Context, req ContactRequest) (mailer.Receipt, error)
}
