package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rental-modification-backend/internal/logger"
)

// mailClient is the part of *sendgrid.Client the sender uses.
type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridEmailSender struct {
	client    mailClient
	fromEmail string
	fromName  string
}

func NewSendGridEmailSender(apiKey, fromEmail, fromName string) EmailSender {
	return newSendGridEmailSender(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func newSendGridEmailSender(client mailClient, fromEmail, fromName string) *sendGridEmailSender {
	return &sendGridEmailSender{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridEmailSender) SendEmail(ctx context.Context, to, toName, subject, body string) error {
	logger.ExternalServiceCall("sendgrid", "Send", "to", to, "subject", subject)

	message := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.fromEmail), subject, mail.NewEmail(toName, to), body, "")
	response, err := s.client.Send(message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
	} else if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	logger.ExternalServiceResult("sendgrid", "Send", err, "to", to)
	return err
}
