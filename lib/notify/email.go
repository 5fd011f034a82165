package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server string `json:"server"`
	Port   int    `json:"port"`
	From   string `json:"from"`
	// destination addresses; a carrier's email-to-SMS gateway address
	// works here too
	To       []string `json:"to"`
	Password string   `json:"password"`
}

// EmailNotifier delivers over SMTP. Doubles as the SMS channel when the
// destination is an email-to-SMS gateway.
type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (n EmailNotifier) Notify(ctx context.Context, notification Notification) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Seatwatch <%s>", n.config.From)
	mail.To = n.config.To
	mail.Subject = notification.Subject
	mail.Text = []byte(notification.Body)

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", n.config.From, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return &DeliveryError{Channel: "email", Err: err}
	}
	return nil
}
