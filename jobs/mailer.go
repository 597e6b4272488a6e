package jobs

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
)

// Mailer sends plain-text transactional mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer is the production Mailer.
type SMTPMailer struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

// Send delivers one message over SMTP, negotiating STARTTLS when offered.
func (s *SMTPMailer) Send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
