package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"trackmed/internal/domain/delivery"
)

// EmailSender delivers reminder notifications over SMTP.
type EmailSender struct {
	host     string
	port     string
	from     string
	password string
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(host, port, from, password string) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		send:     smtp.SendMail,
	}
}

func (s *EmailSender) Send(ctx context.Context, to delivery.Recipient, msg delivery.Message) error {
	if to.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}

	subject := fmt.Sprintf("Reminder for %s", msg.MedicationName)
	body := fmt.Sprintf(
		"<p>%s</p><p>Click <a href=%q>here</a> if you have taken them.</p><p>Need a few more minutes? <a href=%q>Snooze for 10 minutes</a>.</p>",
		msg.Body, msg.CompleteLink, msg.SnoozeLink,
	)

	var b strings.Builder
	fmt.Fprintf(&b, "From: TRACK MED <%s>\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)

	// smtp.SendMail has no context hook; run it in a goroutine so the
	// delivery timeout still bounds a hung SMTP server.
	done := make(chan error, 1)
	go func() {
		auth := smtp.PlainAuth("", s.from, s.password, s.host)
		done <- s.send(s.host+":"+s.port, auth, s.from, []string{to.Email}, []byte(b.String()))
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email delivery timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send reminder mail to %s: %w", to.Email, err)
		}
		return nil
	}
}
