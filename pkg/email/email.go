package email

import (
	"fmt"
	"net/smtp"
	"os"
)

// Mailer sends plain text mail. The SMTP implementation is used in production;
// tests substitute a fake.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through the SMTP server configured in the environment.
type SMTPMailer struct{}

func (SMTPMailer) Send(to, subject, body string) error {
	from := os.Getenv("SMTP_SENDER")
	password := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")

	auth := smtp.PlainAuth("", from, password, smtpHost)

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	address := smtpHost + ":" + smtpPort

	if err := smtp.SendMail(address, auth, from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
