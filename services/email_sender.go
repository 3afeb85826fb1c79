package services

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/gomail.v2"

	"online-admission/config"
	"online-admission/logger"
)

// SendEmailDirect sends email directly via SMTP.
// Called by the Kafka consumer for email.send events, or by SendEmail when
// Kafka is disabled.
func SendEmailDirect(email Email) error {
	cfg := config.AppConfig
	logger.Info("Sending email via SMTP - Recipient: %s", email.To)

	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if from == "" {
		return fmt.Errorf("email sender not configured (set EMAIL_FROM or SMTP_USER)")
	}
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		return fmt.Errorf("smtp credentials not configured (set SMTP_USER and SMTP_PASS)")
	}

	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		port = 587
	}

	d := gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	if err := d.DialAndSend(buildMessage(from, email)); err != nil {
		logger.Error("Failed to send email to %s: %v", email.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email successfully sent to: %s", email.To)
	return nil
}

func buildMessage(from string, email Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/html", email.Body)

	if len(email.Attachment) > 0 {
		name := email.AttachmentName
		if name == "" {
			name = "attachment.pdf"
		}
		data := email.Attachment
		m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}
