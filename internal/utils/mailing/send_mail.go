package mailing

import (
	"strconv"

	"Label-Scanner-Backend/internal/utils"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/gomail.v2"
)

type (
	MailConfig struct {
		SMTPHost     string
		SMTPPort     string
		SMTPSender   string
		SMTPEmail    string
		SMTPPassword string
		Operator     string
	}

	// Notifier alerts operators about pipeline problems that need a human.
	Notifier interface {
		Notify(subject string, body string) error
	}

	mailNotifier struct {
		cfg MailConfig
	}

	noopNotifier struct{}
)

func LoadMailConfig() MailConfig {
	return MailConfig{
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
		Operator:     utils.GetConfig("OPERATOR_EMAIL"),
	}
}

// NewNotifier returns a mail backed notifier, or a no-op one when SMTP or the
// operator address is not configured.
func NewNotifier(cfg MailConfig) Notifier {
	if cfg.SMTPHost == "" || cfg.Operator == "" {
		return noopNotifier{}
	}
	return &mailNotifier{cfg: cfg}
}

func (m *mailNotifier) Notify(subject string, body string) error {
	return SendMail(m.cfg, m.cfg.Operator, subject, body)
}

func (noopNotifier) Notify(subject string, body string) error {
	log.Debugw("operator notification skipped, mail not configured", "subject", subject)
	return nil
}

func SendMail(cfg MailConfig, toEmail string, subject string, body string) error {
	mailer := gomail.NewMessage()
	mailer.SetAddressHeader("From", cfg.SMTPEmail, cfg.SMTPSender)
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/plain", body)
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		return err
	}
	dialer := gomail.NewDialer(
		cfg.SMTPHost,
		port,
		cfg.SMTPEmail,
		cfg.SMTPPassword,
	)

	return dialer.DialAndSend(mailer)
}
