package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Server   string
	Port     string
	User     string
	Pass     string
	FromAddr string
	FromName string
}

func (c SMTPConfig) Complete() bool {
	return c.Server != "" && c.Port != "" && c.User != "" && c.Pass != "" && c.FromAddr != "" && c.FromName != ""
}

type Sender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg SMTPConfig) (*Sender, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("missing required SMTP settings: SMTP_SERVER=%q SMTP_PORT=%q SMTP_USER=%q FROM_ADDR=%q FROM_NAME=%q (SMTP_PASS set: %t)",
			cfg.Server, cfg.Port, cfg.User, cfg.FromAddr, cfg.FromName, cfg.Pass != "")
	}
	return &Sender{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func buildMessage(fromName, fromAddr, to, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		fromName, fromAddr, to, subject, body))
}

func (s *Sender) SendEmail(to string, subject string, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}
	msg := buildMessage(s.cfg.FromName, s.cfg.FromAddr, to, subject, body)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Server)

	err := s.sendMail(s.cfg.Server+":"+s.cfg.Port, auth, s.cfg.FromAddr, []string{to}, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendPaymentReceipt mails a plain-text receipt for a fee payment.
func (s *Sender) SendPaymentReceipt(to, orderID, paymentID, purpose string, amount int64, currency string) error {
	subject := fmt.Sprintf("Payment receipt for order %s", orderID)
	body := fmt.Sprintf("Thank you, your %s fee payment was received.\n\n"+
		"Order: %s\nPayment: %s\nAmount: %d.%02d %s\n\n"+
		"Keep this email for your records.",
		purpose, orderID, paymentID, amount/100, amount%100, currency)
	return s.SendEmail(to, subject, body)
}
