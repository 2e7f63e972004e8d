package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*
var emailTemplates embed.FS

// SMTPConfig holds the outgoing mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailNotifier sends status emails directly over SMTP
type EmailNotifier struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465
	return &EmailNotifier{cfg: cfg, dialer: d}
}

func (s *EmailNotifier) SendOrderNotification(ctx context.Context, n StatusNotification) error {
	if n.UserEmail == "" {
		return fmt.Errorf("no email address for user %d", n.UserID)
	}

	msg := BuildStatusEmail(n)
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

func (s *EmailNotifier) buildMessage(msg EmailMessage) (*gomail.Message, error) {
	htmlBody, err := renderHTML(msg.Template, msg.Data)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	plainBody, err := renderPlain(msg.Template, msg.Data)
	if err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)
	return m, nil
}

func renderHTML(name string, data map[string]any) (string, error) {
	tmpl, err := htmltemplate.ParseFS(emailTemplates, "templates/"+name+".html")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderPlain(name string, data map[string]any) (string, error) {
	tmpl, err := texttemplate.ParseFS(emailTemplates, "templates/"+name+".txt")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
