// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one rendered email for a single recipient.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Validate reports whether the message can be handed to a provider.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("recipient address is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("message body is required")
	}
	return nil
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendResponse, error)
}

type sendResponse struct {
	StatusCode int
	Body       string
}

type sendgridClient struct {
	client *sendgrid.Client
}

func (c sendgridClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendResponse, error) {
	resp, err := c.client.SendWithContext(ctx, email)
	if err != nil {
		return nil, err
	}
	return &sendResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client   sendClient
	from     string
	fromName string
}

// NewSendGrid builds a SendGrid mailer from config.
func NewSendGrid(cfg config.SendgridConfig) (*SendGrid, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	return &SendGrid{
		client:   sendgridClient{client: sendgrid.NewSendClient(key)},
		from:     cfg.DefaultFrom,
		fromName: cfg.FromName,
	}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(msg.ToName, msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// Log writes messages to the logger instead of delivering them. Used when
// no provider key is configured.
type Log struct {
	logg *logger.Logger
}

func NewLog(logg *logger.Logger) *Log {
	return &Log{logg: logg}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if l.logg == nil {
		return nil
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	l.logg.Info(ctx, "email delivery skipped; no provider configured")
	return nil
}

// New picks SendGrid when an API key is configured and the log mailer otherwise.
func New(cfg config.SendgridConfig, logg *logger.Logger) (Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLog(logg), nil
	}
	return NewSendGrid(cfg)
}

// Sender is implemented by every mailer in this package.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
