package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/config"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
)

// SMTPNotifier delivers plain-text mail through a single SMTP relay.
type SMTPNotifier struct {
	cfg    config.SMTPSettings
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier constructs a notifier for the configured relay. The From
// address must be set; code issuance refuses to run without a sender identity.
func NewSMTPNotifier(cfg config.SMTPSettings, log *zap.Logger) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp: from address is required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}

	return &SMTPNotifier{
		cfg:    cfg,
		logger: log,
		send:   smtp.SendMail,
	}, nil
}

// Send delivers a single message. Errors mean the relay rejected or never
// accepted the message; callers decide whether stored state survives.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("smtp: recipient is required")
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		n.cfg.From, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		n.logger.Warn("mail delivery failed",
			zap.String("to", logger.MaskEmail(to)),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

var _ port.Notifier = (*SMTPNotifier)(nil)
