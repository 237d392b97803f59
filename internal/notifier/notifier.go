package notifier

import (
	"fmt"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/notifier/providers"
	"github.com/ibeckermayer/postcycle/internal/report"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// Notifier handles sending cycle reports to the operator
type Notifier struct {
	sender        Sender
	to            string
	onFailureOnly bool
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, to string, onFailureOnly bool) *Notifier {
	return &Notifier{sender: sender, to: to, onFailureOnly: onFailureOnly}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig, onFailureOnly bool) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "smtp":
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender, cfg.ToAddr, onFailureOnly), nil
}

// ShouldSend reports whether r warrants an email
func (n *Notifier) ShouldSend(r types.CycleReport) bool {
	return !n.onFailureOnly || r.Failed() > 0 || r.MediaDowngraded
}

// SendReport emails a rendered report. It reports false when the cycle did
// not warrant an email.
func (n *Notifier) SendReport(r types.CycleReport, rendered *report.Rendered) (bool, error) {
	if !n.ShouldSend(r) {
		return false, nil
	}
	if err := n.sender.Send(n.to, rendered.Subject, rendered.HTMLBody, rendered.PlainBody); err != nil {
		return false, err
	}
	return true, nil
}
