package mailer

import (
	"context"

	"github.com/oksasatya/medrecords-users/pkg/mailer/templates"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// AuditNotifier mails user audit notices to a fixed recipient.
type AuditNotifier struct {
	Sender    Sender
	Recipient string
	AppName   string
}

func NewAuditNotifier(sender Sender, recipient, appName string) *AuditNotifier {
	return &AuditNotifier{Sender: sender, Recipient: recipient, AppName: appName}
}

func (n *AuditNotifier) Notify(ctx context.Context, data templates.AuditData) error {
	if data.AppName == "" {
		data.AppName = n.AppName
	}
	subject, text, html, err := templates.Render(templates.UserAudit, data)
	if err != nil {
		return err
	}
	return n.Sender.Send(ctx, n.Recipient, subject, text, html)
}
