package mailingservices

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
)

// Mailer sends the transactional emails of the service.
type Mailer interface {
	SendWelcomeMessage(ctx context.Context, email, name string) (string, error)
	SendStatusChange(ctx context.Context, email, name, reportTitle, status string) (string, error)
	SendResetPassword(ctx context.Context, email, name, link string, ttl time.Duration) (string, error)
}

type Mailgun struct {
	Client mailgun.Mailgun
	From   string
}

// Init builds the Mailgun client. Without a domain and API key the mailer is
// left disabled and every send is a no-op.
func (mail *Mailgun) Init(c *config.Config) {
	if c.MgDomain == "" || c.MailgunApiKey == "" {
		logrus.Warn("mailgun is not configured, emails are disabled")
		return
	}
	mail.Client = mailgun.NewMailgun(c.MgDomain, c.MailgunApiKey)
	mail.From = c.MgEmailFrom
	if mail.From == "" {
		mail.From = "iReporter <no-reply@" + c.MgDomain + ">"
	}
}

func (mail *Mailgun) send(ctx context.Context, to, subject, body string) (string, error) {
	if mail.Client == nil {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m := mail.Client.NewMessage(mail.From, subject, body, to)
	_, id, err := mail.Client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return id, nil
}

func (mail *Mailgun) SendWelcomeMessage(ctx context.Context, email, name string) (string, error) {
	body := fmt.Sprintf("Hello %s,\n\nWelcome to iReporter. You can now report corruption "+
		"(red-flags) and request government intervention.\n", name)
	return mail.send(ctx, email, "Welcome to iReporter", body)
}

func (mail *Mailgun) SendStatusChange(ctx context.Context, email, name, reportTitle, status string) (string, error) {
	body := fmt.Sprintf("Hello %s,\n\nThe status of your report %q is now %s.\n", name, reportTitle, status)
	return mail.send(ctx, email, "Your report status changed", body)
}

func (mail *Mailgun) SendResetPassword(ctx context.Context, email, name, link string, ttl time.Duration) (string, error) {
	return mail.send(ctx, email, "Reset your iReporter password", resetPasswordBody(name, link, ttl))
}

func resetPasswordBody(name, link string, ttl time.Duration) string {
	return fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\n"+
		"If you did not ask for this you can ignore this email.\n", name, expiresIn(ttl), link)
}

// expiresIn spells a token lifetime in whole hours or minutes.
func expiresIn(ttl time.Duration) string {
	unit, n := "minute", int64(ttl.Round(time.Minute)/time.Minute)
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		unit, n = "hour", int64(ttl/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
