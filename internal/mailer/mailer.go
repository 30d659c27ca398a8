// Package mailer sends ballot-access emails. The core only depends on the
// Mailer interface; delivery guarantees beyond provider acknowledgment are
// out of scope.
package mailer

import (
	"context"
	"strings"

	"server/config"
	"server/internal/logger"

	gomail "github.com/wneessen/go-mail"
)

// BallotURLPlaceholder marks where the voter's unique ballot link goes in an
// email template. Templates without the placeholder get the link appended.
const BallotURLPlaceholder = "{{ballot_url}}"

const ballotEmailSubject = "Your ballot is ready"

type Mailer interface {
	SendBallotEmail(ctx context.Context, recipient, templateText, ballotURL string) error
}

// RenderTemplate substitutes the ballot link into the admin-provided
// template text.
func RenderTemplate(templateText, ballotURL string) string {
	if strings.Contains(templateText, BallotURLPlaceholder) {
		return strings.ReplaceAll(templateText, BallotURLPlaceholder, ballotURL)
	}
	return strings.TrimRight(templateText, "\n") + "\n\n" + ballotURL + "\n"
}

type smtpMailer struct {
	client *gomail.Client
	from   string
	log    logger.Logger
}

// NewSMTP returns a Mailer that delivers through the configured SMTP relay.
func NewSMTP(config config.Config) (Mailer, error) {
	log := logger.New("mailer").Function("NewSMTP")

	client, err := gomail.NewClient(config.SMTPHost,
		gomail.WithPort(config.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(config.SMTPUser),
		gomail.WithPassword(config.SMTPPassword),
	)
	if err != nil {
		return nil, log.Err("failed to create smtp client", err, "host", config.SMTPHost)
	}

	return &smtpMailer{
		client: client,
		from:   config.EmailFrom,
		log:    logger.New("mailer"),
	}, nil
}

func (m *smtpMailer) SendBallotEmail(ctx context.Context, recipient, templateText, ballotURL string) error {
	log := m.log.Function("SendBallotEmail")

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return log.Err("invalid sender address", err, "from", m.from)
	}
	if err := msg.To(recipient); err != nil {
		return log.Err("invalid recipient address", err, "recipient", recipient)
	}
	msg.Subject(ballotEmailSubject)
	msg.SetBodyString(gomail.TypeTextPlain, RenderTemplate(templateText, ballotURL))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return log.Err("failed to send ballot email", err, "recipient", recipient)
	}

	return nil
}

// Noop logs instead of sending, for development and tests.
type Noop struct {
	log logger.Logger
}

func NewNoop() *Noop {
	return &Noop{log: logger.New("mailer").File("noop")}
}

func (m *Noop) SendBallotEmail(ctx context.Context, recipient, templateText, ballotURL string) error {
	m.log.Info("Skipping ballot email send", "recipient", recipient, "ballotURL", ballotURL)
	return nil
}
