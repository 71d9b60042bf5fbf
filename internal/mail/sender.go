package mail

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"humanityclub/site/internal/config"
	"humanityclub/site/internal/models"
)

var ErrNotConfigured = errors.New("mail relay not configured")

var contactHTML = template.Must(template.New("contact").Parse(`<h3>New Contact Form Submission</h3>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
<p><small>Received {{.ReceivedAt.Format "2006-01-02 15:04 MST"}}</small></p>
`))

// Sender delivers contact-form submissions through the configured SMTP
// relay.
type Sender struct {
	cfg config.MailConfig
}

func NewSender(cfg config.MailConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.From != "" && s.cfg.To != ""
}

func (s *Sender) SendContact(ctx context.Context, msg models.ContactMessage) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	m, err := s.buildContact(msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

func (s *Sender) buildContact(msg models.ContactMessage) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := m.To(s.cfg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if err := m.ReplyTo(msg.Email); err != nil {
		return nil, fmt.Errorf("reply-to: %w", err)
	}
	m.Subject("New Contact Form Submission from " + msg.Name)
	m.SetBodyString(gomail.TypeTextPlain, contactText(msg))

	var html strings.Builder
	if err := contactHTML.Execute(&html, msg); err != nil {
		return nil, fmt.Errorf("render contact mail: %w", err)
	}
	m.AddAlternativeString(gomail.TypeTextHTML, html.String())
	return m, nil
}

func contactText(msg models.ContactMessage) string {
	var b strings.Builder
	b.WriteString("New Contact Form Submission\n\n")
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Email: %s\n\n", msg.Email)
	b.WriteString("Message:\n")
	b.WriteString(msg.Message)
	b.WriteString("\n")
	return b.String()
}
