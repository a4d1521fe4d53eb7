package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender renders the application's transactional emails and hands them to a
// Provider for delivery.
type Sender struct {
	provider Provider
	baseURL  string
	tmpl     *template.Template
}

func NewSender(provider Provider, baseURL string) (*Sender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Sender{provider: provider, baseURL: baseURL, tmpl: tmpl}, nil
}

// SendInvitation mails an organization invite link to the recipient.
func (s *Sender) SendInvitation(ctx context.Context, to, orgName, inviterName, invitationID string) error {
	link := fmt.Sprintf("%s/invite/%s", s.baseURL, url.PathEscape(invitationID))
	body, err := s.render("invite_member.html", map[string]any{
		"OrgName":     orgName,
		"InviterName": inviterName,
		"InviteLink":  link,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("You're invited to join %s", orgName)
	return s.provider.Send(ctx, []string{to}, subject, body)
}

// SendVerification mails the email-verification link for a new account.
func (s *Sender) SendVerification(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.baseURL, url.QueryEscape(token))
	body, err := s.render("verify_email.html", map[string]any{
		"Name":       name,
		"VerifyLink": link,
	})
	if err != nil {
		return err
	}
	return s.provider.Send(ctx, []string{to}, "Verify your email address", body)
}

func (s *Sender) render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
