package email

import (
	"context"
	"strings"
)

// Sender is the transactional mail boundary used by the services.
type Sender struct {
	Settings  Settings
	FromName  string
	FromEmail string
}

func (s *Sender) SendVerification(ctx context.Context, toEmail, name, verifyURL string) error {
	greeting := "Hello,"
	if name != "" {
		greeting = "Hello " + name + ","
	}

	subject := "Verify your GradVerify email address"
	body := strings.Join([]string{
		greeting,
		"",
		"Confirm your email address to activate your GradVerify account:",
		verifyURL,
		"",
		"The link expires in 24 hours. If you did not create an account,",
		"you can ignore this email.",
	}, "\n")

	return Send(ctx, s.Settings, Message{
		FromName:  s.FromName,
		FromEmail: s.FromEmail,
		ToEmail:   toEmail,
		Subject:   subject,
		TextBody:  body,
	})
}
