package email

import (
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

const productName = "My App"

// ResendEmailService implements EmailService using the Resend API.
type ResendEmailService struct {
	client      *resend.Client
	fromAddress string
}

// NewResendEmailService creates a new Resend email service.
// apiKey is the Resend API key.
// fromAddress is the sender email address (must be verified in Resend).
func NewResendEmailService(apiKey, fromAddress string) *ResendEmailService {
	return &ResendEmailService{
		client:      resend.NewClient(apiKey),
		fromAddress: fromAddress,
	}
}

// Send sends an email using the specified template via Resend.
func (r *ResendEmailService) Send(to, templateName string, data any) error {
	subject, body := r.renderTemplate(templateName, data)

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}

	_, err := r.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	return nil
}

// SendWelcome sends a welcome email to the specified recipient.
func (r *ResendEmailService) SendWelcome(to, name, loginURL string) error {
	return r.Send(to, TemplateWelcome, WelcomeData{
		Name:     name,
		LoginURL: loginURL,
	})
}

// renderTemplate renders the email template and returns subject and HTML body.
func (r *ResendEmailService) renderTemplate(templateName string, data any) (subject, body string) {
	switch d := data.(type) {
	case WelcomeData:
		if templateName == TemplateWelcome {
			return "Welcome to " + productName + "!", renderWelcomeHTML(d)
		}
	}
	subject = "Message from " + productName
	body = fmt.Sprintf("<p>%s</p>", html.EscapeString(fmt.Sprintf("%+v", data)))
	return
}

// renderWelcomeHTML generates HTML for welcome emails.
func renderWelcomeHTML(data WelcomeData) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome to %[1]s!</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #2563eb; padding: 30px; border-radius: 10px 10px 0 0;">
        <h1 style="color: white; margin: 0; font-size: 24px;">%[1]s</h1>
    </div>
    <div style="background: #ffffff; padding: 30px; border: 1px solid #e0e0e0; border-top: none; border-radius: 0 0 10px 10px;">
        <h2 style="color: #333; margin-top: 0;">Welcome, %[2]s!</h2>
        <p>Your account is ready. Sign in with the username you registered.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%[3]s" style="background: #2563eb; color: white; padding: 14px 30px; text-decoration: none; border-radius: 6px; font-weight: 600; display: inline-block;">Sign In</a>
        </div>
        <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated message from %[1]s. Please do not reply to this email.</p>
    </div>
</body>
</html>`, productName, html.EscapeString(data.Name), html.EscapeString(data.LoginURL))
}
