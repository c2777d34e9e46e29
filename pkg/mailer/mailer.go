package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP connection details, read from the environment at startup
// and passed in explicitly.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer sends templated mail over SMTP.
type Mailer struct {
	cfg Config
}

// New creates a new Mailer.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

var resetTemplate = template.Must(template.New("password-reset").Parse(`
<p>Hello {{.Name}},</p>
<p>A password reset was requested for your account. The link below is valid
for one hour:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
`))

// SendPasswordReset sends the reset link to the given recipient.
func (m *Mailer) SendPasswordReset(to, name, resetURL string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Name     string
		ResetURL string
	}{Name: name, ResetURL: resetURL})
	if err != nil {
		return fmt.Errorf("failed to render password reset mail: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset")
	msg.SetBody("text/html", body.String())

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send password reset mail to %s: %w", to, err)
	}
	return nil
}
