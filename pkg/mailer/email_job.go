package mailer

import (
	"context"
	"fmt"

	tpl "github.com/oksasatya/go-odata-api/pkg/mailer/templates"
)

// EmailJob is one email to send. Html is optional; Text is recommended as
// fallback. A Template with Data replaces Subject, Text and HTML.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "exception_alert"
	Data     map[string]any `json:"data,omitempty"`
}

// Render fills Subject, Text and HTML from the job's template.
func (j *EmailJob) Render() error {
	if j.Template == "" {
		return nil
	}
	s, t, h, err := tpl.Render(j.Template, j.Data)
	if err != nil {
		return fmt.Errorf("render %s: %w", j.Template, err)
	}
	j.Subject, j.Text, j.HTML = s, t, h
	return nil
}

// Sender is satisfied by Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// SendJob renders job and sends it through s.
func SendJob(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("email job without recipient")
	}
	if err := job.Render(); err != nil {
		return err
	}
	return s.Send(ctx, job.To, job.Subject, job.Text, job.HTML)
}
