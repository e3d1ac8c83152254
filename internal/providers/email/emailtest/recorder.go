// Package emailtest provides an in-memory email.Provider for tests.
package emailtest

import (
	"context"
	"sync"

	"github.com/smallbiznis/partnerdesk/internal/providers/email"
)

type Message struct {
	To       []string
	Subject  string
	Body     string
	Template string
	Data     map[string]any
}

// Recorder renders templates like the SMTP provider and keeps every message.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned by every send.
	Err error
}

func (r *Recorder) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (r *Recorder) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if r.Err != nil {
		return r.Err
	}
	subject, body, err := email.Render(templateName, data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		To:       to,
		Subject:  subject,
		Body:     body,
		Template: templateName,
		Data:     data,
	})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
