// Package notify renders and delivers transactional emails. Delivery is
// best-effort: callers get a per-message outcome and never an error.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/careerlift/backend/internal/metrics"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Status is the delivery result of one message.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Message is one email to render and send. Key identifies the recipient slot
// in the caller's response (for example "jobSeeker").
type Message struct {
	Key      string
	Kind     string
	To       string
	Subject  string
	Template string
	Data     any
}

// Outcome reports what happened to one Message.
type Outcome struct {
	Key    string `json:"key"`
	To     string `json:"to,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DefaultTimeout bounds a whole Dispatch call.
const DefaultTimeout = 15 * time.Second

// Dispatcher sends messages concurrently through a Mailer.
type Dispatcher struct {
	mailer  Mailer
	log     *slog.Logger
	tmpl    *template.Template
	timeout time.Duration
}

// NewDispatcher parses the embedded templates and returns a Dispatcher.
func NewDispatcher(mailer Mailer, log *slog.Logger) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Dispatcher{mailer: mailer, log: log, tmpl: tmpl, timeout: DefaultTimeout}, nil
}

// WithTimeout returns a copy of d using a different overall timeout.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	cp := *d
	cp.timeout = timeout
	return &cp
}

// Dispatch sends every message and returns their outcomes in input order.
// Sending continues after the caller's context is canceled; only the
// dispatcher timeout stops it.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs ...Message) []Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	outcomes := make([]Outcome, len(msgs))
	var g errgroup.Group
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			outcomes[i] = d.send(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, msg Message) Outcome {
	out := Outcome{Key: msg.Key, To: msg.To}
	defer func() {
		metrics.Notifications.WithLabelValues(msg.Kind, string(out.Status)).Inc()
	}()

	if msg.To == "" {
		out.Status = StatusSkipped
		d.log.Warn("email skipped, no recipient", "kind", msg.Kind, "key", msg.Key)
		return out
	}

	var body bytes.Buffer
	if err := d.tmpl.ExecuteTemplate(&body, msg.Template, msg.Data); err != nil {
		out.Status, out.Error = StatusFailed, "render failed"
		d.log.Error("email render failed", "kind", msg.Kind, "template", msg.Template, "error", err)
		return out
	}

	if err := d.mailer.Send(ctx, msg.To, msg.Subject, body.String()); err != nil {
		out.Status, out.Error = StatusFailed, "delivery failed"
		d.log.Error("email delivery failed", "kind", msg.Kind, "to", msg.To, "error", err)
		return out
	}

	out.Status = StatusSent
	d.log.Info("email sent", "kind", msg.Kind, "to", msg.To)
	return out
}

// StatusByKey folds outcomes into a key → status map for API responses.
func StatusByKey(outcomes []Outcome) map[string]Status {
	m := make(map[string]Status, len(outcomes))
	for _, o := range outcomes {
		m[o.Key] = o.Status
	}
	return m
}
