// internal/notify/notifier.go
//
// Post-commit notification dispatcher.
//
// Context
// -------
// Notifier is an extension Observer.  For every committed transition it
// may queue:
//
//   • a client e-mail   – when the transition asks for one and both the
//                         registrant and the registrar contact have an
//                         address;
//   • an admin e-mail   – for API transitions when `notify.admin` is on
//                         and an admin address is configured;
//   • one webhook POST  – per `notify.webhooks` URL.
//
// Messages are rendered on the caller's goroutine; delivery happens on
// background goroutines bounded by a weighted semaphore of
// `notify.workers`.  Failures
// are logged and counted, never returned.
//
// Workflow
// --------
//   OnAfterTransition ─▶ build jobs ─▶ dispatch (semaphore) ─▶ deliver
//   Close(ctx)        ─▶ stop accepting ─▶ wait for in-flight jobs

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/metrics"
	"github.com/yanizio/swregistry/internal/registry"
	"github.com/yanizio/swregistry/internal/view"
)

// Built-in e-mail wording, used when the registrar leaves the templates
// empty.
const (
	DefaultClientMessage = "<p>[registry_name],</p>\n" +
		"<p>Your product registration for <var>[registry_title]</var> has been [update_context].<br>\n" +
		"\tYour registration key is: <code>[registry_key]</code>\n</p>\n"
	DefaultAdminMessage = "<p>To: Software Registrar,</p>" +
		"<p>A product registration for <var>[registry_title]</var> has been [update_context]." +
		" The details of this registration are below.</p>"
)

const defaultTimeout = 30 * time.Second

// Renderer is the slice of view.Engine the notifier needs.
type Renderer interface {
	RegistryTableDiff(r, prior *registry.Registration, s *registry.Settings, api bool) (string, error)
	RenderEmail(product string, m view.Email) (string, error)
}

// Notifier sends notifications.
type Notifier struct {
	cfg     config.Notify
	mailer  Mailer
	view    Renderer
	client  *retryablehttp.Client
	sem     *semaphore.Weighted
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the webhook client.
func WithHTTPClient(c *retryablehttp.Client) Option { return func(n *Notifier) { n.client = c } }

// New wires a Notifier.  A nil mailer selects Log.
func New(cfg config.Notify, mailer Mailer, r Renderer, opts ...Option) *Notifier {
	if mailer == nil {
		mailer = Log{}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	n := &Notifier{
		cfg:     cfg,
		mailer:  mailer,
		view:    r,
		client:  newWebhookClient(timeout),
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
	n.base, n.cancel = context.WithCancel(context.Background())
	for _, o := range opts {
		o(n)
	}
	return n
}

// NewMailer picks SMTP when a relay is configured.
func NewMailer(cfg config.Notify) Mailer {
	if cfg.SMTPAddr == "" {
		return Log{}
	}
	return &SMTP{Addr: cfg.SMTPAddr, User: cfg.SMTPUser, Password: cfg.SMTPPassword}
}

// Name implements extension.Extension.
func (n *Notifier) Name() string { return "notify" }

// OnAfterTransition implements extension.Observer.
func (n *Notifier) OnAfterTransition(_ context.Context, t *registry.Transition) {
	r, s := t.Registration, t.Settings
	if r == nil || s == nil {
		return
	}
	resp := registry.BuildResponse(&registry.Result{
		Action:       t.Action,
		Context:      t.Context,
		Registration: r,
		Settings:     s,
		Request:      t.Request,
	}, nil)

	if t.EmailToClient && r.Email != "" && s.Contact.Email != "" {
		if m, err := n.clientMessage(t, resp.Registrar.Notices); err != nil {
			n.failed("client", r.Key, err)
		} else {
			n.dispatch("client", r.Key, func(ctx context.Context) error { return n.mailer.Send(ctx, m) })
		}
	}

	if n.cfg.Admin && s.Admin != "" && t.Request.IsAPI() {
		if m, err := n.adminMessage(t); err != nil {
			n.failed("admin", r.Key, err)
		} else {
			n.dispatch("admin", r.Key, func(ctx context.Context) error { return n.mailer.Send(ctx, m) })
		}
	}

	if len(n.cfg.Webhooks) > 0 {
		body, err := json.Marshal(map[string]any{
			"action":       t.Action,
			"context":      t.Context,
			"registration": resp.Registration,
		})
		if err != nil {
			n.failed("webhook", r.Key, err)
			return
		}
		for _, url := range n.cfg.Webhooks {
			url := url
			n.dispatch("webhook", r.Key, func(ctx context.Context) error { return n.post(ctx, url, body) })
		}
	}
}

// Close stops accepting work and waits for queued deliveries or ctx.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		n.cancel()
		return nil
	case <-ctx.Done():
		n.cancel()
		return ctx.Err()
	}
}

/*──────────────────────────── delivery ────────────────────────────────────*/

func (n *Notifier) dispatch(kind, key string, job func(context.Context) error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.failed(kind, key, errors.New("notifier closed"))
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		if err := n.sem.Acquire(n.base, 1); err != nil {
			n.failed(kind, key, err)
			return
		}
		defer n.sem.Release(1)

		ctx, cancel := context.WithTimeout(n.base, n.timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			n.failed(kind, key, err)
			return
		}
		metrics.Notifications.WithLabelValues(kind, "sent").Inc()
		zap.S().Debugw("notification sent", "kind", kind, "key", key)
	}()
}

func (n *Notifier) failed(kind, key string, err error) {
	metrics.Notifications.WithLabelValues(kind, "failed").Inc()
	zap.S().Warnw("notification failed", "kind", kind, "key", key, "err", err)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "swregistry-webhook/1")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: %s", url, resp.Status)
	}
	return nil
}

/*──────────────────────────── messages ────────────────────────────────────*/

func (n *Notifier) clientMessage(t *registry.Transition, notices registry.Notices) (Message, error) {
	r, s := t.Registration, t.Settings

	tmpl := s.Messages.ClientEmail
	if tmpl == "" {
		tmpl = DefaultClientMessage
	}
	table, err := n.view.RegistryTableDiff(r, nil, s, true)
	if err != nil {
		return Message{}, err
	}
	subject := fmt.Sprintf("Your %s registration has been %s", r.Title, t.Context)
	body, err := n.view.RenderEmail(r.Product, view.Email{
		Subject:   subject,
		Message:   template.HTML(registry.MergeMessage(tmpl, r, s, t.Context, DefaultClientMessage)),
		Signature: signature(s),
		Notices:   noticeHTML(notices),
		Table:     template.HTML(table),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    mail.Address{Name: s.Name, Address: s.Contact.Email},
		To:      mail.Address{Name: r.Name, Address: r.Email},
		Subject: subject,
		HTML:    body,
	}, nil
}

func (n *Notifier) adminMessage(t *registry.Transition) (Message, error) {
	r, s := t.Registration, t.Settings

	tmpl := s.Messages.AdminEmail
	if tmpl == "" {
		tmpl = DefaultAdminMessage
	}
	table, err := n.view.RegistryTableDiff(r, t.Prior, s, false)
	if err != nil {
		return Message{}, err
	}
	host := s.Host
	if host == "" {
		host = t.Request.Host
	}
	subject := fmt.Sprintf("[%s] Registration %s on %s", s.Name, t.Context, host)

	source := t.Request.Source
	if source == "" {
		source = registry.SourceAPI
	}
	footer := fmt.Sprintf("Registration %s via %s.", t.Context, source)
	if from := t.Request.RefererHost(); from != "" {
		footer += " Requested from " + from + "."
	}
	if t.EmailToClient && r.Email != "" {
		footer += " Email notification was sent to client."
	}

	body, err := n.view.RenderEmail(r.Product, view.Email{
		Subject: subject,
		Message: template.HTML(registry.MergeMessage(tmpl, r, s, t.Context, DefaultAdminMessage)),
		Table:   template.HTML(table),
		Footer:  footer,
	})
	if err != nil {
		return Message{}, err
	}

	from := n.cfg.From
	if from == "" {
		from = s.Contact.Email
	}
	if from == "" {
		from = s.Admin
	}
	return Message{
		From:    mail.Address{Name: s.Name, Address: from},
		To:      mail.Address{Name: s.Name, Address: s.Admin},
		Subject: subject,
		HTML:    body,
	}, nil
}

// signature lists the registrar's contact lines.
func signature(s *registry.Settings) []string {
	var out []string
	for _, v := range []string{s.Name, s.Contact.Email, s.Contact.Phone, s.Contact.Web} {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// noticeHTML renders the non-empty notices.  Notice text is already HTML.
func noticeHTML(n registry.Notices) template.HTML {
	var b strings.Builder
	for _, kv := range [][2]string{{"info", n.Info}, {"warning", n.Warning}, {"error", n.Error}, {"success", n.Success}} {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "<p class=\"notice notice-%s\">%s</p>", html.EscapeString(kv[0]), kv[1])
	}
	return template.HTML(b.String())
}
