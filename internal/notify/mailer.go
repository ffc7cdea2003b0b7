// internal/notify/mailer.go
//
// Outbound e-mail.
//
// Context
// -------
// Two Mailers:
//
//   • SMTP – one connection per message, STARTTLS when offered, PLAIN auth
//     when a user is configured.  The dial and every later read/write obey
//     the context deadline.
//   • Log  – writes the envelope to the log and drops the body.  Used when
//     `registrar.notify.smtp_addr` is empty so a dev box never needs a relay.

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is one HTML e-mail.
type Message struct {
	From    mail.Address
	To      mail.Address
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

/*──────────────────────────── smtp ────────────────────────────────────────*/

// SMTP sends through a relay.
type SMTP struct {
	Addr     string
	User     string
	Password string
}

// Send implements Mailer.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr %q: %w", s.Addr, err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp hello: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.User != "" {
		if err := c.Auth(smtp.PlainAuth("", s.User, s.Password, host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.From.Address); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.To.Address); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(compose(m, time.Now())); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}
	return c.Quit()
}

// compose renders headers and body.
func compose(m Message, at time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", m.From.String())
	header("To", m.To.String())
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", at.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.HTML, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}

/*──────────────────────────── log ─────────────────────────────────────────*/

// Log is the relay-less Mailer.
type Log struct{}

// Send implements Mailer.
func (Log) Send(_ context.Context, m Message) error {
	zap.S().Infow("mail (not sent, no smtp relay)",
		"from", m.From.String(),
		"to", m.To.String(),
		"subject", m.Subject,
		"bytes", len(m.HTML),
	)
	return nil
}
