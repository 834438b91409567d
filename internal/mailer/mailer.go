// Package mailer delivers confirmation codes out-of-band. Delivery is a
// best-effort side effect: the signup transaction never waits on it and never
// rolls back because of it.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"golang.org/x/time/rate"
)

const (
	fromName    = "ReviewHub"
	subjectLine = "ReviewHub confirmation code"
	dialTimeout = 30 * time.Second
)

type Client interface {
	SendConfirmationCode(ctx context.Context, email, username, code string) error
}

// SMTPClient sends codes through a plain SMTP relay. Outbound sends are
// throttled so a signup burst cannot flood the relay.
type SMTPClient struct {
	addr    string // host:port
	host    string
	from    string
	auth    smtp.Auth
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewSMTPClient(host string, port int, username, password, from string, perMinute int, logger *slog.Logger) *SMTPClient {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	return &SMTPClient{
		addr:    fmt.Sprintf("%s:%d", host, port),
		host:    host,
		from:    from,
		auth:    auth,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:  logger,
	}
}

func (c *SMTPClient) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail throttle: %w", err)
	}

	msg := c.buildMessage(email, username, code)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", c.addr, err)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if c.auth != nil {
		if err := client.Auth(c.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

func (c *SMTPClient) buildMessage(email, username, code string) []byte {
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour confirmation code: %s\r\n", username, code)
	headers := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n",
		fromName, c.from, email, subjectLine,
	)
	return []byte(headers + body)
}

// LogClient writes the code to the log instead of sending mail. Used in
// development when no SMTP relay is configured.
type LogClient struct {
	logger *slog.Logger
}

func NewLogClient(logger *slog.Logger) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	c.logger.Info("confirmation code issued",
		"email", email,
		"username", username,
		"code", code,
	)
	return nil
}
