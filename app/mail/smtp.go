package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier delivers password-reset notices over SMTP.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
	baseURL  string
}

func NewSMTPNotifier(host string, port int, username, password, from, fromName string, useTLS bool, baseURL string) (*SMTPNotifier, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
		baseURL:  baseURL,
	}, nil
}

func (n *SMTPNotifier) SendPasswordResetNotice(_ context.Context, email, token string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("recipient email is required")
	}

	subject := "Password reset request"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password here: %s\n\n"+
			"The link expires in one hour. If you did not request this, ignore this message.\n",
		ResetLink(n.baseURL, token),
	)
	msg := buildMessage(n.from, n.fromName, email, subject, body)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if n.useTLS {
		return n.sendTLS(addr, auth, email, msg)
	}
	return smtp.SendMail(addr, auth, n.from, []string{email}, []byte(msg))
}

func (n *SMTPNotifier) sendTLS(addr string, auth smtp.Auth, to, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(n.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
