package smtp

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-bgg-gateway/internal/config"
	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/pkg/id"
)

// VerificationEmail is the data rendered into the verification message.
type VerificationEmail struct {
	Code      string
	Link      string
	ExpiresIn time.Duration
}

// Mailer sends transactional emails.
type Mailer interface {
	// Configured reports whether an SMTP host is set.
	Configured() bool
	SendVerificationCode(ctx context.Context, to string, data VerificationEmail) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

const verificationSubject = "Your verification code"

var verificationTmpl = template.Must(template.New("verification").Funcs(template.FuncMap{
	"minutes": func(d time.Duration) int { return int(d / time.Minute) },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>Enter this code in the app to verify your email address:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
<p>The code expires in {{minutes .ExpiresIn}} minutes.</p>
<p>Or open this link on the device you signed up with:<br><a href="{{.Link}}">Verify email</a></p>
<p>If you didn't ask for this, you can ignore this email.</p>
</body>
</html>
`))

func NewMailer(cfg config.SMTP) Mailer {
	return &mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		send:     smtp.SendMail,
	}
}

func (m *mailer) Configured() bool {
	return m.host != ""
}

func (m *mailer) SendVerificationCode(ctx context.Context, to string, data VerificationEmail) error {
	if !m.Configured() {
		return fmt.Errorf("email is not configured: %w", domain.ErrServiceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	var body bytes.Buffer
	if err := verificationTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	msg := m.compose(to, verificationSubject, body.String())

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := m.send(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (m *mailer) compose(to, subject, htmlBody string) []byte {
	domainPart := m.host
	if at := strings.LastIndex(m.from, "@"); at >= 0 {
		domainPart = m.from[at+1:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", id.New(), domainPart)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
