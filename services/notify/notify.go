package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"

	"cablequest/lib/telemetry"
)

var tracer = telemetry.Tracer("services/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Summary describes one finished fetch run.
type Summary struct {
	RunID      string
	Keyword    string
	Fetched    int
	Failed     int
	Elapsed    time.Duration
	OutputFile string
}

// NewRunID generates the short id that tags a run's log lines and its
// completion email.
func NewRunID() string {
	id, err := random.String(8)
	if err != nil {
		return "unknown"
	}
	return id
}

type Notifier struct {
	config SmtpConfig
}

func NewNotifier(config SmtpConfig) Notifier {
	return Notifier{config: config}
}

// Enabled reports whether SMTP was configured. An unconfigured
// notifier silently does nothing.
func (n Notifier) Enabled() bool {
	return n.config.Server != "" && n.config.EmailAddress != ""
}

// Send emails the run summary to the given address. Servers without
// AUTH support get a second, unauthenticated attempt.
func (n Notifier) Send(ctx context.Context, to string, run Summary) error {
	if !n.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("cablequest <%s>", n.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = fmt.Sprintf("Fetch run %s finished: %q", run.RunID, run.Keyword)
	mail.Text = []byte(summaryBody(run))

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

func summaryBody(run Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your cable fetch run %s has finished.\n\n", run.RunID)
	fmt.Fprintf(&b, "Keyword: %s\n", run.Keyword)
	fmt.Fprintf(&b, "Cables fetched: %d\n", run.Fetched)
	if run.Failed > 0 {
		fmt.Fprintf(&b, "Failed downloads: %d (rerun fetch to retry them)\n", run.Failed)
	}
	fmt.Fprintf(&b, "Elapsed: %s\n", run.Elapsed.Round(time.Second))
	if run.OutputFile != "" {
		fmt.Fprintf(&b, "Output: %s\n", run.OutputFile)
	}
	return b.String()
}
