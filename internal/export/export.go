// Package export emails the period ledger as a CSV attachment through SES.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/jhillyerd/enmime"
)

const subjectDateLayout = "Jan 02, 2006"

// API is the subset of the SES client used here.
type API interface {
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// Ledger is the attachment sent with the export.
type Ledger struct {
	FileName string
	Contents []byte
}

type Mailer struct {
	api        API
	sender     string
	recipients []string
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

func New(api API, sender string, recipients []string, loc *time.Location, logger *slog.Logger) *Mailer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		api:        api,
		sender:     sender,
		recipients: recipients,
		location:   loc,
		now:        time.Now,
		logger:     logger,
	}
}

func NewFromConfig(cfg aws.Config, sender string, recipients []string, loc *time.Location, logger *slog.Logger) *Mailer {
	return New(ses.NewFromConfig(cfg), sender, recipients, loc, logger)
}

// Subject returns the subject line for a period closing at t.
func Subject(t time.Time) string {
	return "Budget ledger for period ending " + t.Format(subjectDateLayout)
}

// Build renders the raw MIME message: body as text, ledger as text/csv.
func (m *Mailer) Build(body string, ledger Ledger) ([]byte, error) {
	if len(m.recipients) == 0 {
		return nil, errors.New("no export recipients")
	}
	now := m.now().In(m.location)

	b := enmime.Builder().
		From("", m.sender).
		Subject(Subject(now)).
		Date(now).
		Text([]byte(body)).
		AddAttachment(ledger.Contents, "text/csv", ledger.FileName)
	for _, r := range m.recipients {
		b = b.To("", r)
	}

	part, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build export email: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode export email: %w", err)
	}
	return buf.Bytes(), nil
}

// Send emails the ledger to every configured recipient.
func (m *Mailer) Send(ctx context.Context, body string, ledger Ledger) error {
	raw, err := m.Build(body, ledger)
	if err != nil {
		return err
	}

	out, err := m.api.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(m.sender),
		Destinations: m.recipients,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("send export email: %w", err)
	}

	m.logger.InfoContext(ctx, "Sent ledger export",
		"recipients", len(m.recipients),
		"file", ledger.FileName,
		"ses_message_id", aws.ToString(out.MessageId))
	return nil
}
