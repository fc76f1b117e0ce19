// Package notify renders budget summaries and dispatches them over the
// notification channel.
package notify

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
)

// NewPeriodMessage is published once the ledger has been reset.
const NewPeriodMessage = "Starting new budget period. Good luck!"

// Publisher sends one plain-text message to the notification channel.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Notifier wraps a Publisher and reports transport failures as
// *core.NotifyError.
type Notifier struct {
	pub    Publisher
	topic  string
	logger *slog.Logger
}

func New(pub Publisher, topic string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, topic: topic, logger: logger}
}

func (n *Notifier) Publish(ctx context.Context, message string) error {
	n.logger.InfoContext(ctx, "Publishing message", "topic", n.topic, "bytes", len(message))
	if err := n.pub.Publish(ctx, message); err != nil {
		return &core.NotifyError{Topic: n.topic, Err: err}
	}
	return nil
}

// LineSeparator is the platform line separator used to join message lines.
func LineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// BatchUpdateMessage lists the entries appended in this invocation followed
// by the running total and the budget line.
func BatchUpdateMessage(entries []core.LedgerEntry, total, budget decimal.Decimal) string {
	lines := make([]string, 0, len(entries)+2)
	for _, e := range entries {
		lines = append(lines, e.Payer+", "+e.OccurredAt+", "+e.Description+", "+core.FormatDollars(e.Amount))
	}
	lines = append(lines, "Total spend for period is now: "+core.FormatDollars(total))

	status := core.NewBudgetStatus(total, budget)
	if status.OverBudget() {
		lines = append(lines, overBudgetLine(status))
	} else {
		lines = append(lines, "You have "+core.FormatDollars(status.Delta())+" remaining for the period.")
	}
	return strings.Join(lines, LineSeparator())
}

// PeriodCloseMessage summarizes a finished period.
func PeriodCloseMessage(total, budget decimal.Decimal) string {
	lines := []string{
		"Budget period ending!",
		"Total spent for this period is " + core.FormatDollars(total),
	}
	status := core.NewBudgetStatus(total, budget)
	if status.OverBudget() {
		lines = append(lines, overBudgetLine(status))
	} else {
		lines = append(lines, "Made it with "+core.FormatDollars(status.Delta())+" savings. Way to go!")
	}
	return strings.Join(lines, LineSeparator())
}

func overBudgetLine(s core.BudgetStatus) string {
	return "You went " + core.FormatDollars(s.Delta()) + " over budget!"
}

// LogPublisher writes messages to the logger instead of a remote channel.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, message string) error {
	p.logger.InfoContext(ctx, "Notification", "message", message)
	return nil
}
