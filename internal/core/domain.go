package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Ledger column names, in file order.
const (
	ColumnWho   = "who"
	ColumnWhen  = "when"
	ColumnWhat  = "what"
	ColumnPrice = "price"
)

// LedgerHeader is the fixed header row of every ledger file.
var LedgerHeader = []string{ColumnWho, ColumnWhen, ColumnWhat, ColumnPrice}

// LedgerEntry is one expense record parsed from an inbound email.
type LedgerEntry struct {
	Payer       string
	OccurredAt  string // display-formatted local time, or the raw Date header when unparseable
	Description string
	Amount      decimal.Decimal
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyPayer    = errors.New("empty payer")
)

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Payer) == "" {
		return ErrEmptyPayer
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Record returns the entry as a ledger row matching LedgerHeader.
func (e LedgerEntry) Record() []string {
	return []string{e.Payer, e.OccurredAt, e.Description, e.Amount.String()}
}
