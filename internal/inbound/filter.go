package inbound

import (
	"strings"

	"budgetmail/internal/core"
)

const verdictPass = "PASS"

// Filter accepts events whose spf, spam and virus verdicts all pass and whose
// envelope sender is allow-listed.
type Filter struct {
	allowed map[string]struct{}
}

func NewFilter(allowedSenders []string) *Filter {
	allowed := make(map[string]struct{}, len(allowedSenders))
	for _, s := range allowedSenders {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		allowed[s] = struct{}{}
	}
	return &Filter{allowed: allowed}
}

// IsAccepted reports whether the record should be processed. A missing
// verdict, sender or message id is a contract violation and returns a
// *core.FilterError instead of a silent rejection.
func (f *Filter) IsAccepted(r Record) (bool, error) {
	id := r.MessageID()
	if id == "" {
		return false, &core.FilterError{Field: "mail.messageId"}
	}
	receipt := r.SES.Receipt
	verdicts := []struct {
		field string
		v     *Verdict
	}{
		{"receipt.spfVerdict", receipt.SPFVerdict},
		{"receipt.spamVerdict", receipt.SpamVerdict},
		{"receipt.virusVerdict", receipt.VirusVerdict},
	}
	for _, vd := range verdicts {
		if vd.v == nil || vd.v.Status == "" {
			return false, &core.FilterError{MessageID: id, Field: vd.field}
		}
	}
	if r.SES.Mail.Source == nil {
		return false, &core.FilterError{MessageID: id, Field: "mail.source"}
	}

	for _, vd := range verdicts {
		if !strings.EqualFold(vd.v.Status, verdictPass) {
			return false, nil
		}
	}
	_, ok := f.allowed[*r.SES.Mail.Source]
	return ok, nil
}

// Accept returns the accepted records in input order. The first contract
// violation aborts the whole batch.
func (f *Filter) Accept(records []Record) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		ok, err := f.IsAccepted(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
