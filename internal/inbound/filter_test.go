package inbound

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmail/internal/core"
)

const sampleNotification = `{"Records":[{"eventSource":"aws:ses","eventVersion":"1.0","ses":{
 "mail":{"timestamp":"2017-08-29T04:12:29.692Z","source":"v@example.com","messageId":"hu2fft9k1k0scv9l0iaag5qteqbvallded5djpo1",
  "destination":["budget@example.com"],
  "commonHeaders":{"returnPath":"v@example.com","from":["Victor <v@example.com>"],"date":"Tue, 29 Aug 2017 04:12:17 +0000","subject":"ballard market"}},
 "receipt":{"timestamp":"2017-08-29T04:12:29.692Z","recipients":["budget@example.com"],
  "spamVerdict":{"status":"PASS"},"virusVerdict":{"status":"PASS"},"spfVerdict":{"status":"PASS"},"dkimVerdict":{"status":"PASS"}}}}]}`

func passing(source string) Record {
	src := source
	return Record{SES: SESMessage{
		Mail: Mail{Source: &src, MessageID: "m-" + source},
		Receipt: Receipt{
			SPFVerdict:   &Verdict{Status: "PASS"},
			SpamVerdict:  &Verdict{Status: "PASS"},
			VirusVerdict: &Verdict{Status: "PASS"},
		},
	}}
}

func TestDecodeNotification(t *testing.T) {
	var b Batch
	require.NoError(t, json.Unmarshal([]byte(sampleNotification), &b))
	require.Len(t, b.Records, 1)
	r := b.Records[0]
	assert.Equal(t, "hu2fft9k1k0scv9l0iaag5qteqbvallded5djpo1", r.MessageID())
	require.NotNil(t, r.SES.Mail.Source)
	assert.Equal(t, "v@example.com", *r.SES.Mail.Source)
	assert.Equal(t, "PASS", r.SES.Receipt.SpamVerdict.Status)

	ok, err := NewFilter([]string{"v@example.com"}).IsAccepted(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterRejectsFailedVerdicts(t *testing.T) {
	f := NewFilter([]string{"a@example.com"})
	mutations := map[string]func(*Record){
		"spf":   func(r *Record) { r.SES.Receipt.SPFVerdict.Status = "FAIL" },
		"spam":  func(r *Record) { r.SES.Receipt.SpamVerdict.Status = "GRAY" },
		"virus": func(r *Record) { r.SES.Receipt.VirusVerdict.Status = "PROCESSING_FAILED" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := passing("a@example.com")
			mutate(&r)
			ok, err := f.IsAccepted(r)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFilterSenderAllowList(t *testing.T) {
	f := NewFilter([]string{" a@example.com ", "b@example.com", ""})

	ok, err := f.IsAccepted(passing("a@example.com"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.IsAccepted(passing("mallory@example.com"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterMissingFieldsAreErrors(t *testing.T) {
	f := NewFilter([]string{"a@example.com"})
	cases := map[string]func(*Record){
		"receipt.spfVerdict":   func(r *Record) { r.SES.Receipt.SPFVerdict = nil },
		"receipt.spamVerdict":  func(r *Record) { r.SES.Receipt.SpamVerdict = nil },
		"receipt.virusVerdict": func(r *Record) { r.SES.Receipt.VirusVerdict = &Verdict{} },
		"mail.source":          func(r *Record) { r.SES.Mail.Source = nil },
		"mail.messageId":       func(r *Record) { r.SES.Mail.MessageID = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			r := passing("a@example.com")
			mutate(&r)
			_, err := f.IsAccepted(r)
			var fe *core.FilterError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, field, fe.Field)
		})
	}
}

func TestFilterAcceptPreservesOrder(t *testing.T) {
	f := NewFilter([]string{"a@example.com", "b@example.com"})
	in := []Record{passing("b@example.com"), passing("x@example.com"), passing("a@example.com")}

	out, err := f.Accept(in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "m-b@example.com", out[0].MessageID())
	assert.Equal(t, "m-a@example.com", out[1].MessageID())

	broken := passing("a@example.com")
	broken.SES.Receipt.SPFVerdict = nil
	_, err = f.Accept(append(in, broken))
	assert.Error(t, err)
}
