// Package inbound models SES receipt notifications and decides which of them
// are trustworthy enough to process.
package inbound

import "time"

// Batch is one invocation's worth of inbound mail notifications.
type Batch struct {
	Records []Record `json:"Records"`
}

type Record struct {
	EventSource  string     `json:"eventSource"`
	EventVersion string     `json:"eventVersion"`
	SES          SESMessage `json:"ses"`
}

type SESMessage struct {
	Mail    Mail    `json:"mail"`
	Receipt Receipt `json:"receipt"`
}

type Mail struct {
	Timestamp     time.Time     `json:"timestamp"`
	Source        *string       `json:"source"`
	MessageID     string        `json:"messageId"`
	Destination   []string      `json:"destination"`
	CommonHeaders CommonHeaders `json:"commonHeaders"`
}

type CommonHeaders struct {
	ReturnPath string   `json:"returnPath"`
	From       []string `json:"from"`
	Date       string   `json:"date"`
	To         []string `json:"to"`
	MessageID  string   `json:"messageId"`
	Subject    string   `json:"subject"`
}

// Receipt carries the verdicts computed upstream. A nil verdict means the key
// was absent from the notification.
type Receipt struct {
	Timestamp    time.Time `json:"timestamp"`
	Recipients   []string  `json:"recipients"`
	SPFVerdict   *Verdict  `json:"spfVerdict"`
	DKIMVerdict  *Verdict  `json:"dkimVerdict"`
	SpamVerdict  *Verdict  `json:"spamVerdict"`
	VirusVerdict *Verdict  `json:"virusVerdict"`
}

type Verdict struct {
	Status string `json:"status"`
}

// MessageID is the key of the stored raw email.
func (r Record) MessageID() string {
	return r.SES.Mail.MessageID
}
