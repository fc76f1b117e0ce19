package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmail/internal/core"
	"budgetmail/internal/export"
	"budgetmail/internal/extract"
	"budgetmail/internal/inbound"
	"budgetmail/internal/ledger"
	"budgetmail/internal/notify"
	notifymem "budgetmail/internal/notify/memory"
	objmem "budgetmail/internal/objstore/memory"
	sheetsmem "budgetmail/internal/sheets/memory"
)

const (
	ledgerBucket = "budget"
	ledgerKey    = "budget.csv"
	templateKey  = "budget-template.csv"
	mailBucket   = "mail"
	mailPrefix   = "inbound"
	header       = "who,when,what,price\n"
	allowed      = "me@example.com"
)

type fixture struct {
	objects *objmem.Store
	pub     *notifymem.Publisher
	ledger  *ledger.Store
	mirror  *sheetsmem.Store
}

func newFixture(t *testing.T, dryRun bool, existing string) *fixture {
	t.Helper()
	objects := objmem.New()
	objects.Seed(ledgerBucket, templateKey, []byte(header))
	objects.Seed(ledgerBucket, ledgerKey, []byte(header+existing))
	return &fixture{
		objects: objects,
		pub:     notifymem.New(),
		ledger: ledger.NewStore(objects, ledger.Config{
			Bucket:      ledgerBucket,
			Key:         ledgerKey,
			TemplateKey: templateKey,
			ScratchDir:  t.TempDir(),
			DryRun:      dryRun,
		}, nil),
		mirror: sheetsmem.New(),
	}
}

func (f *fixture) ingest(dryRun bool) *IngestService {
	x := extract.New(f.objects, extract.Config{Bucket: mailBucket, Prefix: mailPrefix, Location: time.UTC}, nil)
	cfg := IngestConfig{Budget: decimal.NewFromInt(250), Workers: 3, DryRun: dryRun}
	return NewIngestService(inbound.NewFilter([]string{allowed}), x, f.ledger, notify.New(f.pub, "budget-topic", nil), cfg, nil).
		WithMirror(f.mirror)
}

func (f *fixture) seedEmail(id, subject, body string) {
	raw := "From: Me <me@example.com>\r\n" +
		"Date: Tue, 29 Aug 2017 04:12:17 +0000\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		body + "\r\n"
	f.objects.Seed(mailBucket, mailPrefix+"/"+id, []byte(raw))
}

func (f *fixture) remoteLedger(t *testing.T) string {
	t.Helper()
	body, err := f.objects.Get(context.Background(), ledgerBucket, ledgerKey)
	require.NoError(t, err)
	return string(body)
}

func record(id, source string) inbound.Record {
	pass := &inbound.Verdict{Status: "PASS"}
	return inbound.Record{SES: inbound.SESMessage{
		Mail:    inbound.Mail{MessageID: id, Source: &source},
		Receipt: inbound.Receipt{SPFVerdict: pass, SpamVerdict: pass, VirusVerdict: pass},
	}}
}

func lines(msg string) []string { return strings.Split(msg, notify.LineSeparator()) }

func TestIngestAppendsCommitsAndNotifies(t *testing.T) {
	f := newFixture(t, false, "Me,x,rent,100.00\n")
	f.seedEmail("m1", "market", "12.50")
	f.seedEmail("m2", "coffee", "7.25")
	f.seedEmail("m3", "spam", "999")

	res, err := f.ingest(false).Run(context.Background(), inbound.Batch{Records: []inbound.Record{
		record("m1", allowed),
		record("m3", "stranger@example.com"),
		record("m2", allowed),
	}})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Received)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, "119.75", res.Total.StringFixed(2))
	assert.Equal(t, []string{
		"Me <me@example.com>, Aug 29, 2017 04:12:17 AM, market, $12.50",
		"Me <me@example.com>, Aug 29, 2017 04:12:17 AM, coffee, $7.25",
		"Total spend for period is now: $119.75",
		"You have $130.25 remaining for the period.",
	}, lines(res.Message))
	assert.Equal(t, []string{res.Message}, f.pub.Messages())

	remote := f.remoteLedger(t)
	assert.Equal(t, header+
		"Me,x,rent,100.00\n"+
		"Me <me@example.com>,\"Aug 29, 2017 04:12:17 AM\",market,12.5\n"+
		"Me <me@example.com>,\"Aug 29, 2017 04:12:17 AM\",coffee,7.25\n", remote)
	assert.Equal(t, 1, f.objects.Mutations())
	assert.Len(t, f.mirror.Rows(), 2)
}

func TestIngestOverBudget(t *testing.T) {
	f := newFixture(t, false, "Me,x,rent,250.00\n")
	f.seedEmail("m1", "dinner", "10")

	res, err := f.ingest(false).Run(context.Background(), inbound.Batch{Records: []inbound.Record{record("m1", allowed)}})
	require.NoError(t, err)
	got := lines(res.Message)
	assert.Equal(t, "Total spend for period is now: $260.00", got[1])
	assert.Equal(t, "You went $10.00 over budget!", got[2])
}

func TestIngestDryRunMutatesNothing(t *testing.T) {
	f := newFixture(t, true, "Me,x,rent,100.00\n")
	f.seedEmail("m1", "market", "12.50")

	res, err := f.ingest(true).Run(context.Background(), inbound.Batch{Records: []inbound.Record{record("m1", allowed)}})
	require.NoError(t, err)

	assert.Equal(t, "112.50", res.Total.StringFixed(2))
	assert.Len(t, f.pub.Messages(), 1)
	assert.Zero(t, f.objects.Mutations())
	assert.Equal(t, header+"Me,x,rent,100.00\n", f.remoteLedger(t))
	assert.Empty(t, f.mirror.Rows())
}

func TestIngestEmptyBatchRepublishesTotals(t *testing.T) {
	f := newFixture(t, false, "Me,x,rent,200.00\n")
	svc := f.ingest(false)

	for i := 0; i < 2; i++ {
		res, err := svc.Run(context.Background(), inbound.Batch{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Total spend for period is now: $200.00",
			"You have $50.00 remaining for the period.",
		}, lines(res.Message))
	}
	assert.Equal(t, header+"Me,x,rent,200.00\n", f.remoteLedger(t))
	assert.Len(t, f.pub.Messages(), 2)
	assert.Empty(t, f.mirror.Rows())
}

func TestIngestExtractionFailureAbortsBatch(t *testing.T) {
	f := newFixture(t, false, "")
	f.seedEmail("m1", "market", "12.50")
	f.seedEmail("m2", "note", "see you at lunch")

	_, err := f.ingest(false).Run(context.Background(), inbound.Batch{Records: []inbound.Record{
		record("m1", allowed),
		record("m2", allowed),
	}})

	var xe *core.ExtractionError
	require.True(t, errors.As(err, &xe), "got %v", err)
	assert.Equal(t, "m2", xe.MessageID)
	assert.ErrorIs(t, err, core.ErrNoAmount)
	assert.Empty(t, f.pub.Messages())
	assert.Zero(t, f.objects.Mutations())
	assert.Equal(t, header, f.remoteLedger(t))
}

func TestIngestFilterErrorPropagates(t *testing.T) {
	f := newFixture(t, false, "")
	r := record("m1", allowed)
	r.SES.Receipt.VirusVerdict = nil

	_, err := f.ingest(false).Run(context.Background(), inbound.Batch{Records: []inbound.Record{r}})
	var fe *core.FilterError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Zero(t, f.objects.Mutations())
}

func TestIngestNotifyFailure(t *testing.T) {
	f := newFixture(t, false, "")
	f.pub.Err = errors.New("throttled")

	_, err := f.ingest(false).Run(context.Background(), inbound.Batch{})
	var ne *core.NotifyError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Equal(t, "budget-topic", ne.Topic)
}

func TestIngestMirrorFailure(t *testing.T) {
	f := newFixture(t, false, "")
	f.seedEmail("m1", "market", "1")
	f.mirror.Err = errors.New("quota exceeded")

	_, err := f.ingest(false).Run(context.Background(), inbound.Batch{Records: []inbound.Record{record("m1", allowed)}})
	var se *core.StoreError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "mirror", se.Op)
	assert.Empty(t, f.pub.Messages())
}

func TestIngestDiscardsScratchCopy(t *testing.T) {
	f := newFixture(t, false, "")
	_, err := f.ingest(false).Run(context.Background(), inbound.Batch{})
	require.NoError(t, err)
	_, err = f.ledger.Contents()
	assert.Error(t, err)
}

type fakeExporter struct {
	bodies  []string
	ledgers []export.Ledger
	err     error
}

func (e *fakeExporter) Send(_ context.Context, body string, l export.Ledger) error {
	if e.err != nil {
		return e.err
	}
	e.bodies = append(e.bodies, body)
	e.ledgers = append(e.ledgers, l)
	return nil
}

func (f *fixture) closeout(dryRun bool, exp Exporter) *CloseoutService {
	svc := NewCloseoutService(f.ledger, notify.New(f.pub, "budget-topic", nil), CloseoutConfig{Budget: decimal.NewFromInt(250), DryRun: dryRun}, nil)
	if exp != nil {
		svc.WithExporter(exp)
	}
	return svc
}

func TestCloseoutUnderBudget(t *testing.T) {
	rows := "Me,x,rent,150.00\nMe,y,food,50\n"
	f := newFixture(t, false, rows)
	exp := &fakeExporter{}

	res, err := f.closeout(false, exp).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Budget period ending!",
		"Total spent for this period is $200.00",
		"Made it with $50.00 savings. Way to go!",
	}, lines(res.Message))
	assert.Equal(t, []string{res.Message, notify.NewPeriodMessage}, f.pub.Messages())
	assert.True(t, res.Exported)
	assert.True(t, res.Reset)

	require.Len(t, exp.ledgers, 1)
	assert.Equal(t, "budget.csv", exp.ledgers[0].FileName)
	assert.Equal(t, header+rows, string(exp.ledgers[0].Contents))
	assert.Equal(t, res.Message, exp.bodies[0])

	assert.Equal(t, header, f.remoteLedger(t))
	assert.Equal(t, 1, f.objects.Mutations())
}

func TestCloseoutOverBudget(t *testing.T) {
	f := newFixture(t, false, "Me,x,rent,260\n")
	res, err := f.closeout(false, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You went $10.00 over budget!", lines(res.Message)[2])
	assert.False(t, res.Exported)
}

func TestCloseoutDryRun(t *testing.T) {
	f := newFixture(t, true, "Me,x,rent,100\n")
	exp := &fakeExporter{}

	res, err := f.closeout(true, exp).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{res.Message}, f.pub.Messages())
	assert.True(t, res.Exported)
	assert.False(t, res.Reset)
	assert.Zero(t, f.objects.Mutations())
	assert.Equal(t, header+"Me,x,rent,100\n", f.remoteLedger(t))
}

func TestCloseoutMissingLedger(t *testing.T) {
	f := newFixture(t, false, "")
	f.ledger = ledger.NewStore(f.objects, ledger.Config{Bucket: ledgerBucket, Key: "missing.csv", TemplateKey: templateKey, ScratchDir: t.TempDir()}, nil)

	_, err := f.closeout(false, nil).Run(context.Background())
	var se *core.StoreError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "download", se.Op)
	assert.Empty(t, f.pub.Messages())
}

func TestCloseoutExportFailureKeepsLedger(t *testing.T) {
	f := newFixture(t, false, "Me,x,rent,100\n")
	exp := &fakeExporter{err: errors.New("MessageRejected")}

	_, err := f.closeout(false, exp).Run(context.Background())
	assert.ErrorIs(t, err, exp.err)
	assert.Zero(t, f.objects.Mutations())
	assert.Len(t, f.pub.Messages(), 1)
}
