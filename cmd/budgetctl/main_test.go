package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmail/internal/objstore"
)

const event = `{"Records":[{"eventSource":"aws:ses","eventVersion":"1.0","ses":{
  "mail":{"source":"me@example.com","messageId":"m1"},
  "receipt":{"spfVerdict":{"status":"PASS"},"dkimVerdict":{"status":"PASS"},
             "spamVerdict":{"status":"PASS"},"virusVerdict":{"status":"PASS"}}}}]}`

const rawEmail = "From: me@example.com\r\n" +
	"Date: Tue, 29 Aug 2017 04:12:17 +0000\r\n" +
	"Subject: groceries\r\n" +
	"Content-Type: text/plain\r\n\r\n" +
	"42.10\r\n"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BUDGET_LEDGER_BUCKET", "budget")
	t.Setenv("BUDGET_EMAIL_BUCKET", "mail")
	t.Setenv("BUDGET_EMAIL_PREFIX", "inbound")
	t.Setenv("BUDGET_ALLOWED_SENDERS", "me@example.com")
	t.Setenv("BUDGET_STORAGE_BACKEND", "sqlite")
	t.Setenv("BUDGET_SQLITE_DB_PATH", filepath.Join(dir, "budget.db"))
	t.Setenv("BUDGET_NOTIFY_BACKEND", "log")
	t.Setenv("BUDGET_SCRATCH_DIR", dir)
	t.Setenv("BUDGET_TIMEZONE", "UTC")
	t.Setenv("BUDGET_LOG_LEVEL", "error")
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{}
	cmd := newRootCommand(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := a.execute(context.Background(), cmd)
	return out.String(), err
}

func TestIngestAndCloseAgainstSQLite(t *testing.T) {
	dir := setupEnv(t)
	header := "who,when,what,price\n"
	ledger := writeFile(t, dir, "ledger.csv", header+"me@example.com,earlier,rent,200\n")
	template := writeFile(t, dir, "template.csv", header)
	email := writeFile(t, dir, "m1.eml", rawEmail)
	eventFile := writeFile(t, dir, "event.json", event)

	for _, args := range [][]string{
		{"put", "budget", "budget.csv", ledger},
		{"put", "budget", "budget-template.csv", template},
		{"put", "mail", "inbound/m1", email},
	} {
		_, err := run(t, args...)
		require.NoError(t, err, args)
	}

	out, err := run(t, "ls", "budget")
	require.NoError(t, err)
	assert.Equal(t, "budget-template.csv\nbudget.csv\n", out)

	out, err = run(t, "ingest", "--event", eventFile)
	require.NoError(t, err)
	assert.Contains(t, out, "me@example.com, Aug 29, 2017 04:12:17 AM, groceries, $42.10")
	assert.Contains(t, out, "Total spend for period is now: $242.10")
	assert.Contains(t, out, "You have $7.90 remaining for the period.")

	out, err = run(t, "get", "budget", "budget.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "groceries,42.1\n"), out)

	out, err = run(t, "close", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Made it with $7.90 savings. Way to go!")
	out, err = run(t, "get", "budget", "budget.csv")
	require.NoError(t, err)
	assert.NotEqual(t, header, out)

	_, err = run(t, "close")
	require.NoError(t, err)
	out, err = run(t, "get", "budget", "budget.csv")
	require.NoError(t, err)
	assert.Equal(t, header, out)
}

func TestIngestRejectsBadEvent(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "ingest", "--event", writeFile(t, dir, "bad.json", "{"))
	assert.ErrorContains(t, err, "decode event")
}

func TestPutRequiresArgs(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "put", "budget")
	assert.Error(t, err)
}

func TestFailedCommandClosesStorage(t *testing.T) {
	setupEnv(t)
	a := &app{}
	cmd := newRootCommand(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"get", "budget", "missing.csv"})

	err := a.execute(context.Background(), cmd)
	require.ErrorIs(t, err, objstore.ErrNotFound)

	_, err = a.collab.Objects.Get(context.Background(), "budget", "budget.csv")
	assert.ErrorContains(t, err, "database is closed")
}
