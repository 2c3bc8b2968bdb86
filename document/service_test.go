package document

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/storage"
	"github.com/jmcleod/inkseal/storage/memory"
)

type failingLedger struct{ storage.Ledger }

func (failingLedger) Publish(context.Context, []byte) (*storage.Receipt, error) {
	return nil, storage.ErrPublishFailed
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Ledger, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	ledger := memory.NewLedger()
	opts = append([]ServiceOption{WithLogger(slog.New(slog.NewJSONHandler(&logs, nil)))}, opts...)
	svc, err := NewService(ledger, opts...)
	require.NoError(t, err)
	return svc, ledger, &logs
}

func TestServicePublishEncrypted(t *testing.T) {
	svc, ledger, logs := newTestService(t)
	ctx := context.Background()
	content := "The treasure is buried under the third oak."

	res, err := svc.Publish(ctx, content, PublishOptions{
		Metadata: Metadata{Title: "map", Author: "bob"},
		Password: "hunter2-but-longer",
	})
	require.NoError(t, err)
	require.NoError(t, storage.ValidateReference(res.TransactionID))
	assert.Equal(t, ContentHash(content), res.DocumentHash)
	assert.Equal(t, DefaultExplorerURL+res.TransactionID, res.ExplorerURL)
	assert.Equal(t, WordCount(content), res.Quote.WordCount)
	assert.Equal(t, Quote(WordCount(content), true, 0, DefaultRates()), res.Quote)
	assert.Equal(t, 1, ledger.Len())

	raw, err := ledger.Fetch(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "treasure")
	assert.NotContains(t, logs.String(), "hunter2")
	assert.NotContains(t, logs.String(), "treasure")
	assert.Contains(t, logs.String(), "document published")

	pkg, err := svc.Retrieve(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.True(t, pkg.Encrypted)
	assert.Equal(t, "map", pkg.Title)

	got, err := svc.Unlock(ctx, res.TransactionID, "hunter2-but-longer")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = svc.Unlock(ctx, res.TransactionID, "wrong")
	assert.ErrorIs(t, err, envelope.ErrDecryption)
	assert.Contains(t, logs.String(), "unlock failed")
}

func TestServicePublishPlain(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Publish(ctx, "open letter", PublishOptions{Metadata: Metadata{Title: "letter"}})
	require.NoError(t, err)
	assert.Equal(t, Quote(2, false, 0, DefaultRates()), res.Quote)

	got, err := svc.Unlock(ctx, res.TransactionID, "")
	require.NoError(t, err)
	assert.Equal(t, "open letter", got)

	refs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{res.TransactionID}, refs)
}

func TestServiceOptions(t *testing.T) {
	legacy, err := envelope.New(envelope.WithFormatVersion(envelope.Version1))
	require.NoError(t, err)

	svc, ledger, _ := newTestService(t,
		WithCipher(legacy),
		WithRates(Rates{BSVPriceUSD: 30}),
		WithExplorerURL("https://example.test/tx/%s/view"))

	res, err := svc.Publish(context.Background(), "x", PublishOptions{Password: "pw", BudgetUSD: 0.05})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/tx/"+res.TransactionID+"/view", res.ExplorerURL)
	assert.Equal(t, 0.05, res.Quote.Budget.CurrentLimit)
	assert.Equal(t, 30.0, svc.Rates().BSVPriceUSD)
	assert.Equal(t, DefaultBytesPerWord, svc.Rates().BytesPerWord)

	raw, err := ledger.Fetch(context.Background(), res.TransactionID)
	require.NoError(t, err)
	pkg, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, envelope.Version1, pkg.Encryption.Version)

	q := svc.Quote("one two three", true, 0)
	assert.Equal(t, 3, q.WordCount)
}

func TestServiceErrors(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)

	svc, err := NewService(failingLedger{})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "x", PublishOptions{})
	assert.ErrorIs(t, err, storage.ErrPublishFailed)

	mem, _, _ := newTestService(t)
	_, err = mem.Publish(context.Background(), string([]byte{0xff}), PublishOptions{Password: "pw"})
	assert.ErrorIs(t, err, envelope.ErrInvalidInput)

	missing, _ := storage.NewReference()
	_, err = mem.Retrieve(context.Background(), missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = mem.Unlock(context.Background(), "bogus", "pw")
	assert.ErrorIs(t, err, storage.ErrInvalidReference)
}

func TestServiceRetrieveCorrupt(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	rcpt, err := ledger.Publish(context.Background(), []byte("not json"))
	require.NoError(t, err)

	_, err = svc.Retrieve(context.Background(), rcpt.Ref)
	assert.ErrorIs(t, err, ErrInvalidPackage)
	assert.True(t, strings.Contains(err.Error(), rcpt.Ref))
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}
