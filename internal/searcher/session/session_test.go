package session

import (
	"context"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

func result(verses int) *executor.Result {
	items := make([]executor.Item, verses)
	for i := range items {
		items[i] = executor.Item{Key: "2:" + strconv.Itoa(i+1), Sura: 2, Verse: i + 1}
	}
	return &executor.Result{Items: map[executor.Bucket][]executor.Item{executor.BucketVerses: items}}
}

func TestCommitAndMore(t *testing.T) {
	m, err := NewManager(4, 19, nil)
	require.NoError(t, err)

	_, ticket := m.Begin(context.Background(), "")
	require.NotEmpty(t, ticket.SessionID)
	q := &parser.Query{Raw: "god"}

	view, err := m.Commit(ticket, q, result(45))
	require.NoError(t, err)
	verses := view.Batches[executor.BucketVerses]
	assert.Len(t, verses.Items, 19)
	assert.Equal(t, 26, verses.Remaining)
	assert.Empty(t, view.Batches[executor.BucketNotes].Items)

	batch, gotQ, err := m.More(ticket.SessionID, executor.BucketVerses)
	require.NoError(t, err)
	assert.Same(t, q, gotQ)
	assert.Equal(t, "2:20", batch.Items[0].Key)
	assert.Equal(t, 38, batch.Shown)

	batch, _, err = m.More(ticket.SessionID, executor.BucketVerses)
	require.NoError(t, err)
	assert.Len(t, batch.Items, 7)
	assert.Zero(t, batch.Remaining)

	batch, _, err = m.More(ticket.SessionID, executor.BucketVerses)
	require.NoError(t, err)
	assert.Empty(t, batch.Items)
}

func TestNewQuerySupersedesInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	met := metrics.NewWithRegistry(reg)
	m, err := NewManager(4, 19, met)
	require.NoError(t, err)

	firstCtx, first := m.Begin(context.Background(), "")
	secondCtx, second := m.Begin(context.Background(), first.SessionID)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Greater(t, second.Generation, first.Generation)
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
	assert.NoError(t, secondCtx.Err())

	_, err = m.Commit(first, &parser.Query{}, result(1))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStaleQuery))
	assert.Equal(t, 409, apperrors.HTTPStatusCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.StaleQueriesTotal))

	_, err = m.Commit(second, &parser.Query{}, result(1))
	require.NoError(t, err)
	assert.ErrorIs(t, secondCtx.Err(), context.Canceled, "committed queries release their context")
}

func TestAbandonLeavesNewerQuery(t *testing.T) {
	m, err := NewManager(4, 19, nil)
	require.NoError(t, err)

	_, first := m.Begin(context.Background(), "s1")
	ctx, _ := m.Begin(context.Background(), "s1")
	m.Abandon(first)
	assert.NoError(t, ctx.Err())
}

func TestMoreUnknownSession(t *testing.T) {
	m, err := NewManager(4, 19, nil)
	require.NoError(t, err)

	_, _, err = m.More("nope", executor.BucketVerses)
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	_, ticket := m.Begin(context.Background(), "")
	_, _, err = m.More(ticket.SessionID, executor.BucketVerses)
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound), "nothing committed yet")
}

func TestEvictionCancelsInFlight(t *testing.T) {
	m, err := NewManager(1, 19, nil)
	require.NoError(t, err)

	ctx, _ := m.Begin(context.Background(), "a")
	m.Begin(context.Background(), "b")
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, 1, m.Len())
}
