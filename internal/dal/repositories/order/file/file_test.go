package filerepo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id string, at time.Time, processed bool) order.Order {
	return order.Order{
		ID:            id,
		Date:          order.FormatDate(at),
		AmountTotal:   1990,
		Currency:      "eur",
		Metadata:      map[string]string{order.MetaVariantLabel: "Sapin", order.MetaQty: "1"},
		PaymentStatus: "paid",
		Processed:     processed,
	}
}

func TestAppend_WritesOneFileNamedByTimestampAndID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orders")
	repo := NewFileOrderRepository(dir)
	at := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	handle, err := repo.Append(context.Background(), newOrder("cs_test_1", at, false))
	require.NoError(t, err)
	assert.Equal(t, "1764583200000-cs_test_1.json", handle)

	raw, err := os.ReadFile(filepath.Join(dir, handle))
	require.NoError(t, err)

	var stored order.Order
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "cs_test_1", stored.ID)
	assert.False(t, stored.Processed)
	assert.EqualValues(t, 1990, stored.AmountTotal)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestAppend_SanitizesIDInFileName(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())

	handle, err := repo.Append(context.Background(), newOrder("../evil/id", time.UnixMilli(1000), false))
	require.NoError(t, err)
	assert.Equal(t, "1000-___evil_id.json", handle)
}

func TestAppend_RejectsEmptyIDAndNegativeAmount(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())

	_, err := repo.Append(context.Background(), order.Order{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	o := newOrder("cs_1", time.Now(), false)
	o.AmountTotal = -1
	_, err = repo.Append(context.Background(), o)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestAppend_UnwritableDirectoryIsStorageError(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	repo := NewFileOrderRepository(filepath.Join(blocker, "orders"))

	_, err := repo.Append(context.Background(), newOrder("cs_1", time.Now(), false))
	assert.ErrorIs(t, err, errs.ErrStorage)
}

func TestList_NewestFirstAndSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileOrderRepository(dir)
	ctx := context.Background()
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, newOrder("old", base, false))
	require.NoError(t, err)
	_, err = repo.Append(ctx, newOrder("new", base.Add(2*time.Hour), false))
	require.NoError(t, err)
	_, err = repo.Append(ctx, newOrder("mid", base.Add(time.Hour), true))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "999-corrupt.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	items, err := repo.List(ctx, order.QueryOrdersModel{Status: order.StatusAll})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "new", items[0].Order.ID)
	assert.Equal(t, "mid", items[1].Order.ID)
	assert.Equal(t, "old", items[2].Order.ID)
}

func TestList_StatusFilter(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	for i, processed := range []bool{false, true, false, true} {
		_, err := repo.Append(ctx, newOrder("cs_"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), processed))
		require.NoError(t, err)
	}

	pending, err := repo.List(ctx, order.QueryOrdersModel{Status: order.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "cs_c", pending[0].Order.ID)
	assert.Equal(t, "cs_a", pending[1].Order.ID)
	for _, item := range pending {
		assert.False(t, item.Order.Processed)
	}

	processed, err := repo.List(ctx, order.QueryOrdersModel{Status: order.StatusProcessed})
	require.NoError(t, err)
	require.Len(t, processed, 2)
	assert.Equal(t, "cs_d", processed[0].Order.ID)
}

func TestList_MissingDirectoryIsEmpty(t *testing.T) {
	repo := NewFileOrderRepository(filepath.Join(t.TempDir(), "absent"))

	items, err := repo.List(context.Background(), order.QueryOrdersModel{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSetProcessed_Idempotent(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()

	handle, err := repo.Append(ctx, newOrder("cs_1", time.Now(), false))
	require.NoError(t, err)

	for range 2 {
		updated, err := repo.SetProcessed(ctx, handle, true)
		require.NoError(t, err)
		assert.True(t, updated.Processed)
	}

	items, err := repo.List(ctx, order.QueryOrdersModel{Status: order.StatusProcessed})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "cs_1", items[0].Order.ID)
	assert.Equal(t, "Sapin", items[0].Order.Meta(order.MetaVariantLabel))
}

func TestSetProcessed_RefusesReopen(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()

	handle, err := repo.Append(ctx, newOrder("cs_1", time.Now(), true))
	require.NoError(t, err)

	_, err = repo.SetProcessed(ctx, handle, false)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSetProcessed_BadHandles(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()

	for _, h := range []string{"", "../x.json", "a/b.json", ".hidden.json", "x.txt"} {
		_, err := repo.SetProcessed(ctx, h, true)
		assert.ErrorIs(t, err, errs.ErrValidation, h)
	}

	_, err := repo.SetProcessed(ctx, "123-missing.json", true)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestExportCSV(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()

	o := newOrder("cs_1", time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), false)
	o.Metadata[order.MetaVariantLabel] = `"A"`
	_, err := repo.Append(ctx, o)
	require.NoError(t, err)

	out, err := repo.ExportCSV(ctx)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,email,variantLabel,qty,upsell,amount_total,currency,payment_status,processed", lines[0])
	assert.Equal(t, `"2025-12-01T10:00:00.000Z","","""A""","1","","1990","eur","paid","false"`, lines[1])
}

func TestPing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orders")
	require.NoError(t, NewFileOrderRepository(dir).Ping(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	assert.ErrorIs(t, NewFileOrderRepository(filepath.Join(blocker, "orders")).Ping(context.Background()), errs.ErrStorage)
}

func TestAppend_RecordsAreReadableByOperators(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	repo := NewFileOrderRepository(t.TempDir())
	ctx := context.Background()

	handle, err := repo.Append(ctx, newOrder("cs_1", time.Now(), false))
	require.NoError(t, err)
	info, err := os.Stat(filepath.Join(repo.Dir(), handle))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	_, err = repo.SetProcessed(ctx, handle, true)
	require.NoError(t, err)
	info, err = os.Stat(filepath.Join(repo.Dir(), handle))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestExpiredContextIsStorageError(t *testing.T) {
	repo := NewFileOrderRepository(t.TempDir())
	handle, err := repo.Append(context.Background(), newOrder("cs_1", time.Now(), false))
	require.NoError(t, err)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err = repo.List(ctx, order.QueryOrdersModel{Status: order.StatusAll})
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = repo.ExportCSV(ctx)
	assert.ErrorIs(t, err, errs.ErrStorage)

	_, err = repo.SetProcessed(ctx, handle, true)
	assert.ErrorIs(t, err, errs.ErrStorage)

	assert.ErrorIs(t, repo.Ping(ctx), errs.ErrStorage)

	items, err := repo.List(context.Background(), order.QueryOrdersModel{Status: order.StatusPending})
	require.NoError(t, err)
	assert.Len(t, items, 1, "an expired call must not have written")
}

func TestBounded_StopsWaitingOnSlowCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bounded(ctx, func() (int, error) {
		<-release

		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
