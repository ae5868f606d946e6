package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	recordExt = ".json"
	// recordMode keeps records readable by operators; CreateTemp alone gives 0600.
	recordMode fs.FileMode = 0o644
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileOrderRepository stores one JSON file per order in a single directory.
//
// There is no locking: appends with distinct keys land in distinct files, but two
// concurrent SetProcessed calls on the same handle race and the last writer wins.
// Admin mutations are rare and human-paced, so this is accepted.
type FileOrderRepository struct {
	dir string
	now func() time.Time
}

// NewFileOrderRepository creates a repository rooted at dir. The directory is created lazily.
func NewFileOrderRepository(dir string) *FileOrderRepository {
	return &FileOrderRepository{
		dir: dir,
		now: time.Now,
	}
}

// Dir returns the directory holding the records.
func (r *FileOrderRepository) Dir() string {
	return r.dir
}

// Append writes the order to <receiptMillis>-<id>.json and returns the file name as handle.
func (r *FileOrderRepository) Append(ctx context.Context, o order.Order) (string, error) {
	_, span := otel.Tracer("dal").Start(ctx, "FileOrderRepository.Append")
	defer span.End()

	if o.ID == "" {
		return "", errs.Validation("order id is required")
	}
	if o.AmountTotal < 0 {
		return "", errs.Validation("amount_total must not be negative")
	}

	receivedAt := o.ReceivedAt()
	if receivedAt.IsZero() {
		receivedAt = r.now()
		o.Date = order.FormatDate(receivedAt)
	}

	handle := strconv.FormatInt(receivedAt.UnixMilli(), 10) + "-" + unsafeIDChars.ReplaceAllString(o.ID, "_") + recordExt
	span.SetAttributes(attribute.String("order.handle", handle))

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errs.Storage("create orders directory", err)
	}

	if err := r.write(handle, &o); err != nil {
		return "", err
	}

	return handle, nil
}

// List reads every record in the directory. Corrupt or unreadable files are logged and skipped.
// A read still running when ctx expires fails the whole listing.
func (r *FileOrderRepository) List(ctx context.Context, filter order.QueryOrdersModel) ([]order.StoredOrder, error) {
	ctx, span := otel.Tracer("dal").Start(ctx, "FileOrderRepository.List")
	defer span.End()

	result, err := bounded(ctx, func() ([]order.StoredOrder, error) {
		return r.scan(ctx, filter)
	})
	if err != nil {
		span.RecordError(err)

		return nil, storageErr("list orders", err)
	}

	span.SetAttributes(attribute.Int("orders.count", len(result)))

	return result, nil
}

func (r *FileOrderRepository) scan(ctx context.Context, filter order.QueryOrdersModel) ([]order.StoredOrder, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []order.StoredOrder{}, nil
		}

		return nil, errs.Storage("read orders directory", err)
	}

	result := make([]order.StoredOrder, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isRecordName(entry.Name()) || entry.IsDir() {
			continue
		}

		o, err := r.read(entry.Name())
		if err != nil {
			slog.Warn("Skipping unreadable order record", "handle", entry.Name(), "error", err)

			continue
		}
		if !filter.Status.Matches(o) {
			continue
		}

		result = append(result, order.StoredOrder{Handle: entry.Name(), Order: *o})
	}

	sort.SliceStable(result, func(i, j int) bool {
		ti, tj := result[i].Order.ReceivedAt(), result[j].Order.ReceivedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}

		return result[i].Handle > result[j].Handle
	})

	return result, nil
}

// SetProcessed rewrites the processed flag of the record behind handle.
// Reopening a processed order is refused; marking twice is a no-op.
func (r *FileOrderRepository) SetProcessed(ctx context.Context, handle string, processed bool) (order.Order, error) {
	ctx, span := otel.Tracer("dal").Start(ctx, "FileOrderRepository.SetProcessed")
	defer span.End()

	if !isRecordName(handle) {
		return order.Order{}, errs.Validation("invalid order handle %q", handle)
	}

	o, err := bounded(ctx, func() (order.Order, error) {
		return r.setProcessed(handle, processed)
	})
	if err != nil {
		return order.Order{}, storageErr("set processed", err)
	}

	return o, nil
}

func (r *FileOrderRepository) setProcessed(handle string, processed bool) (order.Order, error) {
	o, err := r.read(handle)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return order.Order{}, fmt.Errorf("%w: order %s", errs.ErrNotFound, handle)
		}

		return order.Order{}, errs.Storage("read order", err)
	}

	if o.Processed == processed {
		return *o, nil
	}
	if !processed {
		return order.Order{}, errs.Validation("processed orders cannot be reopened")
	}

	o.Processed = true
	if err := r.write(handle, o); err != nil {
		return order.Order{}, err
	}

	return *o, nil
}

// ExportCSV renders every stored order, newest first.
func (r *FileOrderRepository) ExportCSV(ctx context.Context) (string, error) {
	items, err := r.List(ctx, order.QueryOrdersModel{Status: order.StatusAll})
	if err != nil {
		return "", err
	}

	return order.RenderCSV(items), nil
}

func (r *FileOrderRepository) read(handle string) (*order.Order, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, handle))
	if err != nil {
		return nil, err
	}

	var o order.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode %s: %w", handle, err)
	}

	return &o, nil
}

// write replaces the record atomically through a temp file in the same directory.
func (r *FileOrderRepository) write(handle string, o *order.Order) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return errs.Storage("encode order", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".order-*.tmp")
	if err != nil {
		return errs.Storage("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return errs.Storage("write order", err)
	}
	if err := tmp.Chmod(recordMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return errs.Storage("chmod order", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return errs.Storage("close order", err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.dir, handle)); err != nil {
		_ = os.Remove(tmpName)

		return errs.Storage("rename order", err)
	}

	return nil
}

// isRecordName accepts plain base names of stored records only.
func isRecordName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, recordExt) &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}

// Ping checks that the directory exists or can be created and accepts writes.
func (r *FileOrderRepository) Ping(ctx context.Context) error {
	_, err := bounded(ctx, func() (struct{}, error) {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return struct{}{}, errs.Storage("create orders directory", err)
		}

		probe, err := os.CreateTemp(r.dir, ".probe-*.tmp")
		if err != nil {
			return struct{}{}, errs.Storage("write probe", err)
		}
		name := probe.Name()
		_ = probe.Close()

		if err := os.Remove(name); err != nil {
			return struct{}{}, errs.Storage("remove probe", err)
		}

		return struct{}{}, nil
	})

	return storageErr("ping", err)
}

// bounded runs fn on its own goroutine and stops waiting once ctx is done.
// File I/O cannot be interrupted, so an abandoned fn still runs to completion.
func bounded[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// storageErr marks context expiry as a storage failure and passes typed errors through.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Storage(op, err)
	}

	return err
}
