package ordersvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/noelbox/storefront/internal/dal/interfaces/iorderrepo"
	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/notification"
	"github.com/noelbox/storefront/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultTolerance is the accepted age of a signed webhook payload.
	DefaultTolerance = 5 * time.Minute
	// DefaultStoreTimeout bounds one admin operation over the order store.
	DefaultStoreTimeout = 5 * time.Second
)

type notifier interface {
	Dispatch(ctx context.Context, c notification.OrderConfirmation)
}

// OrderService owns the order intake pipeline and the admin operations over stored orders.
type OrderService struct {
	orderRepo     iorderrepo.IOrderRepository
	notifier      notifier
	webhookSecret string
	tolerance     time.Duration
	storeTimeout  time.Duration
	now           func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		tolerance:    DefaultTolerance,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.orderRepo == nil {
		panic("ordersvc: order repository is required")
	}

	return s
}

// WithOrderRepository sets the order store.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orderRepo = repo
	}
}

// WithNotifier sets the confirmation dispatcher. Without one no confirmation is sent.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier) option {
	return func(s *OrderService) {
		s.notifier = n
	}
}

// WithWebhookSecret sets the shared secret webhook signatures are checked against.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWebhookSecret(secret string) option {
	return func(s *OrderService) {
		s.webhookSecret = secret
	}
}

// WithTolerance overrides DefaultTolerance.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTolerance(d time.Duration) option {
	return func(s *OrderService) {
		if d > 0 {
			s.tolerance = d
		}
	}
}

// WithStoreTimeout overrides DefaultStoreTimeout.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStoreTimeout(d time.Duration) option {
	return func(s *OrderService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// ListOrders returns stored orders matching the query status, newest first.
func (s *OrderService) ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.StoredOrder, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListOrders")
	defer span.End()

	st, err := order.ParseStatus(string(query.Status))
	if err != nil {
		return nil, errs.Validation("%s", err.Error())
	}
	span.SetAttributes(attribute.String("orders.status", string(st)))

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.orderRepo.List(ctx, order.QueryOrdersModel{Status: st})
}

// MarkProcessed flags one stored order as processed. Marking twice is not an error.
func (s *OrderService) MarkProcessed(ctx context.Context, handle string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.MarkProcessed")
	defer span.End()
	span.SetAttributes(attribute.String("order.handle", handle))

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	o, err := s.orderRepo.SetProcessed(ctx, handle, true)
	if err != nil {
		span.RecordError(err)

		return order.Order{}, err
	}

	slog.Info("Order marked processed", "handle", handle, "order_id", o.ID)

	return o, nil
}

// ExportCSV renders every stored order as CSV.
func (s *OrderService) ExportCSV(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ExportCSV")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.orderRepo.ExportCSV(ctx)
}

func storageErr(op string, err error) error {
	if errors.Is(err, errs.ErrStorage) || errors.Is(err, errs.ErrValidation) {
		return err
	}

	return errs.Storage(op, err)
}
