package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noelbox/storefront/internal/config"
	"github.com/noelbox/storefront/internal/dal/mailer"
	"github.com/noelbox/storefront/internal/dal/rabbitmq"
	filerepo "github.com/noelbox/storefront/internal/dal/repositories/order/file"
	stripeclient "github.com/noelbox/storefront/internal/dal/stripe"
	"github.com/noelbox/storefront/internal/otel"
	"github.com/noelbox/storefront/internal/service/models/notification"
	"github.com/noelbox/storefront/internal/service/services/admingate"
	"github.com/noelbox/storefront/internal/service/services/checkoutsvc"
	"github.com/noelbox/storefront/internal/service/services/notifysvc"
	"github.com/noelbox/storefront/internal/service/services/ordersvc"
	"github.com/noelbox/storefront/internal/transport/consumer"
	grpctransport "github.com/noelbox/storefront/internal/transport/grpc"
	httptransport "github.com/noelbox/storefront/internal/transport/http"
	"github.com/noelbox/storefront/internal/worker/storageprobe"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type mailSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, c notification.OrderConfirmation)
	Wait(ctx context.Context) error
}

// App represents the application.
type App struct {
	orderSvc         *ordersvc.OrderService
	httpTransp       *httptransport.HTTPTransport
	grpcTransp       *grpctransport.GRPCTransport
	probeWorker      *storageprobe.Worker
	consumerTransp   *consumer.Consumer
	dispatcher       dispatcher
	rabbitMqClient   *rabbitmq.Client
	otelController   *otel.OtelController
}

// MustNewOrderRepository opens the file order store at orders.dir.
func MustNewOrderRepository() *filerepo.FileOrderRepository {
	dir := viper.GetString("orders.dir")
	if dir == "" {
		panic("orders.dir is not set in config")
	}

	return filerepo.NewFileOrderRepository(dir)
}

// MustNewApp creates a new application. Every client is built once here and shared.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()

	orderRepository := MustNewOrderRepository()

	cat, err := config.LoadCatalog()
	if err != nil {
		panic("invalid catalog: " + err.Error())
	}

	checkoutSvc := checkoutsvc.MustNewCheckoutService(
		checkoutsvc.WithGateway(stripeclient.MustNewClient()),
		checkoutsvc.WithCatalog(cat),
		checkoutsvc.WithSiteURL(viper.GetString("site.url")),
		checkoutsvc.WithLocale(viper.GetString("checkout.locale")),
	)

	var sender mailSender
	if m := mailer.MustNewMailer(); m != nil {
		sender = m
	}
	notifySvc := notifysvc.MustNewNotifyService(
		notifysvc.WithMailer(sender),
		notifysvc.WithTimeout(viper.GetDuration("smtp.timeout")),
	)

	a := &App{otelController: otelController}

	if viper.GetString("stripe.webhook_secret") == "" {
		slog.Warn("Stripe webhook secret is not set, every webhook will be rejected")
	}

	switch transport := viper.GetString("notify.transport"); {
	case !notifySvc.Enabled():
		// no mailer, no confirmations
	case transport == "rabbitmq":
		a.rabbitMqClient = rabbitmq.MustNewClient()
		queue := viper.GetString("rabbitmq.queue")
		consumerTransp, err := consumer.NewConsumer(a.rabbitMqClient, notifySvc, consumer.Config{
			Queue:       queue,
			ConsumerTag: viper.GetString("rabbitmq.consumer_tag"),
			Concurrency: viper.GetInt("rabbitmq.concurrency"),
		})
		if err != nil {
			panic("failed to declare confirmation queue: " + err.Error())
		}
		a.consumerTransp = consumerTransp
		a.dispatcher = notifysvc.NewQueueDispatcher(a.rabbitMqClient, queue, viper.GetDuration("rabbitmq.publish_timeout"))
	default:
		a.dispatcher = notifysvc.NewDirectDispatcher(notifySvc, viper.GetDuration("notify.timeout"))
	}

	a.orderSvc = ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(orderRepository),
		ordersvc.WithNotifier(a.dispatcher),
		ordersvc.WithWebhookSecret(viper.GetString("stripe.webhook_secret")),
		ordersvc.WithTolerance(viper.GetDuration("stripe.webhook_tolerance")),
		ordersvc.WithStoreTimeout(viper.GetDuration("orders.read_timeout")),
	)

	gate := admingate.New(viper.GetString("admin.user"), viper.GetString("admin.pass"))
	if !gate.Configured() {
		slog.Warn("Admin credentials are not set, the admin area is locked")
	}

	a.httpTransp = httptransport.NewHTTPTransport(httptransport.ConfigFromViper(), checkoutSvc, a.orderSvc, gate)
	a.httpTransp.RegisterRoutes()

	if viper.GetBool("server.grpc.enabled") {
		grpcTransp, err := grpctransport.NewGRPCTransport()
		if err != nil {
			panic("failed to listen for gRPC: " + err.Error())
		}
		a.grpcTransp = grpcTransp
		a.probeWorker = storageprobe.NewWorker(orderRepository, grpcTransp)
	}

	return a
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.httpTransp.Run()
	})

	if a.grpcTransp != nil {
		g.Go(func() error {
			return a.grpcTransp.Run()
		})
		g.Go(func() error {
			slog.Info("Starting storage probe worker")
			a.probeWorker.Start(gctx)

			return nil
		})
	}

	if a.consumerTransp != nil {
		g.Go(func() error {
			slog.Info("Starting consumer")

			return a.consumerTransp.Run(gctx)
		})
	}

	<-gctx.Done()
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()

	if err := g.Wait(); err != nil {
		slog.Error("Application stopped with error", "error", err)
	}
}

// gracefulShutdown stops intake first, then drains notifications, then closes clients.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpTransp.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.grpcTransp != nil {
		a.probeWorker.Stop()
		if err := a.grpcTransp.Shutdown(ctx); err != nil {
			slog.Error("gRPC server shutdown error", "error", err)
		} else {
			slog.Info("gRPC server stopped gracefully")
		}
	}

	if a.dispatcher != nil {
		if err := a.dispatcher.Wait(ctx); err != nil {
			slog.Warn("Pending order confirmations abandoned", "error", err)
		}
	}

	if a.consumerTransp != nil {
		if err := a.consumerTransp.Shutdown(); err != nil {
			slog.Error("Consumer shutdown error", "error", err)
		}
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
