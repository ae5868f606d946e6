package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/noelbox/storefront/internal/service/services/checkoutsvc"
	"github.com/noelbox/storefront/internal/service/services/ordersvc"
	createcheckout "github.com/noelbox/storefront/internal/transport/http/create_checkout"
	exportorders "github.com/noelbox/storefront/internal/transport/http/export_orders"
	listorders "github.com/noelbox/storefront/internal/transport/http/list_orders"
	markprocessed "github.com/noelbox/storefront/internal/transport/http/mark_processed"
	"github.com/noelbox/storefront/internal/transport/http/response"
	stripewebhook "github.com/noelbox/storefront/internal/transport/http/stripe_webhook"
	"github.com/noelbox/storefront/pkg/http/middleware/basicauth"
	"github.com/noelbox/storefront/pkg/http/middleware/trace"
	"github.com/noelbox/storefront/pkg/logger"
	"github.com/spf13/viper"
)

type checkoutService interface {
	CreateSession(ctx context.Context, req checkoutsvc.Request) (string, error)
}

type orderService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (ordersvc.WebhookResult, error)
	ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.StoredOrder, error)
	MarkProcessed(ctx context.Context, handle string) (order.Order, error)
	ExportCSV(ctx context.Context) (string, error)
}

type adminGate interface {
	Authorize(header string) bool
	Challenge() string
}

// Config holds the HTTP server settings.
type Config struct {
	Port                string
	ExposeGatewayErrors bool
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	CORS                cors.Options
}

// ConfigFromViper reads server.http.* and checkout.expose_gateway_errors.
func ConfigFromViper() Config {
	return Config{
		Port:                viper.GetString("server.http.port"),
		ExposeGatewayErrors: viper.GetBool("checkout.expose_gateway_errors"),
		ReadTimeout:         viper.GetDuration("server.http.read_timeout"),
		WriteTimeout:        viper.GetDuration("server.http.write_timeout"),
		CORS: cors.Options{
			AllowedOrigins:   viper.GetStringSlice("server.http.cors.allowed_origins"),
			AllowedMethods:   viper.GetStringSlice("server.http.cors.allowed_methods"),
			AllowedHeaders:   viper.GetStringSlice("server.http.cors.allowed_headers"),
			ExposedHeaders:   viper.GetStringSlice("server.http.cors.exposed_headers"),
			AllowCredentials: viper.GetBool("server.http.cors.allow_credentials"),
			MaxAge:           viper.GetInt("server.http.cors.max_age"),
		},
	}
}

type HTTPTransport struct {
	server      *http.Server
	router      *chi.Mux
	cfg         Config
	checkoutSvc checkoutService
	orderSvc    orderService
	gate        adminGate
}

func NewHTTPTransport(cfg Config, checkoutSvc checkoutService, orderSvc orderService, gate adminGate) *HTTPTransport {
	router := newRouter(cfg)
	server := newServer(cfg, router)

	return &HTTPTransport{
		server:      server,
		router:      router,
		cfg:         cfg,
		checkoutSvc: checkoutSvc,
		orderSvc:    orderSvc,
		gate:        gate,
	}
}

// Handler returns the router, for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	slog.Info("Starting HTTP server", "address", h.server.Addr)
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.health)

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.createCheckout)
		r.Post("/webhooks/stripe", h.stripeWebhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(basicauth.NewBasicAuthMiddleware(h.gate))
			r.Get("/orders", h.listOrders)
			r.Post("/orders/{"+markprocessed.HandleParam+"}/processed", h.markProcessed)
			r.Get("/export", h.exportOrders)
		})
	})
}

func (h *HTTPTransport) health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPTransport) createCheckout(w http.ResponseWriter, r *http.Request) {
	createcheckout.CreateCheckout(w, r, h.checkoutSvc, h.cfg.ExposeGatewayErrors)
}

func (h *HTTPTransport) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	stripewebhook.HandleWebhook(w, r, h.orderSvc)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderSvc)
}

func (h *HTTPTransport) markProcessed(w http.ResponseWriter, r *http.Request) {
	markprocessed.MarkProcessed(w, r, h.orderSvc)
}

func (h *HTTPTransport) exportOrders(w http.ResponseWriter, r *http.Request) {
	exportorders.ExportOrders(w, r, h.orderSvc)
}

func newRouter(cfg Config) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cfg.CORS).Handler)
	}

	return router
}

func newServer(cfg Config, router http.Handler) *http.Server {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}

	return &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
