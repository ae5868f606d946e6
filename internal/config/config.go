package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/noelbox/storefront/internal/service/models/catalog"
	"github.com/noelbox/storefront/internal/service/models/currency"
	"github.com/noelbox/storefront/pkg/logger"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override them.
// The first variable that is set wins.
var envBindings = map[string][]string{
	"stripe.secret_key":     {"STRIPE_SECRET_KEY"},
	"stripe.webhook_secret": {"STRIPE_WEBHOOK_SECRET"},
	"site.url":              {"NEXT_PUBLIC_SITE_URL", "SITE_URL"},
	"admin.user":            {"ADMIN_USER"},
	"admin.pass":            {"ADMIN_PASS"},
	"smtp.host":             {"SMTP_HOST"},
	"smtp.port":             {"SMTP_PORT"},
	"smtp.secure":           {"SMTP_SECURE"},
	"smtp.user":             {"SMTP_USER"},
	"smtp.pass":             {"SMTP_PASS"},
	"smtp.from":             {"EMAIL_FROM"},
	"orders.dir":            {"ORDERS_DIR"},
	"rabbitmq.url":          {"RABBITMQ_URL"},
	"notify.transport":      {"NOTIFY_TRANSPORT"},
	"otel.enabled":          {"OTEL_ENABLED"},
	"otel.jaeger_endpoint":  {"JAEGER_ENDPOINT"},
	"log.level":             {"LOG_LEVEL"},
	"log.format":            {"LOG_FORMAT"},
	"server.http.port":      {"PORT"},
}

func setDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.read_timeout", "15s")
	viper.SetDefault("server.http.write_timeout", "60s")
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Content-Type"})
	viper.SetDefault("server.grpc.enabled", true)
	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("server.grpc.keepalive.max_connection_idle", 15)
	viper.SetDefault("server.grpc.keepalive.time", 60)
	viper.SetDefault("server.grpc.keepalive.timeout", 20)
	viper.SetDefault("server.grpc.keepalive.min_time", 10)

	viper.SetDefault("site.url", "https://www.noelbox.fr")
	viper.SetDefault("checkout.locale", "fr")
	viper.SetDefault("checkout.expose_gateway_errors", false)

	viper.SetDefault("stripe.timeout", "15s")
	viper.SetDefault("stripe.call_timeout", "40s")
	viper.SetDefault("stripe.max_network_retries", 2)
	viper.SetDefault("stripe.breaker.failures", 5)
	viper.SetDefault("stripe.breaker.cooldown", "30s")
	viper.SetDefault("stripe.webhook_tolerance", "5m")

	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.timeout", "15s")

	viper.SetDefault("orders.dir", "./data/orders")
	viper.SetDefault("orders.probe.poll_interval_seconds", 15)
	viper.SetDefault("orders.read_timeout", "5s")

	viper.SetDefault("notify.transport", "direct")
	viper.SetDefault("notify.timeout", "30s")
	viper.SetDefault("rabbitmq.queue", "order.confirmation")
	viper.SetDefault("rabbitmq.consumer_tag", "storefront-mailer")
	viper.SetDefault("rabbitmq.concurrency", 8)
	viper.SetDefault("rabbitmq.publish_timeout", "5s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.service_name", "storefront")
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("catalog.currency", string(currency.Default))
}

// MustInit loads .env and config.yaml when present, then binds the environment.
// Neither file is required: a deployment may configure everything through env.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/storefront")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}

	for key, envs := range envBindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			panic("error while binding env for " + key + ": " + err.Error())
		}
	}

	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(&logger.Options{
		Format: viper.GetString("log.format"),
		Level:  logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// LoadCatalog reads the variant table from the catalog key.
func LoadCatalog() (*catalog.Catalog, error) {
	var cat catalog.Catalog
	if err := viper.UnmarshalKey("catalog", &cat); err != nil {
		return nil, err
	}
	if _, err := currency.ParseCurrency(string(cat.Currency)); err != nil {
		return nil, err
	}

	return &cat, nil
}
