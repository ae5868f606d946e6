package otel

import (
	"context"

	"github.com/noelbox/storefront/internal/jaeger"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs a Jaeger-backed tracer provider. With otel.enabled unset
// it returns a controller whose Shutdown is a no-op and the global no-op provider stays.
func MustInitOtel() *OtelController {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !viper.GetBool("otel.enabled") {
		return &OtelController{}
	}

	jaegerExporter := jaeger.MustNewJaeger(viper.GetString("otel.jaeger_endpoint"))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(jaegerExporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(viper.GetString("otel.service_name")),
		)),
	)

	otel.SetTracerProvider(tp)

	return &OtelController{
		traceProvider: tp,
	}
}

func (o *OtelController) Shutdown() error {
	if o.traceProvider == nil {
		return nil
	}

	return o.traceProvider.Shutdown(context.Background())
}
