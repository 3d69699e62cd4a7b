package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "granted"),
		attribute.String("requester_id", "456"),
		attribute.String("event_type", "booking.granted"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "event_type" && attrs[1].Key != "event_type" {
		t.Fatalf("expected event_type to be retained")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordSubmission(context.Background(), "granted")
	m.RecordEventRelayed(context.Background(), "booking.granted", "published")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordSubmission(context.Background(), "waitlisted")
	m.RecordCancellation(context.Background(), "granted")
	m.RecordPromotion(context.Background())
	m.RecordRateLimitDenied(context.Background(), "tenant")
}
