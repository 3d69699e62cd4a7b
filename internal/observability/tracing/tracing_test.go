package tracing

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewProviderDisabled(t *testing.T) {
	tp, err := NewProvider(nil, Config{ServiceName: "fairshare", Environment: "test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatalf("expected disabled provider to drop spans")
	}
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	if _, err := newExporter("carrier-pigeon", ""); err == nil {
		t.Fatalf("expected error for unsupported protocol")
	}
}
