package events

import (
	"context"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock/publisher_mock.go -package=mock . Publisher

// Publisher delivers a serialized event under a routing topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LogPublisher writes events to the logger. It is used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events.log_publisher")}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.log.Info("event published",
		zap.String("topic", topic),
		zap.ByteString("payload", payload),
	)
	return nil
}
