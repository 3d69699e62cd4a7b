package events

import (
	"context"

	"github.com/smallbiznis/fairshare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideRelayConfig),
	fx.Provide(NewRelay),
	fx.Invoke(StartRelay),
)

// ProvidePublisher connects to the broker when AMQP_URL is set and falls back to logging.
func ProvidePublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.Events.AMQPURL == "" {
		return NewLogPublisher(log), nil
	}

	pub, err := NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func StartRelay(lc fx.Lifecycle, cfg config.Config, relay *Relay) {
	if !cfg.Events.RelayEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go relay.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
