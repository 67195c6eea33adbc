// Package notify consumes payment events off kafka: it keeps the redis
// status cache warm for pollers and emits the confirmation log line that
// downstream notification tooling tails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/abenezerz/chapa-shop/internal/kafka"
	"github.com/abenezerz/chapa-shop/internal/orders"
	"github.com/abenezerz/chapa-shop/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandlePaymentEvent is wired as the consumer handler for both payment
// topics. Events arrive at-least-once; redis dedup by event id keeps the
// cache writes and log lines single-shot.
func (s *Service) HandlePaymentEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	switch env.EventType {
	case orders.EventPaymentVerified:
		p, err := kafkax.UnwrapPayload[orders.PaymentVerifiedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cache(ctx, p.TxRef, "SUCCESS")
		s.Log.Info("order confirmed",
			zap.String("order_id", p.OrderID),
			zap.String("user_id", p.UserID),
			zap.String("tx_ref", p.TxRef),
			zap.String("amount", p.Amount),
			zap.String("currency", p.Currency))
	case orders.EventPaymentFailed:
		p, err := kafkax.UnwrapPayload[orders.PaymentFailedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cache(ctx, p.TxRef, "FAILED")
		s.Log.Warn("payment failed",
			zap.String("order_id", p.OrderID),
			zap.String("tx_ref", p.TxRef),
			zap.String("reason", p.Reason))
	default:
		return nil // not ours, commit and move on
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func (s *Service) cache(ctx context.Context, txRef, status string) {
	key := fmt.Sprintf(redisx.KeyPaymentStatus, txRef)
	if err := s.Redis.Set(ctx, key, status, redisx.TTLStatusCache).Err(); err != nil {
		s.Log.Warn("status cache set failed", zap.String("tx_ref", txRef), zap.Error(err))
	}
}
