// Package notify delivers order confirmation notifications. Delivery is
// fire-and-forget: a failure never fails the checkout that triggered it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/order"
)

// Sender delivers an order confirmation. It reports success but callers are
// expected to ignore the result beyond logging.
type Sender interface {
	Send(ctx context.Context, o *order.Order) bool
}

// LogSender simulates delivery by writing a structured log entry. Used until
// a real mail/push integration is plugged in.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(lg *zap.Logger) *LogSender {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &LogSender{lg: lg}
}

// Send logs the confirmation and always reports success.
func (s *LogSender) Send(_ context.Context, o *order.Order) bool {
	s.lg.Info("order confirmation sent",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.Total.String()),
	)
	return true
}
