package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Sink receives fire-and-forget moderation events. Implementations must
// never block the caller or surface their own failures.
type Sink interface {
	Emit(ctx context.Context, event string, fields map[string]any)
}

var eventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_events_total",
	Help: "Number of moderation events emitted",
}, []string{"event"})

type Service struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

func (s *Service) Emit(ctx context.Context, event string, fields map[string]any) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Warn("telemetry emit panicked", zap.Any("recovered", r))
		}
	}()

	eventCount.WithLabelValues(event).Inc()

	if s.logger == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("event", event))
	for key, value := range fields {
		zf = append(zf, zap.Any(key, value))
	}
	s.logger.Info("telemetry", zf...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) {}
