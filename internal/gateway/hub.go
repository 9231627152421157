package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub fans engine events out to all registered sinks. A failing sink is
// logged and skipped; it never blocks the pipeline.
type Hub struct {
	sinks  map[string]Sink
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sinks:  make(map[string]Sink),
		logger: logger,
	}
}

// Register adds a sink under its name.
func (h *Hub) Register(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[s.Name()] = s
	h.logger.Info("registered telemetry sink", zap.String("sink", s.Name()))
}

// ConnectAll starts every registered sink.
func (h *Hub) ConnectAll(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for name, s := range h.sinks {
		if err := s.Connect(ctx); err != nil {
			h.logger.Error("sink connect failed",
				zap.String("sink", name), zap.Error(err))
			return fmt.Errorf("connect %s: %w", name, err)
		}
		h.logger.Info("sink connected", zap.String("sink", name))
	}
	return nil
}

// Publish delivers an event to every sink, best effort.
func (h *Hub) Publish(ctx context.Context, ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for name, s := range h.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			h.logger.Warn("sink publish failed",
				zap.String("sink", name),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
		}
	}
}

// Names returns the registered sink names.
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.sinks))
	for n := range h.sinks {
		names = append(names, n)
	}
	return names
}

// Close shuts down all sinks.
func (h *Hub) Close() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for name, s := range h.sinks {
		if err := s.Close(); err != nil {
			h.logger.Error("sink close failed",
				zap.String("sink", name), zap.Error(err))
		}
	}
	return nil
}
