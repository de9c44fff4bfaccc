package bus

import (
	"log/slog"
	"sync"
	"time"

	"sinkbot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based queue between the webhook channel and
// the event dispatcher. Each published event is handled by exactly one
// consumer goroutine.
type InMemoryBus struct {
	inbound chan domain.Event
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// New creates a new InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		inbound: make(chan domain.Event, bufferSize),
		logger:  logger,
	}
}

// Publish enqueues an inbound event. Blocks up to 10 seconds if the bus is
// full instead of dropping.
func (b *InMemoryBus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- ev:
	default:
		b.logger.Warn("inbound bus full, waiting...", "reply_token_set", ev.ReplyToken != "")
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- ev:
			b.logger.Info("event delivered after wait")
		case <-timer.C:
			b.logger.Error("event dropped: bus full for 10s")
		}
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.Event {
	return b.inbound
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
