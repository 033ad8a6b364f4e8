package publish

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/netwatch-oss/triggerkit/internal/logger"
)

// DefaultBufferSize is the capacity of the change queue.
const DefaultBufferSize = 256

// Bus is an asynchronous fan-out of trigger changes. Publish never blocks:
// when the queue is full the change is dropped and counted.
type Bus struct {
	handlers []Handler
	mu       sync.RWMutex
	ch       chan Change
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
	log      logger.Logger
}

// NewBus starts a bus with the given queue size. A non-positive size uses
// DefaultBufferSize.
func NewBus(size int, log logger.Logger) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	b := &Bus{
		ch:     make(chan Change, size),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		log:    log.With(logger.String("component", "publish")),
	}
	go b.loop()
	return b
}

// Subscribe registers a handler. Handlers run sequentially on the bus
// goroutine in registration order.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues a change. Changes published after Stop are discarded.
func (b *Bus) Publish(c Change) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	select {
	case b.ch <- c:
	default:
		b.dropped.Add(1)
		b.log.Warn("change queue full, dropping change",
			logger.String("action", string(c.Action)),
			logger.String("trigger_id", c.Trigger.ID))
	}
}

// Dropped returns the number of changes discarded because the queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Stop drains queued changes and waits for the worker to exit. It is safe
// to call more than once.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.done
}

func (b *Bus) loop() {
	defer close(b.done)
	for {
		select {
		case c := <-b.ch:
			b.dispatch(c)
		case <-b.stopCh:
			for {
				select {
				case c := <-b.ch:
					b.dispatch(c)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(c Change) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, c)
	}
}

// safeCall keeps the worker alive when a handler panics.
func (b *Bus) safeCall(h Handler, c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("change handler panicked",
				logger.Any("panic", r),
				logger.String("action", string(c.Action)))
		}
	}()
	h(c)
}
