package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Topics carried on the bus. Payloads are the domain types of the publishing
// package.
const (
	// TopicSessionTerminated carries (userID uint, sessionID string).
	TopicSessionTerminated = "session.terminated"
)

// Bus wraps EventBus with a bounded worker pool for asynchronous delivery.
// It is constructed in bootstrap and injected; there is no package-level
// instance.
type Bus struct {
	bus      evbus.Bus
	workChan chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a started bus with the given number of delivery workers.
func New(workers int) *Bus {
	if workers <= 0 {
		workers = 4
	}

	b := &Bus{
		bus:      evbus.New(),
		workChan: make(chan func(), 1024),
		stopChan: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		case deliver := <-b.workChan:
			func() {
				defer func() {
					// A panicking subscriber must not take the worker down.
					_ = recover()
				}()
				deliver()
			}()
		}
	}
}

// Publish delivers the event synchronously to all subscribers.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// PublishAsync enqueues the event for delivery off the caller's goroutine.
// When the queue is full the event is dropped; the bus carries notifications,
// not state.
func (b *Bus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.workChan <- func() { b.bus.Publish(topic, args...) }:
	default:
	}
}

// Subscribe registers a handler for the topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// Shutdown stops the delivery workers. Queued events are discarded.
func (b *Bus) Shutdown() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.wg.Wait()
}
