package realtime

import (
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// Forwarder pumps a subscriber's events into a handler on its own goroutine.
// It implements remote.Subscription.
type Forwarder struct {
	sub  *Subscriber
	done chan struct{}
	once sync.Once
}

// Forward starts delivering sub's events to handler in order.
func Forward(sub *Subscriber, handler func(models.ChangeEvent)) *Forwarder {
	f := &Forwarder{sub: sub, done: make(chan struct{})}
	go func() {
		defer close(f.done)
		for ev := range sub.Events() {
			handler(ev)
		}
	}()
	return f
}

// Unsubscribe closes the subscriber and waits until the handler goroutine
// has returned. It must not be called from inside the handler.
func (f *Forwarder) Unsubscribe() error {
	f.once.Do(f.sub.Close)
	<-f.done
	return nil
}
