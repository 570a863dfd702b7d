// internal/workers/communication/deliver/dispatch/dispatcher.go
package dispatch

import (
	"context"

	"comms-delivery/internal/models"
)

// Content is the channel-agnostic payload handed to a dispatcher.
type Content struct {
	Title     string
	Body      string
	PlainText string
	Format    models.ContentFormat
	Sensitive bool
}

// SendResult reports a successful provider call.
type SendResult struct {
	ProviderMessageID string
}

// Dispatcher adapts "send this content to this address" to one provider.
// Dispatchers never retry internally; failures come back as PROVIDER_ERROR
// StandardErrors carrying the retryable verdict, and scheduling any retry is
// the broker topology's concern.
type Dispatcher interface {
	Channel() models.Channel
	Send(ctx context.Context, address string, content *Content) (*SendResult, error)
}

// Registry maps channels to their dispatchers. Assembled once at startup;
// an absent optional provider simply shortens the registry.
type Registry struct {
	dispatchers map[models.Channel]Dispatcher
}

func NewRegistry(dispatchers ...Dispatcher) *Registry {
	m := make(map[models.Channel]Dispatcher, len(dispatchers))
	for _, d := range dispatchers {
		m[d.Channel()] = d
	}
	return &Registry{dispatchers: m}
}

// Get returns the dispatcher for a channel, or false when none is
// registered.
func (r *Registry) Get(channel models.Channel) (Dispatcher, bool) {
	d, ok := r.dispatchers[channel]
	return d, ok
}
