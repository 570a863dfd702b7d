// internal/consumer/scope.go
package consumer

import (
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/workers/communication/deliver"
	"comms-delivery/internal/workers/communication/deliver/dispatch"
)

// ScopeFactory builds a fresh delivery handler per consumed message. The
// shared dependencies (stores, resolver, dispatchers) are long-lived; the
// per-message piece is the logger carrying the correlation id, so every line
// a delivery emits is traceable without threading ids by hand.
type ScopeFactory struct {
	config      *deliver.Config
	messages    deliver.MessageStore
	requests    deliver.RequestStore
	attempts    deliver.AttemptStore
	preferences deliver.PreferenceReader
	resolver    deliver.RecipientResolver
	dispatchers *dispatch.Registry
	log         logger.Logger
}

func NewScopeFactory(
	config *deliver.Config,
	messages deliver.MessageStore,
	requests deliver.RequestStore,
	attempts deliver.AttemptStore,
	preferences deliver.PreferenceReader,
	resolver deliver.RecipientResolver,
	dispatchers *dispatch.Registry,
	log logger.Logger,
) *ScopeFactory {
	return &ScopeFactory{
		config:      config,
		messages:    messages,
		requests:    requests,
		attempts:    attempts,
		preferences: preferences,
		resolver:    resolver,
		dispatchers: dispatchers,
		log:         log,
	}
}

// Handler returns a delivery handler scoped to one correlation id.
func (f *ScopeFactory) Handler(correlationID string) *deliver.Handler {
	scoped := f.log.WithFields(map[string]interface{}{
		"correlationId": correlationID,
	})
	return deliver.NewHandler(
		f.config,
		f.messages,
		f.requests,
		f.attempts,
		f.preferences,
		f.resolver,
		f.dispatchers,
		scoped,
	)
}
