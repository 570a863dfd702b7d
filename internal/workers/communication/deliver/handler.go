// internal/workers/communication/deliver/handler.go
package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/common/metrics"
	"comms-delivery/internal/directory"
	"comms-delivery/internal/models"
	"comms-delivery/internal/workers/communication/deliver/dispatch"
)

// Persistence surfaces the handler depends on; implemented by the
// repository package, faked in tests.
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
}

type RequestStore interface {
	Create(ctx context.Context, req *models.DeliveryRequest) error
	FindByCorrelationID(ctx context.Context, correlationID string) (*models.DeliveryRequest, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
}

type AttemptStore interface {
	Create(ctx context.Context, a *models.DeliveryAttempt) error
	FindByRequestID(ctx context.Context, requestID string) ([]*models.DeliveryAttempt, error)
}

type PreferenceReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.ChannelPreference, error)
	FindByContactID(ctx context.Context, contactID string) (*models.ChannelPreference, error)
}

// RecipientResolver maps a recipient identity onto deliverable addresses.
type RecipientResolver interface {
	Resolve(ctx context.Context, userID, contactID string) directory.Address
}

// Handler is the delivery orchestrator: the single use case that turns a
// notify request into channel dispatches with exactly-once effect semantics
// on top of at-least-once message delivery.
type Handler struct {
	config      *Config
	messages    MessageStore
	requests    RequestStore
	attempts    AttemptStore
	preferences PreferenceReader
	resolver    RecipientResolver
	dispatchers *dispatch.Registry
	logger      logger.Logger
	now         func() time.Time
}

func NewHandler(
	config *Config,
	messages MessageStore,
	requests RequestStore,
	attempts AttemptStore,
	preferences PreferenceReader,
	resolver RecipientResolver,
	dispatchers *dispatch.Registry,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:      config,
		messages:    messages,
		requests:    requests,
		attempts:    attempts,
		preferences: preferences,
		resolver:    resolver,
		dispatchers: dispatchers,
		logger:      log.WithFields(map[string]interface{}{"useCase": "deliver"}),
		now:         time.Now,
	}
}

// Execute performs idempotent delivery. Dedupe is a point lookup on the
// correlation id; the database's unique constraint is the safety net for
// concurrent racers, resolved by re-reading the winner's row.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}

	existing, err := h.requests.FindByCorrelationID(ctx, input.CorrelationID)
	if err != nil {
		return nil, stderrors.NewRepositoryError("find request by correlation id", err)
	}
	if existing != nil {
		return h.resume(ctx, existing, input)
	}

	msg := h.buildMessage(input)
	if err := msg.Validate(); err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}
	if err := h.messages.Create(ctx, msg); err != nil {
		return nil, stderrors.NewRepositoryError("create message", err)
	}

	addr := h.resolver.Resolve(ctx, input.RecipientUserID, input.RecipientContactID)

	pref, err := h.loadPreference(ctx, input)
	if err != nil {
		return nil, stderrors.NewRepositoryError("load channel preference", err)
	}

	channels := ResolveChannels(explicitChannels(input), urgencyOf(input), pref, h.config.DefaultChannels, h.now(), h.logger)

	// No deliverable address for any requested channel is terminal before
	// the request row exists. The message row stays behind as an audit
	// record.
	if len(channels) > 0 && !h.anyAddress(addr, channels) {
		return nil, stderrors.NewNotFoundError(fmt.Sprintf(
			"no deliverable address for channels %v (correlationId: %s)", channels, input.CorrelationID))
	}

	req := &models.DeliveryRequest{
		ID:                 uuid.New().String(),
		MessageID:          msg.ID,
		CorrelationID:      input.CorrelationID,
		RecipientUserID:    input.RecipientUserID,
		RecipientContactID: input.RecipientContactID,
		Channels:           channels,
		TemplateName:       input.TemplateName,
		CallbackTopic:      input.CallbackTopic,
		CreatedAt:          h.now().UTC(),
	}
	if err := h.requests.Create(ctx, req); err != nil {
		if stderrors.CodeOf(err) == stderrors.ErrCodeDuplicateCorrelation {
			// Lost the insert race: the winner's row carries the outcome.
			winner, findErr := h.requests.FindByCorrelationID(ctx, input.CorrelationID)
			if findErr != nil || winner == nil {
				return nil, stderrors.NewNotFoundError(fmt.Sprintf(
					"correlation conflict for %s but winning request not readable", input.CorrelationID))
			}
			return h.resume(ctx, winner, input)
		}
		return nil, stderrors.NewRepositoryError("create delivery request", err)
	}

	content := h.buildContent(input)
	results := h.dispatchChannels(ctx, req, channels, addr, content, nil)

	if err := h.requests.MarkProcessed(ctx, req.ID, h.now().UTC()); err != nil {
		return nil, stderrors.NewRepositoryError("mark request processed", err)
	}

	return h.aggregate(msg.ID, req.ID, results)
}

// resume replays or finishes a previously-seen request. Channels with an
// existing sent attempt are never re-dispatched; channels whose latest
// attempt failed get a fresh attempt row with an incremented attempt number.
// A fully-sent (or zero-channel) request is a pure replay of the recorded
// outcome.
func (h *Handler) resume(ctx context.Context, req *models.DeliveryRequest, input *Input) (*Output, error) {
	prior, err := h.attempts.FindByRequestID(ctx, req.ID)
	if err != nil {
		return nil, stderrors.NewRepositoryError("load prior attempts", err)
	}

	sent := make(map[models.Channel]bool)
	counts := make(map[models.Channel]int)
	for _, a := range prior {
		counts[a.Channel]++
		if a.Status == models.AttemptSent {
			sent[a.Channel] = true
		}
	}

	var pending []models.Channel
	for _, c := range req.Channels {
		if !sent[c] {
			pending = append(pending, c)
		}
	}

	if len(pending) == 0 {
		return h.replay(req, prior)
	}

	h.logger.Info("resuming delivery for known correlation id", map[string]interface{}{
		"correlationId": req.CorrelationID,
		"requestId":     req.ID,
		"pending":       pending,
	})

	addr := h.resolver.Resolve(ctx, req.RecipientUserID, req.RecipientContactID)
	content := h.buildContent(input)
	fresh := h.dispatchChannels(ctx, req, pending, addr, content, counts)

	if req.ProcessedAt == nil {
		if err := h.requests.MarkProcessed(ctx, req.ID, h.now().UTC()); err != nil {
			return nil, stderrors.NewRepositoryError("mark request processed", err)
		}
	}

	// Recorded sent attempts plus this run's outcomes form the aggregate.
	var results []AttemptResult
	for _, a := range prior {
		if a.Status == models.AttemptSent {
			results = append(results, attemptResult(a))
		}
	}
	results = append(results, fresh...)
	return h.aggregate(req.MessageID, req.ID, results)
}

// replay returns the previously-recorded outcome verbatim without touching
// any provider.
func (h *Handler) replay(req *models.DeliveryRequest, prior []*models.DeliveryAttempt) (*Output, error) {
	results := make([]AttemptResult, 0, len(prior))
	for _, a := range prior {
		results = append(results, attemptResult(a))
	}
	h.logger.Info("returning recorded outcome for duplicate correlation id", map[string]interface{}{
		"correlationId": req.CorrelationID,
		"requestId":     req.ID,
		"attempts":      len(results),
	})
	return h.aggregate(req.MessageID, req.ID, results)
}

// dispatchChannels sends to each channel in list order, persisting one
// attempt row per channel. Channels fail independently: one failure never
// blocks or rolls back another channel's attempt. priorCounts carries
// per-channel attempt counts from earlier deliveries of the same request.
func (h *Handler) dispatchChannels(ctx context.Context, req *models.DeliveryRequest, channels []models.Channel, addr directory.Address, content *dispatch.Content, priorCounts map[models.Channel]int) []AttemptResult {
	var results []AttemptResult

	for _, channel := range channels {
		address := h.addressFor(addr, channel)
		if address == "" {
			// Requested alongside a deliverable channel; nothing to send to.
			continue
		}

		attemptNumber := 1 + priorCounts[channel]
		attempt := &models.DeliveryAttempt{
			ID:            uuid.New().String(),
			RequestID:     req.ID,
			Channel:       channel,
			Address:       address,
			Status:        models.AttemptPending,
			AttemptNumber: attemptNumber,
			CreatedAt:     h.now().UTC(),
		}

		retryable := false
		dispatcher, ok := h.dispatchers.Get(channel)
		if !ok {
			attempt.Status = models.AttemptFailed
			attempt.Error = fmt.Sprintf("no dispatcher registered for channel %s", channel)
		} else {
			result, err := dispatcher.Send(ctx, address, content)
			if err != nil {
				attempt.Status = models.AttemptFailed
				attempt.Error = err.Error()
				retryable = stderrors.IsRetryable(err)
			} else {
				attempt.Status = models.AttemptSent
				attempt.ProviderMessageID = result.ProviderMessageID
			}
		}

		metrics.ChannelAttempts.WithLabelValues(string(channel), string(attempt.Status)).Inc()

		if err := h.attempts.Create(ctx, attempt); err != nil {
			// The dispatch already happened; losing the row is log-worthy
			// but must not fail the other channels.
			h.logger.Error("failed to persist delivery attempt", map[string]interface{}{
				"requestId": req.ID,
				"channel":   channel,
				"error":     err.Error(),
			})
		}

		result := attemptResult(attempt)
		result.Retryable = retryable
		results = append(results, result)
	}

	return results
}

// aggregate computes the overall outcome. Success unless every attempted
// channel failed; an all-failed outcome with at least one retryable failure
// carries the DELIVERY_FAILED marker for the consumer's retry decision.
func (h *Handler) aggregate(messageID, requestID string, results []AttemptResult) (*Output, error) {
	out := &Output{
		MessageID: messageID,
		RequestID: requestID,
		Attempts:  results,
		Success:   true,
	}

	if len(results) == 0 {
		return out, nil
	}

	anySent := false
	anyRetryable := false
	for _, r := range results {
		if r.Status == models.AttemptSent {
			anySent = true
		} else if r.Retryable {
			anyRetryable = true
		}
	}

	if anySent {
		metrics.NotificationsDelivered.Inc()
		return out, nil
	}

	out.Success = false
	if anyRetryable {
		return out, stderrors.NewDeliveryFailedError(fmt.Sprintf(
			"all %d attempted channels failed for request %s", len(results), requestID))
	}
	return out, nil
}

func (h *Handler) buildMessage(input *Input) *models.Message {
	return &models.Message{
		ID:               uuid.New().String(),
		Title:            input.Title,
		Content:          input.Content,
		PlainTextContent: input.PlainTextContent,
		ContentFormat:    formatOf(input),
		Urgency:          urgencyOf(input),
		Sensitive:        input.Sensitive,
		SenderService:    input.SenderService,
		Metadata:         input.Metadata,
		CreatedAt:        h.now().UTC(),
	}
}

func (h *Handler) buildContent(input *Input) *dispatch.Content {
	return &dispatch.Content{
		Title:     input.Title,
		Body:      input.Content,
		PlainText: input.PlainTextContent,
		Format:    formatOf(input),
		Sensitive: input.Sensitive,
	}
}

func (h *Handler) loadPreference(ctx context.Context, input *Input) (*models.ChannelPreference, error) {
	if input.RecipientUserID != "" {
		return h.preferences.FindByUserID(ctx, input.RecipientUserID)
	}
	return h.preferences.FindByContactID(ctx, input.RecipientContactID)
}

func (h *Handler) addressFor(addr directory.Address, channel models.Channel) string {
	switch channel {
	case models.ChannelEmail:
		return addr.Email
	case models.ChannelSMS:
		return addr.Phone
	}
	return ""
}

func (h *Handler) anyAddress(addr directory.Address, channels []models.Channel) bool {
	for _, c := range channels {
		if h.addressFor(addr, c) != "" {
			return true
		}
	}
	return false
}

func attemptResult(a *models.DeliveryAttempt) AttemptResult {
	return AttemptResult{
		Channel:           a.Channel,
		Address:           a.Address,
		Status:            a.Status,
		ProviderMessageID: a.ProviderMessageID,
		Error:             a.Error,
		AttemptNumber:     a.AttemptNumber,
	}
}
