// internal/consumer/consumer_test.go
package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"comms-delivery/internal/common/config"
	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/directory"
	"comms-delivery/internal/models"
	"comms-delivery/internal/workers/communication/deliver"
	"comms-delivery/internal/workers/communication/deliver/dispatch"
)

// ==========================
// Fakes
// ==========================

type fakeAck struct {
	acks int
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error { f.acks++; return nil }

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error { return nil }

func (f *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

type fakePublisher struct {
	published []int
	bodies    [][]byte
	err       error
}

func (f *fakePublisher) PublishRetry(ctx context.Context, body []byte, tier int) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, tier)
	f.bodies = append(f.bodies, body)
	return nil
}

type memMessages struct{}

func (memMessages) Create(ctx context.Context, m *models.Message) error { return nil }
func (memMessages) FindByID(ctx context.Context, id string) (*models.Message, error) {
	return nil, nil
}

type memRequests struct {
	byCorrelation map[string]*models.DeliveryRequest
}

func (m *memRequests) Create(ctx context.Context, req *models.DeliveryRequest) error {
	m.byCorrelation[req.CorrelationID] = req
	return nil
}

func (m *memRequests) FindByCorrelationID(ctx context.Context, id string) (*models.DeliveryRequest, error) {
	return m.byCorrelation[id], nil
}

func (m *memRequests) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	for _, req := range m.byCorrelation {
		if req.ID == id {
			req.ProcessedAt = &at
		}
	}
	return nil
}

type memAttempts struct {
	byRequest map[string][]*models.DeliveryAttempt
}

func (m *memAttempts) Create(ctx context.Context, a *models.DeliveryAttempt) error {
	m.byRequest[a.RequestID] = append(m.byRequest[a.RequestID], a)
	return nil
}

func (m *memAttempts) FindByRequestID(ctx context.Context, id string) ([]*models.DeliveryAttempt, error) {
	return m.byRequest[id], nil
}

type noPrefs struct{}

func (noPrefs) FindByUserID(ctx context.Context, id string) (*models.ChannelPreference, error) {
	return nil, nil
}
func (noPrefs) FindByContactID(ctx context.Context, id string) (*models.ChannelPreference, error) {
	return nil, nil
}

type staticResolver struct {
	addr directory.Address
}

func (s staticResolver) Resolve(ctx context.Context, userID, contactID string) directory.Address {
	return s.addr
}

type stubDispatcher struct {
	channel models.Channel
	err     error
	panics  bool
	sends   int
}

func (s *stubDispatcher) Channel() models.Channel { return s.channel }

func (s *stubDispatcher) Send(ctx context.Context, address string, content *dispatch.Content) (*dispatch.SendResult, error) {
	s.sends++
	if s.panics {
		panic("dispatcher exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &dispatch.SendResult{ProviderMessageID: "prov-1"}, nil
}

// ==========================
// Harness
// ==========================

type consumerHarness struct {
	consumer *Consumer
	pub      *fakePublisher
	email    *stubDispatcher
	sms      *stubDispatcher
	resolver *staticResolver
}

func testRabbitConfig() config.RabbitMQConfig {
	return config.RabbitMQConfig{
		Exchange:     "comms",
		Queue:        "notify",
		RoutingKey:   "notify",
		Prefetch:     10,
		RetryTiersMS: []int{1000, 2000, 3000},
	}
}

func newConsumerHarness(t *testing.T) *consumerHarness {
	h := &consumerHarness{
		pub:      &fakePublisher{},
		email:    &stubDispatcher{channel: models.ChannelEmail},
		sms:      &stubDispatcher{channel: models.ChannelSMS},
		resolver: &staticResolver{addr: directory.Address{Email: "a@example.com", Phone: "+15550100"}},
	}

	scopes := NewScopeFactory(
		deliver.LoadConfig(),
		memMessages{},
		&memRequests{byCorrelation: make(map[string]*models.DeliveryRequest)},
		&memAttempts{byRequest: make(map[string][]*models.DeliveryAttempt)},
		noPrefs{},
		h.resolver,
		dispatch.NewRegistry(h.email, h.sms),
		logger.NewTestLogger(t),
	)
	h.consumer = New(nil, h.pub, testRabbitConfig(), scopes, logger.NewTestLogger(t))
	return h
}

func notifyBody() []byte {
	return []byte(`{
		"correlationId": "corr-1",
		"senderService": "billing",
		"content": "Your invoice is ready",
		"plaintext": "Your invoice is ready",
		"recipientUserId": "user-1"
	}`)
}

func delivery(body []byte, retryCount int) (amqp.Delivery, *fakeAck) {
	ack := &fakeAck{}
	d := amqp.Delivery{Acknowledger: ack, Body: body}
	if retryCount > 0 {
		d.Headers = amqp.Table{"x-retry-count": int32(retryCount)}
	}
	return d, ack
}

// ==========================
// Tests
// ==========================

func TestHandle_SuccessAcksWithoutRetry(t *testing.T) {
	h := newConsumerHarness(t)

	d, ack := delivery(notifyBody(), 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
	assert.Equal(t, 1, h.email.sends)
	assert.Equal(t, 1, h.sms.sends)
}

func TestHandle_SchemaInvalidDropsWithoutHandler(t *testing.T) {
	h := newConsumerHarness(t)

	d, ack := delivery([]byte(`{"correlationId": "corr-1"}`), 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
	assert.Zero(t, h.email.sends)
}

func TestHandle_MalformedJSONDrops(t *testing.T) {
	h := newConsumerHarness(t)

	d, ack := delivery([]byte(`{not json`), 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
}

func TestHandle_RetryableFailureSchedulesTierOne(t *testing.T) {
	h := newConsumerHarness(t)
	h.email.err = stderrors.NewProviderError("email", true, errors.New("throttled"))
	h.sms.err = stderrors.NewProviderError("sms", true, errors.New("throttled"))

	body := notifyBody()
	d, ack := delivery(body, 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, []int{1}, h.pub.published)
	assert.Equal(t, body, h.pub.bodies[0])
}

func TestHandle_RetryEscalatesThroughTiers(t *testing.T) {
	h := newConsumerHarness(t)
	h.email.err = stderrors.NewProviderError("email", true, errors.New("down"))
	h.sms.err = stderrors.NewProviderError("sms", true, errors.New("down"))

	d, _ := delivery(notifyBody(), 2)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, []int{3}, h.pub.published)
}

func TestHandle_RetriesExhaustedDrops(t *testing.T) {
	h := newConsumerHarness(t)
	h.email.err = stderrors.NewProviderError("email", true, errors.New("down"))
	h.sms.err = stderrors.NewProviderError("sms", true, errors.New("down"))

	// Already been through all three tiers.
	d, ack := delivery(notifyBody(), 3)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
}

func TestHandle_TerminalFailureNeverRetries(t *testing.T) {
	h := newConsumerHarness(t)
	// No deliverable address makes the delivery a NOT_FOUND.
	h.resolver.addr = directory.Address{}

	d, ack := delivery(notifyBody(), 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
}

func TestHandle_NonRetryableProviderFailureAcksOnly(t *testing.T) {
	h := newConsumerHarness(t)
	h.email.err = stderrors.NewProviderError("email", false, errors.New("rejected"))
	h.sms.err = stderrors.NewProviderError("sms", false, errors.New("rejected"))

	d, ack := delivery(notifyBody(), 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, h.pub.published)
}

func TestHandle_PanicAcksAndSchedulesRetry(t *testing.T) {
	h := newConsumerHarness(t)
	h.email.panics = true

	body := notifyBody()
	d, ack := delivery(body, 0)
	h.consumer.handle(context.Background(), d)

	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, []int{1}, h.pub.published)
	assert.Equal(t, body, h.pub.bodies[0])
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, validatePayload(notifyBody()))

	// Missing any recipient identity.
	err := validatePayload([]byte(`{
		"correlationId": "corr-1",
		"senderService": "billing",
		"content": "x",
		"plaintext": "x"
	}`))
	assert.Error(t, err)

	// Unknown channel value.
	err = validatePayload([]byte(`{
		"correlationId": "corr-1",
		"senderService": "billing",
		"content": "x",
		"plaintext": "x",
		"recipientUserId": "user-1",
		"channels": ["pigeon"]
	}`))
	assert.Error(t, err)
}
