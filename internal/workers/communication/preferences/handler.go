// internal/workers/communication/preferences/handler.go
package preferences

import (
	"context"
	"time"

	"github.com/google/uuid"

	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
)

// PreferenceStore is implemented by the cached preference store; Upsert is
// expected to evict any cache entry for the recipient.
type PreferenceStore interface {
	Upsert(ctx context.Context, p *models.ChannelPreference) error
	FindByUserID(ctx context.Context, userID string) (*models.ChannelPreference, error)
	FindByContactID(ctx context.Context, contactID string) (*models.ChannelPreference, error)
}

// Handler owns the preference write path used by the settings flow.
type Handler struct {
	store  PreferenceStore
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(store PreferenceStore, log logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"useCase": "preferences"}),
		now:    time.Now,
	}
}

// SetPreferences validates and upserts the recipient's channel
// configuration. The row is created lazily on first write; an existing row
// keeps its id and creation time.
func (h *Handler) SetPreferences(ctx context.Context, input *Input) (*Output, error) {
	pref := &models.ChannelPreference{
		UserID:          input.UserID,
		ContactID:       input.ContactID,
		EmailEnabled:    input.EmailEnabled,
		SMSEnabled:      input.SMSEnabled,
		QuietHoursStart: input.QuietHoursStart,
		QuietHoursEnd:   input.QuietHoursEnd,
		Timezone:        input.Timezone,
	}
	if err := pref.Validate(); err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}

	existing, err := h.findExisting(ctx, input)
	if err != nil {
		return nil, stderrors.NewRepositoryError("find channel preference", err)
	}

	now := h.now().UTC()
	created := existing == nil
	if created {
		pref.ID = uuid.New().String()
		pref.CreatedAt = now
	} else {
		pref.ID = existing.ID
		pref.CreatedAt = existing.CreatedAt
	}
	pref.UpdatedAt = now

	if err := h.store.Upsert(ctx, pref); err != nil {
		return nil, stderrors.NewRepositoryError("upsert channel preference", err)
	}

	h.logger.Info("stored channel preference", map[string]interface{}{
		"preferenceId": pref.ID,
		"created":      created,
		"quietHours":   pref.HasQuietHours(),
	})
	return &Output{PreferenceID: pref.ID, Created: created}, nil
}

func (h *Handler) findExisting(ctx context.Context, input *Input) (*models.ChannelPreference, error) {
	if input.UserID != "" {
		return h.store.FindByUserID(ctx, input.UserID)
	}
	return h.store.FindByContactID(ctx, input.ContactID)
}
