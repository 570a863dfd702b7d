// internal/repository/preference.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comms-delivery/internal/models"
)

// ChannelPreferenceRepository persists per-recipient channel preferences.
// Rows are created lazily on first write.
type ChannelPreferenceRepository struct {
	db *sql.DB
}

func NewChannelPreferenceRepository(db *sql.DB) *ChannelPreferenceRepository {
	return &ChannelPreferenceRepository{db: db}
}

// Upsert inserts or updates the preference row for its user or contact key.
func (r *ChannelPreferenceRepository) Upsert(ctx context.Context, p *models.ChannelPreference) error {
	var conflictCol string
	if p.UserID != "" {
		conflictCol = "user_id"
	} else {
		conflictCol = "contact_id"
	}

	query := fmt.Sprintf(`
		INSERT INTO channel_preferences (
			id, user_id, contact_id, email_enabled, sms_enabled,
			quiet_hours_start, quiet_hours_end, timezone, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (%s) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`, conflictCol)

	_, err := r.db.ExecContext(ctx, query,
		p.ID, nullable(p.UserID), nullable(p.ContactID), p.EmailEnabled, p.SMSEnabled,
		nullable(p.QuietHoursStart), nullable(p.QuietHoursEnd), nullable(p.Timezone),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert channel preference: %w", err)
	}
	return nil
}

// FindByUserID returns (nil, nil) when no preference row exists.
func (r *ChannelPreferenceRepository) FindByUserID(ctx context.Context, userID string) (*models.ChannelPreference, error) {
	return r.findOne(ctx, `WHERE user_id = $1`, userID)
}

// FindByContactID returns (nil, nil) when no preference row exists.
func (r *ChannelPreferenceRepository) FindByContactID(ctx context.Context, contactID string) (*models.ChannelPreference, error) {
	return r.findOne(ctx, `WHERE contact_id = $1`, contactID)
}

func (r *ChannelPreferenceRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.ChannelPreference, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, contact_id, email_enabled, sms_enabled,
		       quiet_hours_start, quiet_hours_end, timezone, created_at, updated_at
		FROM channel_preferences `+where, arg)

	var p models.ChannelPreference
	var userID, contactID, start, end, tz sql.NullString
	err := row.Scan(&p.ID, &userID, &contactID, &p.EmailEnabled, &p.SMSEnabled,
		&start, &end, &tz, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find channel preference: %w", err)
	}

	p.UserID = userID.String
	p.ContactID = contactID.String
	p.QuietHoursStart = start.String
	p.QuietHoursEnd = end.String
	p.Timezone = tz.String
	return &p, nil
}
