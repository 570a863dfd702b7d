// internal/models/preference.go
package models

import (
	"fmt"
	"regexp"
	"time"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ChannelPreference is a recipient's channel configuration, keyed by exactly
// one of UserID or ContactID. Quiet hours are wall-clock HH:MM values in the
// recipient's timezone; both must be set together for the window to apply.
type ChannelPreference struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId,omitempty"`
	ContactID       string    `json:"contactId,omitempty"`
	EmailEnabled    bool      `json:"emailEnabled"`
	SMSEnabled      bool      `json:"smsEnabled"`
	QuietHoursStart string    `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   string    `json:"quietHoursEnd,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (p *ChannelPreference) Validate() error {
	if p.UserID == "" && p.ContactID == "" {
		return fmt.Errorf("channel preference needs a user id or contact id")
	}
	if p.UserID != "" && p.ContactID != "" {
		return fmt.Errorf("channel preference cannot have both a user id and a contact id")
	}
	if (p.QuietHoursStart == "") != (p.QuietHoursEnd == "") {
		return fmt.Errorf("quiet hours start and end must be set together")
	}
	if p.QuietHoursStart != "" {
		if !hhmmPattern.MatchString(p.QuietHoursStart) {
			return fmt.Errorf("invalid quiet hours start: %q", p.QuietHoursStart)
		}
		if !hhmmPattern.MatchString(p.QuietHoursEnd) {
			return fmt.Errorf("invalid quiet hours end: %q", p.QuietHoursEnd)
		}
		if p.Timezone == "" {
			return fmt.Errorf("quiet hours require a timezone")
		}
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %q", p.Timezone)
		}
	}
	return nil
}

// HasQuietHours reports whether a complete quiet-hours window is configured.
func (p *ChannelPreference) HasQuietHours() bool {
	return p.QuietHoursStart != "" && p.QuietHoursEnd != "" && p.Timezone != ""
}

// EnabledChannels returns the enabled channels in canonical order.
func (p *ChannelPreference) EnabledChannels() []Channel {
	var out []Channel
	if p.EmailEnabled {
		out = append(out, ChannelEmail)
	}
	if p.SMSEnabled {
		out = append(out, ChannelSMS)
	}
	return out
}
