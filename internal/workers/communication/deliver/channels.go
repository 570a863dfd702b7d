// internal/workers/communication/deliver/channels.go
package deliver

import (
	"time"

	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
	"comms-delivery/internal/workers/communication/deliver/quiethours"
)

// ResolveChannels produces the ordered, de-duplicated channel list to
// attempt.
//
// An explicit list from the caller wins verbatim, including an explicit
// empty list meaning "attempt no channels". Otherwise the preference's
// enabled channels apply (defaults when no preference row exists), and for
// normal urgency an active quiet-hours window suppresses everything: the
// request is still persisted and marked processed with zero attempts, a
// hold-don't-drop boundary for future snooze-and-resend logic.
func ResolveChannels(explicit []models.Channel, urgency models.Urgency, pref *models.ChannelPreference, defaults []models.Channel, now time.Time, log logger.Logger) []models.Channel {
	if explicit != nil {
		return dedupe(explicit)
	}

	var enabled []models.Channel
	if pref == nil {
		enabled = append(enabled, defaults...)
	} else {
		enabled = pref.EnabledChannels()
	}

	if urgency == models.UrgencyUrgent {
		return enabled
	}

	if pref != nil && pref.HasQuietHours() {
		window, err := quiethours.Evaluate(pref.QuietHoursStart, pref.QuietHoursEnd, pref.Timezone, now)
		if err != nil {
			// A misconfigured window never blocks delivery.
			log.Warn("ignoring invalid quiet hours configuration", map[string]interface{}{
				"start":    pref.QuietHoursStart,
				"end":      pref.QuietHoursEnd,
				"timezone": pref.Timezone,
				"error":    err.Error(),
			})
			return enabled
		}
		if window.Active {
			log.Info("suppressing channels for quiet hours", map[string]interface{}{
				"endsAtUtc": window.EndUTC,
			})
			return nil
		}
	}

	return enabled
}

func dedupe(channels []models.Channel) []models.Channel {
	seen := make(map[models.Channel]bool, len(channels))
	out := make([]models.Channel, 0, len(channels))
	for _, c := range channels {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
