// internal/workers/communication/preferences/models.go
package preferences

// Input sets the channel configuration for one recipient. Exactly one of
// UserID or ContactID identifies the recipient; quiet-hours fields must be
// given together or not at all.
type Input struct {
	UserID          string `json:"userId,omitempty"`
	ContactID       string `json:"contactId,omitempty"`
	EmailEnabled    bool   `json:"emailEnabled"`
	SMSEnabled      bool   `json:"smsEnabled"`
	QuietHoursStart string `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   string `json:"quietHoursEnd,omitempty"`
	Timezone        string `json:"timezone,omitempty"`
}

// Output reports the stored preference row.
type Output struct {
	PreferenceID string `json:"preferenceId"`
	Created      bool   `json:"created"`
}
