// internal/workers/communication/deliver/config.go
package deliver

import "comms-delivery/internal/models"

type Config struct {
	// DefaultChannels is the channel set assumed for recipients without a
	// preference row, in dispatch order.
	DefaultChannels []models.Channel
}

func LoadConfig() *Config {
	return &Config{
		DefaultChannels: []models.Channel{models.ChannelEmail, models.ChannelSMS},
	}
}
