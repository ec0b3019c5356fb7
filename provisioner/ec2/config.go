package ec2

import "log/slog"

type Config struct {
	Logger *slog.Logger `json:"-"`

	Region string `json:"region"`
	Image  string `json:"image"`
	// Shared configuration profile, the default chain is used when empty
	Profile string `json:"profile"`
	// Static credentials, take precedence over the profile when both are set
	AccessKeyID     string `json:"-"`
	SecretAccessKey string `json:"-"`
}
