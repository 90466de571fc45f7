package model

// Destination is a place the daily problem is announced to, usually one chat server.
type Destination struct {
	Name         string `yaml:"name" json:"name"`
	WebhookURL   string `yaml:"webhook_url" json:"-"`
	ChannelID    string `yaml:"channel_id" json:"channel_id"`
	PingRoleID   string `yaml:"ping_role_id" json:"ping_role_id,omitempty"`
	SolvedRoleID string `yaml:"solved_role_id" json:"solved_role_id,omitempty"`
	OtdPrefix    string `yaml:"otd_prefix" json:"otd_prefix,omitempty"` // "Problem", "Question", ...
}
