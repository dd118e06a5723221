// internal/workers/notification/notify-lead/models.go
package notifylead

// Delivery statuses.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Delivery channels, tried in order.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Input struct {
	LeadID string `json:"leadId"`
}

type Output struct {
	LeadID    string `json:"leadId"`
	Status    string `json:"status"`
	Channel   string `json:"channel,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}
