// Package messaging sends email and SMS through third-party providers and
// keeps a log of every dispatch.
package messaging

import "time"

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusBounced   = "bounced"
)

// eventSources lists, for each status a delivery event can set, the stored
// statuses it may replace. Providers do not order their events, so a late
// "sent" must not overwrite "delivered" or "bounced".
var eventSources = map[string][]string{
	StatusSent:      {StatusQueued, StatusSent},
	StatusDelivered: {StatusQueued, StatusSent},
	StatusBounced:   {StatusQueued, StatusSent, StatusDelivered},
}

// MaxRecipients caps the recipients of a single message.
const MaxRecipients = 50

// Message is what a provider sends.
type Message struct {
	// ID, when set, names the log row. Sending the same ID again reuses
	// that row instead of logging a new message.
	ID         string
	Channel    string
	Recipients []string
	Subject    string
	Body       string
}

// Log is a row of message_logs.
type Log struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	ProviderID string    `json:"providerId,omitempty"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (l Log) message() Message {
	return Message{ID: l.ID, Channel: l.Channel, Recipients: l.Recipients, Subject: l.Subject, Body: l.Body}
}

type Filter struct {
	Channel string
	Status  string
	Limit   int
	Offset  int
}
