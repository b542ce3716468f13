package domain

import "encoding/json"

// EventKind distinguishes newly created messages from edits.
type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
)

func (k EventKind) String() string {
	if k == EventUpdated {
		return "updated"
	}
	return "created"
}

// SubtypePlain is the platform code for an ordinary user-authored text
// message. Every other subtype (joins, pins, boosts, ...) is a service
// message and never forwarded.
const SubtypePlain = 0

// Author is the message author as observed on the gateway.
type Author struct {
	ID       string
	Username string
	Avatar   string
}

// Attachment is a single uploaded file on a message.
type Attachment struct {
	ID          string
	URL         string
	ContentType string
}

// ChatEvent is one message observed on the gateway, decoupled from the
// client library's own types. Instances are built once per gateway callback
// and discarded after forwarding completes.
type ChatEvent struct {
	ID          string
	ChannelID   string
	Timestamp   int64 // epoch millis
	Author      Author
	Content     string
	Attachments []Attachment
	Embeds      []json.RawMessage // opaque pass-through
	System      bool
	Subtype     int
}

// NormalizedAuthor is the reduced author shape sent downstream. Exactly
// these three fields; nothing from the raw client object leaks through.
type NormalizedAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// NormalizedAttachment flattens an attachment to its delivery essentials.
type NormalizedAttachment struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// NormalizedMessage is the outbound JSON body POSTed to the sync endpoint.
type NormalizedMessage struct {
	ID               string                 `json:"id"`
	ChannelID        string                 `json:"channelId"`
	CreatedTimestamp int64                  `json:"createdTimestamp"`
	Author           NormalizedAuthor       `json:"author"`
	Content          string                 `json:"content"`
	Attachments      []NormalizedAttachment `json:"attachments"`
	Embeds           []json.RawMessage      `json:"embeds"`
}
