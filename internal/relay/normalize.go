package relay

import (
	"encoding/json"
	"strings"

	"kookbridge/internal/domain"
)

// cosmeticSuffixes are relay-bot tags appended to author names upstream.
// Each is removed as an exact literal, once, case-sensitively.
var cosmeticSuffixes = []string{
	" • TweetShift",
}

// CleanUsername strips known cosmetic suffixes from an author display name.
// Idempotent: a suffix removed once does not reappear.
func CleanUsername(name string) string {
	for _, suffix := range cosmeticSuffixes {
		name = strings.Replace(name, suffix, "", 1)
	}
	return name
}

// Normalize converts a ChatEvent into the outbound wire shape. The author is
// reduced to exactly id/username/avatar, attachments flatten to {url, type}
// in source order, and embeds pass through untouched. Missing optional
// fields yield empty sequences, never nil dereferences.
func Normalize(ev domain.ChatEvent) domain.NormalizedMessage {
	attachments := make([]domain.NormalizedAttachment, 0, len(ev.Attachments))
	for _, a := range ev.Attachments {
		attachments = append(attachments, domain.NormalizedAttachment{
			URL:  a.URL,
			Type: a.ContentType,
		})
	}

	embeds := ev.Embeds
	if embeds == nil {
		embeds = []json.RawMessage{}
	}

	return domain.NormalizedMessage{
		ID:               ev.ID,
		ChannelID:        ev.ChannelID,
		CreatedTimestamp: ev.Timestamp,
		Author: domain.NormalizedAuthor{
			ID:       ev.Author.ID,
			Username: CleanUsername(ev.Author.Username),
			Avatar:   ev.Author.Avatar,
		},
		Content:     ev.Content,
		Attachments: attachments,
		Embeds:      embeds,
	}
}
