// Package relay implements the message-forwarding pipeline: a channel
// allow-list gate, a payload normalizer, and the forwarder that POSTs
// normalized messages to the sync endpoint.
package relay

import "kookbridge/internal/domain"

// AllowList is the immutable set of channel IDs eligible for forwarding.
// Built once at startup, read-only afterwards.
type AllowList map[string]struct{}

// NewAllowList builds the allow-list from the configured channel IDs plus an
// optional dev channel. Duplicates collapse; empty entries are dropped.
func NewAllowList(channels []string, devChannel string) AllowList {
	al := make(AllowList, len(channels)+1)
	for _, c := range channels {
		if c != "" {
			al[c] = struct{}{}
		}
	}
	if devChannel != "" {
		al[devChannel] = struct{}{}
	}
	return al
}

// Contains reports whether the channel is allow-listed.
func (al AllowList) Contains(channelID string) bool {
	_, ok := al[channelID]
	return ok
}

// ShouldForward is the forwarding gate. Pure and total: any malformed or
// missing field rejects, it never panics.
func ShouldForward(allow AllowList, ev domain.ChatEvent) bool {
	if ev.System {
		return false
	}
	if ev.Subtype != domain.SubtypePlain {
		return false
	}
	if ev.ID == "" || ev.ChannelID == "" {
		return false
	}
	return allow.Contains(ev.ChannelID)
}
