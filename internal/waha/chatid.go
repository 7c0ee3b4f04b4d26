package waha

import "strings"

// ChannelSuffix is the provider suffix for direct chats.
const ChannelSuffix = "@c.us"

// NormalizeChatID converts a raw phone number into a channel-addressable id.
// Inputs already in channel form (anything containing "@") pass through
// unchanged. Otherwise non-digits are stripped, leading zeros removed and the
// channel suffix appended: "+00967 71 234 5678" → "967712345678@c.us".
func NormalizeChatID(raw string) string {
	if strings.Contains(raw, "@") {
		return raw
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := strings.TrimLeft(digits.String(), "0")
	if normalized == "" {
		return ""
	}
	return normalized + ChannelSuffix
}

// IsGroupChat reports whether a chat id addresses a group conversation.
func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, "@g.us")
}
