package waha

import "testing"

func TestNormalizeChatID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already channel id", "967712345678@c.us", "967712345678@c.us"},
		{"group id passes through", "1234567890-987654@g.us", "1234567890-987654@g.us"},
		{"plain digits", "967712345678", "967712345678@c.us"},
		{"plus and spaces", "+967 71 234 5678", "967712345678@c.us"},
		{"leading zeros", "00967712345678", "967712345678@c.us"},
		{"dashes and parens", "(967) 71-234-5678", "967712345678@c.us"},
		{"empty", "", ""},
		{"only zeros", "0000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeChatID(tt.raw); got != tt.want {
				t.Errorf("NormalizeChatID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsGroupChat(t *testing.T) {
	if !IsGroupChat("12345-67890@g.us") {
		t.Error("group id not detected")
	}
	if IsGroupChat("967712345678@c.us") {
		t.Error("direct chat misdetected as group")
	}
}
