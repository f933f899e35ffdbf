package bot

import (
	"strings"
	"testing"

	"github.com/polardev/polardev/pkg/polardev/studio"
)

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 2000); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message should be one chunk, got %v", got)
	}

	long := strings.Repeat("line of lua code\n", 300)
	chunks := splitMessage(long, 1900)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var total int
	for i, c := range chunks {
		if len(c) > 1900 {
			t.Errorf("chunk %d exceeds limit: %d", i, len(c))
		}
		total += len(c)
	}
	if total != len(long) {
		t.Errorf("chunks lose content: %d != %d", total, len(long))
	}
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1000)
	chunks := splitMessage(text, 1900)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk should cut at the newline boundary")
	}
}

func TestArtifactEmbedFields(t *testing.T) {
	a := studio.Artifact{
		Name:     "Shop.client.lua",
		Kind:     studio.KindClient,
		Location: "StarterGui/Interface",
	}
	embed := artifactEmbed(2, a)

	if !strings.Contains(embed.Title, "Shop.client.lua") {
		t.Errorf("title = %q", embed.Title)
	}
	if len(embed.Fields) != 2 {
		t.Fatalf("fields = %d", len(embed.Fields))
	}
	if embed.Fields[0].Value != "LocalScript" {
		t.Errorf("type field = %q", embed.Fields[0].Value)
	}
	if embed.Fields[1].Value != "StarterGui/Interface" {
		t.Errorf("location field = %q", embed.Fields[1].Value)
	}
}

func TestSanitizeChannelName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Cool Chat", "my-cool-chat"},
		{"dev_chat-01", "dev_chat-01"},
		{"///@@@", ""},
	}
	for _, tc := range cases {
		got := sanitizeChannelName(tc.in)
		if tc.want == "" {
			// Unusable input falls back to a generated name.
			if got == "" {
				t.Errorf("sanitizeChannelName(%q) returned empty", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("sanitizeChannelName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
