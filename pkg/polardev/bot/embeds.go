// Package bot – embeds.go holds the embed palette and message helpers.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/polardev/polardev/pkg/polardev/studio"
)

// Embed color palette.
const (
	colorPrimary  = 0x5865F2
	colorSuccess  = 0x57F287
	colorWarning  = 0xFEE75C
	colorError    = 0xED4245
	colorInfo     = 0x3498DB
	colorCreation = 0x9B59B6
)

const embedFooter = "PolarDev • Roblox Systems"

// newEmbed builds an embed with the standard footer and timestamp.
func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// artifactEmbed describes one generated script file.
func artifactEmbed(n int, a studio.Artifact) *discordgo.MessageEmbed {
	embed := newEmbed(
		fmt.Sprintf("File %d: %s", n, a.Name),
		"",
		colorCreation,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Type", Value: a.Kind.String(), Inline: true},
		{Name: "Location", Value: a.Location, Inline: true},
	}
	return embed
}

// splitMessage splits text into chunks of at most maxLen, preferring
// newline boundaries past the halfway point.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// truncateText shortens s for embed fields, appending an ellipsis.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
