// Package bot – presence.go rotates the bot's status line on a schedule.
package bot

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// presenceLines are the rotating status templates; %d placeholders receive
// live counts.
var presenceLines = []func(accounts, chats int) string{
	func(int, int) string { return "building Roblox systems" },
	func(accounts, _ int) string { return fmt.Sprintf("%d developers", accounts) },
	func(_, chats int) string { return fmt.Sprintf("%d active chats", chats) },
	func(int, int) string { return "/help to get started" },
}

// startPresenceRotation schedules the status rotation with cron.
func (b *Bot) startPresenceRotation() {
	interval := b.cfg.PresenceRotationSeconds
	if interval <= 0 {
		return
	}

	b.scheduler = cron.New()
	spec := fmt.Sprintf("@every %ds", interval)
	if _, err := b.scheduler.AddFunc(spec, b.rotatePresence); err != nil {
		b.logger.Warn("discord: scheduling presence rotation", "error", err)
		return
	}
	b.scheduler.Start()

	b.rotatePresence()
}

// rotatePresence advances to the next status line.
func (b *Bot) rotatePresence() {
	b.presenceMu.Lock()
	line := presenceLines[b.presenceIdx%len(presenceLines)]
	b.presenceIdx++
	b.presenceMu.Unlock()

	accounts, chats := b.store.Counts()
	status := line(accounts, chats)

	if err := b.session.UpdateGameStatus(0, status); err != nil {
		b.logger.Debug("discord: updating presence", "error", err)
	}
}
