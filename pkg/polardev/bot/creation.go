// Package bot – creation.go runs the paid system-creation flow: button →
// modal → debit → generate under a wall-clock cap → deliver or refund.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/polardev/polardev/pkg/polardev/studio"
)

const (
	createButtonID = "polardev:create"
	createModalID  = "polardev:describe"
	descriptionID  = "polardev:description"

	// luaChunkLimit leaves headroom for the ```lua fence inside Discord's
	// 2000-character message limit.
	luaChunkLimit = 1900
)

// createButtonRow builds the "Create System" button row.
func createButtonRow() discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Create System",
				Style:    discordgo.PrimaryButton,
				CustomID: createButtonID,
				Emoji:    &discordgo.ComponentEmoji{Name: "🛠️"},
			},
		},
	}
}

// openCreationModal shows the description form in response to the button.
func (b *Bot) openCreationModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: createModalID,
			Title:    "Describe your system",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    descriptionID,
							Label:       "What should the system do?",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Example: a shop system with rebirth bonuses and a GUI",
							Required:    true,
							MinLength:   10,
							MaxLength:   2000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.logger.Warn("discord: opening creation modal", "error", err)
	}
}

// creationStatus is the terminal state of one creation attempt.
type creationStatus int

const (
	creationSuccess creationStatus = iota
	creationInsufficient
	creationTimedOut
	creationFailed
)

// creationOutcome carries the terminal state plus the user's balance after
// any refund has been applied.
type creationOutcome struct {
	status  creationStatus
	result  *studio.SystemResult
	balance float64
}

// runCreation is the complete paid flow for one creation: admission via
// Debit, generation under the wall-clock cap, and refund on timeout or
// typed failure. Success is never refunded.
func (b *Bot) runCreation(ctx context.Context, userID, description string) creationOutcome {
	cost := b.cfg.CreationCost

	if !b.store.Debit(userID, cost) {
		acct, _ := b.store.Account(userID)
		return creationOutcome{status: creationInsufficient, balance: acct.Credits}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.CreationTimeoutSeconds)*time.Second)
	defer cancel()

	done := make(chan *studio.SystemResult, 1)
	go func() { done <- b.gen.GenerateSystem(ctx, description) }()

	select {
	case <-ctx.Done():
		balance := b.store.Refund(userID, cost)
		b.logger.Warn("creation timed out", "user", userID, "refunded", cost)
		return creationOutcome{status: creationTimedOut, balance: balance}

	case result := <-done:
		if !result.Success {
			balance := b.store.Refund(userID, cost)
			b.logger.Info("creation failed, refunded", "user", userID, "refunded", cost)
			return creationOutcome{status: creationFailed, result: result, balance: balance}
		}
		acct, _ := b.store.Account(userID)
		b.logger.Info("creation delivered", "user", userID, "artifacts", len(result.Artifacts))
		return creationOutcome{status: creationSuccess, result: result, balance: acct.Credits}
	}
}

// handleCreationSubmit receives the modal, acknowledges with a processing
// embed, and finishes the flow in a goroutine.
func (b *Bot) handleCreationSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	description := modalInput(i, descriptionID)
	if description == "" {
		respondEphemeral(s, i, "Please describe the system you want.")
		return
	}

	// Cheap pre-check so an empty wallet gets an instant ephemeral answer
	// instead of a public processing embed. runCreation re-checks via Debit.
	if acct, ok := b.store.Account(user.ID); !ok || acct.Credits < b.cfg.CreationCost {
		respondEmbedEphemeral(s, i, newEmbed("Insufficient Credits",
			fmt.Sprintf("A creation costs **%.2f** credit(s). Redeem a key with `/redeem` first.", b.cfg.CreationCost),
			colorWarning))
		return
	}

	processing := newEmbed("Creating your system…",
		fmt.Sprintf("**Request:** %s\n\nThis can take up to %d seconds.",
			truncateText(description, 200), b.cfg.CreationTimeoutSeconds),
		colorCreation)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{processing},
		},
	})
	if err != nil {
		b.logger.Warn("discord: responding to creation modal", "error", err)
		return
	}

	channelID := i.ChannelID

	go func() {
		outcome := b.runCreation(b.ctx, user.ID, description)

		switch outcome.status {
		case creationInsufficient:
			b.sendEmbed(s, channelID, newEmbed("Insufficient Credits",
				fmt.Sprintf("A creation costs **%.2f** credit(s). Your balance: **%.2f**.",
					b.cfg.CreationCost, outcome.balance),
				colorWarning))

		case creationTimedOut:
			b.sendEmbed(s, channelID, newEmbed("Creation Timed Out",
				fmt.Sprintf("The generation took too long and was cancelled.\n"+
					"Your **%.2f** credit(s) were refunded. Balance: **%.2f**.",
					b.cfg.CreationCost, outcome.balance),
				colorError))

		case creationFailed:
			reason := "The generation service is unavailable."
			if outcome.result != nil && outcome.result.Reason != "" {
				reason = outcome.result.Reason
			}
			b.sendEmbed(s, channelID, newEmbed("Creation Failed",
				fmt.Sprintf("%s\n\nYour **%.2f** credit(s) were refunded. Balance: **%.2f**.",
					reason, b.cfg.CreationCost, outcome.balance),
				colorError))

		case creationSuccess:
			b.deliverSystem(s, channelID, description, outcome)
		}
	}()
}

// deliverSystem posts each artifact as an embed plus fenced code chunks,
// then the installation guide.
func (b *Bot) deliverSystem(s *discordgo.Session, channelID, description string, outcome creationOutcome) {
	result := outcome.result

	summary := newEmbed("System Ready!",
		fmt.Sprintf("**Request:** %s\n**Files:** %d\n**Balance:** %.2f credit(s)",
			truncateText(description, 200), len(result.Artifacts), outcome.balance),
		colorSuccess)
	b.sendEmbed(s, channelID, summary)

	for n, artifact := range result.Artifacts {
		header := artifactEmbed(n+1, artifact)
		b.sendEmbed(s, channelID, header)

		for _, chunk := range splitMessage(artifact.Body, luaChunkLimit) {
			if _, err := s.ChannelMessageSend(channelID, "```lua\n"+chunk+"\n```"); err != nil {
				b.logger.Warn("discord: sending artifact chunk", "channel", channelID, "error", err)
				return
			}
		}
	}

	guide := result.InstallGuide
	if guide == "" {
		guide = studio.DefaultInstallGuide
	}
	b.sendEmbed(s, channelID, newEmbed("Installation", truncateText(guide, 4000), colorInfo))
}

func (b *Bot) sendEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("discord: sending embed", "channel", channelID, "error", err)
	}
}

// modalInput extracts a text-input value from a modal submission.
func modalInput(i *discordgo.InteractionCreate, customID string) string {
	for _, row := range i.ModalSubmitData().Components {
		actionRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
