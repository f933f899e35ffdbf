// Package bot – commands.go defines and handles the slash commands.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/polardev/polardev/pkg/polardev/ledger"
)

// maxKeysPerBatch caps the quantity option of /createkey.
const maxKeysPerBatch = 5

func commandDefinitions() []*discordgo.ApplicationCommand {
	minCredits := 0.1
	minQty, maxQty := float64(1), float64(maxKeysPerBatch)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "createkey",
			Description: "Issue redemption keys (admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "credits",
					Description: "Credits each key is worth",
					Required:    true,
					MinValue:    &minCredits,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "quantity",
					Description: "How many keys to issue (1-5)",
					MinValue:    &minQty,
					MaxValue:    maxQty,
				},
			},
		},
		{
			Name:        "redeem",
			Description: "Redeem a key for credits",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "key",
					Description: "Key in the format PD-XXXX-XXXX-XXXX-XXXX",
					Required:    true,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Show your credit balance",
		},
		{
			Name:        "createchat",
			Description: "Open your private creation chat",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Optional channel name",
				},
			},
		},
		{
			Name:        "ping",
			Description: "Check bot latency and stats",
		},
		{
			Name:        "help",
			Description: "How to use PolarDev",
		},
	}
}

// registerCommands creates the slash commands, scoped to the configured
// guild when one is set.
func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, def := range commandDefinitions() {
		cmd, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, def)
		if err != nil {
			return fmt.Errorf("creating /%s: %w", def.Name, err)
		}
		b.registered = append(b.registered, cmd)
	}
	b.logger.Info("discord: slash commands registered", "count", len(b.registered), "guild", b.cfg.GuildID)
	return nil
}

func (b *Bot) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	b.logger.Debug("discord: command", "name", name, "user", interactionUser(i).ID)

	switch name {
	case "createkey":
		b.handleCreateKey(s, i)
	case "redeem":
		b.handleRedeem(s, i)
	case "balance":
		b.handleBalance(s, i)
	case "createchat":
		b.handleCreateChat(s, i)
	case "ping":
		b.handlePing(s, i)
	case "help":
		b.handleHelp(s, i)
	}
}

// commandOptions indexes the interaction options by name.
func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

// memberHasAdminRole checks the invoking member's roles against the
// configured admin role names.
func (b *Bot) memberHasAdminRole(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil || i.GuildID == "" {
		return false
	}

	roles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		b.logger.Warn("discord: fetching guild roles", "guild", i.GuildID, "error", err)
		return false
	}

	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	for _, roleID := range i.Member.Roles {
		for _, admin := range b.cfg.AdminRoles {
			if strings.EqualFold(names[roleID], admin) {
				return true
			}
		}
	}
	return false
}

func (b *Bot) handleCreateKey(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.memberHasAdminRole(s, i) {
		respondEphemeral(s, i, "You don't have permission to issue keys.")
		return
	}

	opts := commandOptions(i)
	credits := opts["credits"].FloatValue()
	quantity := 1
	if q, ok := opts["quantity"]; ok {
		quantity = int(q.IntValue())
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > maxKeysPerBatch {
		quantity = maxKeysPerBatch
	}

	issuer := interactionUser(i)
	tokens := make([]string, 0, quantity)
	for len(tokens) < quantity {
		token := ledger.GenerateToken()
		if err := b.store.CreateKey(token, issuer.ID, credits); err != nil {
			// Token collision; generate another.
			continue
		}
		tokens = append(tokens, token)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Issued %d key(s) worth **%.2f** credits each:\n```\n", quantity, credits)
	for _, t := range tokens {
		sb.WriteString(t + "\n")
	}
	sb.WriteString("```\nEach key can be redeemed once with `/redeem`.")

	respondEmbedEphemeral(s, i, newEmbed("Keys Issued", sb.String(), colorSuccess))
	b.logger.Info("keys issued", "issuer", issuer.ID, "quantity", quantity, "credits", credits)
}

func (b *Bot) handleRedeem(s *discordgo.Session, i *discordgo.InteractionCreate) {
	raw := commandOptions(i)["key"].StringValue()
	token := strings.ToUpper(strings.TrimSpace(raw))
	user := interactionUser(i)

	if !ledger.ValidTokenFormat(token) {
		respondEmbedEphemeral(s, i, newEmbed("Invalid Key",
			"That doesn't look like a PolarDev key. Expected format: `PD-XXXX-XXXX-XXXX-XXXX`.",
			colorError))
		return
	}

	credits, balance, ok := b.store.RedeemAndCredit(token, user.ID)
	if !ok {
		respondEmbedEphemeral(s, i, newEmbed("Key Rejected",
			"This key is invalid or was already used.", colorError))
		return
	}

	desc := fmt.Sprintf("You received **%.2f** credits.\nNew balance: **%.2f**", credits, balance)
	respondEmbedEphemeral(s, i, newEmbed("Key Redeemed!", desc, colorSuccess))
	b.logger.Info("key redeemed", "user", user.ID, "credits", credits)
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	acct, ok := b.store.Account(user.ID)
	if !ok {
		respondEmbedEphemeral(s, i, newEmbed("Balance",
			"You have no credits yet. Redeem a key with `/redeem` to get started.",
			colorInfo))
		return
	}

	desc := fmt.Sprintf("Credits: **%.2f**\nKeys redeemed: **%d**\nSystems created: **%d**",
		acct.Credits, acct.KeysRedeemed, acct.TotalCreations)
	respondEmbedEphemeral(s, i, newEmbed("Balance", desc, colorInfo))
}

func (b *Bot) handleCreateChat(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if i.GuildID == "" {
		respondEphemeral(s, i, "Private chats can only be created inside a server.")
		return
	}

	name := fmt.Sprintf("dev-%s", strings.ToLower(user.Username))
	if opt, ok := commandOptions(i)["name"]; ok {
		if v := strings.TrimSpace(opt.StringValue()); v != "" {
			name = sanitizeChannelName(v)
		}
	}

	channel, err := b.createPrivateChannel(s, i.GuildID, user.ID, name)
	if err != nil {
		b.logger.Error("discord: creating private chat", "user", user.ID, "error", err)
		respondEphemeral(s, i, "Could not create your chat. Try again later.")
		return
	}

	b.store.RegisterChat(channel.ID, user.ID, channel.Name)

	respondEphemeral(s, i, fmt.Sprintf("Your chat is ready: <#%s>", channel.ID))

	welcome := newEmbed("Welcome to your PolarDev chat!",
		"Talk to me about Roblox development right here, or press the button "+
			"below to create a complete system.\n\n"+
			fmt.Sprintf("Each creation costs **%.2f** credit(s).", b.cfg.CreationCost),
		colorPrimary)
	_, err = s.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{welcome},
		Components: []discordgo.MessageComponent{createButtonRow()},
	})
	if err != nil {
		b.logger.Warn("discord: sending welcome message", "channel", channel.ID, "error", err)
	}
}

// createPrivateChannel ensures the chat category exists and creates a text
// channel visible only to the owner and the bot.
func (b *Bot) createPrivateChannel(s *discordgo.Session, guildID, ownerID, name string) (*discordgo.Channel, error) {
	categoryID, err := b.ensureCategory(s, guildID)
	if err != nil {
		return nil, err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares its ID with the guild.
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
		},
		{
			ID:    s.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
		},
	}

	return s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             categoryID,
		PermissionOverwrites: overwrites,
	})
}

// ensureCategory returns the configured category's ID, creating it when
// missing.
func (b *Bot) ensureCategory(s *discordgo.Session, guildID string) (string, error) {
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("listing channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, b.cfg.ChatCategory) {
			return ch.ID, nil
		}
	}

	cat, err := s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: b.cfg.ChatCategory,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", fmt.Errorf("creating category: %w", err)
	}
	return cat.ID, nil
}

func (b *Bot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	accounts, chats := b.store.Counts()
	desc := fmt.Sprintf("Latency: **%dms**\nAccounts: **%d**\nActive chats: **%d**",
		s.HeartbeatLatency().Milliseconds(), accounts, chats)
	respondEmbedEphemeral(s, i, newEmbed("Pong!", desc, colorInfo))
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	desc := "**PolarDev** builds complete Roblox Lua/Luau systems for you.\n\n" +
		"`/redeem key` — trade a key for credits\n" +
		"`/balance` — check your credits\n" +
		"`/createchat` — open your private chat\n" +
		"`/ping` — latency and stats\n\n" +
		"Inside your chat, ask me anything about Roblox development for free, " +
		fmt.Sprintf("or press **Create System** (%.2f credit each) for a complete, ", b.cfg.CreationCost) +
		"multi-file system with installation instructions."
	respondEmbedEphemeral(s, i, newEmbed("How PolarDev works", desc, colorPrimary))
}

// sanitizeChannelName folds a user-supplied name into Discord's channel
// naming rules.
func sanitizeChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		out = fmt.Sprintf("dev-%d", time.Now().Unix())
	}
	if len(out) > 90 {
		out = out[:90]
	}
	return out
}

// respondEphemeral sends a plain-text response visible only to the user.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondEmbedEphemeral sends an embed response visible only to the user.
func respondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}
