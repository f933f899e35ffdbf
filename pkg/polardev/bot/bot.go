// Package bot implements the Discord surface of PolarDev using discordgo.
//
// Features:
//   - Slash commands for key issuance, redemption, balance and chat setup
//   - Private creation chats with permission overwrites
//   - Button → modal → paid system-creation flow with wall-clock cap
//   - Free conversational replies inside registered chats, rate limited
//   - Rotating presence with live account/chat counts
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/polardev/polardev/pkg/polardev/ledger"
	"github.com/polardev/polardev/pkg/polardev/studio"
)

// Config holds the Discord bot configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// GuildID scopes slash-command registration. Empty registers globally
	// (slower to propagate).
	GuildID string `yaml:"guild_id"`

	// AdminRoles may issue redemption keys with /createkey.
	AdminRoles []string `yaml:"admin_roles"`

	// ChatCategory is the category name for private creation chats.
	ChatCategory string `yaml:"chat_category"`

	// CreationCost is the credit price of one system generation.
	CreationCost float64 `yaml:"creation_cost"`

	// CreationTimeoutSeconds caps one creation end to end, independent of
	// per-request retry timing.
	CreationTimeoutSeconds int `yaml:"creation_timeout_seconds"`

	// FreeChatPerMinute limits conversational replies per user. Floods
	// beyond the burst are dropped silently.
	FreeChatPerMinute int `yaml:"free_chat_per_minute"`

	// PresenceRotationSeconds is the status-rotation interval. Zero
	// disables rotation.
	PresenceRotationSeconds int `yaml:"presence_rotation_seconds"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AdminRoles:              []string{"Support", "CEO"},
		ChatCategory:            "PolarDev Chats",
		CreationCost:            1.0,
		CreationTimeoutSeconds:  60,
		FreeChatPerMinute:       6,
		PresenceRotationSeconds: 60,
	}
}

// Generator produces conversational replies and complete systems. Satisfied
// by *studio.Client; faked in tests.
type Generator interface {
	Converse(ctx context.Context, text string) string
	GenerateSystem(ctx context.Context, description string) *studio.SystemResult
}

// Bot wires the Discord gateway to the ledger and the generation client.
type Bot struct {
	cfg    Config
	logger *slog.Logger

	session *discordgo.Session
	store   *ledger.Store
	gen     Generator

	// connected tracks gateway state.
	connected atomic.Bool

	// limiters holds one free-chat limiter per user.
	limiters map[string]*rate.Limiter
	limMu    sync.Mutex

	// scheduler drives presence rotation.
	scheduler   *cron.Cron
	presenceIdx int
	presenceMu  sync.Mutex

	// registered holds the commands created on Connect, removed on Close.
	registered []*discordgo.ApplicationCommand

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Bot. Connect must be called before it serves anything.
func New(cfg Config, store *ledger.Store, gen Generator, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CreationCost <= 0 {
		cfg.CreationCost = 1.0
	}
	if cfg.CreationTimeoutSeconds <= 0 {
		cfg.CreationTimeoutSeconds = 60
	}
	return &Bot{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		store:    store,
		gen:      gen,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Connect opens the Discord gateway, registers slash commands and starts
// presence rotation.
func (b *Bot) Connect(ctx context.Context) error {
	if b.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)

	session, err := discordgo.New("Bot " + b.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	b.session = session
	b.connected.Store(true)

	user := session.State.User
	b.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)

	if err := b.registerCommands(); err != nil {
		session.Close()
		b.connected.Store(false)
		return fmt.Errorf("discord: registering commands: %w", err)
	}

	b.startPresenceRotation()

	return nil
}

// Close removes registered commands and closes the gateway connection.
func (b *Bot) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.session != nil {
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.cfg.GuildID, cmd.ID); err != nil {
				b.logger.Warn("discord: removing command", "command", cmd.Name, "error", err)
			}
		}
		b.session.Close()
	}
	b.connected.Store(false)
	b.logger.Info("discord: disconnected")
	return nil
}

// IsConnected returns true while the gateway connection is open.
func (b *Bot) IsConnected() bool { return b.connected.Load() }

// onMessageCreate serves free conversational replies inside registered
// private chats. Slash commands and creations never pass through here.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if _, ok := b.store.Chat(m.ChannelID); !ok {
		return
	}
	if m.Content == "" {
		return
	}
	if !b.allowFreeChat(m.Author.ID) {
		b.logger.Debug("discord: free-chat flood dropped", "user", m.Author.ID)
		return
	}

	_ = s.ChannelTyping(m.ChannelID)

	go func() {
		reply := b.gen.Converse(b.ctx, m.Content)
		for _, chunk := range splitMessage(reply, 2000) {
			if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
				b.logger.Warn("discord: sending reply", "channel", m.ChannelID, "error", err)
				return
			}
		}
	}()
}

// onInteractionCreate dispatches slash commands, the creation button and
// the description modal.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == createButtonID {
			b.openCreationModal(s, i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == createModalID {
			b.handleCreationSubmit(s, i)
		}
	}
}

// allowFreeChat reports whether the user may receive another free reply.
func (b *Bot) allowFreeChat(userID string) bool {
	perMinute := b.cfg.FreeChatPerMinute
	if perMinute <= 0 {
		return true
	}

	b.limMu.Lock()
	lim, ok := b.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		b.limiters[userID] = lim
	}
	b.limMu.Unlock()

	return lim.Allow()
}

// interactionUser extracts the invoking user from guild or DM interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
