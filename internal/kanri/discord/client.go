// Package discord connects Kanri to the Discord gateway: it registers the
// slash commands, turns interactions into command invocations, renders
// confirmation buttons, and implements the platform interfaces over the
// REST API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bdobrica/Kanri/common/retry"
	"github.com/bdobrica/Kanri/common/trace"
	"github.com/bdobrica/Kanri/internal/kanri/commands"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// interactionTimeout bounds the handling of one interaction. Deferred
// interaction tokens stay valid for fifteen minutes.
const interactionTimeout = 2 * time.Minute

// Config holds session settings.
type Config struct {
	Token string
	// CommandGuildID registers commands in one guild only, which takes
	// effect immediately. Empty registers them globally.
	CommandGuildID string
	Logger         *slog.Logger
}

// LogValue keeps the token out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(slog.String("command_guild", c.CommandGuildID))
}

// Routes connects interactions to the command layer.
type Routes struct {
	Commands  *commands.Router
	Decisions func(ctx context.Context, customID string, actor platform.Actor) (*commands.Reply, error)
	// Expire retires a confirmation whose buttons timed out.
	Expire func(ctx context.Context, id string) bool
}

// Client owns the gateway session.
type Client struct {
	session *discordgo.Session
	cfg     Config
	logger  *slog.Logger

	// mu guards closing and every wg.Add, so no goroutine or timer is
	// tracked once shutdown has started waiting.
	mu      sync.Mutex
	ctx     context.Context
	routes  Routes
	timers  map[string]*time.Timer
	closing bool
	wg      sync.WaitGroup
}

// New creates a client. The session is not opened until Run.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: s,
		cfg:     cfg,
		logger:  logger.With("component", "discord"),
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Directory returns the guild directory backed by this session.
func (c *Client) Directory() platform.Directory { return directory{s: c.session} }

// Run opens the session, registers commands, and serves interactions until
// ctx is cancelled.
func (c *Client) Run(ctx context.Context, routes Routes) error {
	if routes.Commands == nil {
		return errors.New("discord: command router is required")
	}
	c.mu.Lock()
	c.ctx, c.routes = ctx, routes
	c.mu.Unlock()

	removeReady := c.session.AddHandler(c.onReady)
	removeInteraction := c.session.AddHandler(c.onInteraction)
	defer removeReady()
	defer removeInteraction()

	err := retry.Do(ctx, retry.Policy{Attempts: 5, Delay: 2 * time.Second, MaxDelay: 30 * time.Second, Name: "discord open"},
		func(context.Context) error { return c.session.Open() })
	if err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	if err := c.registerCommands(ctx); err != nil {
		_ = c.session.Close()
		return err
	}

	<-ctx.Done()
	c.shutdown()
	if err := c.session.Close(); err != nil {
		c.logger.Warn("closing gateway session", "err", err)
	}
	return nil
}

// shutdown refuses new work, cancels pending expiry timers and waits for
// in-flight handlers and timer callbacks.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.stopTimers()
	c.wg.Wait()
}

func (c *Client) registerCommands(ctx context.Context) error {
	if c.session.State.User == nil {
		return errors.New("discord: register commands: session has no user")
	}
	appID := c.session.State.User.ID
	cmds := applicationCommands(commands.Definitions())
	registered, err := c.session.ApplicationCommandBulkOverwrite(appID, c.cfg.CommandGuildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	c.logger.Info("slash commands registered", "count", len(registered), "guild", c.cfg.CommandGuildID)
	return nil
}

func (c *Client) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.logger.Info("logged in", "user", r.User.String(), "guilds", len(r.Guilds))
}

// onInteraction acknowledges at once and does the work on its own
// goroutine so a slow model call never holds up the gateway.
func (c *Client) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	c.mu.Lock()
	base, closing := c.ctx, c.closing
	c.mu.Unlock()
	if closing || base == nil || base.Err() != nil {
		return
	}

	i := ic.Interaction
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		inv := invocation(i)
		if err := c.acknowledge(i, ephemeralCommand(inv.Name)); err != nil {
			c.logger.Warn("cannot acknowledge command", "command", inv.Name, "err", err)
			return
		}
		if !c.spawn(func(ctx context.Context) { c.handleCommand(ctx, i, inv) }) {
			c.logger.Info("shutting down; command dropped", "command", inv.Name)
		}
	case discordgo.InteractionMessageComponent:
		if err := s.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}); err != nil {
			c.logger.Warn("cannot acknowledge button", "err", err)
			return
		}
		if !c.spawn(func(ctx context.Context) { c.handleButton(ctx, i) }) {
			c.logger.Info("shutting down; button press dropped")
		}
	}
}

// track registers one unit of background work. It reports false once
// shutdown has begun.
func (c *Client) track() (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing || c.ctx == nil || c.ctx.Err() != nil {
		return nil, false
	}
	c.wg.Add(1)
	return c.ctx, true
}

// spawn runs fn on its own goroutine unless the client is shutting down.
func (c *Client) spawn(fn func(context.Context)) bool {
	base, ok := c.track()
	if !ok {
		return false
	}
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(base, interactionTimeout)
		defer cancel()
		ctx, _ = trace.Ensure(ctx)
		fn(ctx)
	}()
	return true
}

// ephemeralCommand lists commands whose output only the caller should see.
func ephemeralCommand(name string) bool {
	switch name {
	case "audit", "trace", "version", "help":
		return true
	}
	return false
}

func (c *Client) acknowledge(i *discordgo.Interaction, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return c.session.InteractionRespond(i, resp)
}

func (c *Client) handleCommand(ctx context.Context, i *discordgo.Interaction, inv *commands.Invocation) {
	log := c.logger.With(trace.Attr(ctx), "command", inv.Name, "guild", inv.GuildID, "actor", inv.Actor.ID)

	reply, err := c.routes.Commands.Dispatch(ctx, inv)
	if err != nil {
		log.Error("command failed", "err", err)
		reply = &commands.Reply{Content: fmt.Sprintf("❌ Internal error (trace: %s)", trace.FromContext(ctx)), Ephemeral: true}
	}

	// A public deferral cannot turn ephemeral; replace it with an ephemeral
	// follow-up instead.
	if reply.Ephemeral && !ephemeralCommand(inv.Name) {
		if err := c.session.InteractionResponseDelete(i); err != nil {
			log.Warn("cannot delete deferred response", "err", err)
		}
		if _, err := c.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}); err != nil {
			log.Warn("cannot send reply", "err", err)
		}
		return
	}

	edit := &discordgo.WebhookEdit{Content: &reply.Content}
	if reply.Pending != nil {
		rows := buttons(reply.Pending.ID, false)
		edit.Components = &rows
	}
	msg, err := c.session.InteractionResponseEdit(i, edit)
	if err != nil {
		log.Warn("cannot send reply", "err", err)
		return
	}
	if reply.Pending != nil {
		c.scheduleExpiry(reply.Pending.ID, msg.ChannelID, msg.ID, reply.Content, time.Until(reply.Pending.ExpiresAt))
	}
}

func (c *Client) handleButton(ctx context.Context, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	who := actor(i)
	log := c.logger.With(trace.Attr(ctx), "custom_id", data.CustomID, "actor", who.ID)

	if c.routes.Decisions == nil {
		return
	}
	reply, err := c.routes.Decisions(ctx, data.CustomID, who)
	if err != nil {
		log.Warn("button not handled", "err", err)
		return
	}

	if reply.PromptStatus == "" {
		if _, err := c.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}); err != nil {
			log.Warn("cannot send reply", "err", err)
		}
		return
	}

	id, _ := parseDecisionID(data.CustomID)
	c.stopTimer(id)
	content := closedPrompt(i.Message, reply.PromptStatus)
	rows := buttons(id, true)
	if _, err := c.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content, Components: &rows}); err != nil {
		log.Warn("cannot close confirmation prompt", "err", err)
	}
	if reply.Content != reply.PromptStatus {
		if _, err := c.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: reply.Content}); err != nil {
			log.Warn("cannot send results", "err", err)
		}
	}
}

// SendNotice posts message to a channel. It lets the audit notifier mirror
// events into a Discord channel.
func (c *Client) SendNotice(channelID, message string) error {
	if _, err := c.session.ChannelMessageSend(channelID, message); err != nil {
		return fmt.Errorf("discord: send notice: %w", err)
	}
	return nil
}

// BotUser is the logged-in user, or "" before the session is ready.
func (c *Client) BotUser() string {
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	if c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.String()
}

// GuildCount is the number of guilds the bot is in.
func (c *Client) GuildCount() int {
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	return len(c.session.State.Guilds)
}

// Latency is the last gateway heartbeat round trip.
func (c *Client) Latency() time.Duration {
	return c.session.HeartbeatLatency()
}
