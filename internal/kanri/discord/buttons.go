package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/commands"
)

func buttons(id string, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Confirm",
				Style:    discordgo.DangerButton,
				CustomID: approvals.ConfirmCustomID(id),
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.SecondaryButton,
				CustomID: approvals.CancelCustomID(id),
				Disabled: disabled,
			},
		}},
	}
}

func parseDecisionID(customID string) (string, error) {
	d, err := approvals.ParseDecision(customID)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// closedPrompt appends the final status to the prompt text.
func closedPrompt(m *discordgo.Message, status string) string {
	if m == nil || m.Content == "" {
		return status
	}
	return m.Content + "\n\n**" + status + "**"
}

// scheduleExpiry disables the prompt's buttons once the confirmation
// deadline passes, unless someone resolves it first.
func (c *Client) scheduleExpiry(id, channelID, messageID, content string, after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing || c.ctx == nil || c.ctx.Err() != nil {
		return
	}
	base := c.ctx
	c.wg.Add(1)
	c.timers[id] = time.AfterFunc(after, func() {
		defer c.wg.Done()
		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()

		if c.routes.Expire == nil || !c.routes.Expire(base, id) {
			return
		}
		text := content + "\n\n**" + commands.ExpiredStatus + "**"
		rows := buttons(id, true)
		if _, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         messageID,
			Channel:    channelID,
			Content:    &text,
			Components: &rows,
		}); err != nil {
			c.logger.Warn("cannot disable expired confirmation", "confirmation", id, "err", err)
		}
	})
}

func (c *Client) stopTimer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		c.cancelTimer(id, t)
	}
}

func (c *Client) stopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		c.cancelTimer(id, t)
	}
}

// cancelTimer stops t and releases its tracking when the callback will no
// longer run. A callback already running releases it itself. Callers hold
// c.mu.
func (c *Client) cancelTimer(id string, t *time.Timer) {
	if t.Stop() {
		c.wg.Done()
	}
	delete(c.timers, id)
}
