// Package matrix is a send-only Matrix client used to mirror audit notices
// into an operator room.
package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Kanri/common/retry"
)

// sendTimeout bounds a single notice.
const sendTimeout = 10 * time.Second

// Config holds Matrix credentials.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
}

// LogValue keeps the access token out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("homeserver", c.Homeserver),
		slog.String("user_id", c.UserID),
	)
}

// Client posts notices to rooms.
type Client struct {
	client *mautrix.Client
}

// New creates a client. It does not contact the homeserver.
func New(cfg Config) (*Client, error) {
	c, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}
	return &Client{client: c}, nil
}

// Join joins roomID, retrying transient failures.
func (c *Client) Join(ctx context.Context, roomID string) error {
	return retry.Do(ctx, retry.Policy{Attempts: 3, Delay: 2 * time.Second, Name: "matrix join"}, func(ctx context.Context) error {
		_, err := c.client.JoinRoomByID(ctx, id.RoomID(roomID))
		return err
	})
}

// SendNotice posts message as an m.notice.
func (c *Client) SendNotice(roomID, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	content := event.MessageEventContent{MsgType: event.MsgNotice, Body: message}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("matrix: send notice: %w", err)
	}
	return nil
}
