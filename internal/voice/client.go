// Package voice is the fire-and-forget bridge to the external chat-voice
// service that can deafen/undeafen players at karaoke round boundaries.
// Failures are logged, never retried, and never surfaced to players.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Client posts deafen/undeafen requests to the voice bridge. A nil Client or
// one constructed without a base URL is a no-op.
type Client struct {
	baseURL string
	guildID string
	http    *http.Client
	log     *logrus.Logger
}

// NewFromEnv reads DISCORD_API_URL and DISCORD_GUILD_ID. An empty URL
// disables the side channel entirely.
func NewFromEnv(log *logrus.Logger) *Client {
	return &Client{
		baseURL: os.Getenv("DISCORD_API_URL"),
		guildID: os.Getenv("DISCORD_GUILD_ID"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Deafen mutes the given users in the voice channel.
func (c *Client) Deafen(ctx context.Context, userIDs []string) {
	c.post(ctx, "/deafen", userIDs)
}

// Undeafen unmutes the given users.
func (c *Client) Undeafen(ctx context.Context, userIDs []string) {
	c.post(ctx, "/undeafen", userIDs)
}

func (c *Client) post(ctx context.Context, path string, userIDs []string) {
	if c == nil || c.baseURL == "" || len(userIDs) == 0 {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"userIds": userIDs,
		"guildId": c.guildID,
	})
	if err != nil {
		c.log.Warnf("voice: failed to marshal %s request: %v", path, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.log.Warnf("voice: failed to build %s request: %v", path, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnf("voice: %s call failed: %v", path, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.log.Warnf("voice: %s returned status %d", path, resp.StatusCode)
	}
}
