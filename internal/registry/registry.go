// Package registry holds the live connections of one websocket channel and
// the fan-out primitives built on them. Two independent registries exist at
// runtime, one for the lobby channel and one for the game channel; a client
// may hold a connection in each.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/models"
)

// outBufferSize bounds the per-connection send queue; writes beyond it are
// dropped rather than blocking the caller.
const outBufferSize = 32

// Client is one live connection. Exclusively owned by its registry; destroyed
// on disconnect.
type Client struct {
	ID     string
	User   *models.User // nil for anonymous game-channel connections
	Remote string
	Out    chan []byte
	Cancel context.CancelFunc

	log *logrus.Logger
}

// Write marshals v and enqueues it non-blockingly. Dropped messages are
// logged, never retried.
func (c *Client) Write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warnf("client %s: failed to marshal outgoing message: %v", c.ID, err)
		return
	}
	c.send(data)
}

// WriteError sends a {type, message} error payload to this client only.
func (c *Client) WriteError(msgType, message string) {
	c.Write(map[string]interface{}{
		"type":    msgType,
		"message": message,
	})
}

func (c *Client) send(data []byte) {
	select {
	case c.Out <- data:
	default:
		c.log.Warnf("client %s: out channel full or closed, dropping message", c.ID)
	}
}

// Summary is the public listing shape of a connection.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Remote string `json:"remote,omitempty"`
}

// Registry maps connection id -> Client for one channel. All operations are
// O(1) by id and never block.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *logrus.Logger
}

func New(log *logrus.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// NewClient builds a Client bound to this registry's logger. The caller
// registers it separately.
func (r *Registry) NewClient(id string, user *models.User, remote string, cancel context.CancelFunc) *Client {
	return &Client{
		ID:     id,
		User:   user,
		Remote: remote,
		Out:    make(chan []byte, outBufferSize),
		Cancel: cancel,
		log:    r.log,
	}
}

// Register inserts the client.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// Unregister removes and returns the client, or nil if unknown. The caller
// announces the departure on its channel.
func (r *Registry) Unregister(id string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil
	}
	delete(r.clients, id)
	return c
}

// Get returns the client by connection id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Broadcast fans v out to every connection on the channel.
func (r *Registry) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Warnf("broadcast: failed to marshal message: %v", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.send(data)
	}
}

// BroadcastMembers fans v out to every connection whose identity is one of
// the given members.
func (r *Registry) BroadcastMembers(members []*models.User, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Warnf("broadcast: failed to marshal message: %v", err)
		return
	}
	ids := make(map[string]struct{}, len(members))
	for _, m := range members {
		ids[m.ID] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.User == nil {
			continue
		}
		if _, ok := ids[c.User.ID]; ok {
			c.send(data)
		}
	}
}

// SendToUser unicasts v to every connection held by userID.
func (r *Registry) SendToUser(userID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Warnf("unicast: failed to marshal message: %v", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.User != nil && c.User.ID == userID {
			c.send(data)
		}
	}
}

// List summarizes all live connections, for user_list broadcasts.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.clients))
	for _, c := range r.clients {
		name := ""
		if c.User != nil {
			name = c.User.DisplayName()
		}
		out = append(out, Summary{ID: c.ID, Name: name, Remote: c.Remote})
	}
	return out
}
