package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/identity"
	"github.com/katro/partyhub/internal/middleware"
	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

// GameStarter creates the game record for a lobby that just started. The
// caller holds the lobby's mutex; error unicasts go to the starting client's
// lobby connection.
type GameStarter interface {
	InitGame(ctx context.Context, starter *registry.Client, lobby *models.Lobby) error
}

// LobbyServer owns the lobby channel: the lobby directory and every
// connection on /lobby/ws. Connections without a valid token are rejected at
// the handshake.
type LobbyServer struct {
	registry *registry.Registry
	resolver *identity.Resolver
	games    GameStarter
	log      *logrus.Logger

	mu      sync.Mutex
	lobbies []*models.Lobby
}

func NewLobbyServer(reg *registry.Registry, resolver *identity.Resolver, games GameStarter, log *logrus.Logger) *LobbyServer {
	return &LobbyServer{
		registry: reg,
		resolver: resolver,
		games:    games,
		log:      log,
	}
}

// HandleWS upgrades a lobby channel connection. The token travels as a query
// parameter; a missing or invalid one closes the socket with a policy
// violation before any message is accepted.
func (s *LobbyServer) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := r.RemoteAddr
		token := r.URL.Query().Get("token")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.log.Warnf("lobby: websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "handler finished")

		if token == "" {
			s.log.Infof("lobby: connection rejected (no token) from %s", remote)
			conn.Close(websocket.StatusPolicyViolation, "Token required")
			return
		}
		user, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			s.log.Debugf("lobby: token verification failed for %s: %v", remote, err)
			conn.Close(websocket.StatusPolicyViolation, "Invalid token")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := s.registry.NewClient(uuid.NewString(), user, remote, cancel)
		s.registry.Register(c)
		middleware.LogWebSocketConnect(s.log, remote, r.URL.Path)

		c.Write(message("lobby:welcome", map[string]interface{}{
			"id":   c.ID,
			"name": user.DisplayName(),
		}))

		go writePump(ctx, conn, c, s.log)
		readLoop(ctx, conn, c, s.log, s.handleMessage)

		middleware.LogWebSocketDisconnect(s.log, remote, r.URL.Path, nil)
		s.unregister(c.ID)
	}
}

func (s *LobbyServer) unregister(id string) {
	c := s.registry.Unregister(id)
	if c == nil {
		return
	}
	name := ""
	if c.User != nil {
		name = c.User.DisplayName()
	}
	s.registry.Broadcast(message("user_left", map[string]interface{}{"id": c.ID, "name": name}))
	s.registry.Broadcast(message("user_list", s.registry.List()))
}

// findLobby returns the lobby by id, or nil.
func (s *LobbyServer) findLobby(id string) *models.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lobbies {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// lobbiesSnapshot deep-copies the directory for marshaling. Listing payloads
// must never reference the live records: a lobby mutates on its own lock
// while the listing serializes on another goroutine.
func (s *LobbyServer) lobbiesSnapshot() []*models.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		out = append(out, l.Snapshot())
	}
	return out
}

func (s *LobbyServer) broadcastLobbies() {
	s.registry.Broadcast(message("lobby:update_lobbies", map[string]interface{}{
		"lobbies": s.lobbiesSnapshot(),
	}))
}

type lobbyPayload struct {
	LobbyID       string                 `json:"lobbyId"`
	Name          string                 `json:"name"`
	GameModeOrder []models.GameModeEntry `json:"gameModeOrder"`
}

func (s *LobbyServer) handleMessage(ctx context.Context, c *registry.Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return
	}

	if env.Type == "ping" {
		c.Write(message("pong", map[string]interface{}{"timestamp": time.Now().UnixMilli()}))
		return
	}
	if !strings.HasPrefix(env.Type, "lobby:") {
		return
	}

	var p lobbyPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
	}

	switch env.Type {
	case "lobby:create":
		s.handleCreate(c, p)
	case "lobby:update_gameOrder":
		s.handleUpdateGameOrder(c, p)
	case "lobby:join":
		s.handleJoin(c, p)
	case "lobby:leave":
		s.handleLeave(c, p)
	case "lobby:list":
		s.handleList(c)
	case "lobby:ping":
		c.Write(message("lobby:pong", map[string]interface{}{"timestamp": time.Now().UnixMilli()}))
	case "lobby:start":
		s.handleStart(ctx, c, p)
	case "lobby:game_finished":
		if l := s.findLobby(p.LobbyID); l != nil {
			s.finishLobby(l)
		}
	default:
		c.WriteError("error", "unknown_type")
	}
}

func (s *LobbyServer) handleCreate(c *registry.Client, p lobbyPayload) {
	if c.User == nil || !c.User.IsAdmin {
		c.WriteError("lobby:create:error", "insufficient_privileges")
		return
	}
	name := p.Name
	if name == "" {
		name = "Unnamed Lobby"
	}
	l := &models.Lobby{
		ID:        uuid.NewString(),
		Name:      name,
		Players:   []*models.User{},
		Host:      c.User,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		State:     models.LobbyWaiting,
	}
	s.mu.Lock()
	s.lobbies = append(s.lobbies, l)
	s.mu.Unlock()

	snap := l.Snapshot()
	c.Write(message("lobby:create:success", snap))
	s.registry.Broadcast(message("lobby:created", snap))
}

func (s *LobbyServer) handleUpdateGameOrder(c *registry.Client, p lobbyPayload) {
	l := s.findLobby(p.LobbyID)
	if l == nil || c.User == nil {
		c.WriteError("lobby:update_gameOrder:error", "lobby_not_found_or_invalid_user")
		return
	}
	if l.Host.ID != c.User.ID {
		c.WriteError("lobby:update_gameOrder:error", "insufficient_privileges")
		return
	}
	if p.GameModeOrder == nil {
		return
	}
	l.Mu.Lock()
	l.GameModeOrder = p.GameModeOrder
	members := append([]*models.User(nil), l.Players...)
	l.Mu.Unlock()

	s.registry.BroadcastMembers(members, message("lobby:gameOrder_updated", map[string]interface{}{
		"lobbyId":       l.ID,
		"gameModeOrder": p.GameModeOrder,
	}))
}

func (s *LobbyServer) handleJoin(c *registry.Client, p lobbyPayload) {
	l := s.findLobby(p.LobbyID)
	if l == nil || c.User == nil {
		c.WriteError("lobby:join:error", "lobby_not_found_or_invalid_user")
		return
	}

	l.Mu.Lock()
	alreadyMember := l.HasPlayer(c.User.ID)
	started := l.State == models.LobbyStarted
	if !alreadyMember && !started {
		l.AddPlayer(c.User)
	}
	snap := l.SnapshotLocked()
	l.Mu.Unlock()

	if alreadyMember {
		if started {
			c.Write(message("lobby:join:success:started", map[string]interface{}{"lobbyId": l.ID}))
			return
		}
		c.Write(message("lobby:join:success", snap))
		return
	}
	if started {
		c.Write(message("lobby:join:error:started", l.ID))
		return
	}

	s.registry.Broadcast(message("lobby:player_joined", map[string]interface{}{
		"lobbyId": l.ID,
		"player":  c.User,
	}))
	c.Write(message("lobby:join:success", snap))
	s.broadcastLobbies()
}

func (s *LobbyServer) handleLeave(c *registry.Client, p lobbyPayload) {
	l := s.findLobby(p.LobbyID)
	if l == nil || c.User == nil {
		return
	}

	// The host leaving dissolves the lobby; there is no host transfer.
	if l.Host.ID == c.User.ID {
		s.mu.Lock()
		kept := s.lobbies[:0]
		for _, other := range s.lobbies {
			if other.ID != l.ID {
				kept = append(kept, other)
			}
		}
		s.lobbies = kept
		s.mu.Unlock()

		s.registry.Broadcast(message("lobby:dissolved", map[string]interface{}{"lobbyId": l.ID}))
		s.broadcastLobbies()
		return
	}

	l.Mu.Lock()
	l.RemovePlayer(c.User.ID)
	l.Mu.Unlock()

	s.registry.Broadcast(message("lobby:player_left", map[string]interface{}{
		"lobbyId":  l.ID,
		"playerId": c.User.ID,
	}))
	s.broadcastLobbies()
}

func (s *LobbyServer) handleList(c *registry.Client) {
	lobbies := s.lobbiesSnapshot()
	if c.User != nil {
		for _, l := range lobbies {
			if l.HasPlayer(c.User.ID) {
				c.Write(message("lobby:list:already_joined", map[string]interface{}{"lobbyId": l.ID}))
				return
			}
		}
	}
	c.Write(message("lobby:list:response", map[string]interface{}{"lobbies": lobbies}))
}

func (s *LobbyServer) handleStart(ctx context.Context, c *registry.Client, p lobbyPayload) {
	l := s.findLobby(p.LobbyID)
	if l == nil || c.User == nil {
		c.WriteError("lobby:start:error", "lobby_not_found_or_invalid_user")
		return
	}
	if l.Host.ID != c.User.ID {
		c.WriteError("lobby:start:error", "insufficient_privileges")
		return
	}

	l.Mu.Lock()
	if l.State == models.LobbyStarted {
		l.Mu.Unlock()
		c.WriteError("lobby:start:error", "lobby_already_started")
		return
	}
	if len(l.GameModeOrder) == 0 {
		l.Mu.Unlock()
		c.WriteError("lobby:start:error", "no_game_modes_configured")
		return
	}

	// The lobby flips to started regardless of whether the game record came
	// up; content errors were already unicast to the host inside InitGame.
	if err := s.games.InitGame(ctx, c, l); err != nil {
		s.log.Warnf("lobby %s: game init failed: %v", l.ID, err)
	}
	l.State = models.LobbyStarted
	members := append([]*models.User(nil), l.Players...)
	l.Mu.Unlock()

	s.registry.BroadcastMembers(members, message("lobby:started", map[string]interface{}{
		"lobbyId":   l.ID,
		"startedAt": time.Now().UTC().Format(time.RFC3339),
	}))
	s.broadcastLobbies()
}

// finishLobby returns a lobby to waiting after its game wrapped up.
func (s *LobbyServer) finishLobby(l *models.Lobby) {
	l.Mu.Lock()
	l.State = models.LobbyWaiting
	members := append([]*models.User(nil), l.Players...)
	l.Mu.Unlock()

	s.registry.BroadcastMembers(members, message("lobby:game_finished", map[string]interface{}{
		"lobbyId": l.ID,
	}))
}

// EndGame is called from the game channel when the host finishes a game.
func (s *LobbyServer) EndGame(lobbyID string) {
	l := s.findLobby(lobbyID)
	if l == nil {
		return
	}
	s.finishLobby(l)
}
