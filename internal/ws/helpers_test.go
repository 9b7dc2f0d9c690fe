package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/katro/partyhub/internal/content"
	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
	"github.com/katro/partyhub/internal/voice"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// stubContent serves canned playlist content.
type stubContent struct {
	tracks   []*models.MusicTrack
	playlist *models.KaraokePlaylist
	items    []*models.ImageItem
	err      error
}

var _ content.Store = (*stubContent)(nil)

func (s *stubContent) FetchTrackList(ctx context.Context, playlistID string) ([]*models.MusicTrack, error) {
	return s.tracks, s.err
}

func (s *stubContent) FetchTrack(ctx context.Context, trackID int64) (*models.MusicTrack, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tracks {
		if t.ID == trackID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("track %d not found", trackID)
}

func (s *stubContent) FetchKaraokePlaylist(ctx context.Context, playlistID string) (*models.KaraokePlaylist, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.playlist == nil {
		return nil, fmt.Errorf("karaoke playlist %s not found", playlistID)
	}
	return s.playlist, nil
}

func (s *stubContent) FetchImagePlaylist(ctx context.Context, playlistID string) ([]*models.ImageItem, error) {
	return s.items, s.err
}

// stubUsers resolves users from a fixed map.
type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return u, nil
}

func (s *stubUsers) ListDiscordIDs(ctx context.Context, userIDs []string) ([]string, error) {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok && u.DiscordID != "" {
			out = append(out, u.DiscordID)
		}
	}
	return out, nil
}

// stubMixer records mix calls without shelling out.
type stubMixer struct {
	mu      sync.Mutex
	mixes   []string
	concats [][]string
	mixErr  error
}

func (m *stubMixer) Mix(ctx context.Context, backing, vocal, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mixErr != nil {
		return m.mixErr
	}
	m.mixes = append(m.mixes, output)
	return nil
}

func (m *stubMixer) Concat(ctx context.Context, inputs []string, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concats = append(m.concats, inputs)
	return nil
}

func (m *stubMixer) mixCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mixes)
}

// fixture wires a game server and lobby server to shared stubs with no real
// sockets: clients are registered directly and messages are fed to the
// handlers.
type fixture struct {
	gameReg  *registry.Registry
	lobbyReg *registry.Registry
	games    *GameServer
	lobbies  *LobbyServer
	content  *stubContent
	users    *stubUsers
	mixer    *stubMixer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()
	gameReg := registry.New(logger)
	lobbyReg := registry.New(logger)
	st := &stubContent{}
	users := &stubUsers{users: map[string]*models.User{}}
	mx := &stubMixer{}

	gs := NewGameServer(gameReg, st, users, nil, voice.NewFromEnv(logger), mx, logger)
	ls := NewLobbyServer(lobbyReg, nil, gs, logger)
	gs.BindLobbies(ls)

	return &fixture{
		gameReg:  gameReg,
		lobbyReg: lobbyReg,
		games:    gs,
		lobbies:  ls,
		content:  st,
		users:    users,
		mixer:    mx,
	}
}

func testUser(id, name string, admin bool) *models.User {
	return &models.User{ID: id, Username: name, IsAdmin: admin, DiscordID: "d-" + id}
}

// gameClient registers a connection on the game channel.
func (f *fixture) gameClient(u *models.User) *registry.Client {
	c := f.gameReg.NewClient("conn-"+u.ID, u, "127.0.0.1", func() {})
	f.gameReg.Register(c)
	return c
}

// anonClient registers an unauthenticated game channel connection.
func (f *fixture) anonClient(id string) *registry.Client {
	c := f.gameReg.NewClient(id, nil, "127.0.0.1", func() {})
	f.gameReg.Register(c)
	return c
}

// lobbyClient registers a connection on the lobby channel.
func (f *fixture) lobbyClient(u *models.User) *registry.Client {
	c := f.lobbyReg.NewClient("lconn-"+u.ID, u, "127.0.0.1", func() {})
	f.lobbyReg.Register(c)
	return c
}

// sendGame feeds one message to the game channel handler.
func (f *fixture) sendGame(c *registry.Client, msgType string, payload interface{}) {
	f.games.handleMessage(context.Background(), c, frame(msgType, payload))
}

// sendLobby feeds one message to the lobby channel handler.
func (f *fixture) sendLobby(c *registry.Client, msgType string, payload interface{}) {
	f.lobbies.handleMessage(context.Background(), c, frame(msgType, payload))
}

func frame(msgType string, payload interface{}) []byte {
	m := map[string]interface{}{"type": msgType}
	if payload != nil {
		m["payload"] = payload
	}
	data, _ := json.Marshal(m)
	return data
}

// recv pops the next message off a client's out channel, failing the test if
// none arrives in time.
func recv(t *testing.T, c *registry.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Out:
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s: no message received", c.ID)
		return nil
	}
}

// recvType keeps reading until a message of the wanted type arrives.
func recvType(t *testing.T, c *registry.Client, msgType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data := <-c.Out:
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &m))
			if m["type"] == msgType {
				return m
			}
		case <-deadline:
			t.Fatalf("client %s: no %q message received", c.ID, msgType)
			return nil
		}
	}
}

// drain discards everything queued for a client.
func drain(c *registry.Client) {
	for {
		select {
		case <-c.Out:
		default:
			return
		}
	}
}

// noMessage asserts nothing is queued for the client.
func noMessage(t *testing.T, c *registry.Client) {
	t.Helper()
	select {
	case data := <-c.Out:
		t.Fatalf("client %s: unexpected message %s", c.ID, string(data))
	default:
	}
}

func payloadOf(m map[string]interface{}) map[string]interface{} {
	p, _ := m["payload"].(map[string]interface{})
	return p
}

// startedGame installs a game directly in the store, bypassing the lobby
// start flow, with the given mode and state.
func (f *fixture) startedGame(id string, host *models.User, players []*models.User, mode models.GameMode, state models.ModeState) *models.Game {
	lobby := &models.Lobby{
		ID:      id,
		Name:    "test",
		Players: players,
		Host:    host,
		State:   models.LobbyStarted,
	}
	g := &models.Game{
		ID:         id,
		Lobby:      lobby,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		Mode:       mode,
		State:      state,
		Scoreboard: models.NewScoreboard(players),
	}
	f.games.mu.Lock()
	f.games.games[id] = g
	f.games.mu.Unlock()
	return g
}
