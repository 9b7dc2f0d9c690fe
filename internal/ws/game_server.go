package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/content"
	"github.com/katro/partyhub/internal/identity"
	"github.com/katro/partyhub/internal/middleware"
	"github.com/katro/partyhub/internal/mixer"
	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
	"github.com/katro/partyhub/internal/voice"
)

// LobbyFinisher returns a lobby to waiting once its game is finished. Wired
// to the lobby server after construction to break the cycle between the two
// channels.
type LobbyFinisher interface {
	EndGame(lobbyID string)
}

// GameServer owns the game channel: the game directory, the per-namespace
// mode dispatch and the async audio pipeline hand-off. Anonymous connections
// are admitted but every message from them is dropped.
type GameServer struct {
	registry *registry.Registry
	content  content.Store
	users    identity.UserStore
	resolver *identity.Resolver
	voice    *voice.Client
	mixer    mixer.Mixer
	log      *logrus.Logger

	trackBaseURL string

	// Lobbies is bound after both servers exist.
	Lobbies LobbyFinisher

	mu    sync.Mutex
	games map[string]*models.Game
}

func NewGameServer(reg *registry.Registry, store content.Store, users identity.UserStore, resolver *identity.Resolver, vc *voice.Client, mx mixer.Mixer, log *logrus.Logger) *GameServer {
	base := os.Getenv("TRACK_BASE_URL")
	if base == "" {
		base = "http://localhost:8081"
	}
	return &GameServer{
		registry:     reg,
		content:      store,
		users:        users,
		resolver:     resolver,
		voice:        vc,
		mixer:        mx,
		log:          log,
		trackBaseURL: base,
		games:        make(map[string]*models.Game),
	}
}

// BindLobbies wires the lobby server in after construction.
func (s *GameServer) BindLobbies(l LobbyFinisher) {
	s.Lobbies = l
}

// HandleWS upgrades a game channel connection. Unlike the lobby channel a
// missing or invalid token is tolerated: the connection stays open for
// broadcasts but all of its messages are dropped.
func (s *GameServer) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := r.RemoteAddr
		token := r.URL.Query().Get("token")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.log.Warnf("game: websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "handler finished")

		var user *models.User
		if token != "" && s.resolver != nil {
			user, err = s.resolver.Resolve(r.Context(), token)
			if err != nil {
				s.log.Debugf("game: token verification failed for %s: %v", remote, err)
				user = nil
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := s.registry.NewClient(uuid.NewString(), user, remote, cancel)
		s.registry.Register(c)
		middleware.LogWebSocketConnect(s.log, remote, r.URL.Path)

		c.Write(message("game:welcome", map[string]interface{}{"id": c.ID}))

		go writePump(ctx, conn, c, s.log)
		readLoop(ctx, conn, c, s.log, s.handleMessage)

		middleware.LogWebSocketDisconnect(s.log, remote, r.URL.Path, nil)
		s.unregister(c.ID)
	}
}

func (s *GameServer) unregister(id string) {
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

// getGame returns the game by id without holding the store lock afterwards.
func (s *GameServer) getGame(id string) *models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games[id]
}

func (s *GameServer) removeGame(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// withGame runs fn under the game's mutex if the game still exists. Async
// completions (mixing, concat) re-enter the serialized game context through
// here.
func (s *GameServer) withGame(id string, fn func(*models.Game)) {
	g := s.getGame(id)
	if g == nil {
		return
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	fn(g)
}

// broadcastToGame fans v out to every member of the game's lobby on the game
// channel. Safe to call with the game mutex held; the lobby mutex is taken
// briefly for the member snapshot.
func (s *GameServer) broadcastToGame(g *models.Game, v interface{}) {
	if g.Lobby == nil {
		return
	}
	s.registry.BroadcastMembers(g.Lobby.PlayersSnapshot(), v)
}

// modeForNamespace maps a message namespace to the mode that must be active
// for its messages to apply.
var modeForNamespace = map[string]models.GameMode{
	"qa":    models.ModeQA,
	"btn":   models.ModeClicker,
	"mq":    models.ModeMusicQuiz,
	"ks":    models.ModeKaraokeSolo,
	"kd":    models.ModeKaraokeDuet,
	"sop":   models.ModeImageVote,
	"soppl": models.ModeImageVotePlaylist,
}

type gamePayload struct {
	GameID string `json:"gameId"`
}

func (s *GameServer) handleMessage(ctx context.Context, c *registry.Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return
	}
	// Anonymous connections receive broadcasts but never act.
	if c.User == nil {
		return
	}

	if ns, _, ok := strings.Cut(env.Type, ":"); ok {
		if expected, isMode := modeForNamespace[ns]; isMode {
			s.dispatchMode(ctx, c, ns, expected, env)
			return
		}
	}

	var p gamePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
	}

	switch env.Type {
	case "game:load":
		s.handleLoad(c, p.GameID)
	case "game:increment_score", "game:decrement_score":
		s.handleScoreChange(c, env)
	case "game:end_game_mode":
		s.handleEndGameMode(c, p.GameID)
	case "game:next_game_mode":
		s.handleNextGameMode(ctx, c, p.GameID)
	case "game:end_game":
		s.handleEndGame(c, p.GameID)
	case "game:finish":
		s.handleFinish(c, p.GameID)
	default:
		c.WriteError("error", "unknown_type")
	}
}

// dispatchMode routes a namespaced message to its mode reducer after checking
// that the game exists and is actually in that mode. A stale client talking
// to the wrong mode gets a namespaced error instead of corrupting state.
func (s *GameServer) dispatchMode(ctx context.Context, c *registry.Client, ns string, expected models.GameMode, env Envelope) {
	var p gamePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
	}
	g := s.getGame(p.GameID)
	if g == nil {
		c.WriteError(ns+":error", "game_not_found")
		return
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Mode != expected {
		c.WriteError(ns+":error", "mode_not_active")
		return
	}

	switch ns {
	case "qa":
		s.handleQA(c, g, env.Type, env.Payload)
	case "btn":
		s.handleClicker(c, g, env.Type)
	case "mq":
		s.handleMusicQuiz(ctx, c, g, env.Type, env.Payload)
	case "ks", "kd":
		s.handleKaraoke(c, g, ns, env.Type, env.Payload)
	case "sop":
		s.handleImageVote(c, g, env.Type, env.Payload)
	case "soppl":
		s.handleImageVotePlaylist(ctx, c, g, env.Type, env.Payload)
	}
}

func (s *GameServer) handleLoad(c *registry.Client, gameID string) {
	g := s.getGame(gameID)
	if g == nil {
		c.WriteError("game:not_found", "invalid_game_id")
		return
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	c.Write(message("game:load:response", map[string]interface{}{"game": g.Snapshot()}))
}

type scorePayload struct {
	GameID    string `json:"gameId"`
	PlayerID  string `json:"playerId"`
	Increment *int   `json:"increment"`
	Decrement *int   `json:"decrement"`
}

func (s *GameServer) handleScoreChange(c *registry.Client, env Envelope) {
	var p scorePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	g := s.getGame(p.GameID)
	if g == nil || p.PlayerID == "" {
		return
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	if !g.IsHost(c.User) {
		c.WriteError("game:not_authorized", "not_authorized")
		return
	}

	delta := 1
	if env.Type == "game:increment_score" {
		if p.Increment != nil {
			delta = *p.Increment
		}
	} else {
		if p.Decrement != nil {
			delta = *p.Decrement
		}
		delta = -delta
	}

	board := g.CurrentScores()
	entry := board.Find(p.PlayerID)
	if entry == nil {
		return
	}
	entry.Score += delta
	s.broadcastToGame(g, message("game:score_updated", map[string]interface{}{"Scoreboard": board}))
}

func (s *GameServer) handleEndGameMode(c *registry.Client, gameID string) {
	g := s.getGame(gameID)
	if g == nil {
		return
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if !g.IsHost(c.User) {
		c.WriteError("game:not_authorized", "not_authorized")
		return
	}
	g.Mode = models.ModeCross
	g.State = nil
	s.broadcastToGame(g, message("game:game_mode_ended", map[string]interface{}{"game": g.Snapshot()}))
}

func (s *GameServer) handleNextGameMode(ctx context.Context, c *registry.Client, gameID string) {
	g := s.getGame(gameID)
	if g == nil {
		return
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if !g.IsHost(c.User) {
		c.WriteError("game:not_authorized", "not_authorized")
		return
	}

	if len(g.NextGameModes) == 0 {
		g.Mode = models.ModeEnded
		g.State = nil
		s.broadcastToGame(g, message("game:game_ended", map[string]interface{}{"game": g.Snapshot()}))
		return
	}

	next := g.NextGameModes[0]
	g.NextGameModes = g.NextGameModes[1:]

	// The mode flips and the old state is discarded before the content fetch,
	// so a fetch failure leaves the new mode active with no state.
	g.Mode = next.Type
	g.State = nil

	state, err := s.buildModeState(ctx, c, g, g.Lobby.PlayersSnapshot(), next)
	if err != nil {
		return
	}
	g.State = state
	s.broadcastToGame(g, message("game:next_game_mode_started", map[string]interface{}{"game": g.Snapshot()}))
}

func (s *GameServer) handleEndGame(c *registry.Client, gameID string) {
	g := s.getGame(gameID)
	if g == nil {
		return
	}
	g.Mu.Lock()
	if !g.IsHost(c.User) {
		g.Mu.Unlock()
		c.WriteError("game:not_authorized", "not_authorized")
		return
	}
	g.Mode = models.ModeEnded
	s.broadcastToGame(g, message("game:game_ended", map[string]interface{}{"game": g.Snapshot()}))
	g.Mu.Unlock()

	s.removeGame(gameID)
}

func (s *GameServer) handleFinish(c *registry.Client, gameID string) {
	g := s.getGame(gameID)
	if g == nil {
		return
	}
	g.Mu.Lock()
	if !g.IsHost(c.User) {
		g.Mu.Unlock()
		c.WriteError("game:not_authorized", "not_authorized")
		return
	}
	g.Mu.Unlock()

	s.removeGame(gameID)
	if s.Lobbies != nil {
		s.Lobbies.EndGame(gameID)
	}
	c.Write(message("game:finished_response_host", map[string]interface{}{"lobbyId": gameID}))
}

// InitGame creates the game record for a starting lobby. The game shares the
// lobby's id. Assumes the lobby's mutex is held by the caller; content
// failures are unicast to the starter and abort creation, which leaves the
// lobby started with no game behind it.
func (s *GameServer) InitGame(ctx context.Context, starter *registry.Client, lobby *models.Lobby) error {
	if len(lobby.GameModeOrder) == 0 {
		starter.WriteError("game:init:error", "no_game_modes_configured")
		return fmt.Errorf("lobby %s: no game modes configured", lobby.ID)
	}

	first := lobby.GameModeOrder[0]
	lobby.GameModeOrder = lobby.GameModeOrder[1:]

	g := &models.Game{
		ID:            lobby.ID,
		Lobby:         lobby,
		StartedAt:     time.Now().UTC().Format(time.RFC3339),
		Mode:          first.Type,
		NextGameModes: lobby.GameModeOrder,
		Scoreboard:    models.NewScoreboard(lobby.Players),
	}

	members := append([]*models.User(nil), lobby.Players...)
	state, err := s.buildModeState(ctx, starter, g, members, first)
	if err != nil {
		return err
	}
	g.State = state

	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()

	// The lobby mutex is held, so take the locked-variant snapshots instead
	// of going through the locking helpers.
	s.registry.BroadcastMembers(members, message("game:started", map[string]interface{}{
		"game": g.SnapshotWithLobby(lobby.SnapshotLocked()),
	}))
	return nil
}

// buildModeState constructs the fresh state slice for a mode entry, fetching
// playlist content where the mode needs it. Content errors are unicast to
// errTo and returned. The player list is passed in because callers differ in
// which locks they hold; it must be a private copy, never the live slice.
func (s *GameServer) buildModeState(ctx context.Context, errTo *registry.Client, g *models.Game, players []*models.User, entry models.GameModeEntry) (models.ModeState, error) {
	switch entry.Type {
	case models.ModeQA:
		return &models.QAState{
			Question:   nil,
			Answers:    []*models.QAAnswer{},
			Scoreboard: g.Scoreboard,
		}, nil

	case models.ModeClicker:
		return &models.ClickerState{State: []*models.ClickEntry{}}, nil

	case models.ModeMusicQuiz:
		if entry.Playlist == "" {
			errTo.WriteError("game:error", "music_quiz_requires_playlist")
			return nil, fmt.Errorf("music quiz entry without playlist")
		}
		tracks, err := s.content.FetchTrackList(ctx, entry.Playlist)
		if err != nil || len(tracks) == 0 {
			errTo.WriteError("game:error", "music_quiz_playlist_not_found")
			return nil, fmt.Errorf("music quiz playlist %s: %v", entry.Playlist, err)
		}
		rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
		return &models.MusicQuizState{
			CurrentTrackIndex: 0,
			CurrentTrack:      tracks[0],
			Tracks:            tracks,
			TrackLength:       len(tracks),
			Scoreboard:        models.NewScoreboard(players),
			Replays:           []*models.Replay{},
			Answers:           []*models.QuizAnswer{},
		}, nil

	case models.ModeKaraokeSolo, models.ModeKaraokeDuet:
		duet := entry.Type == models.ModeKaraokeDuet
		if entry.Playlist == "" {
			if duet {
				errTo.WriteError("game:error", "karaoke_duett_requires_playlist")
			} else {
				errTo.WriteError("game:error", "karaoke_solo_requires_playlist")
			}
			return nil, fmt.Errorf("karaoke entry without playlist")
		}
		playlist, err := s.content.FetchKaraokePlaylist(ctx, entry.Playlist)
		if err != nil {
			return nil, fmt.Errorf("karaoke playlist %s: %w", entry.Playlist, err)
		}
		if len(playlist.Songs) == 0 {
			return nil, fmt.Errorf("karaoke playlist %s has no songs", entry.Playlist)
		}
		return &models.KaraokeState{
			Playlist:   playlist,
			Scoreboard: models.NewScoreboard(players),
			CurrentSong: &models.KaraokeCurrentSong{
				Song:           playlist.Songs[0],
				PlayerSegments: assignSegments(players, playlist.Songs[0], duet),
			},
			CurrentSongIndex: 0,
			Inputs:           []models.KaraokeFile{},
			Outputs:          []models.KaraokeFile{},
			RoundState:       models.KaraokePending,
			IsVoteOpen:       false,
			Votes:            []models.KaraokeVote{},
			Duet:             duet,
		}, nil

	case models.ModeImageVote:
		order := make([]string, 0, len(players))
		for _, p := range players {
			order = append(order, p.ID)
		}
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		return &models.ImageVoteState{
			Order:        order,
			CurrentIndex: 0,
			Submissions:  []*models.ImageSubmission{},
			IsVotingOpen: false,
			Scoreboard:   models.NewScoreboard(players),
		}, nil

	case models.ModeImageVotePlaylist:
		state := &models.ImageVotePlaylistState{
			Items:        []*models.ImageItem{},
			CurrentIndex: 0,
			CurrentVotes: []models.ImageVoteEntry{},
			PlaylistID:   entry.Playlist,
			Scoreboard:   models.NewScoreboard(players),
		}
		if entry.Playlist != "" {
			items, err := s.content.FetchImagePlaylist(ctx, entry.Playlist)
			if err != nil {
				errTo.WriteError("game:error", "smash_or_pass_playlist_not_found")
				return nil, fmt.Errorf("image playlist %s: %w", entry.Playlist, err)
			}
			state.Items = items
		}
		return state, nil

	default:
		return nil, nil
	}
}

// assignSegments maps players onto a song's segments. Solo karaoke gives
// everyone the first segment; duet shuffles the segment indices and deals
// them round-robin.
func assignSegments(players []*models.User, song *models.KaraokeSong, duet bool) []models.PlayerSegment {
	out := make([]models.PlayerSegment, 0, len(players))
	if !duet || len(song.Segments) == 0 {
		for _, p := range players {
			out = append(out, models.PlayerSegment{PlayerID: p.ID, SegmentIndex: 0})
		}
		return out
	}

	indices := make([]int, len(song.Segments))
	for i := range indices {
		indices[i] = i
	}
	rand.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	for idx, p := range players {
		out = append(out, models.PlayerSegment{PlayerID: p.ID, SegmentIndex: indices[idx%len(indices)]})
	}
	return out
}

// trackURL maps a stored track file reference to its public playback URL.
func (s *GameServer) trackURL(fileURL string) string {
	return s.trackBaseURL + "/musicquiz/tracks/" + strings.TrimPrefix(fileURL, "music_quiz/")
}
