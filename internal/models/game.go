package models

import "sync"

// GameMode tags the active mini-game. The wire values are part of the client
// contract and must not change.
type GameMode string

const (
	ModeQA                GameMode = "QA"
	ModeClicker           GameMode = "BTN"
	ModeMusicQuiz         GameMode = "MUSIC_QUIZ"
	ModeKaraokeSolo       GameMode = "Karaoke_Solo"
	ModeKaraokeDuet       GameMode = "Karaoke_Duett"
	ModeImageVote         GameMode = "SMASH_OR_PASS"
	ModeImageVotePlaylist GameMode = "SMASH_OR_PASS_PLAYLIST"

	// ModeCross is the intermission screen between modes; ModeEnded is
	// terminal. Neither carries mode state.
	ModeCross GameMode = "Cross"
	ModeEnded GameMode = "Ended"
)

// ModeState is the closed union of per-mode state slices. Switching mode
// destroys the prior state unconditionally and constructs a fresh variant.
type ModeState interface {
	// Mode returns the tag this state belongs to.
	Mode() GameMode
	// Redacted returns the view safe to broadcast to players. States holding
	// host-authored content (full track lists) strip it; others return
	// themselves.
	Redacted() ModeState
	// Scores returns the mode-local scoreboard copy, or nil if the mode keeps
	// none.
	Scores() *Scoreboard
}

// Game is an active play session instantiated 1:1 from a started lobby. All
// mutations of a Game are serialized through Mu; no two messages for the same
// game may run concurrently.
type Game struct {
	ID            string          `json:"id"`
	Lobby         *Lobby          `json:"lobby"`
	StartedAt     string          `json:"startedAt"`
	Mode          GameMode        `json:"mode"`
	State         ModeState       `json:"currentGameModeData,omitempty"`
	NextGameModes []GameModeEntry `json:"nextGameModes"`
	Scoreboard    *Scoreboard     `json:"Scoreboard"`

	Mu sync.Mutex `json:"-"`
}

// CurrentScores returns the scoreboard global actions should mutate: the
// mode-local copy when the active mode keeps one, else the game-level board.
func (g *Game) CurrentScores() *Scoreboard {
	if g.State != nil {
		if sb := g.State.Scores(); sb != nil {
			return sb
		}
	}
	return g.Scoreboard
}

// Snapshot returns a copy with the mode state redacted and the lobby
// replaced by its own snapshot, suitable for broadcasting. Assumes Mu is
// held; takes the lobby mutex briefly.
func (g *Game) Snapshot() *Game {
	var lobby *Lobby
	if g.Lobby != nil {
		lobby = g.Lobby.Snapshot()
	}
	return g.SnapshotWithLobby(lobby)
}

// SnapshotWithLobby is Snapshot with a pre-taken lobby snapshot, for callers
// that already hold the lobby mutex.
func (g *Game) SnapshotWithLobby(lobby *Lobby) *Game {
	cp := &Game{
		ID:            g.ID,
		Lobby:         lobby,
		StartedAt:     g.StartedAt,
		Mode:          g.Mode,
		NextGameModes: g.NextGameModes,
		Scoreboard:    g.Scoreboard,
	}
	if g.State != nil {
		cp.State = g.State.Redacted()
	}
	return cp
}

// IsHost reports whether the user is the host of the game's lobby.
func (g *Game) IsHost(u *User) bool {
	return u != nil && g.Lobby != nil && g.Lobby.Host != nil && g.Lobby.Host.ID == u.ID
}
