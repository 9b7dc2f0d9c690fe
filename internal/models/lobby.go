package models

import "sync"

// LobbyState tracks the lobby lifecycle. A started lobby admits no new
// players; the record survives Start and is only removed on dissolution.
type LobbyState string

const (
	LobbyWaiting LobbyState = "waiting"
	LobbyStarted LobbyState = "started"
)

// GameModeEntry references which mode to run next and, for modes that need
// one, which playlist to pull content from. The playlist content itself is
// fetched from the content store at mode-start time.
type GameModeEntry struct {
	ID        string   `json:"id"`
	Type      GameMode `json:"type"`
	Playlist  string   `json:"playlist,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

// Lobby is an ephemeral pre-game waiting room. The host is the only identity
// allowed to mutate GameModeOrder or to start/dissolve the lobby, and has no
// transfer mechanism: the host leaving dissolves the lobby.
type Lobby struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Players       []*User         `json:"players"`
	Host          *User           `json:"host"`
	CreatedAt     string          `json:"createdAt"`
	State         LobbyState      `json:"state"`
	GameModeOrder []GameModeEntry `json:"gameModeOrder,omitempty"`

	// Mu serializes all mutations of this lobby.
	Mu sync.Mutex `json:"-"`
}

// HasPlayer reports whether userID is a member. Assumes Mu is held.
func (l *Lobby) HasPlayer(userID string) bool {
	for _, p := range l.Players {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// AddPlayer appends the user unless already present. Assumes Mu is held.
func (l *Lobby) AddPlayer(u *User) {
	if l.HasPlayer(u.ID) {
		return
	}
	l.Players = append(l.Players, u)
}

// RemovePlayer removes the user by id. Assumes Mu is held.
func (l *Lobby) RemovePlayer(userID string) {
	kept := l.Players[:0]
	for _, p := range l.Players {
		if p.ID != userID {
			kept = append(kept, p)
		}
	}
	l.Players = kept
}

// PlayersSnapshot copies the member list under the lobby lock, for callers
// that fan out messages without holding Mu.
func (l *Lobby) PlayersSnapshot() []*User {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	out := make([]*User, len(l.Players))
	copy(out, l.Players)
	return out
}

// Snapshot copies the lobby under its lock. Marshal snapshots, never the
// live record: serialization reads every field and would race with a
// concurrent AddPlayer/RemovePlayer on the other channel.
func (l *Lobby) Snapshot() *Lobby {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.SnapshotLocked()
}

// SnapshotLocked is Snapshot for callers that already hold Mu.
func (l *Lobby) SnapshotLocked() *Lobby {
	players := make([]*User, len(l.Players))
	copy(players, l.Players)
	order := make([]GameModeEntry, len(l.GameModeOrder))
	copy(order, l.GameModeOrder)
	return &Lobby{
		ID:            l.ID,
		Name:          l.Name,
		Players:       players,
		Host:          l.Host,
		CreatedAt:     l.CreatedAt,
		State:         l.State,
		GameModeOrder: order,
	}
}
