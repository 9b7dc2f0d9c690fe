package ws

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

// randomPickerChance is the probability that advancing to the next playlist
// item designates a single random player as the only one whose vote counts.
const randomPickerChance = 0.1

type imageVotePlaylistPayload struct {
	GameID     string `json:"gameId"`
	PlaylistID string `json:"playlistId"`
	Value      int    `json:"value"`
}

// handleImageVotePlaylist runs the playlist-driven image voting mode. The
// game mutex is held by the dispatcher.
func (s *GameServer) handleImageVotePlaylist(ctx context.Context, c *registry.Client, g *models.Game, msgType string, payload json.RawMessage) {
	st, ok := g.State.(*models.ImageVotePlaylistState)
	if !ok {
		return
	}
	var p imageVotePlaylistPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
	}

	switch msgType {
	case "soppl:start":
		if !g.IsHost(c.User) {
			return
		}
		st.CurrentIndex = 0
		st.CurrentVotes = []models.ImageVoteEntry{}
		st.PickerID = ""
		s.broadcastToGame(g, message("soppl:started", map[string]interface{}{"gameId": g.ID}))

	case "soppl:set_playlist":
		if !g.IsHost(c.User) {
			return
		}
		if p.PlaylistID == "" {
			return
		}
		items, err := s.content.FetchImagePlaylist(ctx, p.PlaylistID)
		if err != nil {
			c.WriteError("soppl:error", "smash_or_pass_playlist_not_found")
			return
		}
		st.Items = items
		st.PlaylistID = p.PlaylistID
		st.CurrentIndex = 0
		st.CurrentVotes = []models.ImageVoteEntry{}
		st.PickerID = ""
		s.broadcastToGame(g, message("soppl:playlist_set", map[string]interface{}{"playlistId": p.PlaylistID}))

	case "soppl:next":
		if !g.IsHost(c.User) {
			return
		}
		if len(st.Items) == 0 {
			return
		}
		st.CurrentIndex = (st.CurrentIndex + 1) % len(st.Items)
		st.CurrentVotes = []models.ImageVoteEntry{}
		st.PickerID = ""
		if rand.Float64() < randomPickerChance {
			st.PickerID = pickRandomPlayer(g)
		}
		s.broadcastToGame(g, message("soppl:changed", map[string]interface{}{
			"currentIndex": st.CurrentIndex,
			"pickerId":     st.PickerID,
		}))

	case "soppl:vote":
		if p.Value != 1 && p.Value != -1 {
			return
		}
		// While a picker is designated, everyone else's votes are ignored.
		if st.PickerID != "" && st.PickerID != c.User.ID {
			return
		}
		for i, v := range st.CurrentVotes {
			if v.VoterID == c.User.ID {
				if v.Value == p.Value {
					return
				}
				st.CurrentVotes = append(st.CurrentVotes[:i], st.CurrentVotes[i+1:]...)
				break
			}
		}
		st.CurrentVotes = append(st.CurrentVotes, models.ImageVoteEntry{VoterID: c.User.ID, Value: p.Value})
		s.broadcastToGame(g, message("soppl:update_votes", map[string]interface{}{"votes": st.CurrentVotes}))
	}
}

func pickRandomPlayer(g *models.Game) string {
	players := g.Lobby.PlayersSnapshot()
	if len(players) == 0 {
		return ""
	}
	return players[rand.Intn(len(players))].ID
}
