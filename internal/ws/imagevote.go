package ws

import (
	"encoding/json"

	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

type imageVotePayload struct {
	GameID   string `json:"gameId"`
	Title    string `json:"title"`
	FileURL  string `json:"fileUrl"`
	TargetID string `json:"targetId"`
	Value    int    `json:"value"`
}

// handleImageVote runs the turn-based image voting mode. The game mutex is
// held by the dispatcher.
func (s *GameServer) handleImageVote(c *registry.Client, g *models.Game, msgType string, payload json.RawMessage) {
	st, ok := g.State.(*models.ImageVoteState)
	if !ok {
		return
	}
	var p imageVotePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
	}

	switch msgType {
	case "sop:start":
		if !g.IsHost(c.User) {
			return
		}
		st.CurrentIndex = 0
		st.IsVotingOpen = false
		st.Submissions = []*models.ImageSubmission{}
		s.broadcastToGame(g, message("sop:started", map[string]interface{}{
			"gameId": g.ID,
			"order":  st.Order,
		}))

	case "sop:submit":
		if p.Title == "" || p.FileURL == "" {
			return
		}
		// Only the player whose turn it is may submit; a resubmission
		// replaces the previous one.
		if st.CurrentPlayerID() != c.User.ID {
			return
		}
		sub := &models.ImageSubmission{
			PlayerID: c.User.ID,
			Title:    p.Title,
			FileURL:  p.FileURL,
			Votes:    []models.ImageVoteEntry{},
		}
		replaced := false
		for i, existing := range st.Submissions {
			if existing.PlayerID == c.User.ID {
				st.Submissions[i] = sub
				replaced = true
				break
			}
		}
		if !replaced {
			st.Submissions = append(st.Submissions, sub)
		}
		s.broadcastToGame(g, message("sop:update_submissions", map[string]interface{}{"submissions": st.Submissions}))

	case "sop:open_voting":
		if !g.IsHost(c.User) {
			return
		}
		st.IsVotingOpen = true
		s.broadcastToGame(g, message("sop:voting_opened", nil))

	case "sop:vote":
		if !st.IsVotingOpen {
			return
		}
		if p.TargetID == "" || (p.Value != 1 && p.Value != -1) {
			return
		}
		if p.TargetID == c.User.ID {
			return
		}
		sub := st.FindSubmission(p.TargetID)
		if sub == nil {
			return
		}
		for i, v := range sub.Votes {
			if v.VoterID == c.User.ID {
				if v.Value == p.Value {
					return
				}
				sub.Votes = append(sub.Votes[:i], sub.Votes[i+1:]...)
				break
			}
		}
		sub.Votes = append(sub.Votes, models.ImageVoteEntry{VoterID: c.User.ID, Value: p.Value})
		s.broadcastToGame(g, message("sop:update_votes", map[string]interface{}{"submissions": st.Submissions}))

	case "sop:next":
		if !g.IsHost(c.User) {
			return
		}
		if len(st.Order) == 0 {
			return
		}
		// The finished player's submission is dropped before the turn moves
		// on, so stale images never linger into the next round.
		prev := st.CurrentPlayerID()
		kept := st.Submissions[:0]
		for _, sub := range st.Submissions {
			if sub.PlayerID != prev {
				kept = append(kept, sub)
			}
		}
		st.Submissions = kept
		s.broadcastToGame(g, message("sop:update_submissions", map[string]interface{}{"submissions": st.Submissions}))

		st.CurrentIndex = (st.CurrentIndex + 1) % len(st.Order)
		st.IsVotingOpen = false
		s.broadcastToGame(g, message("sop:round_changed", map[string]interface{}{"currentIndex": st.CurrentIndex}))
	}
}
