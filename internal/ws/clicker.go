package ws

import (
	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

// clickerThreshold is the click count that ends the mode. Only an exact hit
// triggers the transition, so it fires at most once per player.
const clickerThreshold = 10

// handleClicker runs the button-clicker mode. The game mutex is held by the
// dispatcher.
func (s *GameServer) handleClicker(c *registry.Client, g *models.Game, msgType string) {
	st, ok := g.State.(*models.ClickerState)
	if !ok {
		return
	}
	if msgType != "btn:click" {
		return
	}

	entry := st.Find(c.User.ID)
	if entry != nil {
		entry.Count++
		if entry.Count == clickerThreshold {
			g.Mode = models.ModeCross
			s.broadcastToGame(g, message("game:game_mode_ended", map[string]interface{}{"game": g.Snapshot()}))
		}
	} else {
		st.State = append(st.State, &models.ClickEntry{
			PlayerID:   c.User.ID,
			PlayerName: c.User.DisplayName(),
			Count:      1,
		})
	}
	s.broadcastToGame(g, message("btn:state_changed", map[string]interface{}{"state": st.State}))
}
