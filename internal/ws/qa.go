package ws

import (
	"encoding/json"

	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

type qaPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// handleQA runs the question/answer mode. The game mutex is held by the
// dispatcher.
func (s *GameServer) handleQA(c *registry.Client, g *models.Game, msgType string, payload json.RawMessage) {
	st, ok := g.State.(*models.QAState)
	if !ok {
		return
	}
	var p qaPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
	}

	switch msgType {
	case "qa:ask_question":
		if !g.IsHost(c.User) {
			c.WriteError("qa:error", "not_authorized")
			return
		}
		if p.Question == "" {
			return
		}
		// A new question discards all answers from the previous round.
		q := p.Question
		st.Question = &q
		st.Answers = []*models.QAAnswer{}
		s.broadcastToGame(g, message("qa:new_question", map[string]interface{}{
			"question": map[string]interface{}{
				"question": st.Question,
				"answers":  st.Answers,
			},
		}))

	case "qa:answer_question":
		if p.Answer == "" {
			return
		}
		// First answer wins; later submissions from the same player are
		// silently ignored.
		for _, a := range st.Answers {
			if a.PlayerID == c.User.ID {
				return
			}
		}
		st.Answers = append(st.Answers, &models.QAAnswer{
			PlayerID:   c.User.ID,
			PlayerName: c.User.DisplayName(),
			Answer:     p.Answer,
		})
		s.broadcastToGame(g, message("qa:update_answers", map[string]interface{}{"answers": st.Answers}))
	}
}
