package ws

import (
	"context"
	"encoding/json"

	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

// Soft replay limits. Exceeding them only notifies the client; playback is
// never actually refused.
const (
	replayNoticeOnFetch  = 2
	replayNoticeOnReplay = 3
)

type mqPayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

// handleMusicQuiz runs the music-quiz mode. The game mutex is held by the
// dispatcher.
func (s *GameServer) handleMusicQuiz(ctx context.Context, c *registry.Client, g *models.Game, msgType string, payload json.RawMessage) {
	st, ok := g.State.(*models.MusicQuizState)
	if !ok {
		return
	}
	var p mqPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
	}

	switch msgType {
	case "mq:get_current_song":
		if st.CurrentTrack == nil {
			return
		}
		if r := st.FindReplay(c.User.ID); r != nil && r.Count >= replayNoticeOnFetch {
			c.Write(message("mq:replay_limit_reached", map[string]interface{}{"playerId": c.User.ID}))
		}
		c.Write(message("mq:current_song:response", map[string]interface{}{
			"fileUrl": s.trackURL(st.CurrentTrack.FileURL),
		}))

	case "mq:next_song":
		if !g.IsHost(c.User) {
			return
		}
		st.CurrentTrackIndex++
		if st.CurrentTrackIndex >= len(st.Tracks) {
			c.Write(message("mq:no_more_songs", map[string]interface{}{"gameId": g.ID}))
			return
		}
		next := st.Tracks[st.CurrentTrackIndex]
		if fresh, err := s.content.FetchTrack(ctx, next.ID); err == nil {
			next = fresh
		} else {
			s.log.Warnf("music quiz: track %d refetch failed, using cached copy: %v", next.ID, err)
		}
		st.CurrentTrack = next
		st.Answers = []*models.QuizAnswer{}
		st.Replays = []*models.Replay{}
		s.broadcastToGame(g, message("mq:next_song_started", map[string]interface{}{
			"currentTrackIndex": st.CurrentTrackIndex,
			"currentSong":       s.trackURL(next.FileURL),
			"answers":           []*models.QuizAnswer{},
			"replays":           []*models.Replay{},
		}))

	case "mq:replay_song":
		entry := st.FindReplay(c.User.ID)
		if entry != nil {
			entry.Count++
		} else {
			entry = &models.Replay{PlayerID: c.User.ID, Count: 1}
			st.Replays = append(st.Replays, entry)
		}
		if entry.Count >= replayNoticeOnReplay {
			c.Write(message("mq:replay_limit_reached", map[string]interface{}{"playerId": c.User.ID}))
		}

	case "mq:start":
		s.broadcastToGame(g, message("mq:started", map[string]interface{}{"gameId": g.ID}))

	case "mq:submit_answer":
		if p.Answer == "" {
			return
		}
		if st.FindAnswer(c.User.ID) != nil {
			return
		}
		st.Answers = append(st.Answers, &models.QuizAnswer{
			PlayerID:   c.User.ID,
			PlayerName: c.User.DisplayName(),
			Answer:     p.Answer,
			State:      models.AnswerPending,
		})
		s.broadcastToGame(g, message("mq:update_answers", map[string]interface{}{"answers": st.Answers}))

	case "mq:accept_answer":
		s.judgeAnswer(c, g, st, p.PlayerID, true)

	case "mq:decline_answer":
		s.judgeAnswer(c, g, st, p.PlayerID, false)
	}
}

// judgeAnswer applies the host's verdict to a pending answer. Re-judging with
// the same verdict is a no-op so the score moves at most once per direction.
func (s *GameServer) judgeAnswer(c *registry.Client, g *models.Game, st *models.MusicQuizState, playerID string, accept bool) {
	if !g.IsHost(c.User) {
		c.WriteError("mq:error", "not_authorized")
		return
	}
	if playerID == "" {
		return
	}
	answer := st.FindAnswer(playerID)
	if answer == nil {
		return
	}

	if accept {
		if answer.State == models.AnswerCorrect {
			return
		}
		answer.State = models.AnswerCorrect
		if entry := st.Scoreboard.Find(playerID); entry != nil {
			entry.Score++
		}
	} else {
		if answer.State == models.AnswerIncorrect {
			return
		}
		answer.State = models.AnswerIncorrect
		if entry := st.Scoreboard.Find(playerID); entry != nil {
			entry.Score--
		}
	}

	s.broadcastToGame(g, message("mq:update_answers", map[string]interface{}{"answers": st.Answers}))
	s.broadcastToGame(g, message("mq:update_scoreboard", map[string]interface{}{"Scoreboard": st.Scoreboard}))
}
