package models

// Score is one player's running total on a scoreboard.
type Score struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// Scoreboard holds one Score per lobby player. Scores are signed; the host may
// decrement below zero.
type Scoreboard struct {
	Scores []*Score `json:"scores"`
}

// NewScoreboard seeds a scoreboard with score 0 for every player.
func NewScoreboard(players []*User) *Scoreboard {
	sb := &Scoreboard{Scores: make([]*Score, 0, len(players))}
	for _, p := range players {
		sb.Scores = append(sb.Scores, &Score{
			PlayerID:   p.ID,
			PlayerName: p.DisplayName(),
			Score:      0,
		})
	}
	return sb
}

// Find returns the entry for playerID, or nil if the player is unknown.
func (sb *Scoreboard) Find(playerID string) *Score {
	if sb == nil {
		return nil
	}
	for _, s := range sb.Scores {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}
