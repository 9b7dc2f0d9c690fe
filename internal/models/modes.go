package models

// QAAnswer is one player's answer to the current question. At most one per
// player per round; the first submission wins.
type QAAnswer struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Answer     string `json:"answer"`
}

// QAState is the question/answer mode slice. It shares the game-level
// scoreboard rather than reseeding its own.
type QAState struct {
	Question   *string     `json:"question"`
	Answers    []*QAAnswer `json:"answers"`
	Scoreboard *Scoreboard `json:"Scoreboard,omitempty"`
}

func (s *QAState) Mode() GameMode      { return ModeQA }
func (s *QAState) Redacted() ModeState { return s }
func (s *QAState) Scores() *Scoreboard { return s.Scoreboard }

// ClickEntry is one player's click counter.
type ClickEntry struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Count      int    `json:"count"`
}

// ClickerState is the button-clicker mode slice. The first counter to reach
// the threshold forces the game into the intermission mode.
type ClickerState struct {
	State      []*ClickEntry `json:"state"`
	Scoreboard *Scoreboard   `json:"scoreboard,omitempty"`
}

func (s *ClickerState) Mode() GameMode      { return ModeClicker }
func (s *ClickerState) Redacted() ModeState { return s }
func (s *ClickerState) Scores() *Scoreboard { return s.Scoreboard }

// Find returns the click entry for playerID, or nil.
func (s *ClickerState) Find(playerID string) *ClickEntry {
	for _, e := range s.State {
		if e.PlayerID == playerID {
			return e
		}
	}
	return nil
}
