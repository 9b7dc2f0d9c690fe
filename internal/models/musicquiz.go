package models

// AnswerState marks the host's judgement of a quiz answer.
type AnswerState string

const (
	AnswerPending   AnswerState = "pending"
	AnswerCorrect   AnswerState = "correct"
	AnswerIncorrect AnswerState = "incorrect"
)

// QuizAnswer is one player's guess for the current track.
type QuizAnswer struct {
	PlayerID   string      `json:"playerId"`
	PlayerName string      `json:"playerName"`
	Answer     string      `json:"answer"`
	State      AnswerState `json:"state"`
}

// Replay counts how many times a player re-requested the current track.
type Replay struct {
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
}

// MusicQuizState is the music-quiz mode slice. The full track list is
// host-only content: broadcasts carry a redacted copy without it.
type MusicQuizState struct {
	CurrentTrackIndex int           `json:"currentTrackIndex"`
	CurrentTrack      *MusicTrack   `json:"currentTrack"`
	Tracks            []*MusicTrack `json:"tracks"`
	TrackLength       int           `json:"trackLength"`
	Scoreboard        *Scoreboard   `json:"Scoreboard"`
	Replays           []*Replay     `json:"replays"`
	Answers           []*QuizAnswer `json:"answers"`
}

func (s *MusicQuizState) Mode() GameMode { return ModeMusicQuiz }

// Redacted strips the track list and current track so host-authored content
// stays off players' devices until fetched on demand.
func (s *MusicQuizState) Redacted() ModeState {
	cp := *s
	cp.CurrentTrack = nil
	cp.Tracks = nil
	return &cp
}

func (s *MusicQuizState) Scores() *Scoreboard { return s.Scoreboard }

// FindAnswer returns the stored answer for playerID, or nil.
func (s *MusicQuizState) FindAnswer(playerID string) *QuizAnswer {
	for _, a := range s.Answers {
		if a.PlayerID == playerID {
			return a
		}
	}
	return nil
}

// FindReplay returns the replay counter for playerID, or nil.
func (s *MusicQuizState) FindReplay(playerID string) *Replay {
	for _, r := range s.Replays {
		if r.PlayerID == playerID {
			return r
		}
	}
	return nil
}
