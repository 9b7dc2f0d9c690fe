package models

// KaraokeRoundState is the per-round phase: recording uploads are accepted
// while pending, playback and voting happen while reviewing.
type KaraokeRoundState string

const (
	KaraokePending   KaraokeRoundState = "pending"
	KaraokeReviewing KaraokeRoundState = "reviewing"
)

// KaraokeFile references a mixed output stored under the karaoke upload dir.
type KaraokeFile struct {
	PlayerID string `json:"playerId"`
	File     string `json:"file"`
}

// PlayerSegment assigns one song segment to one player for the current song.
type PlayerSegment struct {
	PlayerID     string `json:"playerId"`
	SegmentIndex int    `json:"segmentId"`
}

// KaraokeCurrentSong is the song being performed plus the per-player segment
// assignment.
type KaraokeCurrentSong struct {
	Song           *KaraokeSong    `json:"Song"`
	PlayerSegments []PlayerSegment `json:"pSegments"`
}

// KaraokeVote records one player voting for another's performance.
type KaraokeVote struct {
	PlayerID      string `json:"playerId"`
	VotedPlayerID string `json:"votedPlayerId"`
}

// KaraokeState is the mode slice shared by solo and duet karaoke. Duet mode
// additionally concatenates all per-player outputs into FinalOutput.
type KaraokeState struct {
	Playlist         *KaraokePlaylist    `json:"Playlist"`
	Scoreboard       *Scoreboard         `json:"Scoreboard"`
	CurrentSong      *KaraokeCurrentSong `json:"currentSong"`
	CurrentSongIndex int                 `json:"currentSongIndex"`
	Inputs           []KaraokeFile       `json:"inputs"`
	Outputs          []KaraokeFile       `json:"outputs"`
	RoundState       KaraokeRoundState   `json:"state"`
	IsVoteOpen       bool                `json:"isVoteOpen"`
	Votes            []KaraokeVote       `json:"votes"`
	FinalOutput      string              `json:"finalOutput,omitempty"`

	Duet bool `json:"-"`
}

func (s *KaraokeState) Mode() GameMode {
	if s.Duet {
		return ModeKaraokeDuet
	}
	return ModeKaraokeSolo
}

func (s *KaraokeState) Redacted() ModeState { return s }
func (s *KaraokeState) Scores() *Scoreboard { return s.Scoreboard }

// SegmentIndexFor returns the segment assigned to playerID, defaulting to the
// first segment when no assignment exists.
func (s *KaraokeState) SegmentIndexFor(playerID string) int {
	if s.CurrentSong == nil {
		return 0
	}
	for _, ps := range s.CurrentSong.PlayerSegments {
		if ps.PlayerID == playerID {
			return ps.SegmentIndex
		}
	}
	return 0
}

// ResetRound clears all per-round state back to pending. The segment
// assignment and song index are untouched.
func (s *KaraokeState) ResetRound() {
	s.RoundState = KaraokePending
	s.IsVoteOpen = false
	s.Inputs = []KaraokeFile{}
	s.Outputs = []KaraokeFile{}
	s.Votes = []KaraokeVote{}
	s.FinalOutput = ""
}
