package models

// ImageVoteEntry is one up/down vote; Value is +1 or -1.
type ImageVoteEntry struct {
	VoterID string `json:"voterId"`
	Value   int    `json:"value"`
}

// ImageSubmission is one player's submitted image with its votes.
type ImageSubmission struct {
	PlayerID string           `json:"playerId"`
	Title    string           `json:"title"`
	FileURL  string           `json:"fileUrl"`
	Votes    []ImageVoteEntry `json:"votes"`
}

// ImageVoteState is the turn-based image voting mode: players submit in the
// shuffled Order and everyone else votes on the current submission.
type ImageVoteState struct {
	Order        []string           `json:"order"`
	CurrentIndex int                `json:"currentIndex"`
	Submissions  []*ImageSubmission `json:"submissions"`
	IsVotingOpen bool               `json:"isVotingOpen"`
	Scoreboard   *Scoreboard        `json:"Scoreboard"`
}

func (s *ImageVoteState) Mode() GameMode      { return ModeImageVote }
func (s *ImageVoteState) Redacted() ModeState { return s }
func (s *ImageVoteState) Scores() *Scoreboard { return s.Scoreboard }

// CurrentPlayerID returns the id of the player whose turn it is, or "".
func (s *ImageVoteState) CurrentPlayerID() string {
	if len(s.Order) == 0 || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Order) {
		return ""
	}
	return s.Order[s.CurrentIndex]
}

// FindSubmission returns the submission by playerID, or nil.
func (s *ImageVoteState) FindSubmission(playerID string) *ImageSubmission {
	for _, sub := range s.Submissions {
		if sub.PlayerID == playerID {
			return sub
		}
	}
	return nil
}

// ImageVotePlaylistState presents pre-authored playlist items instead of
// player submissions. When PickerID is set, only that player's vote counts.
type ImageVotePlaylistState struct {
	Items        []*ImageItem     `json:"items"`
	CurrentIndex int              `json:"currentIndex"`
	CurrentVotes []ImageVoteEntry `json:"currentVotes"`
	PickerID     string           `json:"pickerId,omitempty"`
	PlaylistID   string           `json:"playlistId,omitempty"`
	Scoreboard   *Scoreboard      `json:"Scoreboard"`
}

func (s *ImageVotePlaylistState) Mode() GameMode      { return ModeImageVotePlaylist }
func (s *ImageVotePlaylistState) Redacted() ModeState { return s }
func (s *ImageVotePlaylistState) Scores() *Scoreboard { return s.Scoreboard }
