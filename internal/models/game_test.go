package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreboardFind(t *testing.T) {
	sb := NewScoreboard([]*User{{ID: "1", Username: "alice"}, {ID: "2", Username: "bob"}})
	require.Len(t, sb.Scores, 2)
	assert.Equal(t, 0, sb.Scores[0].Score)

	s := sb.Find("2")
	require.NotNil(t, s)
	assert.Equal(t, "bob", s.PlayerName)
	assert.Nil(t, sb.Find("3"))

	var nilBoard *Scoreboard
	assert.Nil(t, nilBoard.Find("1"))
}

func TestGameCurrentScoresPrefersModeBoard(t *testing.T) {
	players := []*User{{ID: "1"}}
	g := &Game{Scoreboard: NewScoreboard(players)}
	assert.Same(t, g.Scoreboard, g.CurrentScores())

	modeBoard := NewScoreboard(players)
	g.State = &MusicQuizState{Scoreboard: modeBoard}
	assert.Same(t, modeBoard, g.CurrentScores())

	// Modes without their own board fall back to the game-level one.
	g.State = &ClickerState{}
	assert.Same(t, g.Scoreboard, g.CurrentScores())
}

func TestGameSnapshotRedactsMusicQuiz(t *testing.T) {
	g := &Game{
		ID:   "g1",
		Mode: ModeMusicQuiz,
		State: &MusicQuizState{
			CurrentTrack: &MusicTrack{ID: 1},
			Tracks:       []*MusicTrack{{ID: 1}, {ID: 2}},
			TrackLength:  2,
		},
	}
	snap := g.Snapshot()
	st, ok := snap.State.(*MusicQuizState)
	require.True(t, ok)
	assert.Nil(t, st.CurrentTrack)
	assert.Nil(t, st.Tracks)
	assert.Equal(t, 2, st.TrackLength)

	// The original is untouched.
	orig := g.State.(*MusicQuizState)
	assert.NotNil(t, orig.CurrentTrack)
	assert.Len(t, orig.Tracks, 2)
}

func TestGameIsHost(t *testing.T) {
	host := &User{ID: "1"}
	g := &Game{Lobby: &Lobby{Host: host}}
	assert.True(t, g.IsHost(&User{ID: "1"}))
	assert.False(t, g.IsHost(&User{ID: "2"}))
	assert.False(t, g.IsHost(nil))
	assert.False(t, (&Game{}).IsHost(host))
}

func TestKaraokeSegmentIndexFor(t *testing.T) {
	st := &KaraokeState{}
	assert.Equal(t, 0, st.SegmentIndexFor("1"))

	st.CurrentSong = &KaraokeCurrentSong{PlayerSegments: []PlayerSegment{
		{PlayerID: "1", SegmentIndex: 1},
		{PlayerID: "2", SegmentIndex: 0},
	}}
	assert.Equal(t, 1, st.SegmentIndexFor("1"))
	assert.Equal(t, 0, st.SegmentIndexFor("2"))
	assert.Equal(t, 0, st.SegmentIndexFor("unknown"))
}

func TestKaraokeResetRound(t *testing.T) {
	st := &KaraokeState{
		CurrentSongIndex: 1,
		CurrentSong:      &KaraokeCurrentSong{},
		RoundState:       KaraokeReviewing,
		IsVoteOpen:       true,
		Outputs:          []KaraokeFile{{PlayerID: "1", File: "a.mp3"}},
		Votes:            []KaraokeVote{{PlayerID: "1", VotedPlayerID: "2"}},
		FinalOutput:      "final.mp3",
	}
	st.ResetRound()
	assert.Equal(t, KaraokePending, st.RoundState)
	assert.False(t, st.IsVoteOpen)
	assert.Empty(t, st.Outputs)
	assert.Empty(t, st.Votes)
	assert.Empty(t, st.FinalOutput)
	// Song position and assignment survive the reset.
	assert.Equal(t, 1, st.CurrentSongIndex)
	assert.NotNil(t, st.CurrentSong)
}

func TestKaraokeModeTag(t *testing.T) {
	assert.Equal(t, ModeKaraokeSolo, (&KaraokeState{}).Mode())
	assert.Equal(t, ModeKaraokeDuet, (&KaraokeState{Duet: true}).Mode())
}
