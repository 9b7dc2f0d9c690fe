package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katro/partyhub/internal/models"
)

func sopGame(f *fixture, host *models.User, players ...*models.User) *models.Game {
	all := append([]*models.User{host}, players...)
	order := make([]string, 0, len(all))
	for _, p := range all {
		order = append(order, p.ID)
	}
	g := f.startedGame("g1", host, all, models.ModeImageVote, nil)
	g.State = &models.ImageVoteState{
		Order:       order,
		Submissions: []*models.ImageSubmission{},
		Scoreboard:  models.NewScoreboard(all),
	}
	return g
}

func TestImageVoteSubmitOnlyOnTurn(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopGame(f, host, bob) // order: 1, 2
	st := g.State.(*models.ImageVoteState)

	bc := f.gameClient(bob)
	f.sendGame(bc, "sop:submit", map[string]interface{}{
		"gameId": "g1", "title": "mine", "fileUrl": "img/b.png",
	})
	noMessage(t, bc)
	assert.Empty(t, st.Submissions)

	hc := f.gameClient(host)
	f.sendGame(hc, "sop:submit", map[string]interface{}{
		"gameId": "g1", "title": "sunset", "fileUrl": "img/a.png",
	})
	recvType(t, hc, "sop:update_submissions")
	require.Len(t, st.Submissions, 1)

	// Resubmitting replaces rather than appends.
	f.sendGame(hc, "sop:submit", map[string]interface{}{
		"gameId": "g1", "title": "sunrise", "fileUrl": "img/a2.png",
	})
	recvType(t, hc, "sop:update_submissions")
	require.Len(t, st.Submissions, 1)
	assert.Equal(t, "sunrise", st.Submissions[0].Title)
}

func TestImageVoteNeedsOpenVoting(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopGame(f, host, bob)
	st := g.State.(*models.ImageVoteState)
	st.Submissions = []*models.ImageSubmission{{PlayerID: "1", Title: "t", FileURL: "u", Votes: []models.ImageVoteEntry{}}}

	bc := f.gameClient(bob)
	f.sendGame(bc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": 1})
	noMessage(t, bc)
	assert.Empty(t, st.Submissions[0].Votes)
}

func TestImageVoteRules(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopGame(f, host, bob)
	st := g.State.(*models.ImageVoteState)
	st.IsVotingOpen = true
	st.Submissions = []*models.ImageSubmission{{PlayerID: "1", Title: "t", FileURL: "u", Votes: []models.ImageVoteEntry{}}}

	bc := f.gameClient(bob)

	// Out-of-range values are dropped.
	f.sendGame(bc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": 5})
	noMessage(t, bc)

	// Voting on your own submission is dropped.
	hc := f.gameClient(host)
	f.sendGame(hc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": 1})
	noMessage(t, hc)

	f.sendGame(bc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": 1})
	recvType(t, bc, "sop:update_votes")
	require.Len(t, st.Submissions[0].Votes, 1)

	// Same vote again is a no-op; the opposite vote replaces it.
	f.sendGame(bc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": 1})
	noMessage(t, bc)
	f.sendGame(bc, "sop:vote", map[string]interface{}{"gameId": "g1", "targetId": "1", "value": -1})
	recvType(t, bc, "sop:update_votes")
	require.Len(t, st.Submissions[0].Votes, 1)
	assert.Equal(t, -1, st.Submissions[0].Votes[0].Value)
}

func TestImageVoteNextRotates(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopGame(f, host, bob)
	st := g.State.(*models.ImageVoteState)
	st.IsVotingOpen = true
	st.Submissions = []*models.ImageSubmission{
		{PlayerID: "1", Title: "t", FileURL: "u", Votes: []models.ImageVoteEntry{}},
		{PlayerID: "2", Title: "t2", FileURL: "u2", Votes: []models.ImageVoteEntry{}},
	}

	hc := f.gameClient(host)
	f.sendGame(hc, "sop:next", map[string]interface{}{"gameId": "g1"})

	recvType(t, hc, "sop:update_submissions")
	m := recvType(t, hc, "sop:round_changed")
	assert.Equal(t, float64(1), payloadOf(m)["currentIndex"])
	assert.False(t, st.IsVotingOpen)
	// The finished player's submission is gone; the next player's stays.
	require.Len(t, st.Submissions, 1)
	assert.Equal(t, "2", st.Submissions[0].PlayerID)

	// Advancing past the last player wraps around.
	f.sendGame(hc, "sop:next", map[string]interface{}{"gameId": "g1"})
	recvType(t, hc, "sop:update_submissions")
	m = recvType(t, hc, "sop:round_changed")
	assert.Equal(t, float64(0), payloadOf(m)["currentIndex"])
}

func TestImageVoteStartResets(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopGame(f, host, bob)
	st := g.State.(*models.ImageVoteState)
	st.CurrentIndex = 1
	st.IsVotingOpen = true
	st.Submissions = []*models.ImageSubmission{{PlayerID: "1"}}

	hc := f.gameClient(host)
	f.sendGame(hc, "sop:start", map[string]interface{}{"gameId": "g1"})

	m := recvType(t, hc, "sop:started")
	assert.Equal(t, "g1", payloadOf(m)["gameId"])
	assert.Equal(t, 0, st.CurrentIndex)
	assert.False(t, st.IsVotingOpen)
	assert.Empty(t, st.Submissions)
}

func sopplGame(f *fixture, host *models.User, players ...*models.User) *models.Game {
	all := append([]*models.User{host}, players...)
	g := f.startedGame("g1", host, all, models.ModeImageVotePlaylist, nil)
	g.State = &models.ImageVotePlaylistState{
		Items: []*models.ImageItem{
			{ID: "i1", Title: "one", FileURL: "img/1.png"},
			{ID: "i2", Title: "two", FileURL: "img/2.png"},
		},
		CurrentVotes: []models.ImageVoteEntry{},
		Scoreboard:   models.NewScoreboard(all),
	}
	return g
}

func TestImageVotePlaylistNextWraps(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopplGame(f, host, bob)
	st := g.State.(*models.ImageVotePlaylistState)
	st.CurrentVotes = []models.ImageVoteEntry{{VoterID: "2", Value: 1}}

	hc := f.gameClient(host)
	f.sendGame(hc, "soppl:next", map[string]interface{}{"gameId": "g1"})

	m := recvType(t, hc, "soppl:changed")
	assert.Equal(t, float64(1), payloadOf(m)["currentIndex"])
	assert.Empty(t, st.CurrentVotes)

	f.sendGame(hc, "soppl:next", map[string]interface{}{"gameId": "g1"})
	m = recvType(t, hc, "soppl:changed")
	assert.Equal(t, float64(0), payloadOf(m)["currentIndex"])
}

func TestImageVotePlaylistPickerRestriction(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopplGame(f, host, bob)
	st := g.State.(*models.ImageVotePlaylistState)
	st.PickerID = "2"

	hc := f.gameClient(host)
	bc := f.gameClient(bob)

	// While a picker is set, only their vote lands.
	f.sendGame(hc, "soppl:vote", map[string]interface{}{"gameId": "g1", "value": 1})
	noMessage(t, hc)
	assert.Empty(t, st.CurrentVotes)

	f.sendGame(bc, "soppl:vote", map[string]interface{}{"gameId": "g1", "value": 1})
	recvType(t, bc, "soppl:update_votes")
	require.Len(t, st.CurrentVotes, 1)

	// Same value is a no-op, the opposite replaces.
	f.sendGame(bc, "soppl:vote", map[string]interface{}{"gameId": "g1", "value": 1})
	noMessage(t, bc)
	f.sendGame(bc, "soppl:vote", map[string]interface{}{"gameId": "g1", "value": -1})
	recvType(t, bc, "soppl:update_votes")
	require.Len(t, st.CurrentVotes, 1)
	assert.Equal(t, -1, st.CurrentVotes[0].Value)
}

func TestImageVotePlaylistSetPlaylist(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	bob := testUser("2", "bob", false)
	g := sopplGame(f, host, bob)
	st := g.State.(*models.ImageVotePlaylistState)
	st.CurrentIndex = 1
	f.content.items = []*models.ImageItem{{ID: "n1", Title: "new", FileURL: "img/n.png"}}

	hc := f.gameClient(host)
	f.sendGame(hc, "soppl:set_playlist", map[string]interface{}{"gameId": "g1", "playlistId": "pl-7"})

	m := recvType(t, hc, "soppl:playlist_set")
	assert.Equal(t, "pl-7", payloadOf(m)["playlistId"])
	assert.Equal(t, "pl-7", st.PlaylistID)
	assert.Equal(t, 0, st.CurrentIndex)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "n1", st.Items[0].ID)

	// Non-hosts cannot swap the playlist.
	bc := f.gameClient(bob)
	f.sendGame(bc, "soppl:set_playlist", map[string]interface{}{"gameId": "g1", "playlistId": "pl-9"})
	noMessage(t, bc)
	assert.Equal(t, "pl-7", st.PlaylistID)
}

func TestImageVotePlaylistSetPlaylistFetchError(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	g := sopplGame(f, host)
	st := g.State.(*models.ImageVotePlaylistState)
	f.content.err = assert.AnError

	hc := f.gameClient(host)
	f.sendGame(hc, "soppl:set_playlist", map[string]interface{}{"gameId": "g1", "playlistId": "pl-7"})

	m := recvType(t, hc, "soppl:error")
	assert.Equal(t, "smash_or_pass_playlist_not_found", m["message"])
	assert.Empty(t, st.PlaylistID)
	require.Len(t, st.Items, 2)
}

func TestImageVotePlaylistStart(t *testing.T) {
	f := newFixture(t)
	host := testUser("1", "alice", true)
	g := sopplGame(f, host)
	st := g.State.(*models.ImageVotePlaylistState)
	st.CurrentIndex = 1
	st.PickerID = "1"

	hc := f.gameClient(host)
	f.sendGame(hc, "soppl:start", map[string]interface{}{"gameId": "g1"})

	m := recvType(t, hc, "soppl:started")
	assert.Equal(t, "g1", payloadOf(m)["gameId"])
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Empty(t, st.PickerID)
}
