package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/katro/partyhub/internal/models"
	"github.com/katro/partyhub/internal/registry"
)

type karaokePayload struct {
	GameID     string `json:"gameId"`
	FileURL    string `json:"fileUrl"`
	TargetUser string `json:"targetUser"`
	TargetID   string `json:"targetId"`
}

// handleKaraoke runs both karaoke modes; ns is "ks" or "kd" and doubles as
// the message prefix. The game mutex is held by the dispatcher; mixing runs
// off the message path and re-enters through withGame.
func (s *GameServer) handleKaraoke(c *registry.Client, g *models.Game, ns, msgType string, payload json.RawMessage) {
	st, ok := g.State.(*models.KaraokeState)
	if !ok {
		return
	}
	var p karaokePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
	}

	switch msgType {
	case ns + ":record_uploaded":
		s.handleRecordUploaded(c, g, st, ns, p.FileURL)

	case ns + ":start_round":
		if !g.IsHost(c.User) {
			c.Write(statusError(ns+":error", "Access Denied"))
			return
		}
		s.deafenPlayers(g.Lobby.PlayersSnapshot())
		st.ResetRound()
		s.broadcastToGame(g, message(ns+":round_started", map[string]interface{}{"game": g.Snapshot()}))

	case ns + ":request_playback":
		if !g.IsHost(c.User) {
			c.Write(statusError(ns+":error", "Access Denied"))
			return
		}
		s.broadcastToGame(g, message(ns+":force_playback", map[string]interface{}{"targetUser": p.TargetUser}))

	case ns + ":open_vote":
		if !g.IsHost(c.User) {
			c.Write(statusError(ns+":error", "Access Denied"))
			return
		}
		st.IsVoteOpen = true
		s.broadcastToGame(g, message(ns+":vote_opened", nil))

	case ns + ":vote":
		if c.User.ID == p.TargetID {
			c.Write(statusError(ns+":error", "You cant vote to yourself"))
			return
		}
		if old := findVote(st.Votes, c.User.ID); old != nil {
			if old.VotedPlayerID == p.TargetID {
				return
			}
			st.Votes = removeVote(st.Votes, c.User.ID)
		}
		st.Votes = append(st.Votes, models.KaraokeVote{PlayerID: c.User.ID, VotedPlayerID: p.TargetID})
		s.broadcastToGame(g, message(ns+":update_votes", map[string]interface{}{"votes": st.Votes}))

	case "kd:playFinal":
		if ns != "kd" {
			return
		}
		if !g.IsHost(c.User) {
			c.Write(statusError("kd:error", "Access Denied"))
			return
		}
		s.broadcastToGame(g, message("kd:playFinal_force", nil))

	case ns + ":next_song":
		if !g.IsHost(c.User) {
			return
		}
		s.handleNextKaraokeSong(c, g, st, ns)
	}
}

// handleRecordUploaded kicks off the per-player mix for an uploaded vocal
// track. The player recorded over their assigned segment, so undeafen them
// immediately; the mix result lands back in the game asynchronously.
func (s *GameServer) handleRecordUploaded(c *registry.Client, g *models.Game, st *models.KaraokeState, ns, vocal string) {
	if vocal == "" || st.CurrentSong == nil || st.CurrentSong.Song == nil {
		return
	}

	userID := c.User.ID
	go s.undeafenUser(userID)

	segIdx := st.SegmentIndexFor(userID)
	if segIdx < 0 || segIdx >= len(st.CurrentSong.Song.Segments) {
		s.log.Warnf("karaoke: player %s has segment %d out of range", userID, segIdx)
		return
	}
	backing := st.CurrentSong.Song.Segments[segIdx].FileURL
	output := fmt.Sprintf("%d-%s.mp3", time.Now().UnixMilli(), userID)

	gameID := g.ID

	go func() {
		if err := s.mixer.Mix(context.Background(), backing, vocal, output); err != nil {
			// Mix failures are logged and otherwise silent; the round stalls
			// until the player re-uploads.
			s.log.Errorf("karaoke: mix failed for player %s: %v", userID, err)
			return
		}
		s.withGame(gameID, func(g *models.Game) {
			st, ok := g.State.(*models.KaraokeState)
			if !ok {
				// The mode moved on while the mix ran; drop the result.
				return
			}
			st.Outputs = append(st.Outputs, models.KaraokeFile{PlayerID: userID, File: output})

			if len(st.Outputs) != len(g.Lobby.PlayersSnapshot()) {
				s.registry.SendToUser(userID, message(ns+":proccess_completed", nil))
				return
			}
			if st.Duet {
				files := make([]string, 0, len(st.Outputs))
				for _, o := range st.Outputs {
					files = append(files, o.File)
				}
				go s.finalizeDuet(gameID, files)
			}
			st.RoundState = models.KaraokeReviewing
			s.broadcastToGame(g, message(ns+":round_finished", map[string]interface{}{"game": g.Snapshot()}))
		})
	}()
}

// finalizeDuet concatenates every per-player mix into the song's final track
// and announces it once it is playable.
func (s *GameServer) finalizeDuet(gameID string, files []string) {
	output := fmt.Sprintf("%d-final.mp3", time.Now().UnixMilli())
	if err := s.mixer.Concat(context.Background(), files, output); err != nil {
		s.log.Errorf("karaoke: final mix failed for game %s: %v", gameID, err)
		return
	}
	s.withGame(gameID, func(g *models.Game) {
		st, ok := g.State.(*models.KaraokeState)
		if !ok {
			return
		}
		st.FinalOutput = output
		s.broadcastToGame(g, message("kd:playback_ready", map[string]interface{}{"file": output}))
	})
}

func (s *GameServer) handleNextKaraokeSong(c *registry.Client, g *models.Game, st *models.KaraokeState, ns string) {
	if st.Playlist == nil || st.Playlist.Songs == nil {
		return
	}
	if st.CurrentSongIndex >= len(st.Playlist.Songs)-1 {
		c.Write(message(ns+":no_more_song", nil))
		return
	}

	st.CurrentSongIndex++
	song := st.Playlist.Songs[st.CurrentSongIndex]
	st.CurrentSong.Song = song
	st.CurrentSong.PlayerSegments = assignSegments(g.Lobby.PlayersSnapshot(), song, st.Duet)
	st.ResetRound()
	s.broadcastToGame(g, message(ns+":update_gamedata", map[string]interface{}{"game": g.Snapshot()}))
}

// deafenPlayers mutes every player's voice channel for the recording phase.
// Fire and forget; voice failures never block the round.
func (s *GameServer) deafenPlayers(players []*models.User) {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		discordIDs, err := s.users.ListDiscordIDs(ctx, ids)
		if err != nil {
			s.log.Warnf("karaoke: discord id lookup failed: %v", err)
			return
		}
		s.voice.Deafen(ctx, discordIDs)
	}()
}

func (s *GameServer) undeafenUser(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	discordIDs, err := s.users.ListDiscordIDs(ctx, []string{userID})
	if err != nil {
		s.log.Warnf("karaoke: discord id lookup failed for %s: %v", userID, err)
		return
	}
	s.voice.Undeafen(ctx, discordIDs)
}

func findVote(votes []models.KaraokeVote, playerID string) *models.KaraokeVote {
	for i := range votes {
		if votes[i].PlayerID == playerID {
			return &votes[i]
		}
	}
	return nil
}

func removeVote(votes []models.KaraokeVote, playerID string) []models.KaraokeVote {
	kept := votes[:0]
	for _, v := range votes {
		if v.PlayerID != playerID {
			kept = append(kept, v)
		}
	}
	return kept
}
