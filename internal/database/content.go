package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katro/partyhub/internal/models"
)

// ContentStore is the Postgres implementation of content.Store.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func parsePlaylistID(playlistID string) (int64, error) {
	id, err := strconv.ParseInt(playlistID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid playlist id %q: %w", playlistID, err)
	}
	return id, nil
}

// FetchTrackList returns the tracks of a music-quiz playlist.
func (s *ContentStore) FetchTrackList(ctx context.Context, playlistID string) ([]*models.MusicTrack, error) {
	id, err := parsePlaylistID(playlistID)
	if err != nil {
		return nil, err
	}

	q := `
		SELECT t.id, COALESCE(t.title, ''), t.file_url
		FROM music_quiz_playlist_tracks pt
		JOIN music_quiz_tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = $1
	`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("fetch track list %d: %w", id, err)
	}
	defer rows.Close()

	var tracks []*models.MusicTrack
	for rows.Next() {
		var t models.MusicTrack
		if err := rows.Scan(&t.ID, &t.Title, &t.FileURL); err != nil {
			return nil, err
		}
		tracks = append(tracks, &t)
	}
	return tracks, rows.Err()
}

// FetchTrack returns one track's full metadata.
func (s *ContentStore) FetchTrack(ctx context.Context, trackID int64) (*models.MusicTrack, error) {
	q := `
		SELECT id, COALESCE(title, ''), file_url
		FROM music_quiz_tracks
		WHERE id = $1
	`
	var t models.MusicTrack
	if err := s.pool.QueryRow(ctx, q, trackID).Scan(&t.ID, &t.Title, &t.FileURL); err != nil {
		return nil, fmt.Errorf("fetch track %d: %w", trackID, err)
	}
	return &t, nil
}

// FetchKaraokePlaylist assembles the playlist -> songs -> segments -> lyric
// rows tree, segments and rows ordered by index.
func (s *ContentStore) FetchKaraokePlaylist(ctx context.Context, playlistID string) (*models.KaraokePlaylist, error) {
	id, err := parsePlaylistID(playlistID)
	if err != nil {
		return nil, err
	}

	var pl models.KaraokePlaylist
	err = s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name, '') FROM karaoke_playlists WHERE id = $1`, id,
	).Scan(&pl.ID, &pl.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("karaoke playlist %d not found", id)
		}
		return nil, fmt.Errorf("fetch karaoke playlist %d: %w", id, err)
	}

	songRows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(title, ''), playlist_id FROM karaoke_songs WHERE playlist_id = $1 ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch karaoke songs %d: %w", id, err)
	}
	defer songRows.Close()

	songsByID := make(map[int64]*models.KaraokeSong)
	for songRows.Next() {
		var song models.KaraokeSong
		if err := songRows.Scan(&song.ID, &song.Title, &song.PlaylistID); err != nil {
			return nil, err
		}
		pl.Songs = append(pl.Songs, &song)
		songsByID[song.ID] = &song
	}
	if err := songRows.Err(); err != nil {
		return nil, err
	}

	segRows, err := s.pool.Query(ctx, `
		SELECT seg.id, seg.index, seg.song_id, seg.file_url
		FROM karaoke_song_segments seg
		JOIN karaoke_songs song ON song.id = seg.song_id
		WHERE song.playlist_id = $1
		ORDER BY seg.song_id, seg.index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch karaoke segments %d: %w", id, err)
	}
	defer segRows.Close()

	segmentsByID := make(map[int64]*models.KaraokeSongSegment)
	for segRows.Next() {
		var seg models.KaraokeSongSegment
		if err := segRows.Scan(&seg.ID, &seg.Index, &seg.SongID, &seg.FileURL); err != nil {
			return nil, err
		}
		if song, ok := songsByID[seg.SongID]; ok {
			song.Segments = append(song.Segments, &seg)
		}
		segmentsByID[seg.ID] = &seg
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	lyricRows, err := s.pool.Query(ctx, `
		SELECT lr.id, lr.index, COALESCE(lr.lyrics, ''), lr.time, lr.segment_id
		FROM karaoke_song_lyrics lr
		JOIN karaoke_song_segments seg ON seg.id = lr.segment_id
		JOIN karaoke_songs song ON song.id = seg.song_id
		WHERE song.playlist_id = $1
		ORDER BY lr.segment_id, lr.index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch karaoke lyrics %d: %w", id, err)
	}
	defer lyricRows.Close()

	for lyricRows.Next() {
		var row models.KaraokeLyricRow
		if err := lyricRows.Scan(&row.ID, &row.Index, &row.Lyrics, &row.Time, &row.SegmentID); err != nil {
			return nil, err
		}
		if seg, ok := segmentsByID[row.SegmentID]; ok {
			seg.Rows = append(seg.Rows, &row)
		}
	}
	return &pl, lyricRows.Err()
}

// FetchImagePlaylist returns the items of an image-vote playlist.
func (s *ContentStore) FetchImagePlaylist(ctx context.Context, playlistID string) ([]*models.ImageItem, error) {
	id, err := parsePlaylistID(playlistID)
	if err != nil {
		return nil, err
	}

	q := `
		SELECT i.id::text, COALESCE(i.title, ''), i.file_url
		FROM sop_playlist_items i
		WHERE i.playlist_id = $1
		ORDER BY i.id
	`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("fetch image playlist %d: %w", id, err)
	}
	defer rows.Close()

	var items []*models.ImageItem
	for rows.Next() {
		var it models.ImageItem
		if err := rows.Scan(&it.ID, &it.Title, &it.FileURL); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}
