// Package content defines the narrow read interface onto the external
// content store (playlists, tracks, images, karaoke songs). The CRUD side of
// that store is owned elsewhere; the session layer only fetches.
package content

import (
	"context"

	"github.com/katro/partyhub/internal/models"
)

// Store fetches playlist content at mode-start time.
type Store interface {
	// FetchTrackList returns the tracks of a music-quiz playlist.
	FetchTrackList(ctx context.Context, playlistID string) ([]*models.MusicTrack, error)
	// FetchTrack returns one track's full metadata.
	FetchTrack(ctx context.Context, trackID int64) (*models.MusicTrack, error)
	// FetchKaraokePlaylist returns a playlist with its songs, segments and
	// lyric rows, rows ordered by index.
	FetchKaraokePlaylist(ctx context.Context, playlistID string) (*models.KaraokePlaylist, error)
	// FetchImagePlaylist returns the items of an image-vote playlist.
	FetchImagePlaylist(ctx context.Context, playlistID string) ([]*models.ImageItem, error)
}
