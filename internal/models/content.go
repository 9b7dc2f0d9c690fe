package models

// Content rows fetched from the external content store. The store owns the
// CRUD side; this subsystem only reads.

// MusicTrack is one playable track in a music-quiz playlist.
type MusicTrack struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	FileURL string `json:"fileUrl"`
}

// KaraokePlaylist is a set of songs, each split into performable segments.
type KaraokePlaylist struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Songs []*KaraokeSong `json:"Songs"`
}

type KaraokeSong struct {
	ID         int64                 `json:"id"`
	Title      string                `json:"title"`
	PlaylistID int64                 `json:"playlistId"`
	Segments   []*KaraokeSongSegment `json:"Segments"`
}

// KaraokeSongSegment is a slice of a song assigned to one player to perform
// over, with its backing track and timed lyric rows.
type KaraokeSongSegment struct {
	ID      int64             `json:"id"`
	Index   int               `json:"index"`
	SongID  int64             `json:"songId"`
	FileURL string            `json:"fileUrl"`
	Rows    []*KaraokeLyricRow `json:"Rows"`
}

type KaraokeLyricRow struct {
	ID        int64   `json:"id"`
	Index     int     `json:"index"`
	Lyrics    string  `json:"lyrics"`
	Time      float64 `json:"time"`
	SegmentID int64   `json:"segmentId"`
}

// ImageItem is one entry of an image-vote playlist.
type ImageItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	FileURL string `json:"fileUrl"`
}
