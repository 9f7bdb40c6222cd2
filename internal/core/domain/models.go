package domain

import "time"

// ContentRef identifies discoverable remote content. It is the video page
// URL and never changes once discovered.
type ContentRef = string

// Metadata carries what yt-dlp could tell us about a video. Extraction is
// best-effort; a zero Metadata is valid.
type Metadata struct {
	Duration float64  `json:"duration"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Artifact is a handle to a downloaded file. Exactly one container (ready
// cache or history) owns an artifact at a time; handing it over is a move.
type Artifact struct {
	Path         string
	SourceURL    ContentRef
	DownloadedAt time.Time
}

// PostRequest is what the browser session needs to publish a video.
type PostRequest struct {
	VideoPath string
	Comment   string
	Hashtags  []string
}
