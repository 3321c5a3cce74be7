package model

import "time"

// PlayerState is the aggregator's authoritative-but-cached view of the
// playback daemon. ContextURI is committed only by confirmed events;
// IntendedContextURI is the context a play request is trying to reach,
// kept separate so a failed attempt never corrupts the confirmed state.
type PlayerState struct {
	ContextURI         string
	IntendedContextURI string
	TrackURI           string
	PlayOrigin         string
	LastUpdate         time.Time
}

// TrackInfo describes the current track in a display-ready form.
type TrackInfo struct {
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	AlbumCover string `json:"albumCover"`
	Duration   int64  `json:"duration"`
	Position   int64  `json:"position"`
}

// ContextInfo identifies the queue the current track belongs to.
type ContextInfo struct {
	URI        string `json:"uri"`
	PlayOrigin string `json:"playOrigin,omitempty"`
}

// NowPlaying is the snapshot pushed to kiosk clients and returned by
// GET /api/now-playing.
type NowPlaying struct {
	Playing   bool         `json:"playing"`
	Paused    bool         `json:"paused"`
	Stopped   bool         `json:"stopped"`
	Buffering bool         `json:"buffering"`
	Track     *TrackInfo   `json:"track,omitempty"`
	Context   *ContextInfo `json:"context,omitempty"`
}

// Active reports whether there is a live playback session.
func (n *NowPlaying) Active() bool {
	return !n.Stopped
}
