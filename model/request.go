package model

// FailureReason classifies why a play request did not reach its target.
type FailureReason string

const (
	// ReasonUnavailable: the daemon rejected the content (not licensed,
	// geo-restricted, removed).
	ReasonUnavailable FailureReason = "unavailable"
	// ReasonNetworkError: transport-level failure issuing the request.
	ReasonNetworkError FailureReason = "network_error"
	// ReasonTimeout: the daemon accepted the request but never confirmed
	// playback within the confirmation window.
	ReasonTimeout FailureReason = "timeout"
	// ReasonRequestFailed: any other non-success daemon response.
	ReasonRequestFailed FailureReason = "request_failed"
)

// PlayRequest is the body of POST /api/play.
type PlayRequest struct {
	URI           string `json:"uri"`
	FromBeginning bool   `json:"fromBeginning,omitempty"`
}

// PlayResult is the typed outcome of a play request.
type PlayResult struct {
	Success      bool          `json:"success"`
	Context      string        `json:"context,omitempty"`
	Reason       FailureReason `json:"reason,omitempty"`
	Resumed      bool          `json:"resumed,omitempty"`
	ResumedTrack string        `json:"resumedTrack,omitempty"`
	Position     int64         `json:"position,omitempty"`
}

// SeekRequest is the body of POST /api/seek.
type SeekRequest struct {
	Position int64 `json:"position"`
}

// VolumeRequest is the body of POST /api/volume.
type VolumeRequest struct {
	Level int `json:"level"`
}

// SimpleResult is returned by pause/resume/next/prev/seek/volume.
type SimpleResult struct {
	Success bool `json:"success"`
}

// SaveItemRequest is the body of POST /api/catalog.
type SaveItemRequest struct {
	URI    string `json:"uri"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
	Image  string `json:"image,omitempty"`
}
