package model

import (
	"encoding/json"
	"fmt"
)

// EventType classifies a push event from the playback daemon.
type EventType string

const (
	EventWillPlay EventType = "will_play"
	EventPlaying  EventType = "playing"
	EventPaused   EventType = "paused"
	EventStopped  EventType = "stopped"
	EventMetadata EventType = "metadata"
)

// PlayerEvent is a normalized daemon push event.
type PlayerEvent struct {
	Type       EventType
	TrackURI   string
	ContextURI string
	PlayOrigin string
}

// Known reports whether the event type is one the aggregator handles.
func (e *PlayerEvent) Known() bool {
	switch e.Type {
	case EventWillPlay, EventPlaying, EventPaused, EventStopped, EventMetadata:
		return true
	}
	return false
}

// Significant reports whether the event should trigger a broadcast.
// will_play fires before success/failure is known and must not.
func (e *PlayerEvent) Significant() bool {
	return e.Known() && e.Type != EventWillPlay
}

// wireEvent is the daemon's wire shape.
type wireEvent struct {
	Type string `json:"type"`
	Data struct {
		URI        string `json:"uri"`
		ContextURI string `json:"context_uri"`
		PlayOrigin string `json:"play_origin"`
	} `json:"data"`
}

// ParsePlayerEvent decodes a raw daemon event. Unknown event types
// parse successfully but report Known() == false so callers can skip them;
// malformed payloads return an error.
func ParsePlayerEvent(raw []byte) (*PlayerEvent, error) {
	var we wireEvent
	if err := json.Unmarshal(raw, &we); err != nil {
		return nil, fmt.Errorf("malformed daemon event: %w", err)
	}
	if we.Type == "" {
		return nil, fmt.Errorf("daemon event missing type")
	}
	return &PlayerEvent{
		Type:       EventType(we.Type),
		TrackURI:   we.Data.URI,
		ContextURI: we.Data.ContextURI,
		PlayOrigin: we.Data.PlayOrigin,
	}, nil
}
