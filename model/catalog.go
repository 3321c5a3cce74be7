package model

import "time"

const (
	ItemTypeAlbum    = "album"
	ItemTypePlaylist = "playlist"
)

// ResumeRecord is the persisted playback position for a catalog item,
// embedded in the item as currentTrack.
type ResumeRecord struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Position  int64     `json:"position"` // milliseconds into the track
	UpdatedAt time.Time `json:"updatedAt"`
}

// CatalogItem represents an album or playlist saved to the kiosk catalog.
// The URI is immutable and unique; it is the join key against daemon events.
type CatalogItem struct {
	ID           string        `json:"id"`
	URI          string        `json:"uri"`
	Type         string        `json:"type"`
	Name         string        `json:"name"`
	Artist       string        `json:"artist,omitempty"`
	Image        string        `json:"image,omitempty"`
	Images       []string      `json:"images,omitempty"` // collected playlist covers, max 4
	CurrentTrack *ResumeRecord `json:"currentTrack,omitempty"`
	AddedAt      time.Time     `json:"addedAt,omitempty"`

	// Temp marks a derived display item ("playing but not saved").
	// Never persisted; recomputed from the snapshot and catalog membership.
	Temp bool `json:"isTemp,omitempty"`
}

// IsPlaylist reports whether the item is a multi-track context.
func (i *CatalogItem) IsPlaylist() bool {
	return i.Type == ItemTypePlaylist
}

// Clone returns a deep copy safe to hand outside the repository lock.
func (i *CatalogItem) Clone() *CatalogItem {
	if i == nil {
		return nil
	}
	out := *i
	if i.Images != nil {
		out.Images = make([]string, len(i.Images))
		copy(out.Images, i.Images)
	}
	if i.CurrentTrack != nil {
		record := *i.CurrentTrack
		out.CurrentTrack = &record
	}
	return &out
}
