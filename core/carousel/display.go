package carousel

import (
	"strings"
	"time"

	"BerryBox/model"
)

// DisplayItems builds the slide list from the saved catalog plus, when
// the playing context is not saved, a transient slide derived from the
// snapshot. The transient slide is display-only and never persisted.
func DisplayItems(catalog []*model.CatalogItem, np *model.NowPlaying) []*model.CatalogItem {
	items := make([]*model.CatalogItem, 0, len(catalog)+1)
	items = append(items, catalog...)

	temp := tempItem(catalog, np)
	if temp != nil {
		items = append(items, temp)
	}
	return items
}

// tempItem derives the "playing but not saved" slide, or nil when the
// current context is absent, stopped, or already in the catalog.
func tempItem(catalog []*model.CatalogItem, np *model.NowPlaying) *model.CatalogItem {
	if np == nil || np.Stopped || np.Context == nil || np.Context.URI == "" {
		return nil
	}
	for _, item := range catalog {
		if item.URI == np.Context.URI {
			return nil
		}
	}

	item := &model.CatalogItem{
		ID:      "temp-" + np.Context.URI,
		URI:     np.Context.URI,
		Type:    contextType(np.Context.URI),
		AddedAt: time.Now(),
		Temp:    true,
	}
	if np.Track != nil {
		item.Name = np.Track.Album
		item.Artist = np.Track.Artist
		item.Image = np.Track.AlbumCover
		item.CurrentTrack = &model.ResumeRecord{
			URI:      np.Track.URI,
			Name:     np.Track.Name,
			Artist:   np.Track.Artist,
			Position: np.Track.Position,
		}
		if item.IsPlaylist() || item.Name == "" {
			item.Name = np.Track.Name
		}
	}
	return item
}

func contextType(uri string) string {
	if strings.Contains(uri, "playlist") {
		return model.ItemTypePlaylist
	}
	return model.ItemTypeAlbum
}
