package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"BerryBox/logger"
	"BerryBox/model"

	"github.com/google/uuid"
)

// ErrDuplicateURI is returned when saving an item whose URI is already
// in the catalog.
var ErrDuplicateURI = errors.New("item already in catalog")

// ErrItemNotFound is returned when an id or uri resolves to nothing.
var ErrItemNotFound = errors.New("catalog item not found")

// maxPlaylistCovers caps the collected covers per playlist item.
const maxPlaylistCovers = 4

// CatalogRepository defines catalog and resume-record operations.
type CatalogRepository interface {
	// Load reads the catalog document from disk into the cache.
	Load() error

	// Items returns the catalog items in document order. Implementations
	// return copies; callers may hold them without further locking.
	Items() []*model.CatalogItem

	// ItemByURI returns a copy of the item with the given context URI,
	// or nil.
	ItemByURI(uri string) *model.CatalogItem

	// ItemByID returns a copy of the item with the given id, or nil.
	ItemByID(id string) *model.CatalogItem

	// SaveItem appends a new catalog item. The URI must be unique.
	SaveItem(req *model.SaveItemRequest, localImage string) (*model.CatalogItem, error)

	// DeleteItem removes an item by id. The embedded resume record goes
	// with it.
	DeleteItem(id string) (*model.CatalogItem, error)

	// SaveProgress writes a resume record into the matching item.
	// No-op when contextURI or trackURI is empty, or the context is not
	// in the catalog.
	SaveProgress(contextURI, trackURI string, positionMs int64, name, artist string) error

	// Progress returns the saved resume record for a context if it is
	// within the staleness window. A stale record is deleted as a side
	// effect of the read that discovers it.
	Progress(contextURI string) *model.ResumeRecord

	// ClearProgress drops the resume record for a context.
	ClearProgress(contextURI string) error

	// AppendPlaylistCover appends a collected cover path to a saved
	// playlist's images, up to the cap. Idempotent: an already-present
	// path is skipped. Returns whether the list changed.
	AppendPlaylistCover(contextURI, path string) (bool, error)

	// SetItemImage replaces an item's primary image.
	SetItemImage(uri, image string) error
}

// catalogDocument is the on-disk shape, shared with the admin backend.
type catalogDocument struct {
	Items []*model.CatalogItem `json:"items"`
}

// FileCatalogRepository is the JSON-document implementation.
type FileCatalogRepository struct {
	path   string
	expiry time.Duration

	mu        sync.RWMutex
	items     []*model.CatalogItem
	lastWrite atomic.Int64 // unix nanos of our own last document write
}

// NewFileCatalogRepository creates a repository backed by the catalog
// JSON document at path. expiry is the resume-record staleness window.
func NewFileCatalogRepository(path string, expiry time.Duration) *FileCatalogRepository {
	return &FileCatalogRepository{path: path, expiry: expiry}
}

// Load reads the catalog from disk. A missing file is an empty catalog,
// not an error; a corrupt file is logged and treated as empty rather
// than crashing the kiosk.
func (r *FileCatalogRepository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *FileCatalogRepository) loadLocked() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("catalog not found, starting empty", logger.String("path", r.path))
			r.items = nil
			return nil
		}
		return fmt.Errorf("read catalog: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Error("invalid catalog document, starting empty", logger.ErrorField(err))
		r.items = nil
		return nil
	}

	// Single tracks have no context to resume; only albums and
	// playlists belong on the carousel.
	items := doc.Items[:0]
	for _, item := range doc.Items {
		if item.Type == model.ItemTypeAlbum || item.Type == model.ItemTypePlaylist {
			items = append(items, item)
		}
	}
	r.items = items

	logger.Info("catalog loaded", logger.Int("items", len(r.items)))
	return nil
}

// saveLocked writes the document atomically: temp file then rename, so
// the admin backend never observes a half-written catalog.
func (r *FileCatalogRepository) saveLocked() error {
	doc := catalogDocument{Items: r.items}
	if doc.Items == nil {
		doc.Items = []*model.CatalogItem{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	r.lastWrite.Store(time.Now().UnixNano())
	return nil
}

// wroteWithin reports whether the repository itself replaced the
// document within d. The watcher uses it to tell its own saves apart
// from the admin backend's.
func (r *FileCatalogRepository) wroteWithin(d time.Duration) bool {
	nanos := r.lastWrite.Load()
	return nanos != 0 && time.Since(time.Unix(0, nanos)) < d
}

// Items returns copies of the cached catalog items. Copies, because the
// saver goroutine keeps rewriting resume records under the lock while
// handlers encode what they got back.
func (r *FileCatalogRepository) Items() []*model.CatalogItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.CatalogItem, len(r.items))
	for i, item := range r.items {
		out[i] = item.Clone()
	}
	return out
}

// ItemByURI returns a copy of the item whose context URI matches, or nil.
func (r *FileCatalogRepository) ItemByURI(uri string) *model.CatalogItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByURILocked(uri).Clone()
}

func (r *FileCatalogRepository) findByURILocked(uri string) *model.CatalogItem {
	for _, item := range r.items {
		if item.URI == uri {
			return item
		}
	}
	return nil
}

// ItemByID returns a copy of the item with the given id, or nil.
func (r *FileCatalogRepository) ItemByID(id string) *model.CatalogItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.ID == id {
			return item.Clone()
		}
	}
	return nil
}

// SaveItem appends a new catalog item with a generated id.
func (r *FileCatalogRepository) SaveItem(req *model.SaveItemRequest, localImage string) (*model.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByURILocked(req.URI) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateURI, req.URI)
	}

	itemType := req.Type
	if itemType != model.ItemTypePlaylist {
		itemType = model.ItemTypeAlbum
	}

	image := localImage
	if image == "" {
		image = req.Image
	}

	item := &model.CatalogItem{
		ID:      uuid.NewString(),
		URI:     req.URI,
		Type:    itemType,
		Name:    req.Name,
		Artist:  req.Artist,
		Image:   image,
		AddedAt: time.Now(),
	}
	r.items = append(r.items, item)

	if err := r.saveLocked(); err != nil {
		r.items = r.items[:len(r.items)-1]
		return nil, err
	}

	logger.Info("saved to catalog",
		logger.String("name", item.Name),
		logger.String("uri", item.URI))
	return item.Clone(), nil
}

// DeleteItem removes an item by id and returns the removed item.
func (r *FileCatalogRepository) DeleteItem(id string) (*model.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			if err := r.saveLocked(); err != nil {
				return nil, err
			}
			logger.Info("deleted from catalog", logger.String("name", item.Name))
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// SaveProgress writes a resume record into the matching catalog item.
func (r *FileCatalogRepository) SaveProgress(contextURI, trackURI string, positionMs int64, name, artist string) error {
	if contextURI == "" || trackURI == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.findByURILocked(contextURI)
	if item == nil {
		// Playing something not saved to the catalog; nothing to attach
		// the record to.
		logger.Debug("progress for unsaved context skipped", logger.String("context", contextURI))
		return nil
	}

	item.CurrentTrack = &model.ResumeRecord{
		URI:       trackURI,
		Name:      name,
		Artist:    artist,
		Position:  positionMs,
		UpdatedAt: time.Now(),
	}

	if err := r.saveLocked(); err != nil {
		return err
	}

	logger.Debug("progress saved",
		logger.String("track", name),
		logger.Int64("position_ms", positionMs))
	return nil
}

// Progress returns a fresh resume record or nil. Stale records are
// deleted on read: a multi-day-old position confuses more than starting
// over.
func (r *FileCatalogRepository) Progress(contextURI string) *model.ResumeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.findByURILocked(contextURI)
	if item == nil || item.CurrentTrack == nil {
		return nil
	}

	record := item.CurrentTrack
	if age := time.Since(record.UpdatedAt); age > r.expiry {
		logger.Debug("resume record expired",
			logger.String("context", contextURI),
			logger.Duration("age", age))
		item.CurrentTrack = nil
		if err := r.saveLocked(); err != nil {
			logger.Warn("failed to drop expired resume record", logger.ErrorField(err))
		}
		return nil
	}

	logger.Info("resume target found",
		logger.String("track", record.Name),
		logger.Int64("position_ms", record.Position))
	out := *record
	return &out
}

// ClearProgress drops the resume record for a context.
func (r *FileCatalogRepository) ClearProgress(contextURI string) error {
	if contextURI == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.findByURILocked(contextURI)
	if item == nil || item.CurrentTrack == nil {
		return nil
	}

	item.CurrentTrack = nil
	if err := r.saveLocked(); err != nil {
		return err
	}

	logger.Debug("progress cleared", logger.String("context", contextURI))
	return nil
}

// AppendPlaylistCover appends a collected cover path to a playlist item.
func (r *FileCatalogRepository) AppendPlaylistCover(contextURI, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.findByURILocked(contextURI)
	if item == nil || !item.IsPlaylist() {
		return false, nil
	}
	if len(item.Images) >= maxPlaylistCovers {
		return false, nil
	}
	for _, existing := range item.Images {
		if existing == path {
			return false, nil
		}
	}

	item.Images = append(item.Images, path)
	if err := r.saveLocked(); err != nil {
		item.Images = item.Images[:len(item.Images)-1]
		return false, err
	}

	logger.Info("playlist cover recorded",
		logger.String("context", contextURI),
		logger.Int("covers", len(item.Images)))
	return true, nil
}

// SetItemImage replaces an item's primary image.
func (r *FileCatalogRepository) SetItemImage(uri, image string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.findByURILocked(uri)
	if item == nil {
		return fmt.Errorf("%w: %s", ErrItemNotFound, uri)
	}

	item.Image = image
	return r.saveLocked()
}
