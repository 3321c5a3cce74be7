package cover

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"BerryBox/logger"
	"BerryBox/repository"
)

const (
	// maxContextCovers caps collection per context.
	maxContextCovers = 4
	// maxTriedURLs bounds the tried-URL set so it cannot grow forever.
	maxTriedURLs = 500
	// hashLen is the md5 prefix embedded in filenames.
	hashLen = 8
	// coverSize is the stored edge length in pixels.
	coverSize = 410
	// tempPrefix marks covers for unsaved contexts; cleaned up at startup.
	tempPrefix = "temp_"
)

// hashFromName extracts the 8-char hash from filenames like
// "1767089701460-6aa1f146.png" or "1767089701460-6aa1f146_composite.png".
var hashFromName = regexp.MustCompile(`-([0-9a-f]{8})(_composite)?\.(png|jpg)$`)

// Collector content-addresses downloaded artwork. A global hash index
// prevents storing the same bytes twice across contexts; a per-context
// map caps collection at four covers for composite assembly.
type Collector struct {
	imagesDir string
	repo      repository.CatalogRepository
	http      *http.Client

	mu         sync.Mutex
	global     map[string]string            // hash -> served path
	perContext map[string]map[string]string // context uri -> hash -> served path
	tried      map[string]bool              // context:url pairs already fetched
}

// NewCollector creates a collector storing images under imagesDir.
func NewCollector(imagesDir string, repo repository.CatalogRepository) *Collector {
	return &Collector{
		imagesDir:  imagesDir,
		repo:       repo,
		http:       &http.Client{Timeout: 10 * time.Second},
		global:     make(map[string]string),
		perContext: make(map[string]map[string]string),
		tried:      make(map[string]bool),
	}
}

// Reindex rebuilds the global hash index by parsing hashes embedded in
// existing filenames. Faster than re-hashing file contents at startup;
// a hash-substring collision costs at most one duplicate file.
func (c *Collector) Reindex() error {
	if err := os.MkdirAll(c.imagesDir, 0755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}

	entries, err := os.ReadDir(c.imagesDir)
	if err != nil {
		return fmt.Errorf("read images dir: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := hashFromName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		c.global[m[1]] = servedPath(entry.Name())
	}

	logger.Info("image index rebuilt", logger.Int("images", len(c.global)))
	return nil
}

// Collect fetches the current cover for a context and records it,
// deduplicating by content hash. Returns whether a new cover was added
// for the context.
func (c *Collector) Collect(contextURI, coverURL string) (bool, error) {
	if contextURI == "" || coverURL == "" {
		return false, nil
	}

	c.mu.Lock()
	covers := c.perContext[contextURI]
	if covers == nil {
		covers = make(map[string]string)
		c.perContext[contextURI] = covers
	}
	if len(covers) >= maxContextCovers {
		c.mu.Unlock()
		return false, nil
	}

	tryKey := contextURI + ":" + coverURL
	if c.tried[tryKey] {
		c.mu.Unlock()
		return false, nil
	}
	if len(c.tried) > maxTriedURLs {
		c.tried = make(map[string]bool)
	}
	c.tried[tryKey] = true
	c.mu.Unlock()

	data, err := c.download(coverURL)
	if err != nil {
		return false, err
	}
	hash := contentHash(data)

	c.mu.Lock()
	if _, ok := covers[hash]; ok {
		// Same album again in this context; nothing new.
		c.mu.Unlock()
		return false, nil
	}
	path, known := c.global[hash]
	c.mu.Unlock()

	if !known {
		path, err = c.store(hash, data, false)
		if err != nil {
			return false, err
		}
	}

	c.mu.Lock()
	covers[hash] = path
	collected := len(covers)
	c.mu.Unlock()

	logger.Info("cover collected",
		logger.String("context", contextURI),
		logger.Int("collected", collected))

	// Progressively attach to a saved playlist item, if any.
	if _, err := c.repo.AppendPlaylistCover(contextURI, path); err != nil {
		logger.Warn("failed to record playlist cover", logger.ErrorField(err))
	}

	if collected >= maxContextCovers {
		c.assembleComposite(contextURI)
	}
	return true, nil
}

// CollectedCovers returns the served paths collected for a context, in
// no particular order.
func (c *Collector) CollectedCovers(contextURI string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	covers := c.perContext[contextURI]
	out := make([]string, 0, len(covers))
	for _, path := range covers {
		out = append(out, path)
	}
	return out
}

// StoreRemote downloads an image, deduplicates it by content hash, and
// returns the served path. temp marks covers for unsaved contexts.
func (c *Collector) StoreRemote(imageURL string, temp bool) (string, error) {
	if !strings.HasPrefix(imageURL, "http") {
		return "", fmt.Errorf("not a remote image: %s", imageURL)
	}

	data, err := c.download(imageURL)
	if err != nil {
		return "", err
	}
	hash := contentHash(data)

	c.mu.Lock()
	path, known := c.global[hash]
	c.mu.Unlock()
	if known {
		return path, nil
	}

	return c.store(hash, data, temp)
}

// Promote renames a temp cover to permanent and returns the new served
// path. A non-temp path is returned unchanged.
func (c *Collector) Promote(served string) (string, error) {
	name := filepath.Base(served)
	if !strings.HasPrefix(name, tempPrefix) {
		return served, nil
	}

	m := hashFromName.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("no hash in temp cover name: %s", name)
	}
	hash := m[1]

	newName := fmt.Sprintf("%d-%s.png", time.Now().UnixMilli(), hash)
	if err := os.Rename(filepath.Join(c.imagesDir, name), filepath.Join(c.imagesDir, newName)); err != nil {
		return "", fmt.Errorf("promote cover: %w", err)
	}

	path := servedPath(newName)
	c.mu.Lock()
	c.global[hash] = path
	c.mu.Unlock()

	logger.Info("temp cover promoted", logger.String("path", path))
	return path, nil
}

// CleanupTemp removes leftover temp covers. Returns the count deleted.
func (c *Collector) CleanupTemp() int {
	entries, err := os.ReadDir(c.imagesDir)
	if err != nil {
		return 0
	}

	deleted := 0
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.imagesDir, entry.Name())); err != nil {
			continue
		}
		deleted++
		for hash, path := range c.global {
			if path == servedPath(entry.Name()) {
				delete(c.global, hash)
			}
		}
	}

	if deleted > 0 {
		logger.Info("temp covers cleaned up", logger.Int("deleted", deleted))
	}
	return deleted
}

// CleanupUnused deletes stored images no catalog item references.
func (c *Collector) CleanupUnused() int {
	used := make(map[string]bool)
	for _, item := range c.repo.Items() {
		if strings.HasPrefix(item.Image, "/images/") {
			used[filepath.Base(item.Image)] = true
		}
		for _, img := range item.Images {
			used[filepath.Base(img)] = true
		}
	}

	entries, err := os.ReadDir(c.imagesDir)
	if err != nil {
		return 0
	}

	deleted := 0
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || used[name] {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".png" && ext != ".jpg" {
			continue
		}
		if err := os.Remove(filepath.Join(c.imagesDir, name)); err != nil {
			continue
		}
		deleted++
		for hash, path := range c.global {
			if path == servedPath(name) {
				delete(c.global, hash)
			}
		}
	}

	if deleted > 0 {
		logger.Info("unused images cleaned up", logger.Int("deleted", deleted))
	}
	return deleted
}

// LocalPath maps a served path back to the on-disk file.
func (c *Collector) LocalPath(served string) string {
	return filepath.Join(c.imagesDir, filepath.Base(served))
}

func (c *Collector) download(url string) ([]byte, error) {
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download cover: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func contentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}

func servedPath(name string) string {
	return "/images/" + name
}
