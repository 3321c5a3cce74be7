package cover

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"BerryBox/logger"

	"github.com/disintegration/imaging"
)

// store decodes, squares and persists image bytes under a hash-derived
// filename, and records the hash in the global index.
func (c *Collector) store(hash string, data []byte, temp bool) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}
	img = imaging.Fill(img, coverSize, coverSize, imaging.Center, imaging.Lanczos)

	prefix := ""
	if temp {
		prefix = tempPrefix
	}
	name := fmt.Sprintf("%s%d-%s.png", prefix, time.Now().UnixMilli(), hash)

	if err := imaging.Save(img, filepath.Join(c.imagesDir, name)); err != nil {
		return "", fmt.Errorf("save cover: %w", err)
	}

	path := servedPath(name)
	c.mu.Lock()
	c.global[hash] = path
	c.mu.Unlock()

	logger.Info("cover stored", logger.String("path", path))
	return path, nil
}

// assembleComposite builds the 2x2 grid cover for a playlist once four
// distinct covers are collected, and sets it as the saved item's
// primary image. Contexts not saved as playlists are skipped.
func (c *Collector) assembleComposite(contextURI string) {
	item := c.repo.ItemByURI(contextURI)
	if item == nil || !item.IsPlaylist() {
		return
	}
	if strings.Contains(item.Image, "_composite") {
		return
	}

	c.mu.Lock()
	paths := make([]string, 0, maxContextCovers)
	for _, path := range c.perContext[contextURI] {
		paths = append(paths, path)
	}
	c.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	// Pad by repeating so short collections still fill the grid.
	distinct := len(paths)
	for len(paths) < maxContextCovers {
		paths = append(paths, paths[len(paths)%distinct])
	}

	half := coverSize / 2
	canvas := imaging.New(coverSize, coverSize, image.Transparent)
	positions := []image.Point{{0, 0}, {half, 0}, {0, half}, {half, half}}

	for i, path := range paths[:maxContextCovers] {
		tile, err := imaging.Open(c.LocalPath(path))
		if err != nil {
			logger.Debug("composite tile unreadable", logger.ErrorField(err))
			continue
		}
		tile = imaging.Fill(tile, half, half, imaging.Center, imaging.Lanczos)
		canvas = imaging.Paste(canvas, tile, positions[i])
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		logger.Warn("composite encode failed", logger.ErrorField(err))
		return
	}
	hash := contentHash(buf.Bytes())

	name := fmt.Sprintf("%d-%s_composite.png", time.Now().UnixMilli(), hash)
	if err := os.WriteFile(filepath.Join(c.imagesDir, name), buf.Bytes(), 0644); err != nil {
		logger.Warn("composite write failed", logger.ErrorField(err))
		return
	}

	path := servedPath(name)
	c.mu.Lock()
	c.global[hash] = path
	c.mu.Unlock()

	if err := c.repo.SetItemImage(contextURI, path); err != nil {
		logger.Warn("composite image update failed", logger.ErrorField(err))
		return
	}
	logger.Info("composite cover assembled",
		logger.String("context", contextURI),
		logger.String("path", path))
}
