package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BerryBox/model"
)

func writeCatalogDoc(t *testing.T, path string, items []*model.CatalogItem) {
	t.Helper()
	data, err := json.Marshal(catalogDocument{Items: items})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	repo := NewFileCatalogRepository(path, 24*time.Hour)
	if err := repo.Load(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(repo, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	// The admin backend rewrites the document out from under us.
	writeCatalogDoc(t, path, []*model.CatalogItem{
		{ID: "1", URI: "spotify:album:aaa", Type: model.ItemTypeAlbum, Name: "Album"},
	})

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("external write never triggered a reload")
	}
	if repo.ItemByURI("spotify:album:aaa") == nil {
		t.Fatal("reload did not pick up the external item")
	}
}

func TestWatcherIgnoresOwnSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	repo := NewFileCatalogRepository(path, 24*time.Hour)
	if err := repo.Load(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(repo, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	saveTestItem(t, repo, "spotify:album:bbb", model.ItemTypeAlbum)

	select {
	case <-reloaded:
		t.Fatal("repository's own save triggered a reload")
	case <-time.After(debounceWindow + 400*time.Millisecond):
	}
}
