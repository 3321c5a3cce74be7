package player

import (
	"sync"
	"time"

	"BerryBox/core/daemon"
	"BerryBox/model"
)

// fakeStatus is a scripted StatusSource.
type fakeStatus struct {
	mu     sync.Mutex
	status *daemon.Status
}

func (f *fakeStatus) Status() (*daemon.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeStatus) set(s *daemon.Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

// stubRepo records repository calls without touching disk.
type stubRepo struct {
	mu       sync.Mutex
	records  map[string]*model.ResumeRecord
	cleared  []string
	saves    []savedProgress
	items    []*model.CatalogItem
	appended map[string][]string
}

type savedProgress struct {
	contextURI string
	trackURI   string
	position   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		records:  make(map[string]*model.ResumeRecord),
		appended: make(map[string][]string),
	}
}

func (s *stubRepo) Load() error                 { return nil }
func (s *stubRepo) Items() []*model.CatalogItem { return s.items }

func (s *stubRepo) ItemByURI(uri string) *model.CatalogItem {
	for _, item := range s.items {
		if item.URI == uri {
			return item
		}
	}
	return nil
}

func (s *stubRepo) ItemByID(id string) *model.CatalogItem { return nil }

func (s *stubRepo) SaveItem(req *model.SaveItemRequest, localImage string) (*model.CatalogItem, error) {
	return nil, nil
}

func (s *stubRepo) DeleteItem(id string) (*model.CatalogItem, error) { return nil, nil }

func (s *stubRepo) SaveProgress(contextURI, trackURI string, positionMs int64, name, artist string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, savedProgress{contextURI, trackURI, positionMs})
	s.records[contextURI] = &model.ResumeRecord{
		URI:       trackURI,
		Name:      name,
		Artist:    artist,
		Position:  positionMs,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *stubRepo) Progress(contextURI string) *model.ResumeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[contextURI]
	if rec == nil {
		return nil
	}
	if time.Since(rec.UpdatedAt) > 24*time.Hour {
		delete(s.records, contextURI)
		return nil
	}
	return rec
}

func (s *stubRepo) ClearProgress(contextURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, contextURI)
	delete(s.records, contextURI)
	return nil
}

func (s *stubRepo) AppendPlaylistCover(contextURI, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended[contextURI] = append(s.appended[contextURI], path)
	return true, nil
}

func (s *stubRepo) SetItemImage(uri, image string) error { return nil }

func (s *stubRepo) clearedContexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cleared))
	copy(out, s.cleared)
	return out
}

func (s *stubRepo) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}
