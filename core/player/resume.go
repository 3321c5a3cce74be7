package player

import (
	"sync"
	"time"

	"BerryBox/logger"
	"BerryBox/repository"
)

// Saver periodically persists playback progress for the active context
// so a later play request can resume where listening left off.
//
// Writes are suppressed while the track and position have barely moved:
// a paused player would otherwise rewrite the same record every tick.
type Saver struct {
	agg      *Aggregator
	repo     repository.CatalogRepository
	interval time.Duration
	minDelta int64

	mu           sync.Mutex
	lastTrackURI string
	lastPosition int64

	done chan struct{}
	once sync.Once
}

// NewSaver creates the progress saver. minDelta is the minimum position
// movement in milliseconds that makes a periodic save worthwhile.
func NewSaver(agg *Aggregator, repo repository.CatalogRepository, interval time.Duration, minDelta int64) *Saver {
	return &Saver{
		agg:      agg,
		repo:     repo,
		interval: interval,
		minDelta: minDelta,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic save loop.
func (s *Saver) Start() {
	go s.run()
}

// Stop halts the loop after flushing a final save.
func (s *Saver) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Saver) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.save(false)
		case <-s.done:
			s.save(true)
			return
		}
	}
}

// SaveNow persists progress immediately, bypassing the delta guard.
// Used on pause and just before switching away from a context.
func (s *Saver) SaveNow() {
	s.save(true)
}

func (s *Saver) save(force bool) {
	np := s.agg.Snapshot()
	if np == nil || np.Track == nil || np.Context == nil {
		return
	}
	if np.Stopped {
		return
	}

	contextURI := s.agg.ContextURI()
	if contextURI == "" || contextURI != np.Context.URI {
		// An intent is in flight; the position belongs to whatever is
		// still winding down, not to the context on screen.
		return
	}

	track := np.Track
	s.mu.Lock()
	changed := track.URI != s.lastTrackURI
	delta := track.Position - s.lastPosition
	if delta < 0 {
		delta = -delta
	}
	if !force && !changed && delta < s.minDelta {
		s.mu.Unlock()
		return
	}
	s.lastTrackURI = track.URI
	s.lastPosition = track.Position
	s.mu.Unlock()

	if err := s.repo.SaveProgress(contextURI, track.URI, track.Position, track.Name, track.Artist); err != nil {
		logger.Warn("progress save failed",
			logger.String("context", contextURI),
			logger.ErrorField(err))
	}
}
