package player

import (
	"strings"
	"sync"
	"time"

	"BerryBox/core/daemon"
	"BerryBox/logger"
	"BerryBox/model"
	"BerryBox/repository"
)

// StatusSource supplies the daemon's live playback status.
type StatusSource interface {
	Status() (*daemon.Status, error)
}

// CoverCollector records artwork for a playing context.
type CoverCollector interface {
	Collect(contextURI, coverURL string) (bool, error)
}

// Aggregator owns the single authoritative-but-cached PlayerState and
// applies daemon events to it under the transition rules. The state is
// an owned struct injected into handlers, never a package global.
//
// ContextURI is committed only by confirmed events (playing, or
// paused/stopped/metadata explicitly carrying a context). will_play
// fires before success or failure is known, so it never touches the
// context: a DRM or availability failure after an early commit would
// leave the wrong cover/track pairing on screen.
type Aggregator struct {
	status   StatusSource
	repo     repository.CatalogRepository
	confirms *ConfirmationRegistry
	covers   CoverCollector
	notify   func() // broadcast trigger, set by the hub
	onPause  func() // progress flush, set by the saver

	mu    sync.Mutex
	state model.PlayerState
}

// NewAggregator creates the aggregator.
func NewAggregator(status StatusSource, repo repository.CatalogRepository, confirms *ConfirmationRegistry) *Aggregator {
	return &Aggregator{
		status:   status,
		repo:     repo,
		confirms: confirms,
	}
}

// SetCoverCollector wires the cover collector for playlist contexts.
func (a *Aggregator) SetCoverCollector(c CoverCollector) {
	a.covers = c
}

// SetNotifier wires the broadcast trigger invoked after significant
// events. Event application always completes before the notifier runs.
func (a *Aggregator) SetNotifier(fn func()) {
	a.notify = fn
}

// SetPauseHook wires a progress flush invoked when the daemon reports a
// pause, so positions survive pauses made from other Connect clients.
func (a *Aggregator) SetPauseHook(fn func()) {
	a.onPause = fn
}

// Apply mutates the player state according to the event transition
// rules, then triggers a broadcast for significant events.
func (a *Aggregator) Apply(ev *model.PlayerEvent) {
	now := time.Now()

	a.mu.Lock()
	switch ev.Type {
	case model.EventWillPlay:
		// Speculative: only the origin and freshness move.
		if ev.PlayOrigin != "" {
			a.state.PlayOrigin = ev.PlayOrigin
		}
		a.state.LastUpdate = now

	case model.EventPlaying:
		if ev.ContextURI != "" {
			a.state.ContextURI = ev.ContextURI
		}
		if ev.TrackURI != "" {
			a.state.TrackURI = ev.TrackURI
		}
		if ev.PlayOrigin != "" {
			a.state.PlayOrigin = ev.PlayOrigin
		}
		if a.state.IntendedContextURI != "" && a.state.IntendedContextURI == ev.ContextURI {
			// Intent reached; the confirmed context takes over.
			a.state.IntendedContextURI = ""
		}
		a.state.LastUpdate = now

	case model.EventPaused, model.EventStopped:
		if ev.TrackURI != "" {
			a.state.TrackURI = ev.TrackURI
		}
		// Pause/stop must not implicitly change context.
		if ev.ContextURI != "" {
			a.state.ContextURI = ev.ContextURI
		}
		a.state.LastUpdate = now

	case model.EventMetadata:
		if ev.ContextURI != "" {
			a.state.ContextURI = ev.ContextURI
		}
		a.state.LastUpdate = now
	}

	var finishedContext string
	if ev.Type == model.EventStopped && a.state.IntendedContextURI != "" {
		// A stop while an intent is still in flight means the context
		// ran out on its own rather than a user switch; its resume
		// record would point at a finished session.
		finishedContext = a.state.IntendedContextURI
		a.state.IntendedContextURI = ""
	}
	committedContext := a.state.ContextURI
	a.mu.Unlock()

	if ev.Type == model.EventPlaying {
		a.confirms.Resolve(ev.ContextURI)
		if a.covers != nil && isPlaylistURI(committedContext) {
			go a.collectCover(committedContext)
		}
	}

	if ev.Type == model.EventPaused && a.onPause != nil {
		a.onPause()
	}

	if finishedContext != "" {
		logger.Info("context finished", logger.String("context", finishedContext))
		if err := a.repo.ClearProgress(finishedContext); err != nil {
			logger.Warn("failed to clear finished context progress", logger.ErrorField(err))
		}
	}

	if ev.Significant() && a.notify != nil {
		a.notify()
	}
}

// Snapshot returns the display-ready projection of the current state.
// The context URI prefers an in-flight intent over the last confirmed
// context so a kiosk that just requested context X shows X immediately.
// When the daemon is unreachable this fails soft with an empty stopped
// snapshot; the broadcast path depends on it never erroring.
func (a *Aggregator) Snapshot() *model.NowPlaying {
	status, err := a.status.Status()
	if err != nil {
		logger.Debug("snapshot status failed", logger.ErrorField(err))
		status = nil
	}

	a.mu.Lock()
	contextURI := a.state.IntendedContextURI
	if contextURI == "" {
		contextURI = a.state.ContextURI
	}
	playOrigin := a.state.PlayOrigin
	a.mu.Unlock()

	if status == nil {
		return &model.NowPlaying{Stopped: true}
	}

	np := &model.NowPlaying{
		Playing:   !status.Stopped && !status.Paused,
		Paused:    status.Paused,
		Stopped:   status.Stopped,
		Buffering: status.Buffering,
	}

	if status.Track != nil {
		np.Track = &model.TrackInfo{
			URI:        status.Track.URI,
			Name:       status.Track.Name,
			Artist:     strings.Join(status.Track.ArtistNames, ", "),
			Album:      status.Track.AlbumName,
			AlbumCover: status.Track.AlbumCoverURL,
			Duration:   status.Track.Duration,
			Position:   status.Track.Position,
		}
	}

	if contextURI == "" {
		contextURI = status.ContextURI
	}
	if playOrigin == "" {
		playOrigin = status.PlayOrigin
	}
	if contextURI != "" {
		np.Context = &model.ContextInfo{URI: contextURI, PlayOrigin: playOrigin}
	}

	return np
}

// ContextURI returns the last confirmed context.
func (a *Aggregator) ContextURI() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.ContextURI
}

// State returns a copy of the player state.
func (a *Aggregator) State() model.PlayerState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetIntended marks the context a play request is trying to reach.
func (a *Aggregator) SetIntended(contextURI string) {
	a.mu.Lock()
	a.state.IntendedContextURI = contextURI
	a.mu.Unlock()
}

// ClearIntended drops the intent, but only if it still matches: a
// failed request must not clobber a newer one's intent.
func (a *Aggregator) ClearIntended(contextURI string) {
	a.mu.Lock()
	if a.state.IntendedContextURI == contextURI {
		a.state.IntendedContextURI = ""
	}
	a.mu.Unlock()
}

// collectCover pulls the current track cover and hands it to the
// collector. Runs off the event path; collection is best effort.
func (a *Aggregator) collectCover(contextURI string) {
	status, err := a.status.Status()
	if err != nil || status == nil || status.Track == nil {
		return
	}
	if status.Track.AlbumCoverURL == "" {
		return
	}
	if _, err := a.covers.Collect(contextURI, status.Track.AlbumCoverURL); err != nil {
		logger.Debug("cover collection failed", logger.ErrorField(err))
	}
}

func isPlaylistURI(uri string) bool {
	return strings.Contains(uri, "playlist")
}
