package carousel

import (
	"sync"
	"time"

	"BerryBox/logger"
	"BerryBox/model"
)

// State is the reconciler's position in the settle/play cycle.
type State int

const (
	// StateIdle: nothing pending; authoritative syncs may reposition.
	StateIdle State = iota
	// StateSettling: a slide just centered, decision in progress.
	StateSettling
	// StatePendingPlay: the settle timer is armed for a candidate slide.
	StatePendingPlay
	// StateSyncing: a play request is on the wire.
	StateSyncing
)

// Backend is the slice of the server client the reconciler drives.
type Backend interface {
	Play(uri string, fromBeginning bool) (*model.PlayResult, error)
	Pause() error
	Resume() error
}

// View is the rendering layer's surface. Calls arrive on reconciler
// goroutines and must hand off to the UI loop themselves.
type View interface {
	// ScrollTo repositions the carousel onto the slide for uri.
	ScrollTo(uri string)
	// Notify shows a transient user-visible message.
	Notify(message string)
}

// Reconciler turns settle and tap gestures into playback requests while
// keeping the carousel aligned with the authoritative playing context.
//
// The settle timer is the defense against rapid multi-swipe: every new
// settle cancels the previous timer outright, so only the slide the
// user stays on for the full delay ever issues a request.
type Reconciler struct {
	backend      Backend
	view         View
	settleDelay  time.Duration
	syncCooldown time.Duration

	mu         sync.Mutex
	state      State
	pendingURI string
	timer      *time.Timer
	generation uint64
	inFlight   map[string]struct{}
	gesturing  bool
	lastFire   time.Time
	snapshot   *model.NowPlaying
}

// New creates the reconciler.
func New(backend Backend, view View, settleDelay, syncCooldown time.Duration) *Reconciler {
	return &Reconciler{
		backend:      backend,
		view:         view,
		settleDelay:  settleDelay,
		syncCooldown: syncCooldown,
		inFlight:     make(map[string]struct{}),
	}
}

// CurrentState returns the machine's current state.
func (r *Reconciler) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// BeginGesture marks the user as actively gesturing. While set, no
// authoritative sync may move the carousel.
func (r *Reconciler) BeginGesture() {
	r.mu.Lock()
	r.gesturing = true
	r.mu.Unlock()
}

// EndGesture clears the gesture guard. The rendering layer reports the
// resulting settle separately.
func (r *Reconciler) EndGesture() {
	r.mu.Lock()
	r.gesturing = false
	r.mu.Unlock()
}

// Settle reports that the slide for uri has centered. If the slide is
// already the authoritative context nothing happens; otherwise the settle
// timer is armed, cancelling any previous one.
func (r *Reconciler) Settle(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelTimerLocked()
	r.state = StateSettling

	if r.isPlayingContextLocked(uri) {
		// Already the authoritative context, playing or paused. A fresh
		// play would restart it and lose the pause position.
		r.state = StateIdle
		r.pendingURI = ""
		return
	}

	r.generation++
	gen := r.generation
	r.pendingURI = uri
	r.state = StatePendingPlay
	r.timer = time.AfterFunc(r.settleDelay, func() {
		r.fire(uri, gen)
	})
}

// Tap reports a tap on the slide for uri. centered marks the active
// slide, where a tap toggles play/pause instead of re-selecting.
func (r *Reconciler) Tap(uri string, centered bool) {
	if centered {
		r.mu.Lock()
		active := r.isPlayingContextLocked(uri)
		paused := r.snapshot != nil && r.snapshot.Paused
		r.mu.Unlock()

		if active {
			r.toggle(paused)
			return
		}
	}

	// A tap away from the active slide scrolls there and runs the same
	// settle rule as a swipe, never an immediate play.
	r.view.ScrollTo(uri)
	r.Settle(uri)
}

// ApplySnapshot feeds an authoritative snapshot into the reconciler.
// When safe (idle, no gesture, outside the post-fire cooldown) it
// repositions the carousel onto the playing context.
func (r *Reconciler) ApplySnapshot(np *model.NowPlaying) {
	r.mu.Lock()
	r.snapshot = np

	if r.gesturing || r.state != StateIdle {
		r.mu.Unlock()
		return
	}
	if time.Since(r.lastFire) < r.syncCooldown {
		// The echo of our own request would bounce the carousel.
		r.mu.Unlock()
		return
	}
	contextURI := ""
	if np != nil && np.Context != nil && !np.Stopped {
		contextURI = np.Context.URI
	}
	r.mu.Unlock()

	if contextURI != "" {
		r.view.ScrollTo(contextURI)
	}
}

// fire runs when the settle timer lapses. It re-checks everything that
// could have changed during the delay before spending a request.
func (r *Reconciler) fire(uri string, gen uint64) {
	r.mu.Lock()
	if gen != r.generation || r.pendingURI != uri {
		r.mu.Unlock()
		return
	}
	if r.isPlayingContextLocked(uri) {
		// External sync resolved it during the delay.
		r.state = StateIdle
		r.pendingURI = ""
		r.mu.Unlock()
		return
	}
	if _, busy := r.inFlight[uri]; busy {
		// The first request for this uri is still on the wire; its
		// answer covers this settle too.
		r.state = StateIdle
		r.pendingURI = ""
		r.mu.Unlock()
		return
	}
	r.inFlight[uri] = struct{}{}
	r.state = StateSyncing
	r.lastFire = time.Now()
	r.mu.Unlock()

	go r.request(uri, gen)
}

func (r *Reconciler) request(uri string, gen uint64) {
	result, err := r.backend.Play(uri, false)

	r.mu.Lock()
	delete(r.inFlight, uri)
	stale := gen != r.generation
	if !stale {
		r.state = StateIdle
		r.pendingURI = ""
		r.lastFire = time.Now()
	}
	rollbackURI := ""
	failed := err != nil || (result != nil && !result.Success)
	if !stale && failed {
		if r.snapshot != nil && r.snapshot.Context != nil {
			rollbackURI = r.snapshot.Context.URI
		}
	}
	gesturing := r.gesturing
	r.mu.Unlock()

	if stale {
		// A newer settle superseded this request; its answer is noise.
		return
	}

	if !failed {
		if result.Resumed {
			logger.Info("resumed context",
				logger.String("context", uri),
				logger.String("track", result.ResumedTrack))
		}
		return
	}

	r.view.Notify(failureMessage(result, err))
	if rollbackURI != "" && rollbackURI != uri && !gesturing {
		// Plain reposition to the authoritative slide; no settle timer.
		r.view.ScrollTo(rollbackURI)
	}
}

func (r *Reconciler) toggle(paused bool) {
	var err error
	if paused {
		err = r.backend.Resume()
	} else {
		err = r.backend.Pause()
	}
	if err != nil {
		logger.Warn("play/pause toggle failed", logger.ErrorField(err))
		r.view.Notify("Player not responding")
	}
}

// isPlayingContextLocked reports whether uri is the authoritative
// context, whether playing or paused.
func (r *Reconciler) isPlayingContextLocked(uri string) bool {
	return r.snapshot != nil && r.snapshot.Context != nil && r.snapshot.Context.URI == uri
}

func (r *Reconciler) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func failureMessage(result *model.PlayResult, err error) string {
	if err != nil {
		return "Player not reachable"
	}
	switch result.Reason {
	case model.ReasonUnavailable:
		return "This item is not available"
	case model.ReasonNetworkError:
		return "Player not reachable"
	case model.ReasonTimeout:
		return "Player did not respond in time"
	default:
		return "Could not start playback"
	}
}
