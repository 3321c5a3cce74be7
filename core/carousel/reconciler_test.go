package carousel

import (
	"sync"
	"testing"
	"time"

	"BerryBox/model"
)

// fakeBackend records play requests and returns scripted results.
type fakeBackend struct {
	mu      sync.Mutex
	plays   []string
	result  *model.PlayResult
	block   chan struct{} // when set, Play waits on it
	pauses  int
	resumes int
}

func (f *fakeBackend) Play(uri string, fromBeginning bool) (*model.PlayResult, error) {
	f.mu.Lock()
	f.plays = append(f.plays, uri)
	block := f.block
	result := f.result
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if result != nil {
		return result, nil
	}
	return &model.PlayResult{Success: true, Context: uri}, nil
}

func (f *fakeBackend) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeBackend) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeBackend) playedURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.plays))
	copy(out, f.plays)
	return out
}

// fakeView records repositioning and notifications.
type fakeView struct {
	mu       sync.Mutex
	scrolls  []string
	messages []string
}

func (f *fakeView) ScrollTo(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, uri)
}

func (f *fakeView) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeView) scrolledTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.scrolls))
	copy(out, f.scrolls)
	return out
}

func (f *fakeView) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	copy(out, f.messages)
	return out
}

func playingSnapshot(contextURI string) *model.NowPlaying {
	return &model.NowPlaying{
		Playing: true,
		Context: &model.ContextInfo{URI: contextURI},
	}
}

func TestRapidSwipeFiresOnlyFinalSlide(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 60*time.Millisecond, 0)

	r.Settle("spotify:album:A")
	time.Sleep(20 * time.Millisecond)
	r.Settle("spotify:album:B")
	time.Sleep(20 * time.Millisecond)
	r.Settle("spotify:album:C")

	time.Sleep(200 * time.Millisecond)

	plays := backend.playedURIs()
	if len(plays) != 1 || plays[0] != "spotify:album:C" {
		t.Fatalf("expected only C to fire, got %v", plays)
	}
}

func TestSettleOnPlayingContextIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, 0)

	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	r.Settle("spotify:album:A")

	if got := r.CurrentState(); got != StateIdle {
		t.Fatalf("expected Idle, got %v", got)
	}
	time.Sleep(50 * time.Millisecond)
	if plays := backend.playedURIs(); len(plays) != 0 {
		t.Fatalf("settle on playing context fired: %v", plays)
	}
}

func TestSettleOnPausedContextIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, 0)

	paused := playingSnapshot("spotify:album:A")
	paused.Playing = false
	paused.Paused = true
	r.ApplySnapshot(paused)

	r.Settle("spotify:album:A")

	if got := r.CurrentState(); got != StateIdle {
		t.Fatalf("expected Idle, got %v", got)
	}
	time.Sleep(50 * time.Millisecond)
	if plays := backend.playedURIs(); len(plays) != 0 {
		t.Fatalf("settle on paused context restarted it: %v", plays)
	}
}

func TestTimerFireRechecksAuthoritativeState(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 50*time.Millisecond, 0)

	r.Settle("spotify:album:A")
	// External sync resolves it before the timer fires.
	r.snapshotFor(t, "spotify:album:A")

	time.Sleep(150 * time.Millisecond)
	if plays := backend.playedURIs(); len(plays) != 0 {
		t.Fatalf("fire ignored resolved state: %v", plays)
	}
}

// snapshotFor injects an authoritative snapshot without triggering a
// reposition (the machine is not idle during the settle window).
func (r *Reconciler) snapshotFor(t *testing.T, uri string) {
	t.Helper()
	r.ApplySnapshot(playingSnapshot(uri))
}

func TestDuplicateSettleDoesNotDoubleRequest(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	view := &fakeView{}
	r := New(backend, view, 20*time.Millisecond, 0)

	r.Settle("spotify:album:A")
	time.Sleep(80 * time.Millisecond) // first request now blocked in flight

	r.Settle("spotify:album:A")
	time.Sleep(80 * time.Millisecond)

	close(backend.block)
	time.Sleep(50 * time.Millisecond)

	if plays := backend.playedURIs(); len(plays) != 1 {
		t.Fatalf("expected a single request, got %v", plays)
	}
}

func TestFailureNotifiesAndRollsBack(t *testing.T) {
	backend := &fakeBackend{result: &model.PlayResult{Success: false, Reason: model.ReasonUnavailable}}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, 0)

	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	view.mu.Lock()
	view.scrolls = nil // drop the initial sync reposition
	view.mu.Unlock()

	r.Settle("spotify:album:B")
	time.Sleep(150 * time.Millisecond)

	if msgs := view.notified(); len(msgs) != 1 {
		t.Fatalf("expected one notification, got %v", msgs)
	}
	scrolls := view.scrolledTo()
	if len(scrolls) != 1 || scrolls[0] != "spotify:album:A" {
		t.Fatalf("expected rollback to A, got %v", scrolls)
	}
	if got := r.CurrentState(); got != StateIdle {
		t.Fatalf("expected Idle after failure, got %v", got)
	}
}

func TestGestureGuardBlocksRepositioning(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, 0)

	r.BeginGesture()
	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	if scrolls := view.scrolledTo(); len(scrolls) != 0 {
		t.Fatalf("sync moved the carousel mid-gesture: %v", scrolls)
	}

	r.EndGesture()
	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	scrolls := view.scrolledTo()
	if len(scrolls) != 1 || scrolls[0] != "spotify:album:A" {
		t.Fatalf("expected reposition after gesture, got %v", scrolls)
	}
}

func TestSyncCooldownSuppressesEcho(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, time.Second)

	r.Settle("spotify:album:B")
	time.Sleep(100 * time.Millisecond) // request fired and completed

	// The broadcast echo of our own request arrives.
	r.ApplySnapshot(playingSnapshot("spotify:album:B"))
	if scrolls := view.scrolledTo(); len(scrolls) != 0 {
		t.Fatalf("echo bounced the carousel: %v", scrolls)
	}
}

func TestTapOnActiveSlideTogglesPlayPause(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 10*time.Millisecond, 0)

	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	r.Tap("spotify:album:A", true)
	if backend.pauses != 1 {
		t.Fatalf("tap on playing slide did not pause: %d", backend.pauses)
	}

	paused := playingSnapshot("spotify:album:A")
	paused.Playing = false
	paused.Paused = true
	r.ApplySnapshot(paused)
	r.Tap("spotify:album:A", true)
	if backend.resumes != 1 {
		t.Fatalf("tap on paused slide did not resume: %d", backend.resumes)
	}

	if plays := backend.playedURIs(); len(plays) != 0 {
		t.Fatalf("tap on active slide re-selected: %v", plays)
	}
}

func TestTapOnOtherSlideScrollsAndSettles(t *testing.T) {
	backend := &fakeBackend{}
	view := &fakeView{}
	r := New(backend, view, 30*time.Millisecond, 0)

	r.ApplySnapshot(playingSnapshot("spotify:album:A"))
	r.Tap("spotify:album:B", false)

	scrolls := view.scrolledTo()
	if len(scrolls) == 0 || scrolls[len(scrolls)-1] != "spotify:album:B" {
		t.Fatalf("tap did not scroll to target: %v", scrolls)
	}
	if plays := backend.playedURIs(); len(plays) != 0 {
		t.Fatal("tap played immediately instead of settling")
	}

	time.Sleep(120 * time.Millisecond)
	plays := backend.playedURIs()
	if len(plays) != 1 || plays[0] != "spotify:album:B" {
		t.Fatalf("settled tap did not fire: %v", plays)
	}
}
