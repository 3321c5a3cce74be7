package player

import (
	"testing"
	"time"

	"BerryBox/core/daemon"
	"BerryBox/model"
)

func newTestAggregator(status *fakeStatus, repo *stubRepo) (*Aggregator, *ConfirmationRegistry) {
	confirms := NewConfirmationRegistry(50 * time.Millisecond)
	return NewAggregator(status, repo, confirms), confirms
}

func TestWillPlayNeverChangesContext(t *testing.T) {
	agg, _ := newTestAggregator(&fakeStatus{}, newStubRepo())

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:aaa", TrackURI: "spotify:track:1"})
	agg.Apply(&model.PlayerEvent{Type: model.EventWillPlay, ContextURI: "spotify:album:bbb", TrackURI: "spotify:track:9"})

	state := agg.State()
	if state.ContextURI != "spotify:album:aaa" {
		t.Fatalf("will_play changed context: got %q", state.ContextURI)
	}
	if state.TrackURI != "spotify:track:1" {
		t.Fatalf("will_play changed track: got %q", state.TrackURI)
	}
}

func TestPlayingCommitsContextAndResolvesIntent(t *testing.T) {
	agg, confirms := newTestAggregator(&fakeStatus{}, newStubRepo())

	agg.SetIntended("spotify:album:bbb")
	confirmed := confirms.Register("spotify:album:bbb")

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:bbb", TrackURI: "spotify:track:2"})

	select {
	case ok := <-confirmed:
		if !ok {
			t.Fatal("confirmation resolved as failure")
		}
	case <-time.After(time.Second):
		t.Fatal("confirmation never resolved")
	}

	state := agg.State()
	if state.ContextURI != "spotify:album:bbb" {
		t.Fatalf("context not committed: got %q", state.ContextURI)
	}
	if state.IntendedContextURI != "" {
		t.Fatalf("intent not cleared: got %q", state.IntendedContextURI)
	}
}

func TestPausedKeepsContextWhenAbsent(t *testing.T) {
	agg, _ := newTestAggregator(&fakeStatus{}, newStubRepo())

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:aaa"})
	agg.Apply(&model.PlayerEvent{Type: model.EventPaused, TrackURI: "spotify:track:3"})

	if got := agg.State().ContextURI; got != "spotify:album:aaa" {
		t.Fatalf("paused without context changed context: got %q", got)
	}
}

func TestStoppedWithIntentClearsResumeRecord(t *testing.T) {
	repo := newStubRepo()
	agg, _ := newTestAggregator(&fakeStatus{}, repo)

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:aaa"})
	agg.SetIntended("spotify:album:aaa")
	agg.Apply(&model.PlayerEvent{Type: model.EventStopped})

	if got := agg.State().IntendedContextURI; got != "" {
		t.Fatalf("intent survived stopped: got %q", got)
	}
	cleared := repo.clearedContexts()
	if len(cleared) != 1 || cleared[0] != "spotify:album:aaa" {
		t.Fatalf("resume record not cleared: %v", cleared)
	}
}

func TestStoppedWithoutIntentLeavesResumeRecord(t *testing.T) {
	repo := newStubRepo()
	agg, _ := newTestAggregator(&fakeStatus{}, repo)

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:aaa"})
	agg.Apply(&model.PlayerEvent{Type: model.EventStopped})

	if cleared := repo.clearedContexts(); len(cleared) != 0 {
		t.Fatalf("stopped without intent cleared records: %v", cleared)
	}
}

func TestNotifierFiresOnSignificantEventsOnly(t *testing.T) {
	agg, _ := newTestAggregator(&fakeStatus{}, newStubRepo())

	fired := 0
	agg.SetNotifier(func() { fired++ })

	agg.Apply(&model.PlayerEvent{Type: model.EventWillPlay, ContextURI: "spotify:album:aaa"})
	if fired != 0 {
		t.Fatal("will_play triggered a broadcast")
	}

	agg.Apply(&model.PlayerEvent{Type: model.EventPaused})
	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:aaa"})
	if fired != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", fired)
	}
}

func TestSnapshotPrefersIntendedContext(t *testing.T) {
	status := &fakeStatus{}
	status.set(&daemon.Status{
		ContextURI: "spotify:album:old",
		Track:      &daemon.StatusTrack{URI: "spotify:track:1", Name: "Song", ArtistNames: []string{"A", "B"}},
	})
	agg, _ := newTestAggregator(status, newStubRepo())

	agg.Apply(&model.PlayerEvent{Type: model.EventPlaying, ContextURI: "spotify:album:old"})
	agg.SetIntended("spotify:album:new")

	np := agg.Snapshot()
	if np.Context == nil || np.Context.URI != "spotify:album:new" {
		t.Fatalf("snapshot did not prefer intended context: %+v", np.Context)
	}
	if np.Track == nil || np.Track.Artist != "A, B" {
		t.Fatalf("artist names not joined: %+v", np.Track)
	}
}

func TestSnapshotSoftFailsWhenDaemonSilent(t *testing.T) {
	agg, _ := newTestAggregator(&fakeStatus{}, newStubRepo())

	np := agg.Snapshot()
	if np == nil {
		t.Fatal("snapshot returned nil")
	}
	if !np.Stopped || np.Playing {
		t.Fatalf("expected stopped snapshot, got %+v", np)
	}
}

func TestClearIntendedOnlyMatching(t *testing.T) {
	agg, _ := newTestAggregator(&fakeStatus{}, newStubRepo())

	agg.SetIntended("spotify:album:bbb")
	agg.ClearIntended("spotify:album:aaa")
	if got := agg.State().IntendedContextURI; got != "spotify:album:bbb" {
		t.Fatalf("mismatched clear dropped intent: got %q", got)
	}
	agg.ClearIntended("spotify:album:bbb")
	if got := agg.State().IntendedContextURI; got != "" {
		t.Fatalf("matching clear kept intent: got %q", got)
	}
}
