package server

import (
	"encoding/json"
	"testing"
	"time"

	"BerryBox/model"
)

type staticSnapshot struct{ np *model.NowPlaying }

func (s *staticSnapshot) Snapshot() *model.NowPlaying { return s.np }

func newHubClient(buffer int) *Client {
	return &Client{send: make(chan []byte, buffer)}
}

func receiveSnapshot(t *testing.T, c *Client) *model.NowPlaying {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var np model.NowPlaying
		if err := json.Unmarshal(payload, &np); err != nil {
			t.Fatal(err)
		}
		return &np
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestHubPushesSnapshotOnConnect(t *testing.T) {
	source := &staticSnapshot{np: &model.NowPlaying{Playing: true, Context: &model.ContextInfo{URI: "spotify:album:aaa"}}}
	hub := NewHub(source, time.Hour)
	go hub.Run()
	defer hub.Stop()

	client := newHubClient(4)
	hub.register <- client

	np := receiveSnapshot(t, client)
	if !np.Playing || np.Context == nil || np.Context.URI != "spotify:album:aaa" {
		t.Fatalf("connect snapshot wrong: %+v", np)
	}
}

func TestHubNotifyBroadcastsToAllClients(t *testing.T) {
	source := &staticSnapshot{np: &model.NowPlaying{Paused: true}}
	hub := NewHub(source, time.Hour)
	go hub.Run()
	defer hub.Stop()

	a := newHubClient(4)
	b := newHubClient(4)
	hub.register <- a
	hub.register <- b
	receiveSnapshot(t, a)
	receiveSnapshot(t, b)

	hub.Notify()
	if np := receiveSnapshot(t, a); !np.Paused {
		t.Fatalf("client a got wrong snapshot: %+v", np)
	}
	if np := receiveSnapshot(t, b); !np.Paused {
		t.Fatalf("client b got wrong snapshot: %+v", np)
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	source := &staticSnapshot{np: &model.NowPlaying{Stopped: true}}
	hub := NewHub(source, time.Hour)
	go hub.Run()
	defer hub.Stop()

	// Buffer of one: the connect snapshot fills it and the client never
	// reads, so the next broadcast must drop it.
	stalled := newHubClient(1)
	hub.register <- stalled
	hub.Notify()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stalled.send:
			if !ok {
				return // dropped and closed
			}
		case <-deadline:
			t.Fatal("stalled client never dropped")
		}
	}
}

func TestHubPeriodicTick(t *testing.T) {
	source := &staticSnapshot{np: &model.NowPlaying{Playing: true}}
	hub := NewHub(source, 20*time.Millisecond)
	go hub.Run()
	defer hub.Stop()

	client := newHubClient(8)
	hub.register <- client
	receiveSnapshot(t, client)

	// Two further deliveries without any Notify call.
	receiveSnapshot(t, client)
	receiveSnapshot(t, client)
}
