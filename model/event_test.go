package model

import "testing"

func TestParsePlayerEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    *PlayerEvent
	}{
		{
			name: "playing with context",
			raw:  `{"type":"playing","data":{"uri":"spotify:track:t1","context_uri":"spotify:album:aaa","play_origin":"go-librespot"}}`,
			want: &PlayerEvent{Type: EventPlaying, TrackURI: "spotify:track:t1", ContextURI: "spotify:album:aaa", PlayOrigin: "go-librespot"},
		},
		{
			name: "stopped without data",
			raw:  `{"type":"stopped"}`,
			want: &PlayerEvent{Type: EventStopped},
		},
		{
			name:    "malformed json",
			raw:     `{"type":`,
			wantErr: true,
		},
		{
			name:    "missing type",
			raw:     `{"data":{"uri":"spotify:track:t1"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParsePlayerEvent([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if *ev != *tt.want {
				t.Fatalf("got %+v want %+v", ev, tt.want)
			}
		})
	}
}

func TestEventSignificance(t *testing.T) {
	if (&PlayerEvent{Type: EventWillPlay}).Significant() {
		t.Fatal("will_play must not be significant")
	}
	for _, typ := range []EventType{EventPlaying, EventPaused, EventStopped, EventMetadata} {
		if !(&PlayerEvent{Type: typ}).Significant() {
			t.Fatalf("%s should be significant", typ)
		}
	}
	if (&PlayerEvent{Type: "volume_changed"}).Known() {
		t.Fatal("unknown type reported as known")
	}
}
