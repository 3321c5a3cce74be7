package client

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"BerryBox/logger"
	"BerryBox/model"
)

// Stream subscribes to the backend's snapshot broadcast over WebSocket
// and delivers every snapshot to a callback, reconnecting with a fixed
// delay when the connection drops.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	onSnapshot     func(*model.NowPlaying)

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

// NewStream creates a snapshot stream. onSnapshot runs on the read
// goroutine and must not block.
func NewStream(url string, reconnectDelay time.Duration, onSnapshot func(*model.NowPlaying)) *Stream {
	return &Stream{
		url:            url,
		reconnectDelay: reconnectDelay,
		onSnapshot:     onSnapshot,
		done:           make(chan struct{}),
	}
}

// Start launches the connection loop.
func (s *Stream) Start() {
	go s.run()
}

// Stop closes the stream.
func (s *Stream) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *Stream) run() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			logger.Debug("snapshot stream dial failed", logger.ErrorField(err))
			select {
			case <-time.After(s.reconnectDelay):
				continue
			case <-s.done:
				return
			}
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.readLoop(conn)

		select {
		case <-time.After(s.reconnectDelay):
		case <-s.done:
			return
		}
	}
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var np model.NowPlaying
		if err := conn.ReadJSON(&np); err != nil {
			logger.Debug("snapshot stream closed", logger.ErrorField(err))
			return
		}
		s.onSnapshot(&np)
	}
}
