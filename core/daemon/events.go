package daemon

import (
	"sync"
	"time"

	"BerryBox/config"
	"BerryBox/logger"
	"BerryBox/model"

	"github.com/gorilla/websocket"
)

// Listener consumes the daemon's WebSocket event stream and hands
// normalized events to the aggregator. Connection loss triggers a
// fixed-delay reconnect; malformed events are logged and dropped so the
// ingest loop never dies on bad input.
type Listener struct {
	url            string
	reconnectDelay time.Duration

	onEvent   func(*model.PlayerEvent)
	onConnect func()

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// NewListener creates an event listener. onConnect fires on every
// successful (re)connect so the caller can force a status refresh.
func NewListener(cfg *config.Config, onEvent func(*model.PlayerEvent), onConnect func()) *Listener {
	return &Listener{
		url:            cfg.DaemonWS,
		reconnectDelay: cfg.ReconnectDelay,
		onEvent:        onEvent,
		onConnect:      onConnect,
		done:           make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *Listener) Start() {
	go l.run()
	logger.Info("daemon event listener started", logger.String("url", l.url))
}

// Stop terminates the listener and closes any open connection.
func (l *Listener) Stop() {
	close(l.done)
	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.mu.Unlock()
	logger.Info("daemon event listener stopped")
}

func (l *Listener) run() {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(l.url, nil)
		if err != nil {
			logger.Warn("daemon event stream dial failed",
				logger.ErrorField(err),
				logger.Duration("retry_in", l.reconnectDelay))
			select {
			case <-time.After(l.reconnectDelay):
				continue
			case <-l.done:
				return
			}
		}

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()

		logger.Info("daemon event stream connected")
		if l.onConnect != nil {
			l.onConnect()
		}

		l.readLoop(conn)

		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()

		select {
		case <-l.done:
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				logger.Warn("daemon event stream closed", logger.ErrorField(err))
			}
			return
		}

		ev, err := model.ParsePlayerEvent(raw)
		if err != nil {
			logger.Warn("dropping malformed daemon event", logger.ErrorField(err))
			continue
		}
		if !ev.Known() {
			logger.Debug("ignoring daemon event", logger.String("type", string(ev.Type)))
			continue
		}

		l.onEvent(ev)
	}
}
