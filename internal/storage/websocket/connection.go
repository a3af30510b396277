package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/skyduel/dogfight/pkg/streaming"
)

const (
	eventChSize  = 10_000
	frameChSize  = 256
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection owns the socket of one backend and its single writer.
//
// Lifecycle, roster and combat events go through eventCh and are written
// before any frame. Frames go through frameCh; each one supersedes the
// last for a live viewer, so a full frame queue evicts its oldest entry.
type connection struct {
	mu     sync.Mutex
	sock   *socket
	closed bool

	eventCh chan []byte
	frameCh chan []byte
	ackCh   chan streaming.AckMessage
	done    chan struct{}

	reconnecting atomic.Bool

	// messages lost over the connection's life and in the current episode
	dropped        atomic.Uint64
	episodeDropped atomic.Uint64

	wsURL  string
	secret string

	// start_episode followed by every add_entity of the open episode,
	// replayed in order after a reconnect
	replay [][]byte

	logger *slog.Logger
}

// socket is one dialed connection. Its read and write loops stop together
// once either of them sees it fail.
type socket struct {
	conn   *ws.Conn
	broken chan struct{}
	once   sync.Once
}

func newSocket(conn *ws.Conn) *socket {
	return &socket{conn: conn, broken: make(chan struct{})}
}

// fail marks the socket broken and reports whether this call did it.
func (s *socket) fail() bool {
	first := false
	s.once.Do(func() {
		close(s.broken)
		first = true
	})
	return first
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		eventCh: make(chan []byte, eventChSize),
		frameCh: make(chan []byte, frameChSize),
		ackCh:   make(chan streaming.AckMessage, ackChSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// dial connects to the viewer server and starts the read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.start(newSocket(conn))
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) start(s *socket) {
	c.mu.Lock()
	c.sock = s
	c.mu.Unlock()

	go c.writeLoop(s)
	go c.readLoop(s)
}

// next blocks for the next message to write, preferring events over frames.
// It returns false once the connection closes or broken is closed.
func (c *connection) next(broken <-chan struct{}) ([]byte, bool) {
	select {
	case <-c.done:
		return nil, false
	case <-broken:
		return nil, false
	case data := <-c.eventCh:
		return data, true
	default:
	}
	select {
	case <-c.done:
		return nil, false
	case <-broken:
		return nil, false
	case data := <-c.eventCh:
		return data, true
	case data := <-c.frameCh:
		return data, true
	}
}

// writeLoop writes queued messages to s until it breaks or the connection
// closes. A failed write hands over to reconnect.
func (c *connection) writeLoop(s *socket) {
	for {
		data, ok := c.next(s.broken)
		if !ok {
			return
		}
		if err := c.write(s.conn, data); err != nil {
			c.logger.Warn("WebSocket write error", "error", err)
			if s.fail() {
				go c.reconnect(s)
			}
			return
		}
	}
}

func (c *connection) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop routes server acks to ackCh until s fails.
func (c *connection) readLoop(s *socket) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			if s.fail() {
				go c.reconnect(s)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect re-dials with exponential backoff, replays the open episode's
// start message and roster, and restarts the loops. failed is the socket
// that broke; a report about a socket already replaced is ignored.
func (c *connection) reconnect(failed *socket) {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	c.mu.Lock()
	if c.closed || c.sock != failed {
		c.mu.Unlock()
		return
	}
	_ = failed.conn.Close()
	c.sock = nil
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		replay := append([][]byte(nil), c.replay...)
		c.mu.Unlock()

		if err := c.replayTo(conn, replay); err != nil {
			c.logger.Warn("Failed to replay episode after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			_ = conn.Close()
			return
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", len(replay))
		c.start(newSocket(conn))
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (c *connection) replayTo(conn *ws.Conn, msgs [][]byte) error {
	for _, data := range msgs {
		if err := c.write(conn, data); err != nil {
			return err
		}
	}
	return nil
}

// beginEpisode resets the replay list to the episode's start message and
// clears the per-episode drop count.
func (c *connection) beginEpisode(start []byte) {
	c.mu.Lock()
	c.replay = [][]byte{start}
	c.mu.Unlock()
	c.episodeDropped.Store(0)
}

// remember appends a roster message to the replay list of the open episode.
func (c *connection) remember(data []byte) {
	c.mu.Lock()
	if len(c.replay) > 0 {
		c.replay = append(c.replay, data)
	}
	c.mu.Unlock()
}

// endEpisode forgets the replay list and returns how many messages the
// episode lost.
func (c *connection) endEpisode() uint64 {
	c.mu.Lock()
	c.replay = nil
	c.mu.Unlock()
	return c.episodeDropped.Swap(0)
}

func (c *connection) countDrop(kind string) {
	c.episodeDropped.Add(1)
	if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
		c.logger.Warn("WebSocket queue full, dropping message", "kind", kind, "dropped", n)
	}
}

// send queues an event. Non-blocking; drops if the event queue is full.
func (c *connection) send(data []byte) bool {
	select {
	case c.eventCh <- data:
		return true
	default:
		c.countDrop("event")
		return false
	}
}

// sendFrame queues a frame, evicting the oldest queued frame when full.
func (c *connection) sendFrame(data []byte) {
	select {
	case c.frameCh <- data:
		return
	default:
	}
	select {
	case <-c.frameCh:
		c.countDrop("frame")
	default:
	}
	select {
	case c.frameCh <- data:
	default:
		c.countDrop("frame")
	}
}

// pending is the number of messages waiting for the write loop.
func (c *connection) pending() int {
	return len(c.eventCh) + len(c.frameCh)
}

// sendAndWait queues data as an event and blocks until the server acks
// ackFor or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	if !c.send(data) {
		return fmt.Errorf("send buffer full, %q not queued", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops the loops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	s := c.sock
	c.sock = nil
	c.mu.Unlock()

	if s != nil {
		_ = s.conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return s.conn.Close()
	}
	return nil
}
