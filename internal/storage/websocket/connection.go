package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/demolens/tickstate/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	snapshotBuffer = 4096
	controlBuffer  = 4
	ackBuffer      = 16
	maxRedials     = 10
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	writeWait      = 10 * time.Second
	ackTimeout     = 10 * time.Second
)

var errClosed = errors.New("connection closed")

// link is the connection to the viewer. One goroutine owns the socket and
// redials with backoff when it breaks, replaying the open demo's
// start_demo first. Snapshots are dropped oldest first when the viewer
// cannot keep up. Control frames are never dropped and never wait behind a
// full snapshot queue.
type link struct {
	target  string
	logger  *slog.Logger
	backoff time.Duration

	control   chan []byte
	snapshots chan []byte
	acks      chan string

	mu       sync.Mutex
	startMsg []byte // start_demo of the open demo
	running  bool
	closed   bool
	stop     chan struct{}
	stopped  chan struct{}

	dropped atomic.Uint64
}

func newLink(logger *slog.Logger, buffer int) *link {
	if buffer < 1 {
		buffer = 1
	}
	return &link{
		logger:    logger,
		backoff:   minBackoff,
		control:   make(chan []byte, controlBuffer),
		snapshots: make(chan []byte, buffer),
		acks:      make(chan string, ackBuffer),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// dial connects once and hands the socket to the owning goroutine. The
// secret travels as a query parameter.
func (l *link) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.target = u.String()

	conn, err := l.open()
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		_ = conn.Close()
		return errClosed
	}
	l.running = true
	go l.run(conn)
	return nil
}

func (l *link) open() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(l.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (l *link) run(conn *ws.Conn) {
	defer close(l.stopped)

	var pending []byte
	for {
		var err error
		pending, err = l.serve(conn, pending)
		if err == nil {
			return
		}
		l.logger.Warn("WebSocket connection lost", "error", err)

		if conn = l.redial(pending); conn == nil {
			return
		}
	}
}

// serve writes queued frames until the socket fails or the link is
// closed. A control frame that could not be written is returned so it can
// be sent again on the next socket.
func (l *link) serve(conn *ws.Conn, pending []byte) ([]byte, error) {
	readErr := make(chan error, 1)
	go l.read(conn, readErr)

	fail := func(control []byte, err error) ([]byte, error) {
		_ = conn.Close()
		return control, err
	}

	if pending != nil {
		if err := l.flushSnapshots(conn); err != nil {
			return fail(pending, err)
		}
		if err := write(conn, pending); err != nil {
			return fail(pending, err)
		}
	}

	for {
		select {
		case <-l.stop:
			goodbye(conn)
			return nil, nil
		case err := <-readErr:
			return fail(nil, err)
		case data := <-l.snapshots:
			if err := write(conn, data); err != nil {
				l.dropped.Add(1)
				return fail(nil, err)
			}
		case data := <-l.control:
			if err := l.flushSnapshots(conn); err != nil {
				return fail(data, err)
			}
			if err := write(conn, data); err != nil {
				return fail(data, err)
			}
		}
	}
}

// flushSnapshots writes the snapshots queued so far, so that a control
// frame follows every snapshot recorded before it.
func (l *link) flushSnapshots(conn *ws.Conn) error {
	for range len(l.snapshots) {
		select {
		case data := <-l.snapshots:
			if err := write(conn, data); err != nil {
				l.dropped.Add(1)
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *link) read(conn *ws.Conn, errs chan<- error) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			l.logger.Debug("Ignoring viewer message", "raw", string(message))
			continue
		}
		select {
		case l.acks <- ack.For:
		default:
			l.logger.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial reconnects with exponential backoff and replays start_demo unless
// the pending control frame is that start_demo. It returns nil when the
// link was closed or every attempt failed.
func (l *link) redial(pending []byte) *ws.Conn {
	backoff := l.backoff
	for attempt := 1; attempt <= maxRedials; attempt++ {
		l.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-l.stop:
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := l.open()
		if err != nil {
			l.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		l.mu.Lock()
		start := l.startMsg
		l.mu.Unlock()
		if start != nil && string(start) != string(pending) {
			if err := write(conn, start); err != nil {
				l.logger.Warn("Failed to replay start_demo", "attempt", attempt, "error", err)
				_ = conn.Close()
				continue
			}
		}

		l.logger.Info("WebSocket reconnected", "attempt", attempt)
		return conn
	}

	l.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxRedials)
	return nil
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func goodbye(conn *ws.Conn) {
	_ = conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	_ = conn.Close()
}

func (l *link) setStartMsg(data []byte) {
	l.mu.Lock()
	l.startMsg = data
	l.mu.Unlock()
}

// sendSnapshot queues data, evicting the oldest queued snapshot when full.
func (l *link) sendSnapshot(data []byte) {
	for {
		select {
		case l.snapshots <- data:
			return
		default:
		}
		select {
		case <-l.snapshots:
			l.dropped.Add(1)
		default:
		}
	}
}

// sendAndWait queues a control frame and blocks until the viewer acks it
// or the timeout expires.
func (l *link) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return fmt.Errorf("sending %q: %w", ackFor, errClosed)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.control <- data:
	case <-timer.C:
		return fmt.Errorf("timeout queueing %q", ackFor)
	case <-l.stop:
		return fmt.Errorf("sending %q: %w", ackFor, errClosed)
	}

	for {
		select {
		case got := <-l.acks:
			if got == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.stop:
			return fmt.Errorf("waiting for ack of %q: %w", ackFor, errClosed)
		}
	}
}

// droppedSnapshots returns how many snapshots never reached the viewer.
func (l *link) droppedSnapshots() uint64 {
	return l.dropped.Load()
}

// close says goodbye to the viewer and waits for the owning goroutine.
func (l *link) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	running := l.running
	close(l.stop)
	l.mu.Unlock()

	if running {
		<-l.stopped
	}
	return nil
}
