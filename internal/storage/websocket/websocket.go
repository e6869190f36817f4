package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

// Backend streams snapshots over WebSocket to a live consumer.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	link   *link
	cfg    config.WebsocketConfig
	logger *slog.Logger

	// dropped count at the start of the open demo
	droppedBefore uint64
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebsocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link:   newLink(logger, snapshotBuffer),
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartDemo sends the demo header and waits for the server ack.
func (b *Backend) StartDemo(header *core.DemoHeader) error {
	data, err := marshalEnvelope(streaming.TypeStartDemo, streaming.StartDemoPayload{Header: header})
	if err != nil {
		return err
	}

	b.link.setStartMsg(data)
	b.droppedBefore = b.link.droppedSnapshots()
	return b.link.sendAndWait(data, streaming.TypeStartDemo, ackTimeout)
}

// RecordSnapshot queues the snapshot without waiting. When the viewer
// falls behind the oldest queued snapshots are dropped.
func (b *Backend) RecordSnapshot(snap *core.Snapshot) error {
	data, err := marshalEnvelope(streaming.TypeSnapshot, snap)
	if err != nil {
		return err
	}
	b.link.sendSnapshot(data)
	return nil
}

// EndDemo sends the rounds and draw info and waits for the server ack.
func (b *Backend) EndDemo(rounds []core.Round, draw *core.DrawInfo) error {
	data, err := marshalEnvelope(streaming.TypeEndDemo, streaming.EndDemoPayload{Rounds: rounds, Draw: draw})
	if err == nil {
		err = b.link.sendAndWait(data, streaming.TypeEndDemo, ackTimeout)
	}
	b.link.setStartMsg(nil)

	if n := b.link.droppedSnapshots() - b.droppedBefore; n > 0 {
		b.logger.Warn("Viewer fell behind, snapshots dropped", "count", n)
	}
	return err
}
