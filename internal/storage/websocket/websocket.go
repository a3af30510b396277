package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/skyduel/dogfight/pkg/streaming"
)

// Backend streams episodes to a live viewer over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn    *connection
	cfg     config.WebsocketConfig
	tag     string
	episode string
}

// New creates a new WebSocket storage backend. A nil logger falls back
// to slog.Default.
func New(cfg config.WebsocketConfig, tag string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
		tag:  tag,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// QueueLength is the number of messages not yet written to the socket.
func (b *Backend) QueueLength() int {
	return b.conn.pending()
}

// Dropped is the number of messages discarded because a queue was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope is fire-and-forget.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartEpisode announces the episode and waits for the server ack.
func (b *Backend) StartEpisode(ep *core.Episode) error {
	data, err := marshalEnvelope(streaming.TypeStartEpisode, streaming.StartEpisodePayload{Episode: ep, Tag: b.tag})
	if err != nil {
		return err
	}
	b.episode = ep.Name
	b.conn.beginEpisode(data)
	return b.conn.sendAndWait(data, streaming.TypeStartEpisode, ackTimeout)
}

// EndEpisode sends the outcome and waits for the server ack.
func (b *Backend) EndEpisode(out *core.Outcome) error {
	data, err := marshalEnvelope(streaming.TypeEndEpisode, streaming.EndEpisodePayload{Outcome: out})
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndEpisode, ackTimeout)
	}
	if n := b.conn.endEpisode(); n > 0 {
		b.conn.logger.Warn("Viewer missed part of the episode", "episode", b.episode, "dropped", n)
	}
	return err
}

// AddEntity announces a new aircraft, missile or home. It is part of the
// roster replayed after a reconnect.
func (b *Backend) AddEntity(info *core.EntityInfo) error {
	data, err := marshalEnvelope(streaming.TypeAddEntity, info)
	if err != nil {
		return err
	}
	b.conn.remember(data)
	b.conn.send(data)
	return nil
}

// RecordFrame queues a snapshot. Under backpressure older frames are
// discarded first.
func (b *Backend) RecordFrame(f *core.Frame) error {
	data, err := marshalEnvelope(streaming.TypeFrame, f)
	if err != nil {
		return err
	}
	b.conn.sendFrame(data)
	return nil
}

func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	return b.sendEnvelope(streaming.TypeFiredEvent, e)
}

func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	return b.sendEnvelope(streaming.TypeKillEvent, e)
}

func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	return b.sendEnvelope(streaming.TypeDestroyedEvent, e)
}
