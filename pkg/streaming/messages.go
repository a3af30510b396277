package streaming

import (
	"encoding/json"

	"github.com/skyduel/dogfight/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartEpisode   = "start_episode"
	TypeEndEpisode     = "end_episode"
	TypeAddEntity      = "add_entity"
	TypeFrame          = "frame"
	TypeFiredEvent     = "fired_event"
	TypeKillEvent      = "kill_event"
	TypeDestroyedEvent = "destroyed_event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartEpisodePayload announces a new episode.
type StartEpisodePayload struct {
	Episode *core.Episode `json:"episode"`
	Tag     string        `json:"tag,omitempty"`
}

// EndEpisodePayload carries the final classification of the episode.
type EndEpisodePayload struct {
	Outcome *core.Outcome `json:"outcome"`
}
