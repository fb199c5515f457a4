// ABOUTME: WebSocket transport for a live generative session
// ABOUTME: Handles dialing, message routing, and the unified event stream
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/promptjam/promptjam-go/internal/protocol"
	"github.com/promptjam/promptjam-go/internal/version"
)

// Event is one incoming session event. Exactly one field is set.
type Event struct {
	Ready    *protocol.SessionReady
	Filtered *protocol.PromptFiltered
	Batch    [][]byte
	Err      error
}

// Handle is one live connection to the generative service
type Handle interface {
	Play() error
	Pause() error
	Stop() error
	SetWeightedPrompts(prompts []protocol.WeightedPrompt) error

	// Events delivers session events in arrival order. The channel closes
	// after a terminal Err event or after Close.
	Events() <-chan Event

	Close() error
}

// TransportConfig holds connection parameters
type TransportConfig struct {
	ServerAddr string
	ClientID   string
	Name       string
	SampleRate int
	Channels   int
}

// Transport is the websocket implementation of Handle
type Transport struct {
	config TransportConfig
	conn   *websocket.Conn

	writeMu sync.Mutex
	events  chan Event

	closeOnce sync.Once
	closedMu  sync.Mutex
	closed    bool
}

// Dial connects to the jam server and sends the session hello. Server
// acknowledgement arrives asynchronously as an Event with Ready set.
func Dial(ctx context.Context, config TransportConfig) (*Transport, error) {
	u := url.URL{Scheme: "ws", Host: config.ServerAddr, Path: "/promptjam"}
	log.Debug("dialing jam server", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	t := &Transport{
		config: config,
		conn:   conn,
		events: make(chan Event, 64),
	}

	hello := protocol.Message{
		Type: protocol.TypeClientHello,
		Payload: protocol.ClientHello{
			ClientID:        config.ClientID,
			Name:            config.Name,
			Version:         1,
			SupportedCodecs: []string{"pcm", "opus", "mp3", "flac"},
			SampleRate:      config.SampleRate,
			Channels:        config.Channels,
		},
	}
	if err := t.sendJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send %s: %w", protocol.TypeClientHello, err)
	}

	go t.readLoop()

	return t, nil
}

// Events returns the incoming event stream
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Play asks the server to start generating
func (t *Transport) Play() error {
	return t.sendPlayback("play")
}

// Pause asks the server to pause generation
func (t *Transport) Pause() error {
	return t.sendPlayback("pause")
}

// Stop asks the server to stop generation
func (t *Transport) Stop() error {
	return t.sendPlayback("stop")
}

func (t *Transport) sendPlayback(command string) error {
	return t.sendJSON(protocol.Message{
		Type:    protocol.TypePlayback,
		Payload: protocol.PlaybackCommand{Command: command},
	})
}

// SetWeightedPrompts replaces the prompt set steering generation
func (t *Transport) SetWeightedPrompts(prompts []protocol.WeightedPrompt) error {
	return t.sendJSON(protocol.Message{
		Type:    protocol.TypeSetPrompts,
		Payload: protocol.SetPrompts{Prompts: prompts},
	})
}

// Close tears the connection down. No Err event is emitted for a
// deliberate close.
func (t *Transport) Close() error {
	t.closedMu.Lock()
	t.closed = true
	t.closedMu.Unlock()

	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}

func (t *Transport) isClosed() bool {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()
	return t.closed
}

func (t *Transport) sendJSON(msg protocol.Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.isClosed() {
		return fmt.Errorf("session closed")
	}
	return t.conn.WriteJSON(msg)
}

// readLoop reads and routes incoming messages until the connection dies
func (t *Transport) readLoop() {
	defer close(t.events)

	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if !t.isClosed() {
				log.Debug("session read error", "err", err)
				t.events <- Event{Err: err}
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			t.handleBinary(data)
		case websocket.TextMessage:
			if terminal := t.handleJSON(data); terminal {
				return
			}
		}
	}
}

func (t *Transport) handleBinary(data []byte) {
	chunks, err := protocol.DecodeBatch(data)
	if err != nil {
		log.Warn("dropping malformed audio frame", "err", err)
		return
	}
	t.events <- Event{Batch: chunks}
}

// handleJSON routes one text message. It reports true when the message is
// terminal for the session.
func (t *Transport) handleJSON(data []byte) bool {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn("dropping malformed message", "err", err)
		return false
	}

	payloadBytes, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case protocol.TypeSessionReady:
		var ready protocol.SessionReady
		if err := json.Unmarshal(payloadBytes, &ready); err != nil {
			log.Warn("malformed session/ready", "err", err)
			return false
		}
		t.events <- Event{Ready: &ready}

	case protocol.TypePromptFiltered:
		var filtered protocol.PromptFiltered
		if err := json.Unmarshal(payloadBytes, &filtered); err != nil {
			log.Warn("malformed prompts/filtered", "err", err)
			return false
		}
		t.events <- Event{Filtered: &filtered}

	case protocol.TypeServerError:
		var serverErr protocol.ServerError
		if err := json.Unmarshal(payloadBytes, &serverErr); err != nil {
			log.Warn("malformed server/error", "err", err)
			return false
		}
		t.events <- Event{Err: fmt.Errorf("server error: %s", serverErr.Message)}
		return true

	default:
		log.Debug("unknown message type", "type", msg.Type)
	}

	return false
}

// DefaultClientName builds a friendly name for the hello message
func DefaultClientName(host string) string {
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s", host, version.Product)
}
