// ABOUTME: Jam simulator server for local development and testing
// ABOUTME: Accepts websocket sessions, filters prompts, and streams synthesized chunks
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/promptjam/promptjam-go/internal/discovery"
	"github.com/promptjam/promptjam-go/internal/protocol"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultBitDepth   = 16

	// Chunk timing
	chunkMs     = 20
	chunkFrames = DefaultSampleRate * chunkMs / 1000
)

// bannedWords are prompt terms the simulator refuses, standing in for
// the real service's moderation.
var bannedWords = []string{"explicit", "hateful", "violent"}

// Config holds simulator configuration
type Config struct {
	Port       int
	Name       string
	Codec      string // preferred stream codec: "pcm" or "opus"
	EnableMDNS bool
}

// Server is the jam simulator
type Server struct {
	config   Config
	serverID string
	upgrader websocket.Upgrader

	mux        *http.ServeMux
	httpServer *http.Server
	advertiser *discovery.Advertiser

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a simulator instance
func New(config Config) *Server {
	if config.Codec == "" {
		config.Codec = "pcm"
	}
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:      http.NewServeMux(),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc("/promptjam", s.handleWebSocket)
	return s
}

// Handler exposes the simulator's routes for embedding in tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the simulator until Stop is called
func (s *Server) Start() error {
	log.Info("jam simulator starting", "name", s.config.Name, "id", s.serverID)

	if s.config.EnableMDNS {
		adv, err := discovery.Advertise(s.config.Name, s.config.Port)
		if err != nil {
			log.Warn("mdns advertisement failed", "err", err)
		} else {
			s.advertiser = adv
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.mux}
	log.Info("listening", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Info("simulator shutting down")
	case err := <-errChan:
		serverErr = err
	}

	if s.advertiser != nil {
		s.advertiser.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn("shutdown error", "err", err)
	}
	s.wg.Wait()

	if serverErr != nil {
		return fmt.Errorf("http server failed: %w", serverErr)
	}
	return nil
}

// Stop shuts the simulator down
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// jamSession is one connected client's generative session
type jamSession struct {
	id    string
	name  string
	conn  *websocket.Conn
	codec string
	synth *Synth
	enc   *chunkEncoder

	sendChan chan interface{}

	mu      sync.Mutex
	playing bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Debug("error reading hello", "err", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != protocol.TypeClientHello {
		log.Warn("expected client hello", "err", err)
		return
	}
	payload, _ := json.Marshal(msg.Payload)
	var hello protocol.ClientHello
	if err := json.Unmarshal(payload, &hello); err != nil {
		log.Warn("malformed client hello", "err", err)
		return
	}
	if hello.ClientID == "" || hello.Name == "" {
		log.Warn("client hello missing identity")
		return
	}

	sess := &jamSession{
		id:       uuid.New().String(),
		name:     hello.Name,
		conn:     conn,
		codec:    negotiateCodec(s.config.Codec, hello.SupportedCodecs),
		synth:    NewSynth(DefaultSampleRate, DefaultChannels),
		sendChan: make(chan interface{}, 100),
	}
	if sess.codec == "opus" {
		enc, err := newChunkEncoder(DefaultSampleRate, DefaultChannels)
		if err != nil {
			log.Warn("opus unavailable, falling back to pcm", "err", err)
			sess.codec = "pcm"
		} else {
			sess.enc = enc
		}
	}

	log.Info("session opened", "client", hello.Name, "session", sess.id, "codec", sess.codec)

	if err := sess.sendJSON(protocol.TypeSessionReady, protocol.SessionReady{
		SessionID:  sess.id,
		Codec:      sess.codec,
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}); err != nil {
		log.Warn("failed to queue session ready", "err", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		sess.writer(done)
	}()
	go func() {
		defer s.wg.Done()
		sess.stream(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket error", "err", err)
			}
			break
		}
		sess.handleMessage(data)
	}
	log.Info("session closed", "client", sess.name, "session", sess.id)
}

// negotiateCodec picks the preferred codec when the client supports it,
// falling back to pcm.
func negotiateCodec(preferred string, supported []string) string {
	for _, c := range supported {
		if c == preferred {
			return preferred
		}
	}
	return "pcm"
}

func (sess *jamSession) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn("malformed message", "err", err)
		return
	}
	payload, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case protocol.TypeSetPrompts:
		var set protocol.SetPrompts
		if err := json.Unmarshal(payload, &set); err != nil {
			log.Warn("malformed prompt set", "err", err)
			return
		}
		sess.applyPrompts(set.Prompts)

	case protocol.TypePlayback:
		var cmd protocol.PlaybackCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Warn("malformed playback command", "err", err)
			return
		}
		sess.applyCommand(cmd.Command)

	default:
		log.Debug("unknown message type", "type", msg.Type)
	}
}

// applyPrompts moderates the set and feeds the survivors to the synth
func (sess *jamSession) applyPrompts(ps []protocol.WeightedPrompt) {
	accepted := make([]protocol.WeightedPrompt, 0, len(ps))
	for _, p := range ps {
		if reason := moderate(p.Text); reason != "" {
			log.Info("prompt filtered", "text", p.Text, "reason", reason)
			sess.sendJSON(protocol.TypePromptFiltered, protocol.PromptFiltered{
				Text:   p.Text,
				Reason: reason,
			})
			continue
		}
		accepted = append(accepted, p)
	}
	sess.synth.SetPrompts(accepted)
}

// moderate returns a rejection reason, or empty when the text is allowed
func moderate(text string) string {
	lower := strings.ToLower(text)
	for _, word := range bannedWords {
		if strings.Contains(lower, word) {
			return "disallowed content"
		}
	}
	return ""
}

func (sess *jamSession) applyCommand(command string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch command {
	case "play":
		sess.playing = true
	case "pause", "stop":
		sess.playing = false
	default:
		log.Warn("unknown playback command", "command", command)
	}
}

func (sess *jamSession) isPlaying() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.playing
}

// stream sends one synthesized chunk batch per tick while playing
func (sess *jamSession) stream(done <-chan struct{}) {
	ticker := time.NewTicker(chunkMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !sess.isPlaying() {
				continue
			}
			frames := sess.synth.Render(chunkFrames)
			payload, err := sess.encodeChunk(frames)
			if err != nil {
				log.Warn("chunk encode failed", "err", err)
				continue
			}
			batch, err := protocol.EncodeBatch([][]byte{payload})
			if err != nil {
				log.Warn("batch encode failed", "err", err)
				continue
			}
			sess.send(batch)
		}
	}
}

func (sess *jamSession) encodeChunk(frames []int16) ([]byte, error) {
	if sess.enc != nil {
		return sess.enc.Encode(frames)
	}
	out := make([]byte, len(frames)*2)
	for i, f := range frames {
		out[i*2] = byte(f)
		out[i*2+1] = byte(f >> 8)
	}
	return out, nil
}

// writer drains the send queue to the websocket
func (sess *jamSession) writer(done <-chan struct{}) {
	const writeDeadline = 10 * time.Second

	for {
		select {
		case <-done:
			return
		case msg := <-sess.sendChan:
			sess.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			switch v := msg.(type) {
			case []byte:
				if err := sess.conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Debug("binary write failed", "err", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Warn("message marshal failed", "err", err)
					continue
				}
				if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Debug("text write failed", "err", err)
					return
				}
			}
		}
	}
}

func (sess *jamSession) sendJSON(msgType string, payload interface{}) error {
	return sess.send(protocol.Message{Type: msgType, Payload: payload})
}

func (sess *jamSession) send(msg interface{}) error {
	select {
	case sess.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("session send buffer full")
	}
}
