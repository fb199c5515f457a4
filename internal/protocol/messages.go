// ABOUTME: PromptJam protocol message type definitions
// ABOUTME: Defines structs for all message types exchanged with the jam server
package protocol

// Message is the top-level wrapper for all JSON protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message type names
const (
	TypeClientHello    = "client/hello"
	TypeSessionReady   = "session/ready"
	TypeSetPrompts     = "prompts/set"
	TypePromptFiltered = "prompts/filtered"
	TypePlayback       = "playback/command"
	TypeServerError    = "server/error"
)

// ClientHello is sent by clients to initiate a generative session
type ClientHello struct {
	ClientID        string   `json:"client_id"`
	Name            string   `json:"name"`
	Version         int      `json:"version"`
	SupportedCodecs []string `json:"supported_codecs"`
	SampleRate      int      `json:"sample_rate"`
	Channels        int      `json:"channels"`
}

// SessionReady acknowledges session setup and announces the stream format
type SessionReady struct {
	SessionID  string `json:"session_id"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// WeightedPrompt is one steering prompt with its blend weight
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// SetPrompts replaces the active prompt set steering generation
type SetPrompts struct {
	Prompts []WeightedPrompt `json:"prompts"`
}

// PromptFiltered notifies the client that a prompt was rejected by the service
type PromptFiltered struct {
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

// PlaybackCommand starts, pauses, or stops generation on the server side.
// Command is one of "play", "pause", "stop".
type PlaybackCommand struct {
	Command string `json:"command"`
}

// ServerError carries an error message from the service
type ServerError struct {
	Message string `json:"message"`
}
