// ABOUTME: Opus encoder for bandwidth-efficient simulator streaming
// ABOUTME: Wraps libopus to encode rendered PCM chunks to Opus packets
package server

import (
	"fmt"

	"github.com/charmbracelet/log"
	"gopkg.in/hraban/opus.v2"
)

// chunkEncoder encodes one rendered chunk to an Opus packet
type chunkEncoder struct {
	encoder  *opus.Encoder
	channels int
}

// newChunkEncoder creates an encoder for 20ms chunks at sampleRate
func newChunkEncoder(sampleRate, channels int) (*chunkEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	bitrate := 64000 * channels
	if err := enc.SetBitrate(bitrate); err != nil {
		log.Warn("failed to set opus bitrate", "err", err)
	}

	return &chunkEncoder{encoder: enc, channels: channels}, nil
}

// Encode encodes interleaved PCM frames to one Opus packet
func (e *chunkEncoder) Encode(pcm []int16) ([]byte, error) {
	// Opus packets never exceed 4000 bytes
	out := make([]byte, 4000)
	n, err := e.encoder.Encode(pcm, out)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}
	return out[:n], nil
}
