// ABOUTME: Segment encoders for the recording tap
// ABOUTME: Opus, WAV, and raw PCM encoders behind one interface
package capture

import (
	"encoding/binary"
	"fmt"

	"github.com/charmbracelet/log"
	"gopkg.in/hraban/opus.v2"
)

// Encoder turns rendered int16 frames into opaque encoded segments
type Encoder interface {
	// Encode consumes interleaved frames and returns zero or more
	// complete encoded segments
	Encode(frames []int16) ([][]byte, error)

	// Flush drains any buffered tail as a final segment
	Flush() ([]byte, error)

	// MimeType identifies the negotiated format
	MimeType() string
}

// MIME types produced by the built-in encoders
const (
	MimeOpus = "audio/opus"
	MimeWAV  = "audio/wav"
	MimeRaw  = "audio/L16"
)

// ExtensionForMime maps a mime type to a file extension, with a generic
// fallback for unrecognized formats.
func ExtensionForMime(mime string) string {
	switch mime {
	case MimeOpus:
		return ".opus"
	case MimeWAV:
		return ".wav"
	default:
		return ".bin"
	}
}

// opusEncoder packs frames into fixed 20ms Opus packets
type opusEncoder struct {
	enc             *opus.Encoder
	channels        int
	samplesPerFrame int
	pending         []int16
}

func newOpusEncoder(sampleRate, channels int) (*opusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	if err := enc.SetBitrate(64000 * channels); err != nil {
		log.Warn("failed to set opus bitrate", "err", err)
	}

	// 20ms frames
	frameSize := sampleRate * 20 / 1000
	return &opusEncoder{
		enc:             enc,
		channels:        channels,
		samplesPerFrame: frameSize * channels,
	}, nil
}

func (e *opusEncoder) Encode(frames []int16) ([][]byte, error) {
	e.pending = append(e.pending, frames...)

	var segments [][]byte
	for len(e.pending) >= e.samplesPerFrame {
		packet := make([]byte, 4000) // opus packets never exceed 4000 bytes
		n, err := e.enc.Encode(e.pending[:e.samplesPerFrame], packet)
		if err != nil {
			return segments, fmt.Errorf("opus encode failed: %w", err)
		}
		segments = append(segments, packet[:n])
		e.pending = e.pending[e.samplesPerFrame:]
	}
	return segments, nil
}

func (e *opusEncoder) Flush() ([]byte, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}

	// Pad the tail to a full frame with silence
	padded := make([]int16, e.samplesPerFrame)
	copy(padded, e.pending)
	e.pending = nil

	packet := make([]byte, 4000)
	n, err := e.enc.Encode(padded, packet)
	if err != nil {
		return nil, fmt.Errorf("opus flush failed: %w", err)
	}
	return packet[:n], nil
}

func (e *opusEncoder) MimeType() string { return MimeOpus }

// wavEncoder emits a streaming RIFF header followed by raw PCM data.
// Sizes in the header are left at the streaming sentinel since the total
// length is unknown until the tap closes.
type wavEncoder struct {
	sampleRate    int
	channels      int
	headerWritten bool
}

func newWAVEncoder(sampleRate, channels int) *wavEncoder {
	return &wavEncoder{sampleRate: sampleRate, channels: channels}
}

func (e *wavEncoder) Encode(frames []int16) ([][]byte, error) {
	data := framesToBytes(frames)

	if !e.headerWritten {
		e.headerWritten = true
		return [][]byte{streamingWAVHeader(e.channels, e.sampleRate, 16), data}, nil
	}
	return [][]byte{data}, nil
}

func (e *wavEncoder) Flush() ([]byte, error) { return nil, nil }

func (e *wavEncoder) MimeType() string { return MimeWAV }

// rawEncoder passes frames through as little-endian signed 16-bit PCM
type rawEncoder struct{}

func (rawEncoder) Encode(frames []int16) ([][]byte, error) {
	return [][]byte{framesToBytes(frames)}, nil
}

func (rawEncoder) Flush() ([]byte, error) { return nil, nil }

func (rawEncoder) MimeType() string { return MimeRaw }

func framesToBytes(frames []int16) []byte {
	data := make([]byte, len(frames)*2)
	for i, s := range frames {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}
