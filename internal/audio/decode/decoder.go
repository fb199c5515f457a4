// ABOUTME: Decoder interface definition and codec factory
// ABOUTME: Common interface for all audio payload decoders
package decode

import (
	"fmt"

	"github.com/promptjam/promptjam-go/internal/audio"
)

// Decoder converts an opaque encoded payload to interleaved PCM samples.
// Samples are int32, left-justified in the 24-bit range.
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the format's codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	case "mp3":
		return NewMP3(format)
	case "flac":
		return NewFLAC(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
