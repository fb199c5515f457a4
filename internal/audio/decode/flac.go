// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes self-contained FLAC payloads to int32 samples
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/promptjam/promptjam-go/internal/audio"
)

// FLACDecoder decodes FLAC audio. Each payload must be a complete FLAC
// stream including the stream header.
type FLACDecoder struct {
	format audio.Format
}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != "flac" {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}
	return &FLACDecoder{format: format}, nil
}

// Decode converts a FLAC payload to interleaved int32 samples
func (d *FLACDecoder) Decode(data []byte) ([]int32, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}
	defer stream.Close()

	// Left-justify to the 24-bit range
	shift := 24 - int(stream.Info.BitsPerSample)

	var samples []int32
	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac frame decode failed: %w", err)
		}

		nch := len(fr.Subframes)
		if nch == 0 {
			continue
		}
		n := len(fr.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < nch; ch++ {
				v := fr.Subframes[ch].Samples[i]
				if shift > 0 {
					v <<= shift
				} else if shift < 0 {
					v >>= -shift
				}
				samples = append(samples, v)
			}
		}
	}

	return samples, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
