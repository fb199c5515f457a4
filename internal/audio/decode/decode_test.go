// ABOUTME: Tests for audio payload decoders
// ABOUTME: Covers codec selection, PCM decoding, and invalid payload handling
package decode

import (
	"testing"

	"github.com/promptjam/promptjam-go/internal/audio"
)

func pcmFormat(bitDepth int) audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   bitDepth,
	}
}

func TestNewUnsupportedCodec(t *testing.T) {
	_, err := New(audio.Format{Codec: "vorbis"})
	if err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestNewSelectsCodec(t *testing.T) {
	dec, err := New(pcmFormat(16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if _, ok := dec.(*PCMDecoder); !ok {
		t.Errorf("expected *PCMDecoder, got %T", dec)
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// 0x00,0x01 -> 0x0100 = 256 (16-bit) -> 256<<8 in the 24-bit range
	input := []byte{0x00, 0x01, 0x02, 0x03}
	output, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(output))
	}
	if output[0] != 256<<8 {
		t.Errorf("expected first sample %d, got %d", 256<<8, output[0])
	}
	if output[1] != 770<<8 {
		t.Errorf("expected second sample %d, got %d", 770<<8, output[1])
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(24))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	input := []byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80}
	output, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(output))
	}
	if output[0] != audio.Max24Bit {
		t.Errorf("expected max 24-bit sample, got %d", output[0])
	}
	if output[1] != audio.Min24Bit {
		t.Errorf("expected min 24-bit sample, got %d", output[1])
	}
}

func TestNewPCMInvalidBitDepth(t *testing.T) {
	if _, err := NewPCM(pcmFormat(8)); err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
}

func TestNewOpusInvalidCodec(t *testing.T) {
	if _, err := NewOpus(pcmFormat(16)); err == nil {
		t.Fatal("expected error for invalid codec")
	}
}

func TestMP3DecodeGarbage(t *testing.T) {
	decoder, err := NewMP3(audio.Format{Codec: "mp3", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if _, err := decoder.Decode([]byte{0xDE, 0xAD, 0xBE, 0xEF}); err == nil {
		t.Error("expected error for invalid mp3 payload")
	}
}

func TestFLACDecodeGarbage(t *testing.T) {
	decoder, err := NewFLAC(audio.Format{Codec: "flac", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if _, err := decoder.Decode([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Error("expected error for invalid flac payload")
	}
}
