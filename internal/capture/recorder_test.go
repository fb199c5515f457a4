// ABOUTME: Tests for the recording tap
// ABOUTME: Covers format negotiation, segment accumulation, and blob assembly
package capture

import (
	"bytes"
	"testing"
)

func TestNegotiationFallsBackToWAV(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{"audio/x-unknown", MimeWAV})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}
	if r.MimeType() != MimeWAV {
		t.Errorf("expected %s, got %s", MimeWAV, r.MimeType())
	}
}

func TestNegotiationFormatUnspecified(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{""})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}
	if r.MimeType() != MimeRaw {
		t.Errorf("expected %s, got %s", MimeRaw, r.MimeType())
	}
}

func TestNegotiationExhausted(t *testing.T) {
	if _, err := NewRecorder(48000, 2, []string{"video/mp4"}); err == nil {
		t.Error("expected error when no preference can be satisfied")
	}
	if _, err := NewRecorder(48000, 2, nil); err == nil {
		t.Error("expected error for empty preference list")
	}
}

func TestRecorderIgnoresFramesWhileStopped(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{""})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}

	r.WriteFrames([]int16{1, 2, 3, 4})
	if r.SegmentCount() != 0 {
		t.Errorf("expected no segments before Start, got %d", r.SegmentCount())
	}
}

func TestBlobLengthEqualsSegmentSum(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{MimeWAV})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}

	r.Start()
	r.WriteFrames(make([]int16, 960))
	r.WriteFrames(make([]int16, 480))
	r.Stop()

	if r.SegmentCount() == 0 {
		t.Fatal("expected captured segments")
	}
	if len(r.Blob()) != r.Bytes() {
		t.Errorf("blob length %d != segment sum %d", len(r.Blob()), r.Bytes())
	}
	// header + 960 samples + 480 samples
	want := 44 + 960*2 + 480*2
	if r.Bytes() != want {
		t.Errorf("expected %d captured bytes, got %d", want, r.Bytes())
	}
}

func TestStartResetsSegments(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{""})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}

	r.Start()
	r.WriteFrames([]int16{1, 2})
	r.Stop()
	if r.SegmentCount() == 0 {
		t.Fatal("expected segments from first session")
	}

	r.Start()
	if r.SegmentCount() != 0 {
		t.Error("expected segments cleared on new Start")
	}
}

func TestDataHandlerObservesSegments(t *testing.T) {
	r, err := NewRecorder(48000, 2, []string{""})
	if err != nil {
		t.Fatalf("negotiation failed: %v", err)
	}

	var seen [][]byte
	r.SetDataHandler(func(seg []byte) { seen = append(seen, seg) })

	r.Start()
	r.WriteFrames([]int16{1, 2, 3, 4})
	r.Stop()

	if len(seen) != 1 {
		t.Fatalf("expected 1 delivered segment, got %d", len(seen))
	}
	if !bytes.Equal(seen[0], r.Blob()) {
		t.Error("delivered segment does not match captured data")
	}
}

func TestRawEncoderPassthrough(t *testing.T) {
	segments, err := rawEncoder{}.Encode([]int16{0x0102, -1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	want := []byte{0x02, 0x01, 0xFF, 0xFF}
	if len(segments) != 1 || !bytes.Equal(segments[0], want) {
		t.Errorf("expected %v, got %v", want, segments)
	}
}

func TestWAVHeaderShape(t *testing.T) {
	h := streamingWAVHeader(2, 48000, 16)
	if len(h) != 44 {
		t.Fatalf("expected 44-byte header, got %d", len(h))
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		t.Error("header chunk markers malformed")
	}
}

func TestExtensionForMime(t *testing.T) {
	cases := map[string]string{
		MimeOpus:   ".opus",
		MimeWAV:    ".wav",
		MimeRaw:    ".bin",
		"whatever": ".bin",
		"":         ".bin",
	}
	for mime, want := range cases {
		if got := ExtensionForMime(mime); got != want {
			t.Errorf("ExtensionForMime(%q) = %q, want %q", mime, got, want)
		}
	}
}
