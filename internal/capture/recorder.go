// ABOUTME: Recording tap over the rendered output stream
// ABOUTME: Negotiates an encoding format and accumulates encoded segments
package capture

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultFormatPreferences is the negotiation order for new recorders:
// compressed first, then a generic container, then format-unspecified.
var DefaultFormatPreferences = []string{MimeOpus, MimeWAV, ""}

// Recorder captures the mixed output stream into encoded segments. It
// implements the engine tap interface; frames written while the recorder
// is stopped are ignored.
type Recorder struct {
	mu        sync.Mutex
	enc       Encoder
	recording bool
	segments  [][]byte
	onData    func(segment []byte)
}

// NewRecorder negotiates an encoder against the preference list. Formats
// that cannot be opened are skipped; an error is returned only when no
// preference can be satisfied.
func NewRecorder(sampleRate, channels int, prefs []string) (*Recorder, error) {
	for _, pref := range prefs {
		switch {
		case strings.HasPrefix(pref, MimeOpus):
			enc, err := newOpusEncoder(sampleRate, channels)
			if err != nil {
				log.Debug("opus recorder unavailable", "err", err)
				continue
			}
			return &Recorder{enc: enc}, nil
		case strings.HasPrefix(pref, MimeWAV):
			return &Recorder{enc: newWAVEncoder(sampleRate, channels)}, nil
		case pref == "":
			return &Recorder{enc: rawEncoder{}}, nil
		default:
			log.Debug("unknown recording format preference", "mime", pref)
		}
	}
	return nil, fmt.Errorf("no recording format available from preferences %v", prefs)
}

// MimeType returns the negotiated format
func (r *Recorder) MimeType() string {
	return r.enc.MimeType()
}

// SetDataHandler registers a reaction invoked for each captured segment
func (r *Recorder) SetDataHandler(f func(segment []byte)) {
	r.mu.Lock()
	r.onData = f
	r.mu.Unlock()
}

// Start clears captured segments and begins recording
func (r *Recorder) Start() {
	r.mu.Lock()
	r.segments = nil
	r.recording = true
	r.mu.Unlock()
}

// Stop flushes the encoder tail and stops recording
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.recording = false

	tail, err := r.enc.Flush()
	if err != nil {
		log.Warn("recorder flush failed", "err", err)
		return
	}
	if len(tail) > 0 {
		r.segments = append(r.segments, tail)
	}
}

// WriteFrames consumes a block of rendered frames (engine tap)
func (r *Recorder) WriteFrames(frames []int16) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}

	segments, err := r.enc.Encode(frames)
	if err != nil {
		log.Warn("recorder encode failed", "err", err)
	}
	r.segments = append(r.segments, segments...)
	onData := r.onData
	r.mu.Unlock()

	if onData != nil {
		for _, seg := range segments {
			onData(seg)
		}
	}
}

// SegmentCount returns the number of captured segments
func (r *Recorder) SegmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.segments)
}

// Bytes returns the total captured size
func (r *Recorder) Bytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, seg := range r.segments {
		total += len(seg)
	}
	return total
}

// Blob concatenates all captured segments into one byte slice
func (r *Recorder) Blob() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	blob := make([]byte, 0)
	for _, seg := range r.segments {
		blob = append(blob, seg...)
	}
	return blob
}
