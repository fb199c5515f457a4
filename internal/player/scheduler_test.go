// ABOUTME: Tests for the playback scheduler
// ABOUTME: Covers pre-roll priming, gapless laying, underrun resync, and state guards
package player

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/promptjam/promptjam-go/internal/audio"
)

type fakeClock struct{ t float64 }

func (c *fakeClock) Now() float64 { return c.t }

type scheduled struct {
	buf  audio.Buffer
	when float64
}

type fakeStage struct{ calls []scheduled }

func (s *fakeStage) ScheduleAt(buf audio.Buffer, when float64) {
	s.calls = append(s.calls, scheduled{buf, when})
}

type fakeControl struct {
	state     State
	loadings  int
	playAfter []time.Duration
}

func (c *fakeControl) State() State { return c.state }
func (c *fakeControl) ToLoading()   { c.loadings++; c.state = Loading }
func (c *fakeControl) ToPlayingAfter(d time.Duration) {
	c.playAfter = append(c.playAfter, d)
}

// pcmChunk builds an encoded 16-bit little-endian chunk of the given
// duration in seconds for the test format.
func pcmChunk(f audio.Format, seconds float64) []byte {
	frames := int(seconds * float64(f.SampleRate))
	out := make([]byte, frames*f.Channels*2)
	for i := 0; i < frames*f.Channels; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(1000))
	}
	return out
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeClock, *fakeStage, *fakeControl, audio.Format) {
	t.Helper()
	format := audio.Format{Codec: "pcm", SampleRate: 1000, Channels: 1, BitDepth: 16}
	clock := &fakeClock{}
	control := &fakeControl{state: Loading}
	s, err := NewScheduler(clock, control, format)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	stage := &fakeStage{}
	s.SetStage(stage)
	return s, clock, stage, control, format
}

func TestFirstChunkPrimesPreRoll(t *testing.T) {
	s, clock, stage, control, format := newTestScheduler(t)
	defer s.Close()

	clock.t = 0
	s.OnChunk(pcmChunk(format, 2.0))

	if len(stage.calls) != 0 {
		t.Errorf("first chunk scheduled %d buffers, want 0 (prime only)", len(stage.calls))
	}
	if len(control.playAfter) != 1 || control.playAfter[0] != 2*time.Second {
		t.Errorf("deferred playing transition = %v, want one at 2s", control.playAfter)
	}

	// second chunk lands exactly at the primed cursor
	clock.t = 0.5
	s.OnChunk(pcmChunk(format, 2.0))
	if len(stage.calls) != 1 {
		t.Fatalf("second chunk scheduled %d buffers, want 1", len(stage.calls))
	}
	if got := stage.calls[0].when; got != 2.0 {
		t.Errorf("scheduled at %v, want 2.0", got)
	}

	// third chunk lays gaplessly after the second
	clock.t = 1.0
	s.OnChunk(pcmChunk(format, 2.0))
	if len(stage.calls) != 2 {
		t.Fatalf("third chunk scheduled %d buffers, want 2", len(stage.calls))
	}
	if got := stage.calls[1].when; got != 4.0 {
		t.Errorf("third chunk scheduled at %v, want 4.0", got)
	}
}

func TestGaplessLaying(t *testing.T) {
	s, clock, stage, _, format := newTestScheduler(t)
	defer s.Close()

	s.OnChunk(pcmChunk(format, 1.0)) // primes cursor to 2.0
	for i := 0; i < 4; i++ {
		clock.t = float64(i) * 0.3
		s.OnChunk(pcmChunk(format, 0.5))
	}

	for i, call := range stage.calls {
		want := 2.0 + float64(i)*0.5
		if call.when != want {
			t.Errorf("chunk %d scheduled at %v, want %v", i, call.when, want)
		}
	}
}

func TestUnderrunDropsAndResyncs(t *testing.T) {
	s, clock, stage, control, format := newTestScheduler(t)
	defer s.Close()

	clock.t = 0
	s.OnChunk(pcmChunk(format, 1.0)) // cursor primed to 2.0
	clock.t = 0.1
	s.OnChunk(pcmChunk(format, 1.0)) // scheduled at 2.0, cursor 3.0

	// clock runs past the cursor before the next chunk arrives
	clock.t = 5.0
	control.state = Playing
	s.OnChunk(pcmChunk(format, 1.0))

	if control.loadings != 1 {
		t.Errorf("ToLoading called %d times, want 1", control.loadings)
	}
	if len(stage.calls) != 1 {
		t.Errorf("late chunk was scheduled; stage has %d calls, want 1", len(stage.calls))
	}

	// the next chunk re-primes the pre-roll rather than scheduling
	clock.t = 5.2
	s.OnChunk(pcmChunk(format, 1.0))
	if len(stage.calls) != 1 {
		t.Error("chunk after resync scheduled immediately, want prime only")
	}
	if len(control.playAfter) != 2 {
		t.Errorf("playAfter transitions = %d, want 2", len(control.playAfter))
	}

	// and the chunk after that lands at the re-primed cursor
	clock.t = 5.4
	s.OnChunk(pcmChunk(format, 1.0))
	if len(stage.calls) != 2 {
		t.Fatalf("stage has %d calls, want 2", len(stage.calls))
	}
	if got := stage.calls[1].when; got != 7.2 {
		t.Errorf("resynced chunk scheduled at %v, want 7.2", got)
	}
}

func TestChunksDiscardedWhilePausedOrStopped(t *testing.T) {
	s, _, stage, control, format := newTestScheduler(t)
	defer s.Close()

	for _, state := range []State{Paused, Stopped} {
		control.state = state
		s.OnChunk(pcmChunk(format, 1.0))
	}
	if len(stage.calls) != 0 {
		t.Errorf("stage has %d calls, want 0", len(stage.calls))
	}
	if got := s.Stats(); got.Dropped != 2 || got.Received != 2 {
		t.Errorf("stats = %+v, want 2 received 2 dropped", got)
	}
}

func TestResetCursorRePrimes(t *testing.T) {
	s, clock, stage, _, format := newTestScheduler(t)
	defer s.Close()

	s.OnChunk(pcmChunk(format, 1.0))
	clock.t = 0.5
	s.OnChunk(pcmChunk(format, 1.0))
	if len(stage.calls) != 1 {
		t.Fatalf("stage has %d calls, want 1", len(stage.calls))
	}

	s.ResetCursor()
	clock.t = 0.6
	s.OnChunk(pcmChunk(format, 1.0)) // primes again
	clock.t = 0.7
	s.OnChunk(pcmChunk(format, 1.0))
	if len(stage.calls) != 2 {
		t.Fatalf("stage has %d calls, want 2", len(stage.calls))
	}
	if got := stage.calls[1].when; got != 0.6+2.0 {
		t.Errorf("re-primed chunk scheduled at %v, want 2.6", got)
	}
}

func TestReconfigureSwapsDecoder(t *testing.T) {
	s, clock, stage, _, format := newTestScheduler(t)
	defer s.Close()

	next := format
	next.BitDepth = 24
	if err := s.Reconfigure(next); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}

	// one second of 24-bit mono pcm
	chunk := make([]byte, 1000*3)
	s.OnChunk(chunk) // primes cursor
	clock.t = 0.5
	s.OnChunk(chunk)
	if len(stage.calls) != 1 {
		t.Fatalf("stage has %d calls, want 1", len(stage.calls))
	}
	if got := stage.calls[0].buf.Duration(); got != 1.0 {
		t.Errorf("decoded duration = %v, want 1.0", got)
	}

	bad := next
	bad.Codec = "vorbis"
	if err := s.Reconfigure(bad); err == nil {
		t.Error("Reconfigure(unknown codec) succeeded, want error")
	}
}

func TestBadChunkCountsAsDropped(t *testing.T) {
	format := audio.Format{Codec: "pcm", SampleRate: 1000, Channels: 1, BitDepth: 16}
	clock := &fakeClock{}
	control := &fakeControl{state: Loading}
	s, err := NewScheduler(clock, control, format)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	defer s.Close()

	s.OnChunk([]byte{0x01}) // odd length cannot be 16-bit PCM
	if got := s.Stats(); got.Dropped != 1 {
		t.Errorf("stats = %+v, want 1 dropped", got)
	}
}
