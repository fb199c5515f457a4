// ABOUTME: Playback scheduler laying decoded chunks end-to-end on the audio clock
// ABOUTME: Owns the next-start cursor with pre-roll priming and underrun resync
package player

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/promptjam/promptjam-go/internal/audio"
	"github.com/promptjam/promptjam-go/internal/audio/decode"
)

// PreRoll is the delay between the first chunk's arrival and audible
// playback, absorbing initial network jitter.
const PreRoll = 2.0

// Clock exposes the audio clock the scheduler lays chunks against
type Clock interface {
	Now() float64
}

// Stage accepts buffers for playback at a clock time
type Stage interface {
	ScheduleAt(buf audio.Buffer, when float64)
}

// Control lets the scheduler observe and drive the playback state
type Control interface {
	State() State
	ToLoading()
	ToPlayingAfter(d time.Duration)
}

// Stats counts scheduler activity since the last reset
type Stats struct {
	Received  int
	Scheduled int
	Dropped   int
}

// Scheduler decides per arriving chunk whether to schedule, resync, or
// drop. The cursor is either the zero sentinel or strictly
// non-decreasing while scheduling continues.
type Scheduler struct {
	mu        sync.Mutex
	clock     Clock
	control   Control
	format    audio.Format
	dec       decode.Decoder
	stage     Stage
	nextStart float64
	stats     Stats
}

// NewScheduler creates a scheduler decoding chunks in format and laying
// them against clock. A stage must be attached before chunks arrive.
func NewScheduler(clock Clock, control Control, format audio.Format) (*Scheduler, error) {
	dec, err := decode.New(format)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		clock:   clock,
		control: control,
		format:  format,
		dec:     dec,
	}, nil
}

// SetStage replaces the output stage new chunks attach to. Buffers
// already scheduled on the previous stage keep playing there.
func (s *Scheduler) SetStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

// Reconfigure swaps the decoder to the announced stream format. The
// output rate and channel count are fixed by the engine, so only codec
// and bit depth changes take effect.
func (s *Scheduler) Reconfigure(format audio.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if format.SampleRate != s.format.SampleRate || format.Channels != s.format.Channels {
		log.Warn("stream format differs from output format, keeping output rate",
			"stream", format.SampleRate, "output", s.format.SampleRate)
	}
	if format.Codec == s.format.Codec && format.BitDepth == s.format.BitDepth {
		return nil
	}

	next := s.format
	next.Codec = format.Codec
	next.BitDepth = format.BitDepth
	dec, err := decode.New(next)
	if err != nil {
		return err
	}
	s.dec.Close()
	s.dec = dec
	s.format = next
	return nil
}

// ResetCursor returns the cursor to its sentinel so the next chunk
// re-triggers the pre-roll.
func (s *Scheduler) ResetCursor() {
	s.mu.Lock()
	s.nextStart = 0
	s.mu.Unlock()
}

// Stats returns a snapshot of the activity counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// OnChunk handles one arriving encoded chunk
func (s *Scheduler) OnChunk(payload []byte) {
	state := s.control.State()
	if state == Paused || state == Stopped {
		s.mu.Lock()
		s.stats.Received++
		s.stats.Dropped++
		s.mu.Unlock()
		return
	}

	samples, err := s.dec.Decode(payload)
	if err != nil {
		log.Warn("chunk decode failed", "err", err)
		s.mu.Lock()
		s.stats.Received++
		s.stats.Dropped++
		s.mu.Unlock()
		return
	}
	buf := audio.Buffer{Samples: samples, Format: s.format}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Received++

	now := s.clock.Now()
	switch {
	case s.nextStart == 0:
		// first chunk since a (re)start: prime the cursor and defer the
		// audible transition past the pre-roll
		s.nextStart = now + PreRoll
		s.control.ToPlayingAfter(time.Duration(PreRoll * float64(time.Second)))

	case s.nextStart < now:
		// underrun: drop and resync rather than schedule late
		log.Warn("playback underrun, resyncing", "cursor", s.nextStart, "clock", now)
		s.nextStart = 0
		s.stats.Dropped++
		s.control.ToLoading()

	default:
		if s.stage != nil {
			s.stage.ScheduleAt(buf, s.nextStart)
		}
		s.nextStart += buf.Duration()
		s.stats.Scheduled++
	}
}

// Close releases the decoder
func (s *Scheduler) Close() error {
	return s.dec.Close()
}
