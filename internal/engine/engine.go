// ABOUTME: Software audio engine with a sample-frame clock
// ABOUTME: Mixes scheduled PCM sources through gain stages into an int16 stream
package engine

import (
	"encoding/binary"
	"sync"

	"github.com/promptjam/promptjam-go/internal/audio"
)

// Tap receives every rendered block of interleaved int16 frames.
// Taps observe the mixed output path, after all gain stages.
type Tap interface {
	WriteFrames(frames []int16)
}

// Engine owns the audio clock and the mixing graph. Time is measured in
// seconds of rendered output: the clock advances only as frames are pulled
// through Read, so playback position and clock position cannot drift apart.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	frames     int64
	running    bool
	gains      []*Gain
	taps       []Tap
}

// New creates a suspended engine at the given output format
func New(sampleRate, channels int) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// SampleRate returns the output sample rate
func (e *Engine) SampleRate() int { return e.sampleRate }

// Channels returns the output channel count
func (e *Engine) Channels() int { return e.channels }

// Now returns the clock position in seconds
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.frames) / float64(e.sampleRate)
}

// Resume starts the clock
func (e *Engine) Resume() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
}

// Suspend freezes the clock; Read emits silence while suspended
func (e *Engine) Suspend() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Running reports whether the clock is advancing
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// NewGain creates a gain stage and attaches it to the output mix.
// Stages are never detached: a stage abandoned by its owner keeps playing
// out whatever was scheduled on it, which is what lets a paused player
// swap in a fresh stage without clicking off in-flight buffers.
func (e *Engine) NewGain() *Gain {
	g := &Gain{eng: e, value: 1.0}
	e.mu.Lock()
	e.gains = append(e.gains, g)
	e.mu.Unlock()
	return g
}

// AddTap attaches a tap to the mixed output
func (e *Engine) AddTap(t Tap) {
	e.mu.Lock()
	e.taps = append(e.taps, t)
	e.mu.Unlock()
}

// RemoveTap detaches a tap
func (e *Engine) RemoveTap(t Tap) {
	e.mu.Lock()
	for i, existing := range e.taps {
		if existing == t {
			e.taps = append(e.taps[:i], e.taps[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
}

// Read renders interleaved signed 16-bit little-endian frames. It
// implements io.Reader so an output device can pull directly from the
// engine. While suspended it fills p with silence without advancing
// the clock.
func (e *Engine) Read(p []byte) (int, error) {
	frameBytes := 2 * e.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	block := make([]int16, frames*e.channels)
	e.render(block, frames)

	for i, s := range block {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return frames * frameBytes, nil
}

// render mixes one block and delivers it to taps
func (e *Engine) render(dst []int16, frames int) {
	e.mu.Lock()

	if !e.running {
		e.mu.Unlock()
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	start := e.frames
	for f := 0; f < frames; f++ {
		frame := start + int64(f)
		for ch := 0; ch < e.channels; ch++ {
			var acc int64
			for _, g := range e.gains {
				gv := g.valueAt(frame)
				if gv == 0 {
					continue
				}
				var sum int64
				for _, src := range g.sources {
					sum += src.sampleAt(frame, ch)
				}
				acc += int64(float64(sum) * gv)
			}
			if acc > 32767 {
				acc = 32767
			} else if acc < -32768 {
				acc = -32768
			}
			dst[f*e.channels+ch] = int16(acc)
		}
	}
	e.frames = start + int64(frames)

	for _, g := range e.gains {
		g.prune(e.frames)
	}

	taps := make([]Tap, len(e.taps))
	copy(taps, e.taps)
	e.mu.Unlock()

	for _, t := range taps {
		t.WriteFrames(dst)
	}
}

func (e *Engine) secondsToFrames(s float64) int64 {
	return int64(s*float64(e.sampleRate) + 0.5)
}

// source is one PCM buffer laid out on the frame timeline
type source struct {
	buf    audio.Buffer
	start  int64
	frames int64
}

// sampleAt returns the source's contribution at an absolute frame, in the
// int16 range.
func (s *source) sampleAt(frame int64, ch int) int64 {
	idx := frame - s.start
	if idx < 0 || idx >= s.frames {
		return 0
	}
	bufCh := s.buf.Format.Channels
	if ch >= bufCh {
		ch = bufCh - 1 // mono sources feed every output channel
	}
	return int64(audio.SampleToInt16(s.buf.Samples[idx*int64(bufCh)+int64(ch)]))
}

// Gain is one gain stage in the output mix. Its value can be set
// immediately or ramped linearly over a scheduled window.
type Gain struct {
	eng     *Engine
	value   float64
	ramp    *ramp
	sources []*source
}

type ramp struct {
	from, to   float64
	start, end int64
}

// SetValue sets the gain immediately and cancels any ramp
func (g *Gain) SetValue(v float64) {
	g.eng.mu.Lock()
	g.value = v
	g.ramp = nil
	g.eng.mu.Unlock()
}

// Value returns the gain at the current clock position
func (g *Gain) Value() float64 {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	return g.valueAt(g.eng.frames)
}

// RampTo schedules a linear ramp from the stage's value at time `at`
// (seconds) to target over dur seconds.
func (g *Gain) RampTo(target, at, dur float64) {
	g.eng.mu.Lock()
	startFrame := g.eng.secondsToFrames(at)
	g.ramp = &ramp{
		from:  g.valueAt(startFrame),
		to:    target,
		start: startFrame,
		end:   startFrame + g.eng.secondsToFrames(dur),
	}
	g.eng.mu.Unlock()
}

// ScheduleAt lays a buffer on the timeline starting at `when` seconds.
// A start time already in the past is clamped to the current position.
func (g *Gain) ScheduleAt(buf audio.Buffer, when float64) {
	g.eng.mu.Lock()
	start := g.eng.secondsToFrames(when)
	if start < g.eng.frames {
		start = g.eng.frames
	}
	g.sources = append(g.sources, &source{
		buf:    buf,
		start:  start,
		frames: int64(buf.Frames()),
	})
	g.eng.mu.Unlock()
}

// PendingSources returns how many scheduled buffers have not finished
func (g *Gain) PendingSources() int {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	return len(g.sources)
}

// valueAt computes the gain at a frame, resolving finished ramps.
// Caller holds the engine lock.
func (g *Gain) valueAt(frame int64) float64 {
	r := g.ramp
	if r == nil {
		return g.value
	}
	if frame >= r.end {
		g.value = r.to
		g.ramp = nil
		return g.value
	}
	if frame < r.start {
		return g.value
	}
	progress := float64(frame-r.start) / float64(r.end-r.start)
	return r.from + (r.to-r.from)*progress
}

// prune drops sources that finished before the given frame.
// Caller holds the engine lock.
func (g *Gain) prune(frame int64) {
	kept := g.sources[:0]
	for _, s := range g.sources {
		if s.start+s.frames > frame {
			kept = append(kept, s)
		}
	}
	g.sources = kept
}
