// ABOUTME: Tests for the software audio engine
// ABOUTME: Covers clock advance, suspension, scheduling, gain ramps, and taps
package engine

import (
	"testing"

	"github.com/promptjam/promptjam-go/internal/audio"
)

const testRate = 1000 // 1kHz keeps frame math readable

func testBuffer(frames int, value int16) audio.Buffer {
	samples := make([]int32, frames)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(value)
	}
	return audio.Buffer{
		Samples: samples,
		Format:  audio.Format{SampleRate: testRate, Channels: 1, BitDepth: 16},
	}
}

// pull renders n frames through the io.Reader surface
func pull(e *Engine, frames int) []int16 {
	p := make([]byte, frames*2*e.Channels())
	e.Read(p)
	out := make([]int16, frames*e.Channels())
	for i := range out {
		out[i] = int16(uint16(p[i*2]) | uint16(p[i*2+1])<<8)
	}
	return out
}

func TestClockAdvancesOnlyWhileRunning(t *testing.T) {
	e := New(testRate, 1)

	pull(e, 500)
	if e.Now() != 0 {
		t.Errorf("suspended clock advanced to %v", e.Now())
	}

	e.Resume()
	pull(e, 500)
	if e.Now() != 0.5 {
		t.Errorf("expected clock at 0.5s, got %v", e.Now())
	}

	e.Suspend()
	pull(e, 500)
	if e.Now() != 0.5 {
		t.Errorf("clock advanced while suspended: %v", e.Now())
	}
}

func TestSuspendedOutputIsSilence(t *testing.T) {
	e := New(testRate, 1)
	g := e.NewGain()
	g.ScheduleAt(testBuffer(100, 1000), 0)

	for i, s := range pull(e, 100) {
		if s != 0 {
			t.Fatalf("expected silence while suspended, frame %d = %d", i, s)
		}
	}
}

func TestScheduledSourceStartsOnTime(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()

	g.ScheduleAt(testBuffer(100, 1000), 0.1) // frame 100

	out := pull(e, 300)
	if out[50] != 0 {
		t.Errorf("expected silence before start, got %d", out[50])
	}
	if out[150] != 1000 {
		t.Errorf("expected 1000 during playback, got %d", out[150])
	}
	if out[250] != 0 {
		t.Errorf("expected silence after end, got %d", out[250])
	}
}

func TestBackToBackSourcesAreGapless(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()

	g.ScheduleAt(testBuffer(100, 500), 0.0)
	g.ScheduleAt(testBuffer(100, 700), 0.1)

	out := pull(e, 200)
	for i := 0; i < 100; i++ {
		if out[i] != 500 {
			t.Fatalf("frame %d: expected 500, got %d", i, out[i])
		}
	}
	for i := 100; i < 200; i++ {
		if out[i] != 700 {
			t.Fatalf("frame %d: expected 700, got %d", i, out[i])
		}
	}
}

func TestGainRampReachesTarget(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()
	g.SetValue(0)

	g.ScheduleAt(testBuffer(1000, 1000), 0)
	g.RampTo(1.0, 0, 0.1)

	out := pull(e, 200)
	if out[0] != 0 {
		t.Errorf("expected ramp to start at 0, got %d", out[0])
	}
	if out[50] <= 400 || out[50] >= 600 {
		t.Errorf("expected midpoint near 500, got %d", out[50])
	}
	if out[150] != 1000 {
		t.Errorf("expected full gain after ramp, got %d", out[150])
	}
	if g.Value() != 1.0 {
		t.Errorf("expected gain value 1.0, got %v", g.Value())
	}
}

func TestAbandonedGainKeepsPlaying(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()

	old := e.NewGain()
	old.ScheduleAt(testBuffer(100, 800), 0)

	// Owner swaps in a fresh stage; the old one still plays out
	fresh := e.NewGain()
	fresh.ScheduleAt(testBuffer(100, 100), 0.1)

	out := pull(e, 200)
	if out[50] != 800 {
		t.Errorf("expected abandoned stage audible, got %d", out[50])
	}
	if out[150] != 100 {
		t.Errorf("expected fresh stage audible, got %d", out[150])
	}
}

func TestFinishedSourcesArePruned(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()
	g.ScheduleAt(testBuffer(50, 100), 0)

	if g.PendingSources() != 1 {
		t.Fatalf("expected 1 pending source, got %d", g.PendingSources())
	}
	pull(e, 100)
	if g.PendingSources() != 0 {
		t.Errorf("expected finished source pruned, got %d", g.PendingSources())
	}
}

type collectTap struct {
	frames []int16
}

func (c *collectTap) WriteFrames(frames []int16) {
	c.frames = append(c.frames, frames...)
}

func TestTapObservesMixedOutput(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()
	g.ScheduleAt(testBuffer(100, 300), 0)

	tap := &collectTap{}
	e.AddTap(tap)

	pull(e, 100)
	if len(tap.frames) != 100 {
		t.Fatalf("expected 100 tapped frames, got %d", len(tap.frames))
	}
	if tap.frames[10] != 300 {
		t.Errorf("expected tapped frame 300, got %d", tap.frames[10])
	}

	e.RemoveTap(tap)
	pull(e, 100)
	if len(tap.frames) != 100 {
		t.Errorf("tap received frames after removal")
	}
}

func TestMixClipsToInt16(t *testing.T) {
	e := New(testRate, 1)
	e.Resume()
	g := e.NewGain()
	g.ScheduleAt(testBuffer(10, 30000), 0)
	g.ScheduleAt(testBuffer(10, 30000), 0)

	out := pull(e, 10)
	if out[0] != 32767 {
		t.Errorf("expected clipped output 32767, got %d", out[0])
	}
}

func TestStereoInterleave(t *testing.T) {
	e := New(testRate, 2)
	e.Resume()
	g := e.NewGain()

	// Stereo buffer: left 100, right -100
	samples := make([]int32, 20)
	for i := 0; i < 10; i++ {
		samples[i*2] = audio.SampleFromInt16(100)
		samples[i*2+1] = audio.SampleFromInt16(-100)
	}
	g.ScheduleAt(audio.Buffer{
		Samples: samples,
		Format:  audio.Format{SampleRate: testRate, Channels: 2, BitDepth: 16},
	}, 0)

	out := pull(e, 10)
	if out[0] != 100 || out[1] != -100 {
		t.Errorf("expected interleaved (100,-100), got (%d,%d)", out[0], out[1])
	}
}
