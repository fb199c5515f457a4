// ABOUTME: Prompt-driven tone synthesizer for the jam simulator
// ABOUTME: Mixes one sine voice per active prompt, weighted by prompt weight
package server

import (
	"hash/fnv"
	"math"
	"sync"

	"github.com/promptjam/promptjam-go/internal/protocol"
)

// voice is one sine oscillator in the mix
type voice struct {
	freq float64
	amp  float64
}

// Synth renders the simulated jam mix. Each prompt contributes a sine
// voice whose pitch is derived from the prompt text and whose level is
// its normalized weight.
type Synth struct {
	mu          sync.Mutex
	sampleRate  int
	channels    int
	sampleIndex uint64
	voices      []voice
}

// NewSynth creates a silent synthesizer
func NewSynth(sampleRate, channels int) *Synth {
	return &Synth{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// SetPrompts rebuilds the voice bank from the weighted prompt set
func (s *Synth) SetPrompts(ps []protocol.WeightedPrompt) {
	var total float64
	for _, p := range ps {
		total += p.Weight
	}

	voices := make([]voice, 0, len(ps))
	for _, p := range ps {
		if p.Weight <= 0 || total <= 0 {
			continue
		}
		voices = append(voices, voice{
			freq: promptFrequency(p.Text),
			amp:  p.Weight / total,
		})
	}

	s.mu.Lock()
	s.voices = voices
	s.mu.Unlock()
}

// promptFrequency maps a prompt text to a pitch between A2 and A5 on
// the chromatic scale, so different prompts sound distinct.
func promptFrequency(text string) float64 {
	h := fnv.New32a()
	h.Write([]byte(text))
	semitone := float64(h.Sum32() % 36)
	return 110.0 * math.Pow(2, semitone/12.0)
}

// Render produces the next block of interleaved frames
func (s *Synth) Render(frames int) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int16, frames*s.channels)
	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		var mix float64
		for _, v := range s.voices {
			mix += v.amp * math.Sin(2*math.Pi*v.freq*t)
		}

		pcm := int16(mix * 32767.0 * 0.5)
		for ch := 0; ch < s.channels; ch++ {
			out[i*s.channels+ch] = pcm
		}
	}
	s.sampleIndex += uint64(frames)
	return out
}
