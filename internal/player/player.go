// ABOUTME: Player orchestrating session lifecycle, scheduling, gain fades, and capture
// ABOUTME: Implements the stopped/loading/playing/paused command surface
package player

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/promptjam/promptjam-go/internal/audio"
	"github.com/promptjam/promptjam-go/internal/capture"
	"github.com/promptjam/promptjam-go/internal/engine"
	"github.com/promptjam/promptjam-go/internal/prompts"
	"github.com/promptjam/promptjam-go/internal/protocol"
	"github.com/promptjam/promptjam-go/internal/session"
	"github.com/promptjam/promptjam-go/internal/throttle"
)

const (
	// fadeTime is the gain ramp length for play/pause/stop transitions
	fadeTime = 0.1

	// promptInterval is the minimum spacing between prompt applies
	promptInterval = 200 * time.Millisecond

	exportPrefix = "promptjam-"
)

// Error messages surfaced through OnError
const (
	msgConnectionLost  = "connection to the music service was lost, please restart audio"
	msgNoActivePrompt  = "at least one active prompt required to play"
	msgStopBeforeSave  = "stop playback before saving the recording"
	msgNothingCaptured = "no audio captured yet"
)

// Callbacks are the player's notifications to observers. They are
// invoked from the player's own goroutines and must not call back into
// the player synchronously.
type Callbacks struct {
	OnStateChange    func(State)
	OnFilteredPrompt func(text string)
	OnError          func(msg string)
}

// Player is the playback orchestrator. All commands are safe for
// concurrent use.
type Player struct {
	mu       sync.Mutex
	eng      *engine.Engine
	sched    *Scheduler
	sessions *session.Manager
	throttle *throttle.Throttler
	cb       Callbacks
	format   audio.Format
	recPrefs []string

	prompts prompts.Map
	gain    *engine.Gain
	rec     *capture.Recorder

	stateMu   sync.Mutex
	state     State
	playTimer *time.Timer
}

// New creates a stopped player that connects with dial. The audio
// clock stays suspended until the first Play.
func New(format audio.Format, dial session.DialFunc, cb Callbacks) (*Player, error) {
	p := &Player{
		eng:      engine.New(format.SampleRate, format.Channels),
		cb:       cb,
		format:   format,
		recPrefs: capture.DefaultFormatPreferences,
		prompts:  make(prompts.Map),
		throttle: throttle.New(promptInterval),
		state:    Stopped,
	}
	p.sessions = session.NewManager(dial, session.Hooks{
		OnReady: func(r protocol.SessionReady) {
			log.Info("session ready", "session", r.SessionID, "codec", r.Codec)
			if err := p.sched.Reconfigure(audio.Format{
				Codec:      r.Codec,
				SampleRate: r.SampleRate,
				Channels:   r.Channels,
				BitDepth:   r.BitDepth,
			}); err != nil {
				p.notifyError("unsupported stream format: " + err.Error())
			}
		},
		OnFilteredPrompt: func(text string) {
			if cb.OnFilteredPrompt != nil {
				cb.OnFilteredPrompt(text)
			}
		},
		OnChunk: func(payload []byte) {
			p.sched.OnChunk(payload)
		},
		OnConnectionLost: func(err error) {
			p.onConnectionLost(err)
		},
	})

	sched, err := NewScheduler(p.eng, p, format)
	if err != nil {
		return nil, err
	}
	p.sched = sched
	p.gain = p.eng.NewGain()
	p.sched.SetStage(p.gain)
	return p, nil
}

// Engine exposes the audio engine for device hookup
func (p *Player) Engine() *engine.Engine { return p.eng }

// Stats returns the scheduler's activity counters
func (p *Player) Stats() Stats { return p.sched.Stats() }

// State returns the current playback state
func (p *Player) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// setState records the new state and notifies, regardless of whether
// the value changed.
func (p *Player) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	if s != Loading && p.playTimer != nil {
		p.playTimer.Stop()
		p.playTimer = nil
	}
	p.stateMu.Unlock()

	if p.cb.OnStateChange != nil {
		p.cb.OnStateChange(s)
	}
}

// ToLoading flips the state back to loading after an underrun
func (p *Player) ToLoading() {
	p.setState(Loading)
}

// ToPlayingAfter arms the deferred loading-to-playing transition at the
// end of the pre-roll. A newer arm supersedes a pending one.
func (p *Player) ToPlayingAfter(d time.Duration) {
	p.stateMu.Lock()
	if p.playTimer != nil {
		p.playTimer.Stop()
	}
	p.playTimer = time.AfterFunc(d, func() {
		if p.State() == Loading {
			p.setState(Playing)
		}
	})
	p.stateMu.Unlock()
}

func (p *Player) notifyError(msg string) {
	log.Error(msg)
	if p.cb.OnError != nil {
		p.cb.OnError(msg)
	}
}

// Play starts or resumes generation and playback
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLocked()
}

func (p *Player) playLocked() {
	p.setState(Loading)
	p.eng.Resume()

	p.gain.SetValue(0)
	p.gain.RampTo(1, p.eng.Now(), fadeTime)

	p.startRecordingLocked()

	go func() {
		h, err := p.sessions.Acquire(context.Background())
		if err != nil {
			// surfaced through OnConnectionLost
			return
		}
		if err := h.Play(); err != nil {
			p.notifyError(err.Error())
			return
		}
		p.mu.Lock()
		snapshot := p.prompts.Clone()
		p.mu.Unlock()
		if len(snapshot) > 0 {
			p.applyPrompts(snapshot)
		}
	}()
}

// Pause suspends audible playback while keeping the session open
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
}

func (p *Player) pauseLocked() {
	p.setState(Paused)

	if h := p.sessions.Current(); h != nil {
		if err := h.Pause(); err != nil {
			log.Warn("session pause failed", "err", err)
		}
	}

	p.gain.RampTo(0, p.eng.Now(), fadeTime)
	// fresh stage: buffers in flight fade out on the old one
	p.gain = p.eng.NewGain()
	p.sched.SetStage(p.gain)
	p.sched.ResetCursor()
	p.stopRecordingLocked()
}

// Stop ends playback and discards the session
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if h := p.sessions.Current(); h != nil {
		if err := h.Stop(); err != nil {
			log.Warn("session stop failed", "err", err)
		}
	}
	p.sessions.Release()

	// leave the gain open so the next play fades in cleanly
	p.gain.RampTo(1, p.eng.Now(), fadeTime)
	p.sched.ResetCursor()
	p.stopRecordingLocked()
	p.eng.Suspend()
	p.setState(Stopped)
}

// PlayPause toggles playback: playing pauses, paused or stopped plays,
// and loading cancels to stopped.
func (p *Player) PlayPause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case Playing:
		p.pauseLocked()
	case Loading:
		p.stopLocked()
	default:
		p.playLocked()
	}
}

// SetWeightedPrompts requests a prompt change. Calls are coalesced so
// at most one apply reaches the session per interval, carrying the
// latest map.
func (p *Player) SetWeightedPrompts(m prompts.Map) {
	snapshot := m.Clone()
	p.throttle.Do(func() {
		p.applyPrompts(snapshot)
	})
}

func (p *Player) applyPrompts(m prompts.Map) {
	p.mu.Lock()
	p.prompts = m
	active := m.Active(p.sessions.Filtered().Contains)
	if len(active) == 0 {
		p.notifyError(msgNoActivePrompt)
		p.pauseLocked()
		p.mu.Unlock()
		return
	}
	h := p.sessions.Current()
	p.mu.Unlock()

	if h == nil {
		// no session yet: prompts are stored and flushed by the next play
		return
	}
	if err := h.SetWeightedPrompts(active); err != nil {
		p.notifyError(err.Error())
		p.Pause()
	}
}

// Prompts returns a copy of the requested prompt map
func (p *Player) Prompts() prompts.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts.Clone()
}

// FilteredPrompts reports whether a prompt text has been rejected
func (p *Player) FilteredPrompts() *prompts.FilteredSet {
	return p.sessions.Filtered()
}

func (p *Player) startRecordingLocked() {
	p.stopRecordingLocked()
	rec, err := capture.NewRecorder(p.format.SampleRate, p.format.Channels, p.recPrefs)
	if err != nil {
		p.notifyError("recording unavailable: " + err.Error())
		return
	}
	rec.Start()
	p.eng.AddTap(rec)
	p.rec = rec
}

func (p *Player) stopRecordingLocked() {
	if p.rec == nil {
		return
	}
	p.eng.RemoveTap(p.rec)
	p.rec.Stop()
}

// Export returns the captured recording as a named blob. It is refused
// while playback is active or when nothing was captured.
func (p *Player) Export() (string, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.State(); s == Playing || s == Loading {
		p.notifyError(msgStopBeforeSave)
		return "", nil, errors.New(msgStopBeforeSave)
	}
	if p.rec == nil || p.rec.SegmentCount() == 0 {
		p.notifyError(msgNothingCaptured)
		return "", nil, errors.New(msgNothingCaptured)
	}

	stamp := strings.ReplaceAll(time.Now().UTC().Format(time.RFC3339), ":", "-")
	name := exportPrefix + stamp + capture.ExtensionForMime(p.rec.MimeType())
	return name, p.rec.Blob(), nil
}

// onConnectionLost forces a full stop and tells the user to restart
func (p *Player) onConnectionLost(err error) {
	log.Error("session connection lost", "err", err)
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
	p.notifyError(msgConnectionLost)
}

// Close stops playback and releases the throttler and decoder
func (p *Player) Close() error {
	p.Stop()
	p.throttle.Stop()
	return p.sched.Close()
}
