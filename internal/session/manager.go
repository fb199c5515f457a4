// ABOUTME: Session lifecycle manager with a memoized acquisition cell
// ABOUTME: Shares one in-flight connect across callers and dispatches session events
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/promptjam/promptjam-go/internal/prompts"
	"github.com/promptjam/promptjam-go/internal/protocol"
)

// ErrReleased is returned to acquirers whose pending connect was discarded
// by Release before it resolved.
var ErrReleased = errors.New("session released before connect completed")

// DialFunc opens a new connection to the generative service
type DialFunc func(ctx context.Context) (Handle, error)

// Hooks are the manager's reactions to session events. All hooks are
// optional; they are invoked from the manager's dispatch goroutine.
type Hooks struct {
	// OnReady fires when the server acknowledges session setup
	OnReady func(ready protocol.SessionReady)

	// OnFilteredPrompt fires after a rejected prompt has been added to
	// the filtered set
	OnFilteredPrompt func(text string)

	// OnChunk receives the first chunk of each arriving batch
	OnChunk func(payload []byte)

	// OnConnectionLost fires on connect failure, transport error, or
	// transport close
	OnConnectionLost func(err error)
}

// acquisition is the memo cell: a pending-or-resolved connect result
type acquisition struct {
	done   chan struct{}
	handle Handle
	err    error
}

// Manager owns the single logical connection to the generative service.
// Concurrent acquirers share one connect; Release discards the handle and
// the memo so the next Acquire reconnects from scratch.
type Manager struct {
	mu        sync.Mutex
	dial      DialFunc
	hooks     Hooks
	filtered  *prompts.FilteredSet
	cell      *acquisition
	gen       uint64
	connError bool
}

// NewManager creates a manager that connects with dial
func NewManager(dial DialFunc, hooks Hooks) *Manager {
	return &Manager{
		dial:     dial,
		hooks:    hooks,
		filtered: prompts.NewFilteredSet(),
	}
}

// Filtered returns the set of prompt texts the service has rejected.
// The set survives Release: a text filtered by a previous session stays
// filtered for the manager's lifetime.
func (m *Manager) Filtered() *prompts.FilteredSet {
	return m.filtered
}

// ConnectionError reports whether the last session ended in a transport
// failure that has not been cleared by a setup acknowledgement.
func (m *Manager) ConnectionError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connError
}

// Acquire returns the current session handle, connecting if necessary.
// All concurrent callers observe the same pending connect.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	if m.cell == nil {
		cell := &acquisition{done: make(chan struct{})}
		m.cell = cell
		go m.connect(cell, m.gen)
	}
	cell := m.cell
	m.mu.Unlock()

	select {
	case <-cell.done:
		return cell.handle, cell.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current returns the resolved handle, or nil when no session exists or
// the connect is still pending.
func (m *Manager) Current() Handle {
	m.mu.Lock()
	cell := m.cell
	m.mu.Unlock()

	if cell == nil {
		return nil
	}
	select {
	case <-cell.done:
		return cell.handle
	default:
		return nil
	}
}

// Release discards the handle and the acquisition memo. A connect still
// in flight resolves to ErrReleased and its handle is closed on arrival.
func (m *Manager) Release() {
	m.mu.Lock()
	cell := m.cell
	m.cell = nil
	m.gen++
	m.mu.Unlock()

	if cell == nil {
		return
	}
	select {
	case <-cell.done:
		if cell.handle != nil {
			cell.handle.Close()
		}
	default:
		// still connecting; the dial goroutine sees the stale generation
	}
}

// connect resolves the cell and, on success, starts event dispatch.
// The cell is resolved under the lock so Release either beats the
// resolution (and this goroutine discards the handle) or observes a
// closed done channel and closes the handle itself.
func (m *Manager) connect(cell *acquisition, gen uint64) {
	h, err := m.dial(context.Background())

	m.mu.Lock()
	if m.gen != gen {
		cell.err = ErrReleased
		close(cell.done)
		m.mu.Unlock()
		if h != nil {
			h.Close()
		}
		return
	}
	cell.handle, cell.err = h, err
	if err != nil {
		m.cell = nil // allow a later Acquire to retry
		m.connError = true
	}
	close(cell.done)
	m.mu.Unlock()

	if err != nil {
		log.Error("session connect failed", "err", err)
		if m.hooks.OnConnectionLost != nil {
			m.hooks.OnConnectionLost(err)
		}
		return
	}

	go m.dispatch(h, gen)
}

// dispatch routes session events to independent handlers until the
// event stream ends.
func (m *Manager) dispatch(h Handle, gen uint64) {
	for ev := range h.Events() {
		switch {
		case ev.Ready != nil:
			m.mu.Lock()
			m.connError = false
			m.mu.Unlock()
			if m.hooks.OnReady != nil {
				m.hooks.OnReady(*ev.Ready)
			}

		case ev.Filtered != nil:
			m.filtered.Add(ev.Filtered.Text)
			log.Info("prompt filtered by service", "text", ev.Filtered.Text, "reason", ev.Filtered.Reason)
			if m.hooks.OnFilteredPrompt != nil {
				m.hooks.OnFilteredPrompt(ev.Filtered.Text)
			}

		case len(ev.Batch) > 0:
			// Only the first chunk of a batch is used
			if m.hooks.OnChunk != nil {
				m.hooks.OnChunk(ev.Batch[0])
			}

		case ev.Err != nil:
			m.mu.Lock()
			stale := m.gen != gen
			if !stale {
				m.connError = true
			}
			m.mu.Unlock()
			if !stale && m.hooks.OnConnectionLost != nil {
				m.hooks.OnConnectionLost(ev.Err)
			}
			return
		}
	}
}
