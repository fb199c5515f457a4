// ABOUTME: TUI initialization and player hookup
// ABOUTME: Wraps the bubbletea program and forwards player callbacks as messages
package ui

import (
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/promptjam/promptjam-go/internal/player"
)

// Run builds the TUI program over the player's command surface.
// Exported recordings are written to the working directory.
func Run(commands Commands, initial []string) *tea.Program {
	model := NewModel(commands, initial, func(name string, blob []byte) error {
		return os.WriteFile(name, blob, 0o644)
	})
	return tea.NewProgram(model, tea.WithAltScreen())
}

// Forwarder bridges player notifications into program messages. The
// player is constructed before the program exists, so notifications
// fired before Attach are dropped.
type Forwarder struct {
	mu   sync.Mutex
	prog *tea.Program
}

// Attach binds the running program
func (f *Forwarder) Attach(p *tea.Program) {
	f.mu.Lock()
	f.prog = p
	f.mu.Unlock()
}

func (f *Forwarder) send(msg tea.Msg) {
	f.mu.Lock()
	prog := f.prog
	f.mu.Unlock()
	if prog != nil {
		prog.Send(msg)
	}
}

// Callbacks returns player callbacks that forward into the TUI
func (f *Forwarder) Callbacks() player.Callbacks {
	return player.Callbacks{
		OnStateChange: func(s player.State) {
			f.send(StateMsg(s))
		},
		OnFilteredPrompt: func(text string) {
			f.send(FilteredMsg(text))
		},
		OnError: func(msg string) {
			f.send(ErrorMsg(msg))
		},
	}
}
