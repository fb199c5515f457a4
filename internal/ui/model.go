// ABOUTME: Bubbletea model for the jam TUI
// ABOUTME: Prompt weight editing, playback keys, and status display
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/promptjam/promptjam-go/internal/player"
	"github.com/promptjam/promptjam-go/internal/prompts"
)

const (
	weightStep = 0.1
	weightMax  = 2.0
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	filteredStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("241"))
	stateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Commands is the slice of the player the TUI drives
type Commands interface {
	PlayPause()
	Stop()
	SetWeightedPrompts(m prompts.Map)
	Export() (string, []byte, error)
	Stats() player.Stats
}

// promptRow is one editable prompt line
type promptRow struct {
	key      string
	text     string
	weight   float64
	filtered bool
}

// Model is the TUI state
type Model struct {
	commands Commands
	saver    func(name string, blob []byte) error

	rows    []promptRow
	cursor  int
	nextKey int

	editing bool
	input   string

	state    player.State
	stats    player.Stats
	lastErr  string
	exported string

	width  int
	height int
}

// StateMsg announces a playback state change
type StateMsg player.State

// FilteredMsg marks a prompt text as rejected by the service
type FilteredMsg string

// ErrorMsg surfaces a player error
type ErrorMsg string

// StatsMsg refreshes the scheduler counters
type StatsMsg player.Stats

// NewModel builds the TUI around the player's command surface.
// saver persists an exported recording; initial prompts start at
// weight 1.
func NewModel(commands Commands, initial []string, saver func(name string, blob []byte) error) Model {
	rows := make([]promptRow, 0, len(initial))
	for i, text := range initial {
		rows = append(rows, promptRow{
			key:    fmt.Sprintf("prompt-%d", i),
			text:   text,
			weight: 1.0,
		})
	}
	return Model{
		commands: commands,
		saver:    saver,
		rows:     rows,
		nextKey:  len(rows),
		state:    player.Stopped,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StateMsg:
		m.state = player.State(msg)
	case FilteredMsg:
		for i := range m.rows {
			if m.rows[i].text == string(msg) {
				m.rows[i].filtered = true
			}
		}
	case ErrorMsg:
		m.lastErr = string(msg)
	case StatsMsg:
		m.stats = player.Stats(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "a":
		m.editing = true
		m.input = ""
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjustWeight(-weightStep)
	case "right", "l":
		m.adjustWeight(weightStep)
	case " ":
		m.commands.PlayPause()
	case "s":
		m.commands.Stop()
	case "e":
		m.export()
	}
	return m, nil
}

// handleEditKey runs while a new prompt is being typed
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input)
		m.editing = false
		m.input = ""
		if text == "" {
			return m, nil
		}
		m.rows = append(m.rows, promptRow{
			key:    fmt.Sprintf("prompt-%d", m.nextKey),
			text:   text,
			weight: 1.0,
		})
		m.nextKey++
		m.cursor = len(m.rows) - 1
		m.commands.SetWeightedPrompts(m.promptMap())
	case "esc":
		m.editing = false
		m.input = ""
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	default:
		switch msg.Type {
		case tea.KeySpace:
			m.input += " "
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

func (m *Model) adjustWeight(delta float64) {
	if len(m.rows) == 0 {
		return
	}
	row := &m.rows[m.cursor]
	row.weight += delta
	if row.weight < 0 {
		row.weight = 0
	}
	if row.weight > weightMax {
		row.weight = weightMax
	}
	m.commands.SetWeightedPrompts(m.promptMap())
}

// promptMap builds the full requested prompt set from the rows
func (m Model) promptMap() prompts.Map {
	out := make(prompts.Map, len(m.rows))
	for _, row := range m.rows {
		out[row.key] = prompts.Prompt{Text: row.text, Weight: row.weight}
	}
	return out
}

func (m *Model) export() {
	name, blob, err := m.commands.Export()
	if err != nil {
		// the player already surfaced the error through its callback
		return
	}
	if err := m.saver(name, blob); err != nil {
		m.lastErr = fmt.Sprintf("save failed: %v", err)
		return
	}
	m.exported = name
	m.lastErr = ""
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("PromptJam"))
	b.WriteString("  ")
	b.WriteString(stateStyle.Render(m.state.String()))
	b.WriteString("\n\n")

	for i, row := range m.rows {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s%-30s %s %.1f", marker, row.text, weightBar(row.weight), row.weight)
		switch {
		case row.filtered:
			line = filteredStyle.Render(line)
		case i == m.cursor:
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString(selectedStyle.Render("new prompt: " + m.input + "▌"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("chunks: %d received, %d scheduled, %d dropped\n",
		m.stats.Received, m.stats.Scheduled, m.stats.Dropped))

	if m.exported != "" {
		b.WriteString("saved " + m.exported + "\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	help := "↑/↓ select  ←/→ weight  a add  space play/pause  s stop  e export  q quit"
	if m.editing {
		help = "enter add prompt  esc cancel"
	}
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// weightBar renders a ten-cell weight meter
func weightBar(weight float64) string {
	filled := int(weight / weightMax * 10)
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
