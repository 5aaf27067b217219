// internal/cli/practice/model.go
// Package practice is the terminal front end for a trainer session.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
	"github.com/ColonelBlimp/morsetrainer/internal/trainer"
)

// DefaultTickInterval is the redraw and decoder poll cadence
const DefaultTickInterval = 100 * time.Millisecond

const volumeBars = 10

var ErrUnexpectedModel = errors.New("unexpected final bubbletea model type")

// ColorSource reports the colour currently shown by the light.
type ColorSource interface {
	Color() feedback.Color
}

type tickMsg time.Time

type copiedMsg struct {
	n   int
	err error
}

// Model adapts a trainer.Session to bubbletea.
type Model struct {
	session *trainer.Session
	light   ColorSource
	tick    time.Duration
	now     func() time.Time
	copy    func(string) error

	keys   keyMap
	help   help.Model
	styles styles

	state  trainer.RenderState
	status string
	width  int
}

// NewModel creates a model for session. light may be nil.
func NewModel(session *trainer.Session, light ColorSource, tick time.Duration) Model {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return Model{
		session: session,
		light:   light,
		tick:    tick,
		now:     time.Now,
		copy:    clipboard.WriteAll,
		keys:    defaultKeyMap(),
		help:    help.New(),
		styles:  newStyles(),
		state:   session.State(),
	}
}

// Run drives the session until the user quits or ctx is cancelled.
func Run(ctx context.Context, session *trainer.Session, light ColorSource, tick time.Duration) error {
	p := tea.NewProgram(
		NewModel(session, light, tick),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if _, ok := final.(Model); !ok {
		return ErrUnexpectedModel
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.nextTick()
}

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.state = m.session.HandleEvent(trainer.TickEvent{Now: time.Time(msg)})
		return m, m.nextTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("copied %d characters", msg.n)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.now()
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Copy):
		if m.state.Mode == trainer.ModePractice {
			return m, m.copyHistory()
		}
		return m, nil
	case key.Matches(msg, m.keys.Dot):
		m.state = m.session.HandleEvent(trainer.SymbolEvent{Symbol: cw.Dot, Now: now})
	case key.Matches(msg, m.keys.Dash):
		m.state = m.session.HandleEvent(trainer.SymbolEvent{Symbol: cw.Dash, Now: now})
	case key.Matches(msg, m.keys.OK):
		// Terminals report no key release, so OK is always a short press
		m.session.HandleEvent(trainer.ButtonEvent{Button: trainer.ButtonOK, Phase: trainer.PhasePress, Now: now})
		m.state = m.session.HandleEvent(trainer.ButtonEvent{Button: trainer.ButtonOK, Phase: trainer.PhaseRelease, Now: now})
	default:
		b, ok := m.button(msg)
		if !ok {
			return m, nil
		}
		m.state = m.session.HandleEvent(trainer.ButtonEvent{Button: b, Phase: trainer.PhasePress, Now: now})
	}

	if m.state.Quit {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) button(msg tea.KeyMsg) (trainer.Button, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		return trainer.ButtonUp, true
	case key.Matches(msg, m.keys.Down):
		return trainer.ButtonDown, true
	case key.Matches(msg, m.keys.Left):
		return trainer.ButtonLeft, true
	case key.Matches(msg, m.keys.Right):
		return trainer.ButtonRight, true
	case key.Matches(msg, m.keys.Back):
		return trainer.ButtonBack, true
	}
	return 0, false
}

func (m Model) copyHistory() tea.Cmd {
	text := strings.TrimSpace(m.state.History)
	copyFn := m.copy
	return func() tea.Msg {
		return copiedMsg{n: len([]rune(text)), err: copyFn(text)}
	}
}

// State returns the last rendered session state.
func (m Model) State() trainer.RenderState {
	return m.state
}

func (m Model) View() string {
	if m.state.Quit {
		return ""
	}

	var body string
	var helpLine string
	switch m.state.Mode {
	case trainer.ModeMenu:
		body = m.viewMenu()
		helpLine = m.help.View(m.keys)
	case trainer.ModeLearn:
		body = m.viewLearn()
		helpLine = m.help.View(m.keys)
	case trainer.ModePractice:
		body = m.viewPractice()
		helpLine = m.help.View(practiceHelp{m.keys})
	case trainer.ModeHelp:
		body = m.viewHelp()
		helpLine = m.help.View(m.keys)
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("Morse Trainer") + "  " + m.led() + "\n")
	b.WriteString(m.styles.panel.Render(body) + "\n")
	if m.status != "" {
		b.WriteString(m.styles.dim.Render(m.status) + "\n")
	}
	b.WriteString(helpLine)
	return b.String()
}

func (m Model) led() string {
	c := feedback.ColorNone
	if m.light != nil {
		c = m.light.Color()
	}
	glyph := "○"
	if c != feedback.ColorNone {
		glyph = "●"
	}
	return m.styles.leds[c].Render(glyph)
}

func (m Model) viewMenu() string {
	var b strings.Builder
	for i, item := range trainer.MenuItems {
		if i == m.state.MenuIndex {
			b.WriteString(m.styles.selected.Render("> " + item.String()))
		} else {
			b.WriteString("  " + item.String())
		}
		if i < len(trainer.MenuItems)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewLearn() string {
	return fmt.Sprintf("%s\n\n%s\n\n%s",
		m.styles.big.Render(string(m.state.LearnChar)),
		m.styles.code.Render(spell(m.state.LearnCode)),
		m.styles.dim.Render("enter: play  ←: letters  →: digits"))
}

func (m Model) viewPractice() string {
	var b strings.Builder

	b.WriteString("Input:   " + m.styles.code.Render(spell(m.state.Buffer)) + "\n")

	decoded := ""
	switch {
	case m.state.Unknown():
		decoded = m.styles.unknown.Render("[unknown]")
	case m.state.LastDecoded != 0:
		decoded = m.styles.big.Render(string(m.state.LastDecoded))
	}
	b.WriteString("Decoded: " + decoded + "\n")
	b.WriteString("Text:    " + m.state.History + "\n")
	b.WriteString("Volume:  " + volumeBar(m.state.Volume))
	if m.state.Dropped > 0 {
		b.WriteString("\n" + m.styles.warn.Render(fmt.Sprintf("%d presses not echoed", m.state.Dropped)))
	}
	return b.String()
}

func (m Model) viewHelp() string {
	return strings.Join([]string{
		"Learn: browse A-Z and 0-9, enter plays the code.",
		"Practice: key with . and - (or z and x).",
		"A pause ends the character and it is decoded.",
		"Right clears, up and down set the volume.",
		"",
		"esc returns to the menu.",
	}, "\n")
}

// spell renders a code with spacing wide enough to read.
func spell(c cw.Code) string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, len(c))
	for i, s := range c {
		if s == cw.Dash {
			parts[i] = "—"
		} else {
			parts[i] = "•"
		}
	}
	return strings.Join(parts, " ")
}

func volumeBar(v float64) string {
	n := int(v*volumeBars + 0.5)
	return strings.Repeat("█", n) + strings.Repeat("░", volumeBars-n) + fmt.Sprintf(" %3.0f%%", v*100)
}
