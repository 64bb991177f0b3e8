// Package tui is the interactive terminal front end: a prompt editor, an
// aspect ratio selector and the generation history.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mhpenta/imagine"
)

// Focus identifies the pane receiving key input.
type Focus int

const (
	FocusPrompt Focus = iota
	FocusRatio
	FocusHistory
)

// generatedMsg carries the outcome of a Submit back to the update loop.
type generatedMsg struct {
	image *imagine.GeneratedImage
	err   error
}

// Model is the bubbletea model wrapping an imagine.Session.
type Model struct {
	ctx     context.Context
	session *imagine.Session
	storage imagine.Storage
	config  imagine.GenerateConfig

	prompt     []rune
	ratioIndex int
	focus      Focus
	selected   int
	suggestion int

	generating bool
	started    time.Time
	errMsg     string
	status     string

	width  int
	height int
}

// New creates the model. storage receives downloaded images.
func New(ctx context.Context, session *imagine.Session, storage imagine.Storage, config imagine.GenerateConfig) *Model {
	if config.AspectRatio == "" {
		config.AspectRatio = imagine.DefaultAspectRatio
	}

	return &Model{
		ctx:        ctx,
		session:    session,
		storage:    storage,
		config:     config,
		ratioIndex: max(0, slices.Index(imagine.SupportedAspectRatios, config.AspectRatio)),
	}
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Prompt returns the current prompt text.
func (m *Model) Prompt() string {
	return string(m.prompt)
}

// AspectRatio returns the selected aspect ratio.
func (m *Model) AspectRatio() imagine.AspectRatio {
	return imagine.SupportedAspectRatios[m.ratioIndex]
}

// CanGenerate reports whether the generate trigger is enabled.
func (m *Model) CanGenerate() bool {
	return !m.generating && strings.TrimSpace(m.Prompt()) != ""
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case generatedMsg:
		m.generating = false
		if msg.err != nil {
			m.errMsg = m.session.LastError()
			if m.errMsg == "" {
				m.errMsg = imagine.UserMessage(msg.err)
			}
			return m, nil
		}
		if msg.image != nil {
			m.prompt = m.prompt[:0]
			m.selected = 0
			m.status = fmt.Sprintf("Generated %s in %s", msg.image.ID, time.Since(m.started).Round(100*time.Millisecond))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		m.focus = (m.focus + 1) % 3
		return m, nil
	case tea.KeyShiftTab:
		m.focus = (m.focus + 2) % 3
		return m, nil
	case tea.KeyCtrlG:
		return m, m.generate()
	}

	switch m.focus {
	case FocusPrompt:
		return m, m.handlePromptKey(msg)
	case FocusRatio:
		m.handleRatioKey(msg)
	case FocusHistory:
		return m, m.handleHistoryKey(msg)
	}
	return m, nil
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		return m.generate()
	case tea.KeyBackspace:
		if len(m.prompt) > 0 {
			m.prompt = m.prompt[:len(m.prompt)-1]
		}
	case tea.KeyCtrlU:
		m.prompt = m.prompt[:0]
	case tea.KeyCtrlR:
		m.prompt = []rune(imagine.Suggestions[m.suggestion%len(imagine.Suggestions)])
		m.suggestion++
	case tea.KeySpace:
		m.prompt = append(m.prompt, ' ')
	case tea.KeyRunes:
		m.prompt = append(m.prompt, msg.Runes...)
	}
	return nil
}

func (m *Model) handleRatioKey(msg tea.KeyMsg) {
	n := len(imagine.SupportedAspectRatios)
	switch msg.String() {
	case "left", "h":
		m.ratioIndex = (m.ratioIndex + n - 1) % n
	case "right", "l":
		m.ratioIndex = (m.ratioIndex + 1) % n
	}
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	images := m.session.History().Images()
	if len(images) == 0 {
		return nil
	}
	m.selected = min(m.selected, len(images)-1)

	switch msg.String() {
	case "up", "k":
		m.selected = max(0, m.selected-1)
	case "down", "j":
		m.selected = min(len(images)-1, m.selected+1)
	case "d", "delete":
		id := images[m.selected].ID
		if err := m.session.Delete(m.ctx, id); err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.status = "Deleted " + id
		m.selected = max(0, min(m.selected, len(images)-2))
	case "s", "enter":
		id := images[m.selected].ID
		res, err := m.session.Export(m.ctx, id, m.storage)
		if err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.status = "Saved " + res.URL
	}
	return nil
}

// generate issues a Submit unless the trigger is disabled. The request runs
// as a command so the UI stays responsive while it is outstanding.
func (m *Model) generate() tea.Cmd {
	if !m.CanGenerate() {
		return nil
	}

	m.generating = true
	m.started = time.Now()
	m.errMsg = ""
	m.status = ""

	prompt := m.Prompt()
	cfg := m.config.WithAspectRatio(m.AspectRatio())
	ctx := m.ctx
	session := m.session

	return func() tea.Msg {
		img, err := session.Submit(ctx, prompt, cfg)
		return generatedMsg{image: img, err: err}
	}
}
