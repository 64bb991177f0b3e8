package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mhpenta/imagine"
)

const sidebarWidth = 46

var (
	accent = lipgloss.Color("63")
	muted  = lipgloss.Color("241")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(accent).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Bold(true)
	focusedLabel = labelStyle.Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	selectedRatio = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(accent).Padding(0, 1)
	plainRatio    = lipgloss.NewStyle().Foreground(muted).Padding(0, 1)

	buttonEnabled  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(accent).Padding(0, 2)
	buttonDisabled = lipgloss.NewStyle().Foreground(muted).Background(lipgloss.Color("236")).Padding(0, 2)

	selectedItem = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

func (m *Model) View() string {
	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("ImagineAI"),
		"",
		m.label(FocusPrompt, "Creative Prompt"),
		m.promptView(),
		"",
		m.label(FocusRatio, "Aspect Ratio"),
		m.ratioView(),
		"",
		m.buttonView(),
		m.messageView(),
	)

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.label(FocusHistory, fmt.Sprintf("Generation History  %d Creations", m.session.History().Len())),
		m.historyView(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(sidebarWidth).MarginRight(2).Render(sidebar),
		main,
	)

	help := mutedStyle.Render("tab focus • enter/ctrl+g generate • ctrl+r suggestion • ←/→ ratio • ↑/↓ select • d delete • s save • ctrl+c quit")
	return lipgloss.JoinVertical(lipgloss.Left, body, "", help)
}

func (m *Model) label(f Focus, text string) string {
	if m.focus == f {
		return focusedLabel.Render("▸ " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m *Model) promptView() string {
	text := m.Prompt()
	if text == "" {
		text = mutedStyle.Render("Describe your imagination in detail...")
	}
	if m.focus == FocusPrompt {
		text += "▏"
	}
	return boxStyle.Width(sidebarWidth - 2).Render(text)
}

func (m *Model) ratioView() string {
	cells := make([]string, 0, len(imagine.SupportedAspectRatios))
	for i, ratio := range imagine.SupportedAspectRatios {
		if i == m.ratioIndex {
			cells = append(cells, selectedRatio.Render(ratio.String()))
		} else {
			cells = append(cells, plainRatio.Render(ratio.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *Model) buttonView() string {
	switch {
	case m.generating:
		return buttonDisabled.Render("Generating...")
	case m.CanGenerate():
		return buttonEnabled.Render("Generate Image")
	default:
		return buttonDisabled.Render("Generate Image")
	}
}

func (m *Model) messageView() string {
	switch {
	case m.errMsg != "":
		return errorStyle.Width(sidebarWidth).Render(m.errMsg)
	case m.status != "":
		return statusStyle.Width(sidebarWidth).Render(m.status)
	default:
		return ""
	}
}

func (m *Model) historyView() string {
	images := m.session.History().Images()

	var b strings.Builder
	if m.generating {
		b.WriteString(mutedStyle.Render("  ░░░░ generating ░░░░") + "\n")
	}
	if len(images) == 0 && !m.generating {
		b.WriteString("\n  No Images Yet\n")
		b.WriteString(mutedStyle.Render("  Enter a descriptive prompt to start generating unique AI-powered artwork."))
		return b.String()
	}

	promptWidth := 60
	if m.width > sidebarWidth+30 {
		promptWidth = m.width - sidebarWidth - 24
	}

	for i, img := range images {
		line := fmt.Sprintf("%-5s %s  %s",
			img.Config.AspectRatio,
			time.UnixMilli(img.Timestamp).Format("Jan 02 15:04"),
			truncate(img.Prompt, promptWidth),
		)
		if m.focus == FocusHistory && i == m.selected {
			b.WriteString(selectedItem.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
