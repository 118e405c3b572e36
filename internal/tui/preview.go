package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PreviewModel pages through a generated script.
type PreviewModel struct {
	title    string
	content  string
	styles   *Styles
	viewport viewport.Model
	ready    bool
}

// NewPreviewModel creates a pager for content.
func NewPreviewModel(title, content string, styles *Styles) PreviewModel {
	return PreviewModel{title: title, content: content, styles: styles}
}

func (m PreviewModel) Init() tea.Cmd {
	return nil
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := max(msg.Height-lipgloss.Height(m.headerView())-lipgloss.Height(m.footerView()), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m PreviewModel) View() string {
	if !m.ready {
		return "loading…"
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m PreviewModel) headerView() string {
	return m.styles.TitleStyle().Render(m.title)
}

func (m PreviewModel) footerView() string {
	percent := 100.0
	if m.ready {
		percent = m.viewport.ScrollPercent() * 100
	}
	return m.styles.StatusBarStyle().Render(fmt.Sprintf("%3.f%%", percent)) +
		m.styles.MutedStyle().Render("  ↑/↓ scroll • q quit")
}

// RunPreview shows content in a full-screen pager until the user quits.
func RunPreview(title, content string, styles *Styles) error {
	p := tea.NewProgram(NewPreviewModel(title, content, styles), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
