// Package review is the interactive terminal flow for choosing and applying
// enhancement modules to a migration.
package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sqlsentry/sqlsentry/internal/engine"
)

// New creates a review model for one analyzed migration.
func New(eng *engine.Engine, result *engine.Result) Model {
	choices := make([]ModuleChoice, 0, len(result.Applicable))
	for _, meta := range result.Applicable {
		choices = append(choices, ModuleChoice{Meta: meta})
	}
	vp := viewport.New(76, 10)
	return Model{
		state:    StateSelecting,
		eng:      eng,
		result:   result,
		choices:  choices,
		analysis: vp,
	}
}

// Run drives the review to completion and returns what the user chose.
func Run(eng *engine.Engine, result *engine.Result) (Outcome, error) {
	p := tea.NewProgram(New(eng, result))
	final, err := p.Run()
	if err != nil {
		return Outcome{}, fmt.Errorf("review failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Outcome{}, fmt.Errorf("unexpected model type %T", final)
	}
	if m.err != nil {
		return Outcome{}, m.err
	}
	return m.Outcome(), nil
}

// Init starts the review (Bubble Tea Init)
func (m Model) Init() tea.Cmd {
	return nil
}

// applyResultMsg carries the outcome of running the selected modules.
type applyResultMsg struct {
	content  string
	applied  []string
	warnings []string
}

// analysisMsg carries one module's analysis text.
type analysisMsg struct {
	id   string
	text string
	err  error
}

// Update handles state transitions (Bubble Tea Update)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up", "k":
			return m.handleUp()

		case "down", "j":
			return m.handleDown()

		case " ":
			return m.handleToggle()

		case "a":
			return m.handleAnalyze()

		case "esc":
			if m.state == StateAnalysis {
				m.state = StateSelecting
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.analysis.Width = msg.Width - 4
		return m, nil

	case analysisMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.analysisFor = msg.id
		m.analysis.SetContent(msg.text)
		m.state = StateAnalysis
		return m, nil

	case applyResultMsg:
		m.content = msg.content
		m.applied = msg.applied
		m.warnings = msg.warnings
		m.state = StateDone
		return m, tea.Quit
	}

	if m.state == StateAnalysis {
		var cmd tea.Cmd
		m.analysis, cmd = m.analysis.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the review UI (Bubble Tea View)
func (m Model) View() string {
	switch m.state {
	case StateSelecting:
		return m.renderSelecting()
	case StateAnalysis:
		return m.renderAnalysis()
	case StateConfirming:
		return m.renderConfirming()
	case StateApplying:
		return renderHeader("Applying enhancements...") + "\n"
	case StateDone:
		return m.renderDone()
	case StateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	default:
		return "Unknown state"
	}
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSelecting:
		pending := m.selectedNeedingConfirmation()
		if len(pending) > 0 {
			m.pendingConfirm = pending
			m.confirmIndex = 0
			m.state = StateConfirming
			return m, nil
		}
		return m.startApply()

	case StateConfirming:
		m.confirmIndex++
		if m.confirmIndex >= len(m.pendingConfirm) {
			return m.startApply()
		}
		return m, nil

	case StateAnalysis:
		m.state = StateSelecting
		return m, nil
	}
	return m, nil
}

func (m Model) handleUp() (tea.Model, tea.Cmd) {
	if m.state == StateSelecting && m.cursor > 0 {
		m.cursor--
	}
	if m.state == StateAnalysis {
		m.analysis.LineUp(1)
	}
	return m, nil
}

func (m Model) handleDown() (tea.Model, tea.Cmd) {
	if m.state == StateSelecting && m.cursor < len(m.choices)-1 {
		m.cursor++
	}
	if m.state == StateAnalysis {
		m.analysis.LineDown(1)
	}
	return m, nil
}

func (m Model) handleToggle() (tea.Model, tea.Cmd) {
	if m.state == StateSelecting && len(m.choices) > 0 {
		m.choices[m.cursor].Selected = !m.choices[m.cursor].Selected
	}
	return m, nil
}

func (m Model) handleAnalyze() (tea.Model, tea.Cmd) {
	if m.state != StateSelecting || len(m.choices) == 0 {
		return m, nil
	}
	meta := m.choices[m.cursor].Meta
	eng := m.eng
	file := m.result.Migration
	return m, func() tea.Msg {
		text, err := eng.Registry().Analyze(meta.ID, file)
		return analysisMsg{id: meta.ID, text: text, err: err}
	}
}

func (m Model) startApply() (tea.Model, tea.Cmd) {
	var ids []string
	for _, c := range m.choices {
		if c.Selected {
			ids = append(ids, c.Meta.ID)
		}
	}
	if len(ids) == 0 {
		m.state = StateDone
		m.content = m.result.Migration.Up
		return m, tea.Quit
	}

	m.state = StateApplying
	eng := m.eng
	file := m.result.Migration
	return m, func() tea.Msg {
		content, applied, warnings := eng.Apply(file, ids)
		return applyResultMsg{content: content, applied: applied, warnings: warnings}
	}
}

func (m Model) selectedNeedingConfirmation() []engine.Metadata {
	var pending []engine.Metadata
	for _, c := range m.choices {
		if c.Selected && c.Meta.RequiresConfirmation {
			pending = append(pending, c.Meta)
		}
	}
	return pending
}

// Render helpers

func (m Model) renderSelecting() string {
	var b strings.Builder
	b.WriteString(renderHeader(fmt.Sprintf("Enhancements for %s", m.result.Migration.Name)))
	b.WriteString("\n\n")

	if len(m.choices) == 0 {
		b.WriteString(unselectedStyle.Render("  No applicable enhancements."))
		b.WriteString("\n")
		b.WriteString(renderStatusBar("q quit"))
		return b.String()
	}

	for i, c := range m.choices {
		label := fmt.Sprintf("%s [%s] %s", c.Meta.Name, c.Meta.Category, c.Meta.Description)
		if c.Meta.RequiresConfirmation {
			label += " " + warnStyle.Render("(confirmation required)")
		}
		b.WriteString(renderChoice(c.Selected, i == m.cursor, label))
		b.WriteString("\n")
	}

	b.WriteString(renderStatusBar("space toggle · a analysis · enter apply · q quit"))
	return b.String()
}

func (m Model) renderAnalysis() string {
	var b strings.Builder
	b.WriteString(renderHeader(fmt.Sprintf("Analysis: %s", m.analysisFor)))
	b.WriteString("\n")
	b.WriteString(analysisBoxStyle.Render(m.analysis.View()))
	b.WriteString("\n")
	b.WriteString(renderStatusBar("esc back"))
	return b.String()
}

func (m Model) renderConfirming() string {
	meta := m.pendingConfirm[m.confirmIndex]
	var b strings.Builder
	b.WriteString(renderHeader("Confirm enhancement"))
	b.WriteString("\n\n")
	b.WriteString(warnStyle.Render(fmt.Sprintf("  %s modifies the migration in a way that needs review:", meta.Name)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s\n", meta.Description))
	b.WriteString(renderStatusBar(fmt.Sprintf("enter confirm (%d/%d) · q abort", m.confirmIndex+1, len(m.pendingConfirm))))
	return b.String()
}

func (m Model) renderDone() string {
	var b strings.Builder
	if len(m.applied) == 0 {
		b.WriteString(unselectedStyle.Render("No enhancements applied."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(selectedStyle.Render(fmt.Sprintf("Applied %d enhancement(s): %s", len(m.applied), strings.Join(m.applied, ", "))))
	b.WriteString("\n")
	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("Warning: " + w))
		b.WriteString("\n")
	}
	return b.String()
}
