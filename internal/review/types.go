package review

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sqlsentry/sqlsentry/internal/engine"
)

// ReviewState represents the current screen in the review flow
type ReviewState int

const (
	StateSelecting ReviewState = iota
	StateAnalysis
	StateConfirming
	StateApplying
	StateDone
	StateError
)

// ModuleChoice is one selectable enhancement with its toggle state.
type ModuleChoice struct {
	Meta     engine.Metadata
	Selected bool
}

// Model holds the state for the Bubble Tea enhancement review
type Model struct {
	state ReviewState

	eng    *engine.Engine
	result *engine.Result

	choices []ModuleChoice
	cursor  int

	// Analysis display
	analysisFor string
	analysis    viewport.Model

	// Confirmation of modules that require it
	pendingConfirm []engine.Metadata
	confirmIndex   int

	// Final output
	applied  []string
	content  string
	warnings []string
	err      error

	width  int
	height int
}

// Outcome is what the review produced once the program exits.
type Outcome struct {
	Accepted bool
	Applied  []string
	Content  string
	Warnings []string
}

// Outcome returns the review result. Valid once the program has quit.
func (m Model) Outcome() Outcome {
	return Outcome{
		Accepted: m.state == StateDone,
		Applied:  m.applied,
		Content:  m.content,
		Warnings: m.warnings,
	}
}
