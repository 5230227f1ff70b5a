package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// Shared styles for the CLI package
// All terminal colors and styling definitions are centralized here
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	// Session-specific styles
	expiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Strikethrough(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	agentLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

func stateStyle(state models.AgentState) lipgloss.Style {
	switch state {
	case models.AgentStateStarted, models.AgentStateDeployed:
		return activeStyle
	case models.AgentStateError:
		return errorStyle
	case models.AgentStateDeleting, models.AgentStateDeleted, models.AgentStateStopped:
		return warningStyle
	default:
		return infoStyle
	}
}
