package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorDanger    = lipgloss.Color("203") // Rose
	colorSkeleton  = lipgloss.Color("237")
)

// Header style for the title line.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// Subtitle style under the title.
var Subtitle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// ChaosBadge is shown in the header while chaos mode is on.
var ChaosBadge = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorDanger).
	Padding(0, 1)

// StableBadge is shown in the header while chaos mode is off.
var StableBadge = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("16")).
	Background(colorSuccess).
	Padding(0, 1)

// SearchBar frames the query input.
var SearchBar = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// SearchBarFocused frames the query input while it has focus.
var SearchBarFocused = SearchBar.
	BorderForeground(colorPrimary)

// Panel frames the three status panels.
var Panel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// PanelTitle is the small uppercase label on top of a panel.
var PanelTitle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Bold(true)

// PanelValue is the main line of a panel.
var PanelValue = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Bold(true)

// PanelNote is the secondary line of a panel.
var PanelNote = lipgloss.NewStyle().
	Foreground(colorSecondary)

var (
	HealthOK       = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	HealthDegraded = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	SuccessCount   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	ErrorCount     = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
)

// Card frames one product.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// CardTitle is the product name.
var CardTitle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Bold(true)

// CardText is the product description.
var CardText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// CardPrice is the formatted price.
var CardPrice = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// CardMeta is the ID and thumbnail line.
var CardMeta = lipgloss.NewStyle().
	Foreground(colorMuted)

// SkeletonBar is a placeholder block inside a skeleton card.
var SkeletonBar = lipgloss.NewStyle().
	Foreground(colorSkeleton)

// ErrorPanel frames the failure state.
var ErrorPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDanger).
	Padding(1, 2)

// ErrorTitle is the heading inside ErrorPanel.
var ErrorTitle = lipgloss.NewStyle().
	Foreground(colorDanger).
	Bold(true)

// EmptyPanel frames the no-results state.
var EmptyPanel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorMuted).
	Padding(1, 2).
	Align(lipgloss.Center)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle labels sections in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
