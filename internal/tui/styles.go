package tui

import "github.com/charmbracelet/lipgloss"

// Color constants for the stimulus screens.
const (
	white     = "#FFFFFF"
	black     = "#000000"
	restColor = "#FF0000" // Red
	flexColor = "#0000FF" // Blue
	fillColor = "#00FF00" // Green
	dimColor  = "#6B7280" // Gray
	warnColor = "#F59E0B" // Amber
)

// Screen backgrounds.
var (
	TitleBackground    = lipgloss.Color(white)
	RestBackground     = lipgloss.Color(restColor)
	FlexBackground     = lipgloss.Color(flexColor)
	ThankYouBackground = lipgloss.Color(black)
)

// Style variables for consistent TUI rendering.
var (
	// HeadingStyle renders screen titles.
	HeadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(black)).
			Background(TitleBackground).
			Bold(true)

	// TextStyle renders body text on light screens.
	TextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(black)).
			Background(TitleBackground)

	// ButtonStyle renders an inverted, padded button label.
	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(white)).
			Background(lipgloss.Color(black)).
			Padding(1, 4).
			MarginTop(1)

	// StimulusStyle renders the REST / FLEX caption.
	StimulusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(white)).
			Bold(true).
			Padding(1, 6)

	// CountdownStyle renders the countdown digit.
	CountdownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(black)).
			Background(TitleBackground).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color(black)).
			BorderBackground(TitleBackground)

	// DimStyle renders dim/muted operator text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// WarningStyle renders operator warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warnColor))

	// ProgressFullStyle renders filled progress markers.
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(fillColor))

	// ProgressEmptyStyle renders empty progress markers.
	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(white))
)

// Progress marker glyphs.
const (
	MarkerFull  = "●"
	MarkerEmpty = "○"
)
