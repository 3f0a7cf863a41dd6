package render

import "github.com/charmbracelet/lipgloss"

var (
	Green     = lipgloss.Color("#00FF41")
	MedGreen  = lipgloss.Color("#00C832")
	DarkGreen = lipgloss.Color("#008F11")
	DimGreen  = lipgloss.Color("#4E7A52")
	Cyan      = lipgloss.Color("#00D4AA")
	Gold      = lipgloss.Color("#FFD700")
	Red       = lipgloss.Color("#FF4136")
	LightGray = lipgloss.Color("#aaaaaa")
	White     = lipgloss.Color("#e0e0e0")

	BannerStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	HeadingStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(MedGreen).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(White)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimGreen)

	BulletStyle = lipgloss.NewStyle().
			Foreground(DarkGreen)

	CitationStyle = lipgloss.NewStyle().
			Foreground(Gold)

	DoneStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Strikethrough(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// Intent type badges
	BadgeStyles = map[string]lipgloss.Style{
		"remember":  lipgloss.NewStyle().Foreground(Cyan),
		"todo":      lipgloss.NewStyle().Foreground(Green),
		"follow-up": lipgloss.NewStyle().Foreground(Gold),
	}

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DarkGreen).
			Padding(0, 1)
)

func badge(kind string) string {
	st, ok := BadgeStyles[kind]
	if !ok {
		st = HelpStyle
	}
	return st.Render("[" + kind + "]")
}
