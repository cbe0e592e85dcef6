package ochat

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg  int // User turn accent
	Error    int // Error messages
	Muted    int // Status bar, placeholders, previews
	Accent   int // Headings, links, sidebar title
	Selected int // Highlighted sidebar entry
	Border   int // Pane separators
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:  4,
		Error:    1,
		Muted:    8,
		Accent:   5,
		Selected: 6,
		Border:   8,
	}
}
