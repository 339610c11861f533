// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds aggregate detection statistics for display.
type Stats struct {
	CrossTotal    int64
	TriTotal      int64
	BestNetBps    float64
	PerMinute     float64
	Errors        int64
}

// StatsComponent renders aggregate statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the displayed statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	total := s.stats.CrossTotal + s.stats.TriTotal

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Opportunities: %s (cross %s / tri %s)  │  Per min: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", total)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.CrossTotal)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.TriTotal)),
			valueStyle.Render(fmt.Sprintf("%.1f", s.stats.PerMinute)),
		) +
		fmt.Sprintf("Best net: %s bps  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%.2f", s.stats.BestNetBps)),
			errorsDisplay,
		)
}
