// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// VenueStatus represents one venue connector's live state.
type VenueStatus struct {
	Venue   string
	State   string // "streaming", "degraded", "reconnecting", "disconnected"
	Markets int
}

// VenueMatrixComponent renders the venue connection matrix: one row per
// venue that has reported a status, sorted by name, adapted from the
// single-connection StatusComponent.
type VenueMatrixComponent struct {
	venues map[string]VenueStatus
}

// NewVenueMatrixComponent creates an empty venue matrix.
func NewVenueMatrixComponent() *VenueMatrixComponent {
	return &VenueMatrixComponent{venues: make(map[string]VenueStatus)}
}

// Update sets or replaces a venue's status.
func (s *VenueMatrixComponent) Update(status VenueStatus) {
	s.venues[status.Venue] = status
}

func styleForState(state string) lipgloss.Style {
	switch state {
	case "streaming":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	case "degraded", "reconnecting":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	}
}

func iconForState(state string) string {
	switch state {
	case "streaming":
		return "●"
	case "degraded", "reconnecting":
		return "◐"
	default:
		return "○"
	}
}

// View renders the venue matrix.
func (s *VenueMatrixComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var result string
	result = headerStyle.Render("VENUES")
	result += "\n\n"

	if len(s.venues) == 0 {
		return result + mutedStyle.Render("  No venue connectors started yet.\n")
	}

	names := make([]string, 0, len(s.venues))
	for name := range s.venues {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := s.venues[name]
		style := styleForState(v.State)
		line := fmt.Sprintf("  %s %-8s %s", style.Render(iconForState(v.State)), name, style.Render(v.State))
		if v.Markets > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  (%d markets)", v.Markets))
		}
		result += line + "\n"
	}

	return result
}
