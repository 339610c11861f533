// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents one detected cross-venue or triangular
// opportunity in the feed.
type OpportunityRow struct {
	Timestamp string
	Kind      string // "cross" or "tri"
	Summary   string
	NetBps    decimal.Decimal
}

// OpportunitiesComponent renders the scrolling opportunity feed.
type OpportunitiesComponent struct {
	rows       []OpportunityRow
	maxRows    int
	offset     int
	visibleMax int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:       make([]OpportunityRow, 0),
		maxRows:    maxRows,
		visibleMax: 8,
	}
}

// Add adds a new opportunity to the front of the feed.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	o.offset = 0
}

// Clear clears the feed.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp scrolls the feed up.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown scrolls the feed down.
func (o *OpportunitiesComponent) ScrollDown() {
	maxOffset := len(o.rows) - o.visibleMax
	if maxOffset < 0 {
		maxOffset = 0
	}
	if o.offset < maxOffset {
		o.offset++
	}
}

// Count returns the total number of opportunities held.
func (o *OpportunitiesComponent) Count() int {
	return len(o.rows)
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	crossStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	triStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Bold(true)
	scrollHint := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var result string
	result = headerStyle.Render("OPPORTUNITIES")
	if len(o.rows) > 0 {
		result += mutedStyle.Render(fmt.Sprintf(" (%d total, ↑↓ scroll)", len(o.rows)))
	}
	result += "\n\n"

	if len(o.rows) == 0 {
		result += mutedStyle.Render("  No opportunities detected yet.\n")
		result += mutedStyle.Render("  Scanning venues...\n")
		return result
	}

	if o.offset > 0 {
		result += scrollHint.Render(fmt.Sprintf("  ▲ %d above\n", o.offset))
	}

	end := o.offset + o.visibleMax
	if end > len(o.rows) {
		end = len(o.rows)
	}

	for i := o.offset; i < end; i++ {
		row := o.rows[i]
		style := crossStyle
		tag := "CROSS"
		if row.Kind == "tri" {
			style = triStyle
			tag = "TRI"
		}
		result += fmt.Sprintf("  %s [%s] %s  %s\n",
			style.Render(tag), row.Timestamp, row.Summary,
			style.Render(fmt.Sprintf("%s bps", row.NetBps.StringFixed(2))))
	}

	if end < len(o.rows) {
		result += scrollHint.Render(fmt.Sprintf("\n  ▼ %d more below\n", len(o.rows)-end))
	}

	return result
}
