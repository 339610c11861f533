// Package ui provides the Bubble Tea TUI for the arbitrage scanner.
package ui

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message types for TUI updates.

// CrossOpportunityMsg is sent when the Cross Engine detects a spread.
type CrossOpportunityMsg struct {
	Pair      string
	BuyVenue  string
	SellVenue string
	NetBps    decimal.Decimal
	Notional  decimal.Decimal
	Detected  time.Time
}

// TriOpportunityMsg is sent when the Tri Engine detects a cycle.
type TriOpportunityMsg struct {
	Venue    string
	Base     string
	LegPairs []string
	NetBps   decimal.Decimal
	Detected time.Time
}

// VenueStatusMsg is sent when a venue connector's state changes.
type VenueStatusMsg struct {
	Venue   string
	State   string
	Markets int
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI animation.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "marketdata", "connectors", "clock", "emitter"
	Status  string // "connecting", "connected", "failed"
	Message string
}
