// Package ui provides the Bubble Tea TUI for the arbitrage scanner.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fd1az/arbitrage-bot/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	venues        *components.VenueMatrixComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready      bool
	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	errorMsg   string
	errors     []ErrorEntry
	logs       []string

	// Startup state
	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time

	// Activity tracking
	crossCount   int64
	triCount     int64
	bestNetBps   float64
	firstOppTime time.Time
	activityFeed []string
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		venues:        components.NewVenueMatrixComponent(),
		opportunities: components.NewOpportunitiesComponent(100),
		stats:         components.NewStatsComponent(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		logs:          make([]string, 0, 10),
		errors:        make([]ErrorEntry, 0, 3),
		activityFeed:  make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"marketdata": {Name: "Loading market data registry", Status: "pending"},
			"connectors": {Name: "Connecting to venues", Status: "pending"},
			"clock":      {Name: "Starting heartbeat", Status: "pending"},
			"emitter":    {Name: "Starting emitter", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		switch msg.String() {
		case "c":
			m.opportunities.Clear()
			return m, nil
		case "p":
			m.paused = !m.paused
			return m, nil
		case "up", "k":
			m.opportunities.ScrollUp()
			return m, nil
		case "down", "j":
			m.opportunities.ScrollDown()
			return m, nil
		case "e":
			m.errors = make([]ErrorEntry, 0, 3)
			m.errorMsg = ""
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case CrossOpportunityMsg:
		if m.paused {
			return m, nil
		}
		summary := fmt.Sprintf("%s buy %s / sell %s", msg.Pair, msg.BuyVenue, msg.SellVenue)
		m.opportunities.Add(components.OpportunityRow{
			Timestamp: msg.Detected.Format("15:04:05"),
			Kind:      "cross",
			Summary:   summary,
			NetBps:    msg.NetBps,
		})
		m.recordOpportunity("cross", msg.NetBps.InexactFloat64())
		m.activityFeed = addActivity(m.activityFeed, summary)
		m.lastUpdate = time.Now()

	case TriOpportunityMsg:
		if m.paused {
			return m, nil
		}
		summary := fmt.Sprintf("%s on %s via %s", msg.Base, msg.Venue, strings.Join(msg.LegPairs, ","))
		m.opportunities.Add(components.OpportunityRow{
			Timestamp: msg.Detected.Format("15:04:05"),
			Kind:      "tri",
			Summary:   summary,
			NetBps:    msg.NetBps,
		})
		m.recordOpportunity("tri", msg.NetBps.InexactFloat64())
		m.activityFeed = addActivity(m.activityFeed, summary)
		m.lastUpdate = time.Now()

	case VenueStatusMsg:
		m.venues.Update(components.VenueStatus{Venue: msg.Venue, State: msg.State, Markets: msg.Markets})
		m.lastUpdate = time.Now()

		if step, ok := m.startupSteps["connectors"]; ok {
			if msg.State == "streaming" {
				step.Status = "connected"
			} else if step.Status == "pending" {
				step.Status = "connecting"
			}
		}

	case ErrorMsg:
		m.errorMsg = msg.Error.Error()
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		allConnected := true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				allConnected = false
				break
			}
		}
		if allConnected {
			m.startupComplete = true
		}
	}

	return m, nil
}

// recordOpportunity updates the rolling aggregate counters shown in the
// stats panel.
func (m *Model) recordOpportunity(kind string, netBps float64) {
	if kind == "cross" {
		m.crossCount++
	} else {
		m.triCount++
	}
	if m.firstOppTime.IsZero() {
		m.firstOppTime = time.Now()
	}
	if netBps > m.bestNetBps {
		m.bestNetBps = netBps
	}

	elapsed := time.Since(m.firstOppTime).Minutes()
	perMin := float64(0)
	if elapsed > 0 {
		perMin = float64(m.crossCount+m.triCount) / elapsed
	}
	m.stats.Update(components.Stats{
		CrossTotal: m.crossCount,
		TriTotal:   m.triCount,
		BestNetBps: m.bestNetBps,
		PerMinute:  perMin,
		Errors:     int64(len(m.errors)),
	})
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.startupComplete {
			return m.renderStartupScreen()
		}
		m.phase = PhaseDashboard
		fallthrough
	case PhaseDashboard:
	}

	var b strings.Builder

	title := TitleStyle.Render(" 📡 Arbiscan ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.venues.View() + "\n" + m.stats.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.opportunities.View())
	rightCol := rightContent.String()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	helpText := "q: quit • c: clear • p: pause • ↑↓: scroll"
	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(helpText))

	return b.String()
}

// renderActivityFeed renders the recent activity feed.
func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(mutedStyle.Render("  Waiting for opportunities..."))
	} else {
		for _, activity := range m.activityFeed {
			sb.WriteString(mutedStyle.Render("  " + activity))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	greenStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
    ██████╗ ██████╗ ██████╗ ██╗███████╗ ██████╗ █████╗ ███╗   ██╗
   ██╔══██╗██╔══██╗██╔══██╗██║██╔════╝██╔════╝██╔══██╗████╗  ██║
   ███████║██████╔╝██████╔╝██║███████╗██║     ███████║██╔██╗ ██║
   ██╔══██║██╔══██╗██╔══██╗██║╚════██║██║     ██╔══██║██║╚██╗██║
   ██║  ██║██║  ██║██████╔╝██║███████║╚██████╗██║  ██║██║ ╚████║
   ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═══╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	subtitle := "        M U L T I - V E N U E   A R B I T R A G E   S C A N N E R"
	sb.WriteString(mutedStyle.Render(subtitle))
	sb.WriteString("\n\n\n")

	tagline := "              📡  Watching the books  📡"
	sb.WriteString(goldStyle.Render(tagline))
	sb.WriteString("\n\n\n")

	loading := fmt.Sprintf("                  Initializing%s", dots)
	sb.WriteString(greenStyle.Render(loading))
	sb.WriteString("\n\n")

	hint := "            Press any key to skip, or wait..."
	sb.WriteString(mutedStyle.Render(hint))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  📡 Arbiscan"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	stepOrder := []string{"marketdata", "connectors", "clock", "emitter"}
	for _, key := range stepOrder {
		step, ok := m.startupSteps[key]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(icon), mutedStyle.Render(step.Name), style.Render(statusText)))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("  Waiting for venue connectors..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastUpdate) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		scanningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		parts = append(parts, scanningStyle.Render(spinners[idx]+" Scanning"))
	}

	total := m.crossCount + m.triCount
	if total > 0 {
		scanStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		parts = append(parts, scanStyle.Render(fmt.Sprintf("Opportunities: %d", total)))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
