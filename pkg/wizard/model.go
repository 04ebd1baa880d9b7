// Package wizard provides the Bubble Tea installer wizard.
package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
)

// MaxLogLines is how many installer output lines stay on screen.
const MaxLogLines = 20

// Screen is a step of the wizard.
type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenSelection
	ScreenInstallation
)

// Outcome is how the last installation ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeError
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Installer is the part of install.Driver the wizard drives.
type Installer interface {
	AvailablePackages() []string
	InstallPackage(name string)
}

// Options configures the wizard.
type Options struct {
	// Title is shown on the welcome screen
	Title string

	// Warnings are shown on the welcome screen (e.g., missing tools)
	Warnings []string
}

// Model is the wizard's Bubble Tea model.
type Model struct {
	installer Installer
	events    <-chan install.Event
	opts      Options
	keys      KeyMap

	screen   Screen
	packages []string
	cursor   int
	selected string

	spinner     spinner.Model
	progressBar progress.Model

	log        []string
	installing bool
	awaitStart bool
	sessionID  string
	outcome    Outcome
	lastError  string
	quitting   bool
	width      int
	height     int
}

// New creates the wizard. events must be the channel the installer's
// handler writes to.
func New(installer Installer, events <-chan install.Event, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	if opts.Title == "" {
		opts.Title = "Package Installer"
	}

	return &Model{
		installer:   installer,
		events:      events,
		opts:        opts,
		keys:        DefaultKeyMap(),
		screen:      ScreenWelcome,
		packages:    installer.AvailablePackages(),
		spinner:     s,
		progressBar: p,
		log:         make([]string, 0, MaxLogLines),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent blocks on the next installer event.
func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

// startInstall asks the installer for the selected package. InstallPackage
// blocks until the process is spawned, so it runs as a command.
func (m *Model) startInstall() tea.Cmd {
	m.screen = ScreenInstallation
	m.installing = true
	m.awaitStart = true
	m.sessionID = ""
	m.outcome = OutcomeNone
	m.lastError = ""
	m.log = m.log[:0]
	m.appendLog(fmt.Sprintf("Selected package: %s", m.selected))

	installer, name := m.installer, m.selected
	return func() tea.Msg {
		installer.InstallPackage(name)
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = min(msg.Width-10, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.handleEvent(install.Event(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenWelcome:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.screen = ScreenSelection
		}

	case ScreenSelection:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.packages)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Back):
			m.screen = ScreenWelcome
		case key.Matches(msg, m.keys.Next):
			if len(m.packages) == 0 {
				return m, nil
			}
			m.selected = m.packages[m.cursor]
			return m, m.startInstall()
		}

	case ScreenInstallation:
		// Buttons stay hidden while the installer runs
		if m.installing {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.screen = ScreenSelection
		case key.Matches(msg, m.keys.Next):
			if m.outcome == OutcomeError {
				return m, m.startInstall()
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *Model) handleEvent(e install.Event) {
	if !m.installing && m.outcome == OutcomeNone {
		return
	}

	if e.SessionID != "" {
		if m.awaitStart {
			if e.Type != install.EventStarted {
				return
			}
			m.awaitStart = false
			m.sessionID = e.SessionID
		} else if e.SessionID != m.sessionID {
			return
		}
	} else if !m.awaitStart {
		// Lookup errors carry no session and only precede a start
		return
	}

	switch e.Type {
	case install.EventStarted:
		m.appendLog("Beginning installation...")

	case install.EventProgress:
		m.appendLog(e.Message)

	case install.EventFinished:
		m.installing = false
		if e.Success {
			m.outcome = OutcomeSucceeded
			m.appendLog("Installation complete!")
		} else {
			m.outcome = OutcomeFailed
			m.appendLog("Installation failed")
		}

	case install.EventError:
		m.installing = false
		m.awaitStart = false
		m.outcome = OutcomeError
		m.lastError = e.Message
		m.appendLog(fmt.Sprintf("Error: %s", e.Message))
	}
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > MaxLogLines {
		m.log = append(m.log[:0], m.log[len(m.log)-MaxLogLines:]...)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString("\n")

	switch m.screen {
	case ScreenWelcome:
		m.viewWelcome(&s)
	case ScreenSelection:
		m.viewSelection(&s)
	case ScreenInstallation:
		m.viewInstallation(&s)
	}

	return s.String()
}

func (m *Model) viewWelcome(s *strings.Builder) {
	s.WriteString(TitleStyle.Render(" " + m.opts.Title + " "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("  %d package(s) available for installation.\n", len(m.packages)))

	if len(m.opts.Warnings) > 0 {
		s.WriteString("\n")
		for _, w := range m.opts.Warnings {
			s.WriteString("  ")
			s.WriteString(WarningStyle.Render("! " + w))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(DimStyle.Render("  " + helpLine(m.keys.Next, m.keys.Quit)))
	s.WriteString("\n")
}

func (m *Model) viewSelection(s *strings.Builder) {
	s.WriteString(TitleStyle.Render(" Select a package to install "))
	s.WriteString("\n\n")

	if len(m.packages) == 0 {
		s.WriteString(ErrorStyle.Render("  Failed to load package information"))
		s.WriteString("\n\n")
		s.WriteString(DimStyle.Render("  " + helpLine(m.keys.Back, m.keys.Quit)))
		s.WriteString("\n")
		return
	}

	for i, name := range m.packages {
		if i == m.cursor {
			s.WriteString(activeStyle.Render("  > " + name))
		} else {
			s.WriteString("    " + name)
		}
		s.WriteString("\n")
	}

	next := m.keys.Next
	next.SetHelp("enter", "install")
	s.WriteString("\n")
	s.WriteString(DimStyle.Render("  " + helpLine(m.keys.Up, m.keys.Down, next, m.keys.Back)))
	s.WriteString("\n")
}

func (m *Model) viewInstallation(s *strings.Builder) {
	s.WriteString(TitleStyle.Render(" Installing package... "))
	s.WriteString("\n\n")

	percent := 0.0
	if m.outcome == OutcomeSucceeded || m.outcome == OutcomeFailed {
		percent = 1.0
	}
	s.WriteString(progressBarStyle.Render(m.progressBar.ViewAs(percent)))
	s.WriteString("\n\n")

	box := logStyle.Render(strings.Join(m.log, "\n"))
	s.WriteString(boxStyle.Render(box))
	s.WriteString("\n\n")

	switch {
	case m.installing:
		s.WriteString("  ")
		s.WriteString(m.spinner.View())
		s.WriteString(" Working...\n")
	case m.outcome == OutcomeSucceeded:
		s.WriteString(SuccessStyle.Render("  Installation complete!"))
		s.WriteString("\n")
	case m.outcome == OutcomeFailed:
		s.WriteString(ErrorStyle.Render("  Installation failed"))
		s.WriteString("\n")
	case m.outcome == OutcomeError:
		s.WriteString(ErrorStyle.Render("  Error: " + m.lastError))
		s.WriteString("\n")
	}

	if m.installing {
		return
	}

	next := m.keys.Next
	if m.outcome == OutcomeError {
		next.SetHelp("enter", "retry")
	} else {
		next.SetHelp("enter", "finish")
	}
	s.WriteString("\n")
	s.WriteString(DimStyle.Render("  " + helpLine(next, m.keys.Back)))
	s.WriteString("\n")
}

// Screen returns the current screen.
func (m *Model) Screen() Screen {
	return m.screen
}

// Selected returns the package chosen on the selection screen.
func (m *Model) Selected() string {
	return m.selected
}

// Outcome returns how the last installation ended.
func (m *Model) Outcome() Outcome {
	return m.outcome
}

// Log returns the lines currently shown on the installation screen.
func (m *Model) Log() []string {
	return append([]string(nil), m.log...)
}
