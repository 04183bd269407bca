package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/plantCo2/water-device/client"
	"github.com/plantCo2/water-device/entities"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = 5 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// api is the subset of *client.Client the dashboard needs.
type api interface {
	Latest(ctx context.Context) (*entities.Reading, error)
	Settings(ctx context.Context) (*entities.Settings, error)
	PendingCommands(ctx context.Context) ([]entities.Command, error)
	ControlValve(ctx context.Context, open bool, duration int, commandType entities.CommandType) (uint, error)
}

type model struct {
	api       api
	server    string
	reading   *entities.Reading
	settings  *entities.Settings
	pending   int
	refreshed time.Time
	message   string
	busy      bool
	quitting  bool
}

type snapshotMsg struct {
	reading  *entities.Reading
	settings *entities.Settings
	pending  int
	at       time.Time
}
type commandSentMsg struct {
	id   uint
	open bool
}
type refreshTickMsg struct{}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func initialModel(c api, server string) model {
	return model{api: c, server: server}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshot(m.api), tickRefresh())
}

func tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func fetchSnapshot(c api) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		reading, err := c.Latest(ctx)
		if err != nil {
			return errMsg{fmt.Errorf("latest reading: %w", err)}
		}
		settings, err := c.Settings(ctx)
		if err != nil {
			return errMsg{fmt.Errorf("settings: %w", err)}
		}
		pending, err := c.PendingCommands(ctx)
		if err != nil {
			return errMsg{fmt.Errorf("pending commands: %w", err)}
		}
		return snapshotMsg{reading: reading, settings: settings, pending: len(pending), at: time.Now()}
	}
}

func sendValve(c api, open bool, duration int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id, err := c.ControlValve(ctx, open, duration, entities.CommandManual)
		if err != nil {
			return errMsg{fmt.Errorf("valve command: %w", err)}
		}
		return commandSentMsg{id: id, open: open}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "r":
			m.busy = true
			return m, fetchSnapshot(m.api)

		case "o":
			duration := entities.DefaultWateringDuration
			if m.settings != nil {
				duration = m.settings.WateringDuration
			}
			m.busy = true
			m.message = fmt.Sprintf("Opening valve for %ds...", duration)
			return m, sendValve(m.api, true, duration)

		case "c":
			m.busy = true
			m.message = "Closing valve..."
			return m, sendValve(m.api, false, 0)
		}

	case snapshotMsg:
		m.busy = false
		m.reading = msg.reading
		m.settings = msg.settings
		m.pending = msg.pending
		m.refreshed = msg.at

	case refreshTickMsg:
		return m, tea.Batch(fetchSnapshot(m.api), tickRefresh())

	case commandSentMsg:
		verb := "close"
		if msg.open {
			verb = "open"
		}
		m.message = successStyle.Render(fmt.Sprintf("✓ Queued %s command #%d", verb, msg.id))
		return m, fetchSnapshot(m.api)

	case errMsg:
		m.busy = false
		m.message = errorStyle.Render("✗ " + msg.err.Error())
	}

	return m, nil
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Garden irrigation · " + m.server))
	s.WriteString("\n")

	if m.reading == nil {
		s.WriteString(row("Latest reading", "none yet"))
	} else {
		r := m.reading
		s.WriteString(row("Temperature", fmt.Sprintf("%.1f °C", r.Temperature)))
		s.WriteString(row("Humidity", fmt.Sprintf("%.1f %%", r.Humidity)))
		s.WriteString(row("Soil moisture", fmt.Sprintf("%d", r.SoilMoisture)))
		s.WriteString(row("Water flow", fmt.Sprintf("%.2f L/min", r.WaterFlow)))
		s.WriteString(row("Valve", onOff(r.ValveState)))
		s.WriteString(row("Reported", r.Timestamp.Local().Format("15:04:05")))
	}
	s.WriteString("\n")

	if m.settings != nil {
		st := m.settings
		s.WriteString(row("Threshold", fmt.Sprintf("%d", st.MoistureThreshold)))
		s.WriteString(row("Watering", fmt.Sprintf("%ds", st.WateringDuration)))
		timer := "off"
		if st.TimerEnabled {
			timer = fmt.Sprintf("%02d:%02d", st.TimerHour, st.TimerMinute)
		}
		s.WriteString(row("Timer", timer))
	}
	s.WriteString(row("Pending commands", fmt.Sprintf("%d", m.pending)))

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}

	status := "refreshing..."
	if !m.busy && !m.refreshed.IsZero() {
		status = "updated " + m.refreshed.Format("15:04:05")
	}
	s.WriteString(helpStyle.Render(status + " · o open · c close · r refresh · q quit"))
	s.WriteString("\n")
	return s.String()
}

var _ api = (*client.Client)(nil)
