package cli

import (
	"context"
	"errors"
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/nextwatch/internal/client"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Title   lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Title:   lipgloss.Color("#FFD75F"), // gold
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

// recommendDoneMsg carries the server's answer.
type recommendDoneMsg struct {
	rec *client.Recommendation
	err error
}

// waitModel shows a spinner while a recommend call is in flight.
type waitModel struct {
	spinner  spinner.Model
	query    string
	theme    Theme
	call     func() (*client.Recommendation, error)
	cancel   context.CancelFunc
	rec      *client.Recommendation
	err      error
	done     bool
	quitting bool
}

func newWaitModel(query string, cancel context.CancelFunc, call func() (*client.Recommendation, error)) waitModel {
	return waitModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		query:   query,
		theme:   defaultTheme,
		call:    call,
		cancel:  cancel,
	}
}

// Init starts the spinner and the request.
func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

// Update handles messages and returns the updated model.
func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case recommendDoneMsg:
		m.rec, m.err, m.done = msg.rec, msg.err, true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line.
func (m waitModel) View() tea.View {
	if m.done || m.quitting {
		return tea.NewView("")
	}
	status := m.theme.statusStyle().Render(m.spinner.View())
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return tea.NewView(fmt.Sprintf("%s Finding movies for %q...\n%s\n", status, m.query, hint))
}

// fetch runs the request in a command so Update never blocks.
func (m waitModel) fetch() tea.Cmd {
	return func() tea.Msg {
		rec, err := m.call()
		return recommendDoneMsg{rec: rec, err: err}
	}
}

// errCancelled is returned when the user aborts the wait.
var errCancelled = errors.New("cancelled")

// runWithSpinner runs call behind an interactive spinner.
func runWithSpinner(ctx context.Context, query string, call func(context.Context) (*client.Recommendation, error)) (*client.Recommendation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newWaitModel(query, cancel, func() (*client.Recommendation, error) {
		return call(ctx)
	})
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("spinner UI error: %w", err)
	}

	m, ok := finalModel.(waitModel)
	if !ok {
		return nil, fmt.Errorf("unexpected UI model %T", finalModel)
	}
	if m.quitting {
		return nil, errCancelled
	}
	return m.rec, m.err
}
