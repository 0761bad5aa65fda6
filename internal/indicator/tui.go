package indicator

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gh_notifier/internal/model"
)

var (
	countStyle   = lipgloss.NewStyle().Bold(true)
	unreadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	messageStyle = lipgloss.NewStyle().Faint(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type outcomeMsg model.CycleOutcome

type openedMsg struct{ err error }

// Model is the bubbletea status indicator. It only reads outcomes from the
// channel; it never touches the scheduler's state.
type Model struct {
	outcomes <-chan model.CycleOutcome
	url      string
	open     func(string) error
	refresh  func()

	spinner spinner.Model
	busy    bool
	last    *model.CycleOutcome
	message string
}

// NewModel creates the indicator. open is called on click with url;
// refresh requests an immediate cycle.
func NewModel(outcomes <-chan model.CycleOutcome, url string, open func(string) error, refresh func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		outcomes: outcomes,
		url:      url,
		open:     open,
		refresh:  refresh,
		spinner:  sp,
		busy:     true,
	}
}

// Init starts listening for outcomes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForOutcome(), m.spinner.Tick)
}

func (m Model) waitForOutcome() tea.Cmd {
	ch := m.outcomes
	return func() tea.Msg {
		o, ok := <-ch
		if !ok {
			return nil
		}
		return outcomeMsg(o)
	}
}

// Update handles outcomes and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		o := model.CycleOutcome(msg)
		m.last = &o
		m.busy = false
		m.message = ""
		return m, m.waitForOutcome()
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case openedMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter", "o", " ":
			return m.click()
		case "r":
			if m.refresh == nil || m.busy {
				return m, nil
			}
			m.refresh()
			m.busy = true
			m.message = ""
			return m, m.spinner.Tick
		}
	}
	return m, nil
}

// click opens the feed page, or shows the error after a failed cycle.
func (m Model) click() (tea.Model, tea.Cmd) {
	if m.last != nil && m.last.Failed() {
		m.message = m.last.Describe()
		return m, nil
	}
	open, url := m.open, m.url
	return m, func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}

// View renders the glyph, an optional message and the key help.
func (m Model) View() string {
	glyph := Glyph(m.last)
	var style lipgloss.Style
	switch {
	case m.last == nil:
		style = countStyle
	case m.last.Failed():
		style = errorStyle
	case m.last.Count > 0:
		style = unreadStyle
	default:
		style = countStyle
	}

	var b strings.Builder
	if m.busy {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(style.Render(glyph))
	if m.message != "" {
		b.WriteString("  ")
		b.WriteString(messageStyle.Render(m.message))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: open  r: refresh  q: quit"))
	b.WriteString("\n")
	return b.String()
}
