package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gossipsearch/internal/domain"
)

// SearchPort is the TUI-facing subset of the search service.
type SearchPort interface {
	Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Model is the Bubble Tea model for the search UI: a query input, one result
// card at a time, and +/- to adjust how many answers are requested.
type Model struct {
	ctx       context.Context
	service   SearchPort
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	status    string
	cursor    int
	topK      int
	ready     bool
	lastQuery string
}

// New creates a new TUI model. The header mentions how many articles are
// indexed, when known.
func New(ctx context.Context, service SearchPort, indexed int, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Angelina Jolie et Brad Pitt sont-ils toujours ensemble?"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 5
	}
	status := "Type a query and press Enter."
	if indexed > 0 {
		status = fmt.Sprintf("%d articles indexed. Type a query and press Enter.", indexed)
	}
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, topK: topK, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, query frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = "Empty query."
				return m, nil
			}
			res, err := m.service.Query(m.ctx, q, m.topK)
			if err != nil {
				m.status = "Error: " + err.Error()
				m.results = nil
			} else {
				m.status = fmt.Sprintf("%d results for %q (top-k %d)", len(res), q, m.topK)
				m.results = res
				m.cursor = 0
				m.lastQuery = q
			}
			m.viewport.SetContent(m.renderCurrentResult())
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "+":
			if m.topK < 50 {
				m.topK++
				m.status = fmt.Sprintf("top-k set to %d", m.topK)
				return m, nil
			}
		case "-":
			if m.topK > 1 {
				m.topK--
				m.status = fmt.Sprintf("top-k set to %d", m.topK)
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout: header, current result card, query box, status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Gossip Search Engine")
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  score=%.3f\n", m.cursor+1, len(m.results), r.Score)
	if r.Article.Title != "" {
		b.WriteString(titleStyle.Render(r.Article.Title) + "\n")
	}
	if r.Article.Date != "" {
		b.WriteString(dateStyle.Render(r.Article.Date) + "\n")
	}
	b.WriteString("\n")
	if r.BestSentence != "" {
		fmt.Fprintf(&b, "%s\n(sentence score %.3f)\n", highlightStyle.Render(r.BestSentence), r.SentenceScore)
	}
	b.WriteString("\n" + urlStyle.Render(r.Article.URL))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	urlStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
