package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type batchModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	bar     progress.Model
	docs    []docItem
	index   map[string]int
	label   string
	width   int
	done    bool
}

type docItem struct {
	path   string
	status Status
	stage  Stage
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders the progress of
// a batch of documents. It quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	docs := make([]docItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		docs = append(docs, docItem{path: file})
		index[file] = i
	}
	return &batchModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		docs:    docs,
		index:   index,
		width:   80,
	}
}

func (m *batchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.apply(Event(msg))
		return m, tea.Batch(cmd, m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *batchModel) View() string {
	if len(m.docs) == 0 {
		return ""
	}
	finished, failed := m.counts()
	header := fmt.Sprintf("%s %d/%d", m.title, finished, len(m.docs))
	if failed > 0 {
		header += fmt.Sprintf(", %d failed", failed)
	}
	if m.label != "" {
		header = fmt.Sprintf("%s (%s)", header, m.label)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Render(header))
	b.WriteString("\n\n")

	const statusWidth = 10
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, doc := range m.docs {
		label := statusLabel(doc.stage, doc.status)
		fmt.Fprintf(&b, "  %s %s\n", styleStatus(doc.status).Render(fmt.Sprintf("%*s", statusWidth, label)), truncate(doc.path, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *batchModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *batchModel) apply(ev Event) tea.Cmd {
	if ev.File == "" {
		m.label = statusLabel(ev.Stage, ev.Status)
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	m.docs[idx].status = ev.Status
	if ev.Stage != 0 {
		m.docs[idx].stage = ev.Stage
	}
	return m.bar.SetPercent(m.percent())
}

func (m *batchModel) percent() float64 {
	if len(m.docs) == 0 {
		return 0
	}
	total := 0.0
	for _, doc := range m.docs {
		if doc.status == StatusDone || doc.status == StatusError {
			total += 1.0
			continue
		}
		total += progressFromStage(doc.stage)
	}
	return total / float64(len(m.docs))
}

func (m *batchModel) counts() (finished, failed int) {
	for _, doc := range m.docs {
		switch doc.status {
		case StatusDone:
			finished++
		case StatusError:
			finished++
			failed++
		}
	}
	return finished, failed
}

func progressFromStage(stage Stage) float64 {
	switch stage {
	case StageLoad:
		return 0.1
	case StageIndex:
		return 0.4
	case StageRender:
		return 0.7
	case StageWrite:
		return 0.9
	default:
		return 0.0
	}
}

func statusLabel(stage Stage, status Status) string {
	switch status {
	case StatusQueued:
		return "queued"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	case StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage Stage) string {
	switch stage {
	case StageLoad:
		return "loading"
	case StageIndex:
		return "indexing"
	case StageRender:
		return "rendering"
	case StageWrite:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status Status) lipgloss.Style {
	switch status {
	case StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
