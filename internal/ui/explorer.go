package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aquascope/internal/facts"
	"aquascope/internal/session"
	"aquascope/internal/view"
	"aquascope/internal/visibility"
)

const (
	listWidth = 24
	// FocusClass marks the entity under the cursor.
	FocusClass = "focus"
)

// Explorer is a Bubble Tea model listing the loans and moves of a session.
// The entity under the cursor is revealed; pinned entities stay revealed
// after the cursor leaves them.
type Explorer struct {
	ctx    context.Context
	title  string
	sess   *session.Session
	theme  view.Theme
	items  []visibility.Ref
	cursor int
	pinned map[visibility.Ref]bool

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
}

// NewExplorer selects the first entity of sess.
func NewExplorer(ctx context.Context, title string, sess *session.Session, th view.Theme) *Explorer {
	m := &Explorer{
		ctx:      ctx,
		title:    title,
		sess:     sess,
		theme:    th.WithColor(FocusClass, view.SoftYellow),
		pinned:   make(map[visibility.Ref]bool),
		keys:     defaultKeys(),
		help:     help.New(),
		viewport: viewport.New(56, 20),
		width:    80,
		height:   24,
	}
	if af := sess.Facts(); af != nil {
		for _, ns := range []facts.Namespace{facts.NamespaceLoan, facts.NamespaceMove} {
			for _, k := range af.Keys(ns) {
				m.items = append(m.items, visibility.Ref{Namespace: ns, Key: k})
			}
		}
	}
	m.focus(0)
	m.refresh()
	return m
}

// Selected returns the entity under the cursor.
func (m *Explorer) Selected() (visibility.Ref, bool) {
	if len(m.items) == 0 {
		return visibility.Ref{}, false
	}
	return m.items[m.cursor], true
}

func (m *Explorer) Init() tea.Cmd {
	return nil
}

func (m *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.move(1)
		case key.Matches(msg, m.keys.Pin):
			m.togglePin()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize(m.width, m.height)
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Explorer) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if ref, ok := m.Selected(); ok {
		header = fmt.Sprintf("%s (%s)", header, ref)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.list(), m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *Explorer) list() string {
	box := lipgloss.NewStyle().Width(listWidth).MarginRight(1)
	if len(m.items) == 0 {
		return box.Render(styleRef(visibility.Ref{}).Render("no facts"))
	}
	var b strings.Builder
	for i, ref := range m.items {
		cur, pin := " ", " "
		if i == m.cursor {
			cur = ">"
		}
		if m.pinned[ref] {
			pin = "*"
		}
		marker := cur + pin + " "
		name := truncate(ref.String(), listWidth-len(marker))
		line := marker + name
		if i == m.cursor {
			line = styleRef(ref).Bold(true).Render(line)
		} else {
			line = styleRef(ref).Render(line)
		}
		b.WriteString(line)
		if i < len(m.items)-1 {
			b.WriteString("\n")
		}
	}
	return box.Render(b.String())
}

func (m *Explorer) move(delta int) {
	if len(m.items) == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 || next >= len(m.items) {
		return
	}
	m.blur(m.cursor)
	m.focus(next)
	m.refresh()
}

func (m *Explorer) focus(i int) {
	if i < 0 || i >= len(m.items) {
		return
	}
	m.cursor = i
	ref := m.items[i]
	m.sess.Show(m.ctx, ref.Namespace, &ref.Key, FocusClass)
}

func (m *Explorer) blur(i int) {
	ref := m.items[i]
	if m.pinned[ref] {
		// остаётся раскрытым, снимаем только фокус
		m.sess.Hide(m.ctx, ref.Namespace, &ref.Key, FocusClass)
		m.sess.Show(m.ctx, ref.Namespace, &ref.Key)
		return
	}
	m.sess.Hide(m.ctx, ref.Namespace, &ref.Key, FocusClass)
}

func (m *Explorer) togglePin() {
	ref, ok := m.Selected()
	if !ok {
		return
	}
	if m.pinned[ref] {
		delete(m.pinned, ref)
		return
	}
	m.pinned[ref] = true
}

func (m *Explorer) refresh() {
	m.viewport.SetContent(m.sess.ANSI(m.theme))
}

func (m *Explorer) resize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
	vw := m.width - listWidth - 1
	if vw < 20 {
		vw = 20
	}
	helpHeight := 1
	if m.help.ShowAll {
		helpHeight = 3
	}
	vh := m.height - 3 - helpHeight
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = vw
	m.viewport.Height = vh
	m.help.Width = m.width
}

func styleRef(ref visibility.Ref) lipgloss.Style {
	switch ref.Namespace {
	case facts.NamespaceLoan:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(view.SoftBlue))
	case facts.NamespaceMove:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(view.SoftOrange))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}
