// Package tui is fukura's interactive note browser (spec.md §6.10: "fukura
// tui opens a searchable, scrollable browser over the repository").
// One bubbletea Model split into a focused/unfocused pair of bordered
// panels with a textinput at the bottom, browsing stored notes rather
// than streaming a live conversation.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fukura-dev/fukura/internal/repo"
)

// Focus identifies which panel receives key input outside of the search bar.
type Focus int

const (
	FocusList Focus = iota
	FocusDetail
)

// Model is the note browser's bubbletea model.
type Model struct {
	repo *repo.Repository

	listViewport   viewport.Model
	detailViewport viewport.Model
	search         textinput.Model

	notes    []repo.SearchHit
	cursor   int
	focus    Focus
	width    int
	height   int
	ready    bool
	statusMsg string
}

// New builds a Model browsing r, loading the initial note listing via an
// empty query (spec.md §4.2: empty query returns the most recently
// updated notes).
func New(r *repo.Repository) Model {
	search := textinput.New()
	search.Placeholder = "search notes (press / to focus, enter to run)"
	search.CharLimit = 200

	m := Model{
		repo:           r,
		listViewport:   viewport.New(40, 20),
		detailViewport: viewport.New(60, 20),
		search:         search,
		focus:          FocusList,
	}
	m.runSearch("")
	return m
}

// Run starts the bubbletea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, r *repo.Repository) error {
	m := New(r)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m *Model) runSearch(query string) {
	hits, err := m.repo.Search(query, 200, "updated")
	if err != nil {
		m.statusMsg = fmt.Sprintf("search failed: %v", err)
		return
	}
	m.notes = hits
	m.cursor = 0
	m.statusMsg = fmt.Sprintf("%d note(s)", len(hits))
	m.refreshList()
	m.refreshDetail()
}

func (m *Model) refreshList() {
	var b strings.Builder
	for i, hit := range m.notes {
		line := fmt.Sprintf("%-40s %s", truncate(hit.Title, 40), tagStyle.Render(strings.Join(hit.Tags, ",")))
		if i == m.cursor {
			line = selectedItemStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	m.listViewport.SetContent(b.String())
}

func (m *Model) refreshDetail() {
	if len(m.notes) == 0 {
		m.detailViewport.SetContent("no notes match the current search")
		return
	}
	hit := m.notes[m.cursor]

	rec, err := m.repo.LoadNote(hit.ObjectID)
	if err != nil {
		m.detailViewport.SetContent(errorStyle.Render(fmt.Sprintf("failed to load note: %v", err)))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(rec.Note.Title))
	fmt.Fprintf(&b, "id:      %s\n", rec.ObjectID)
	fmt.Fprintf(&b, "updated: %s\n", rec.Note.UpdatedAt.Format("2006-01-02 15:04"))
	if len(rec.Note.Tags) > 0 {
		fmt.Fprintf(&b, "tags:    %s\n", tagStyle.Render(strings.Join(rec.Note.Tags, ", ")))
	}
	b.WriteString("\n")
	b.WriteString(rec.Note.Body)
	if len(rec.Note.Solutions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(solvedStyle.Render("Solutions"))
		b.WriteString("\n")
		for _, sol := range rec.Note.Solutions {
			for _, step := range sol.Steps {
				fmt.Fprintf(&b, "  - %s\n", step)
			}
		}
	}
	m.detailViewport.SetContent(b.String())
	m.detailViewport.GotoTop()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		listWidth := m.width * 2 / 5
		panelHeight := m.height - 4
		m.listViewport.Width = listWidth
		m.listViewport.Height = panelHeight
		m.detailViewport.Width = m.width - listWidth - 4
		m.detailViewport.Height = panelHeight
		m.refreshList()
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			switch msg.String() {
			case "esc":
				m.search.Blur()
				return m, nil
			case "enter":
				m.runSearch(m.search.Value())
				m.search.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "/":
			m.search.Focus()
			return m, nil
		case "tab":
			if m.focus == FocusList {
				m.focus = FocusDetail
			} else {
				m.focus = FocusList
			}
			return m, nil
		case "up", "k":
			if m.focus == FocusList && m.cursor > 0 {
				m.cursor--
				m.refreshList()
				m.refreshDetail()
			}
			return m, nil
		case "down", "j":
			if m.focus == FocusList && m.cursor < len(m.notes)-1 {
				m.cursor++
				m.refreshList()
				m.refreshDetail()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == FocusDetail {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
	} else {
		m.listViewport, cmd = m.listViewport.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}

	listBorder := unfocusedBorder
	detailBorder := unfocusedBorder
	if m.focus == FocusList {
		listBorder = focusedBorder
	} else {
		detailBorder = focusedBorder
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Render(m.listViewport.View()),
		detailBorder.Render(m.detailViewport.View()),
	)

	status := statusBarStyle.Render(fmt.Sprintf("%s | / search  tab switch  j/k move  q quit", m.statusMsg))

	return lipgloss.JoinVertical(lipgloss.Left, panels, m.search.View(), status)
}
