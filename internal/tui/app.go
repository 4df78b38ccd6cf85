// Package tui implements a read-only terminal browser over the project
// store: a list of projects and a task-tree detail view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/project"
)

type viewState int

const (
	stateList viewState = iota
	stateDetail
)

type projectItem struct {
	project *project.Project
}

func (i projectItem) Title() string { return i.project.Title }
func (i projectItem) Description() string {
	return fmt.Sprintf("%s · %d%% complete · %d tasks",
		i.project.Status, i.project.CompletionPercentage(), len(i.project.MainTasks))
}
func (i projectItem) FilterValue() string { return i.project.Title }

type projectsLoadedMsg struct {
	projects []*project.Project
	err      error
}

type keyMap struct {
	Open    key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the root bubbletea model.
type Model struct {
	store    project.Store
	ownerID  string
	state    viewState
	projects list.Model
	selected *project.Project
	err      error
	width    int
	height   int
}

// NewModel builds the browser for one owner's projects.
func NewModel(store project.Store, ownerID string) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	return Model{store: store, ownerID: ownerID, projects: l}
}

// Run starts the program.
func Run(store project.Store, ownerID string) error {
	_, err := tea.NewProgram(NewModel(store, ownerID), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadProjects
}

func (m Model) loadProjects() tea.Msg {
	projects, _, err := m.store.List(context.Background(), m.ownerID, project.ListOptions{
		Page: 1, Limit: 100, SortBy: "createdAt", SortOrder: "desc",
	})
	return projectsLoadedMsg{projects: projects, err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.projects.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case projectsLoadedMsg:
		m.err = msg.err
		items := make([]list.Item, 0, len(msg.projects))
		for _, p := range msg.projects {
			items = append(items, projectItem{project: p})
		}
		m.projects.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.loadProjects
		case key.Matches(msg, keys.Open):
			if m.state == stateList {
				if item, ok := m.projects.SelectedItem().(projectItem); ok {
					m.selected = item.project
					m.state = stateDetail
				}
				return m, nil
			}
		case key.Matches(msg, keys.Back):
			if m.state == stateDetail {
				m.state = stateList
				m.selected = nil
				return m, nil
			}
		}
	}

	if m.state == stateList {
		var cmd tea.Cmd
		m.projects, cmd = m.projects.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	if m.state == stateDetail && m.selected != nil {
		return m.detailView()
	}
	return m.projects.View()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	completedMark = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	pendingMark   = dimStyle.Render("·")
)

func (m Model) detailView() string {
	p := m.selected
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(p.Title), dimStyle.Render(p.Status))
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(p.Description))
	}
	b.WriteString("\n")
	for i := range p.MainTasks {
		t := &p.MainTasks[i]
		fmt.Fprintf(&b, "%s [%d] %s %s\n", statusMark(t.Status), i, t.Name, dimStyle.Render(t.Priority))
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			fmt.Fprintf(&b, "    %s [%d.%d] %s\n", statusMark(st.Status), i, j, st.Name)
		}
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "      %s\n", dimStyle.Render(c.Author+": "+c.Content))
		}
	}
	b.WriteString("\n" + dimStyle.Render("esc back · r refresh · q quit"))
	return b.String()
}

func statusMark(status string) string {
	if status == project.TaskStatusCompleted {
		return completedMark
	}
	return pendingMark
}
