package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/project"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/testutil"
)

func seededModel(t *testing.T) Model {
	t.Helper()
	mem := store.NewMemory()
	svc := project.NewService(mem, testutil.DiscardLogger())
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "u1", testutil.Draft("Website", "Frontend"))
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := svc.AddSubtask(ctx, "u1", p.ID, 0, project.TaskDraft{Name: "Design"}); err != nil {
		t.Fatalf("AddSubtask: %v", err)
	}

	m := NewModel(mem, "u1")
	msg := m.loadProjects()
	loaded, ok := msg.(projectsLoadedMsg)
	if !ok {
		t.Fatalf("loadProjects returned %T", msg)
	}
	if loaded.err != nil {
		t.Fatalf("loadProjects: %v", loaded.err)
	}
	updated, _ := m.Update(loaded)
	return updated.(Model)
}

func TestListPopulation(t *testing.T) {
	m := seededModel(t)
	if len(m.projects.Items()) != 1 {
		t.Fatalf("got %d items, want 1", len(m.projects.Items()))
	}
	item := m.projects.Items()[0].(projectItem)
	if item.Title() != "Website" {
		t.Errorf("got title %q", item.Title())
	}
	if !strings.Contains(item.Description(), "1 tasks") {
		t.Errorf("description should show the task count: %q", item.Description())
	}
}

func TestOpenAndBack(t *testing.T) {
	m := seededModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.state != stateDetail || m.selected == nil {
		t.Fatalf("enter should open the detail view, state=%d", m.state)
	}

	view := m.View()
	for _, want := range []string{"Website", "[0] Frontend", "[0.0] Design"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.state != stateList || m.selected != nil {
		t.Errorf("esc should return to the list, state=%d", m.state)
	}
}

func TestQuit(t *testing.T) {
	m := seededModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("got %T, want tea.QuitMsg", cmd())
	}
}
