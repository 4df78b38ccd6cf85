// Package store provides document-store implementations of project.Store.
// Both implementations persist whole aggregates and check a revision counter
// at save time so a lost concurrent write surfaces as a conflict instead of
// silently clobbering data.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/project"
)

// Memory is an in-process store used by tests and the browse command when no
// database is configured. All aggregates are deep-copied on the way in and
// out so callers cannot mutate stored state directly.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{projects: make(map[string]*project.Project)}
}

func (m *Memory) Get(_ context.Context, id, ownerID string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return nil, project.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) List(_ context.Context, ownerID string, opts project.ListOptions) ([]*project.Project, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*project.Project, 0)
	for _, p := range m.projects {
		if p.OwnerID != ownerID {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		matched = append(matched, p)
	}
	sortProjects(matched, opts.SortBy, opts.SortOrder)

	total := int64(len(matched))
	start := (opts.Page - 1) * opts.Limit
	if start >= len(matched) {
		return []*project.Project{}, total, nil
	}
	end := start + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]*project.Project, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, p.Clone())
	}
	return page, total, nil
}

func (m *Memory) Create(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := p.Clone()
	cp.Revision = 1
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.projects[cp.ID] = cp
	p.Revision = cp.Revision
	p.CreatedAt = cp.CreatedAt
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *Memory) Save(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.projects[p.ID]
	if !ok || stored.OwnerID != p.OwnerID {
		return project.ErrNotFound
	}
	if stored.Revision != p.Revision {
		return project.ErrConflict
	}
	cp := p.Clone()
	cp.Revision++
	cp.UpdatedAt = time.Now().UTC()
	m.projects[cp.ID] = cp
	p.Revision = cp.Revision
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *Memory) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return project.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func sortProjects(ps []*project.Project, sortBy, sortOrder string) {
	less := func(a, b *project.Project) bool {
		switch sortBy {
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "title":
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case "dueDate":
			switch {
			case a.DueDate == nil:
				return b.DueDate != nil
			case b.DueDate == nil:
				return false
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		case "status":
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if sortOrder == "asc" {
			return less(ps[i], ps[j])
		}
		return less(ps[j], ps[i])
	})
}
