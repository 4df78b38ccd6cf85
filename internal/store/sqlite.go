package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/taskdeck/taskdeck/internal/project"
)

// projectRow is the sqlite representation of one aggregate: the full document
// as JSON plus a handful of columns extracted for listing and filtering. The
// doc column is the source of truth; the extracted columns are rewritten on
// every save.
type projectRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	OwnerID   string `gorm:"size:64;index;not null"`
	Title     string `gorm:"index"`
	Status    string `gorm:"index"`
	DueDate   *time.Time
	Revision  int64
	Doc       []byte
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (projectRow) TableName() string { return "projects" }

// listSortColumns maps the public sort fields to row columns.
var listSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"dueDate":   "due_date",
	"status":    "status",
}

// SQLite is a project.Store backed by a sqlite database file through gorm
// with the pure-Go modernc driver.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if necessary) the database at path and runs
// migrations. The connection pool is pinned to a single connection; sqlite
// serializes writers anyway and this keeps the WAL handling predictable.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}
	if err := db.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&projectRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLite) Get(ctx context.Context, id, ownerID string) (*project.Project, error) {
	var row projectRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(row.Doc)
}

func (s *SQLite) List(ctx context.Context, ownerID string, opts project.ListOptions) ([]*project.Project, int64, error) {
	q := s.db.WithContext(ctx).Model(&projectRow{}).Where("owner_id = ?", ownerID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := listSortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if opts.SortOrder == "asc" {
		direction = "ASC"
	}

	var rows []projectRow
	err := q.Order(column + " " + direction).
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	projects := make([]*project.Project, 0, len(rows))
	for _, row := range rows {
		p, err := decodeDoc(row.Doc)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, nil
}

func (s *SQLite) Create(ctx context.Context, p *project.Project) error {
	now := time.Now().UTC()
	p.Revision = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&projectRow{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Status:    p.Status,
		DueDate:   p.DueDate,
		Revision:  p.Revision,
		Doc:       doc,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}).Error
}

// Save replaces the stored document if and only if the stored revision still
// matches the one the aggregate was loaded at.
func (s *SQLite) Save(ctx context.Context, p *project.Project) error {
	loadedRevision := p.Revision
	p.Revision = loadedRevision + 1
	p.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(p)
	if err != nil {
		p.Revision = loadedRevision
		return err
	}

	res := s.db.WithContext(ctx).Model(&projectRow{}).
		Where("id = ? AND owner_id = ? AND revision = ?", p.ID, p.OwnerID, loadedRevision).
		Updates(map[string]any{
			"title":      p.Title,
			"status":     p.Status,
			"due_date":   p.DueDate,
			"revision":   p.Revision,
			"doc":        doc,
			"updated_at": p.UpdatedAt,
		})
	if res.Error != nil {
		p.Revision = loadedRevision
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.Revision = loadedRevision
		var count int64
		if err := s.db.WithContext(ctx).Model(&projectRow{}).
			Where("id = ? AND owner_id = ?", p.ID, p.OwnerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return project.ErrNotFound
		}
		return project.ErrConflict
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id, ownerID string) error {
	res := s.db.WithContext(ctx).Delete(&projectRow{}, "id = ? AND owner_id = ?", id, ownerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return project.ErrNotFound
	}
	return nil
}

func decodeDoc(doc []byte) (*project.Project, error) {
	var p project.Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode project document: %w", err)
	}
	return &p, nil
}
