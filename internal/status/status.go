package status

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ksred/tradeplan/internal/backup"
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

// Service answers read-only questions about the engine store.
type Service struct {
	db        *gorm.DB
	backupDir string
}

// NewService creates a status service. backupDir may be empty.
func NewService(gormDB *gorm.DB, backupDir string) *Service {
	return &Service{db: gormDB, backupDir: backupDir}
}

// Summary counts the catalog rows.
type Summary struct {
	Conditions       int64  `json:"conditions"`
	Templates        int64  `json:"templates"`
	DeletedTemplates int64  `json:"deleted_templates"`
	Schedules        int64  `json:"schedules"`
	ActiveSchedules  int64  `json:"active_schedules"`
	LatestBackup     string `json:"latest_backup,omitempty"`
}

func (s *Service) Status(ctx context.Context) (*Summary, error) {
	d := NewDatabase(s.db.WithContext(ctx))

	var (
		summary Summary
		err     error
	)
	counts := []struct {
		dst   *int64
		model interface{}
		query string
	}{
		{&summary.Conditions, &types.TradeCondition{}, ""},
		{&summary.Templates, &types.TradeTemplate{}, "IsDeleted = 0"},
		{&summary.DeletedTemplates, &types.TradeTemplate{}, "IsDeleted <> 0"},
		{&summary.Schedules, &types.ScheduleMaster{}, ""},
		{&summary.ActiveSchedules, &types.ScheduleMaster{}, "IsActive = 1"},
	}
	for _, c := range counts {
		if *c.dst, err = d.count(c.model, c.query); err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	if summary.LatestBackup, err = s.latestBackup(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// latestBackup returns the newest archive name in the backup directory.
// Archive names sort by timestamp.
func (s *Service) latestBackup() (string, error) {
	if s.backupDir == "" {
		return "", nil
	}
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && backup.IsArchive(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}

func (s *Service) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]ScheduleView, error) {
	return NewDatabase(s.db.WithContext(ctx)).ListSchedules(filter)
}

// GetTemplate returns the template called name, or an error wrapping
// catalog.ErrNotFound.
func (s *Service) GetTemplate(ctx context.Context, name string) (*types.TradeTemplate, error) {
	template, err := NewDatabase(s.db.WithContext(ctx)).GetTemplateByName(name)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("template %q: %w", name, catalog.ErrNotFound)
	}
	return template, nil
}
