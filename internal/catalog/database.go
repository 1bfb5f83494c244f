package catalog

import (
	"errors"
	"fmt"

	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

// Database wraps the handle the catalog builders write through. Callers pass
// their transaction, so every statement here lands in the caller's unit of
// work.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetConditionByName returns nil, nil when no condition carries that name.
func (d *Database) GetConditionByName(name string) (*types.TradeCondition, error) {
	var condition types.TradeCondition
	if err := d.db.Where("Name = ?", name).First(&condition).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &condition, nil
}

// CreateCondition inserts the condition and then its detail row, linking the
// detail to the new id.
func (d *Database) CreateCondition(condition *types.TradeCondition, detail *types.TradeConditionDetail) error {
	if err := d.db.Create(condition).Error; err != nil {
		return fmt.Errorf("insert condition %q: %w", condition.Name, err)
	}
	detail.TradeConditionID = condition.TradeConditionID
	if err := d.db.Create(detail).Error; err != nil {
		return fmt.Errorf("insert detail for condition %q: %w", condition.Name, err)
	}
	return nil
}

// NormalizeConditions rewrites the two engine-controlled fields on every
// condition and detail row, not only the ones created by this run.
func (d *Database) NormalizeConditions() error {
	if err := d.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&types.TradeCondition{}).
		Update("RetryUntilExpiration", DefaultRetryUntilExpiration).Error; err != nil {
		return fmt.Errorf("normalize conditions: %w", err)
	}
	if err := d.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&types.TradeConditionDetail{}).
		Update("ComparisonType", DefaultComparisonType).Error; err != nil {
		return fmt.Errorf("normalize condition details: %w", err)
	}
	return nil
}

func (d *Database) GetTemplateByName(name string) (*types.TradeTemplate, error) {
	var template types.TradeTemplate
	if err := d.db.Where("Name = ?", name).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

// GetLiveTemplateByName is GetTemplateByName restricted to rows that are not
// soft-deleted.
func (d *Database) GetLiveTemplateByName(name string) (*types.TradeTemplate, error) {
	var template types.TradeTemplate
	if err := d.db.Where("Name = ? AND IsDeleted = 0", name).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (d *Database) CreateTemplate(template *types.TradeTemplate) error {
	return d.db.Create(template).Error
}

// RestoreTemplate clears the soft-delete flag and nothing else.
func (d *Database) RestoreTemplate(templateID uint) error {
	return d.db.Model(&types.TradeTemplate{}).
		Where("TradeTemplateID = ?", templateID).
		Update("IsDeleted", 0).Error
}

func (d *Database) ScheduleExists(templateID uint, strategy, account string) (bool, error) {
	var count int64
	err := d.db.Model(&types.ScheduleMaster{}).
		Where("TradeTemplateID = ? AND Strategy = ? AND Account = ?", templateID, strategy, account).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *Database) CreateSchedule(schedule *types.ScheduleMaster) error {
	return d.db.Create(schedule).Error
}

// WipeCatalog deletes every schedule, template, detail and condition, in an
// order that never leaves a row pointing at a deleted parent.
func (d *Database) WipeCatalog() error {
	tables := []interface{}{
		&types.ScheduleMaster{},
		&types.TradeTemplate{},
		&types.TradeConditionDetail{},
		&types.TradeCondition{},
	}
	for _, table := range tables {
		if err := d.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return fmt.Errorf("wipe %T: %w", table, err)
		}
	}
	return nil
}

// ResetConditionSequence restarts AUTOINCREMENT numbering for TradeCondition.
func (d *Database) ResetConditionSequence() error {
	return d.db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", types.TradeCondition{}.TableName()).Error
}

// ListConditions returns every condition row keyed by name.
func (d *Database) ListConditions() (map[string]types.TradeCondition, error) {
	var conditions []types.TradeCondition
	if err := d.db.Order("TradeConditionID").Find(&conditions).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]types.TradeCondition, len(conditions))
	for _, c := range conditions {
		if _, exists := byName[c.Name]; !exists {
			byName[c.Name] = c
		}
	}
	return byName, nil
}

// GetTemplateIDsByNames resolves a batch of names in one query. Names with no
// live row are absent from the result.
func (d *Database) GetTemplateIDsByNames(names []string) (map[string]uint, error) {
	var templates []types.TradeTemplate
	if err := d.db.Select("TradeTemplateID", "Name").
		Where("Name IN ? AND IsDeleted = 0", names).
		Order("TradeTemplateID").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(templates))
	for _, t := range templates {
		if _, exists := ids[t.Name]; !exists {
			ids[t.Name] = t.TradeTemplateID
		}
	}
	return ids, nil
}

// CountCatalog returns the number of template and schedule rows.
func (d *Database) CountCatalog() (templates, schedules int64, err error) {
	if err = d.db.Model(&types.TradeTemplate{}).Count(&templates).Error; err != nil {
		return 0, 0, fmt.Errorf("count templates: %w", err)
	}
	if err = d.db.Model(&types.ScheduleMaster{}).Count(&schedules).Error; err != nil {
		return 0, 0, fmt.Errorf("count schedules: %w", err)
	}
	return templates, schedules, nil
}
