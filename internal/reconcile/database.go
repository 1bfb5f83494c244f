package reconcile

import (
	"errors"
	"fmt"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// DeactivateSchedules clears IsActive on every schedule and returns how many
// rows were touched.
func (d *Database) DeactivateSchedules() (int64, error) {
	result := d.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&types.ScheduleMaster{}).
		Update("IsActive", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("deactivate schedules: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TemplateUpdate holds the parameters a plan row sets on one template.
type TemplateUpdate struct {
	Side         catalog.Side
	Bound        float64
	LongWidth    string
	StopMultiple float64
	MinPremium   *float64
	ProfitTarget *float64
}

func (u TemplateUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"LongWidth":    u.LongWidth,
		"StopMultiple": u.StopMultiple,
	}
	if u.Side == catalog.SideCall {
		cols["TargetMaxCall"] = u.Bound
	} else {
		cols["TargetMax"] = u.Bound
	}
	if u.MinPremium != nil {
		cols["LongMinPremium"] = *u.MinPremium
	}
	if u.ProfitTarget != nil {
		cols["ProfitTarget"] = *u.ProfitTarget
		cols["ProfitTargetType"] = catalog.ProfitTargetTypePercent
		cols["OrderIDProfitTarget"] = catalog.ProfitTargetOrderActive
	} else {
		cols["ProfitTarget"] = nil
		cols["ProfitTargetType"] = nil
		cols["OrderIDProfitTarget"] = catalog.ProfitTargetOrderNone
	}
	return cols
}

func (d *Database) UpdateTemplate(templateID uint, update TemplateUpdate) error {
	result := d.db.Model(&types.TradeTemplate{}).
		Where("TradeTemplateID = ?", templateID).
		Updates(update.columns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("template %d: %w", templateID, catalog.ErrNotFound)
	}
	return nil
}

func (d *Database) GetTemplate(templateID uint) (*types.TradeTemplate, error) {
	var template types.TradeTemplate
	if err := d.db.Where("TradeTemplateID = ?", templateID).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

// ScheduleUpdate is what a plan row sets on every schedule of a template.
type ScheduleUpdate struct {
	Qty       int
	Strategy  string
	Condition catalog.Condition
}

// ActivateSchedules updates every schedule bound to the template and returns
// how many rows matched.
func (d *Database) ActivateSchedules(templateID uint, update ScheduleUpdate) (int64, error) {
	result := d.db.Model(&types.ScheduleMaster{}).
		Where("TradeTemplateID = ?", templateID).
		Updates(map[string]interface{}{
			"IsActive":         1,
			"QtyOverride":      update.Qty,
			"Strategy":         update.Strategy,
			"DisplayStrategy":  update.Strategy,
			"TradeConditionID": update.Condition.ID,
			"Condition":        update.Condition.Description,
			"DisplayCondition": update.Condition.Description,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
