package status

import (
	"errors"

	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) count(model interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	tx := d.db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ScheduleView is a schedule joined with its template name.
type ScheduleView struct {
	ScheduleMasterID uint   `json:"id"`
	Account          string `json:"account"`
	Template         string `json:"template"`
	Hour             int    `json:"hour"`
	Minute           int    `json:"minute"`
	IsActive         int    `json:"is_active"`
	QtyOverride      int    `json:"qty"`
	Strategy         string `json:"strategy"`
	Condition        string `json:"condition"`
	TradeConditionID uint   `json:"condition_id"`
}

// ScheduleFilter narrows ListSchedules. Zero values match everything.
type ScheduleFilter struct {
	ActiveOnly bool
	Account    string
}

func (d *Database) ListSchedules(filter ScheduleFilter) ([]ScheduleView, error) {
	tx := d.db.Table("ScheduleMaster AS s").
		Select("s.ScheduleMasterID, s.Account, t.Name AS Template, s.Hour, s.Minute, s.IsActive, " +
			"s.QtyOverride, s.Strategy, s.Condition, s.TradeConditionID").
		Joins("LEFT JOIN TradeTemplate AS t ON t.TradeTemplateID = s.TradeTemplateID")
	if filter.ActiveOnly {
		tx = tx.Where("s.IsActive = ?", 1)
	}
	if filter.Account != "" {
		tx = tx.Where("s.Account = ?", filter.Account)
	}

	var views []ScheduleView
	if err := tx.Order("s.Hour, s.Minute, t.Name, s.Account").Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
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

// GetDailyLogs returns entries with from <= LogDate < to, oldest first.
func (d *Database) GetDailyLogs(fromTicks, toTicks int64) ([]types.DailyLog, error) {
	var logs []types.DailyLog
	err := d.db.Where("LogDate >= ? AND LogDate < ?", fromTicks, toTicks).
		Order("LogDate ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
