package migrations

import (
	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

// CreateDailyLog makes sure the P&L report has a table to read from on
// databases the engine has not written a session to yet.
func CreateDailyLog(db *gorm.DB) error {
	if db.Migrator().HasTable(&types.DailyLog{}) {
		return nil
	}
	return db.Migrator().CreateTable(&types.DailyLog{})
}
