package migrations

import (
	"github.com/ksred/tradeplan/internal/types"
	"gorm.io/gorm"
)

// CreateEngineTables creates the condition, template and schedule tables when
// they do not exist yet (fresh files and tests). Tables created by the engine
// are left exactly as they are: no AutoMigrate, no added columns or indexes.
func CreateEngineTables(db *gorm.DB) error {
	tables := []interface{}{
		&types.TradeCondition{},
		&types.TradeConditionDetail{},
		&types.TradeTemplate{},
		&types.ScheduleMaster{},
	}

	for _, table := range tables {
		if db.Migrator().HasTable(table) {
			continue
		}
		if err := db.Migrator().CreateTable(table); err != nil {
			return err
		}
	}

	return nil
}
