package catalog

import (
	"fmt"

	"github.com/ksred/tradeplan/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultStrategy is what new schedules are bound to until a plan says
// otherwise. CALL schedules get its inverse.
const DefaultStrategy = "EMA520"

const (
	defaultScheduleType      = "Trade"
	defaultQtyOverride       = 1
	defaultExpirationMinutes = 5
	defaultQtyType           = "Fixed"
)

// newSchedule fills the defaults for a schedule row. Weekend flags are
// Saturday off, Sunday on, matching existing engine databases.
func newSchedule(account string, templateID uint, hour, minute int, strategy string, condition Condition, active bool) types.ScheduleMaster {
	isActive := 0
	if active {
		isActive = 1
	}
	return types.ScheduleMaster{
		Account:           account,
		TradeTemplateID:   templateID,
		ScheduleType:      defaultScheduleType,
		QtyOverride:       defaultQtyOverride,
		Hour:              hour,
		Minute:            minute,
		Second:            0,
		ExpirationMinutes: defaultExpirationMinutes,
		IsActive:          isActive,
		ScheduleGroupID:   0,
		Condition:         condition.Description,
		Strategy:          strategy,
		DisplayStrategy:   strategy,
		TradeConditionID:  condition.ID,
		DisplayCondition:  condition.Description,
		DayMonday:         1,
		DayTuesday:        1,
		DayWednesday:      1,
		DayThursday:       1,
		DayFriday:         1,
		DaySaturday:       0,
		DaySunday:         1,
		QtyType:           defaultQtyType,
		QtyAllocation:     0,
		QtyAllocationMax:  0,
	}
}

// EnsureSchedules creates, for every (plan, slot, account), one PUT and one
// CALL schedule unless a row with the same (template, strategy, account)
// already exists. Existing rows are never modified. Templates and conditions
// must already be in place.
func EnsureSchedules(tx *gorm.DB, plans, slots []string, conditions Conditions, accounts []string, active bool) error {
	logger := log.With().Str("service", "catalog").Str("step", "schedules").Logger()
	d := NewDatabase(tx)
	resolver := &Resolver{db: d}

	strategyBySide := map[Side]string{
		SidePut:  DefaultStrategy,
		SideCall: InverseKey(DefaultStrategy),
	}
	for _, key := range strategyBySide {
		if _, ok := conditions[key]; !ok {
			return fmt.Errorf("condition %q missing from catalog: %w", key, ErrNotFound)
		}
	}

	created := 0
	for _, plan := range plans {
		for _, slot := range slots {
			hour, minute, err := SlotClock(slot)
			if err != nil {
				return err
			}

			templateIDs := make(map[Side]uint, len(Sides))
			for _, side := range Sides {
				id, err := resolver.Resolve(plan, slot, side)
				if err != nil {
					return err
				}
				templateIDs[side] = id
			}

			for _, account := range accounts {
				for _, side := range Sides {
					strategy := strategyBySide[side]
					exists, err := d.ScheduleExists(templateIDs[side], strategy, account)
					if err != nil {
						return fmt.Errorf("check schedule %s %s: %w", TemplateName(side, slot, plan), account, err)
					}
					if exists {
						continue
					}

					schedule := newSchedule(account, templateIDs[side], hour, minute, strategy, conditions[strategy], active)
					if err := d.CreateSchedule(&schedule); err != nil {
						return fmt.Errorf("insert schedule %s %s: %w", TemplateName(side, slot, plan), account, err)
					}
					created++
				}
			}
		}
	}

	logger.Info().
		Int("accounts", len(accounts)).
		Int("created", created).
		Bool("active", active).
		Msg("schedules ready")
	return nil
}
