package catalog

import (
	"fmt"
	"strings"

	"github.com/ksred/tradeplan/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Side is the option direction a template trades.
type Side string

const (
	SidePut  Side = "PUT"
	SideCall Side = "CALL"
)

// Sides is the order both sides are created and applied in.
var Sides = []Side{SidePut, SideCall}

// ParseSide accepts P/C and PUT/CALL in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PUT":
		return SidePut, nil
	case "C", "CALL":
		return SideCall, nil
	}
	return "", fmt.Errorf("unknown option side %q", s)
}

// TemplateName builds the natural key the engine uses for a template. It is
// the only place that knows the format.
func TemplateName(side Side, slot, plan string) string {
	return fmt.Sprintf("%s SPREAD (%s) %s", side, slot, plan)
}

// Order identifier values written to OrderIDProfitTarget.
const (
	ProfitTargetOrderNone   = "None"
	ProfitTargetOrderActive = "Auto"
	ProfitTargetTypePercent = "Percent"
)

// Default template parameters. PUT and CALL share everything except the
// fields set in NewTemplate.
const (
	defaultTargetMin    = 0.5
	defaultTargetMax    = 1.5
	defaultLongWidth    = "20"
	defaultStopMultiple = 2.0
)

// NewTemplate returns the default record for one side of a (plan, slot) pair.
func NewTemplate(side Side, slot, plan string) types.TradeTemplate {
	t := types.TradeTemplate{
		Name:      TemplateName(side, slot, plan),
		IsDeleted: 0,

		TargetType:     "Credit",
		TargetMin:      defaultTargetMin,
		TargetMax:      defaultTargetMax,
		LongType:       "Width",
		LongWidth:      defaultLongWidth,
		LongMaxPremium: 0,
		QtyDefault:     1,

		FillAttempts:   5,
		FillWait:       10,
		FillAdjustment: 0.05,

		StopType:              "Vertical",
		StopMultiple:          defaultStopMultiple,
		StopOffset:            0,
		StopTrigger:           1,
		StopOrderType:         "Market",
		StopTargetType:        "Multiple",
		StopRelOffset:         0,
		StopRelLimit:          0,
		StopLimitOffset:       0,
		StopLimitMarketOffset: 0,

		OrderIDProfitTarget: ProfitTargetOrderNone,
		ProfitTargetType:    nil,
		ProfitTarget:        nil,

		Adjustment1Type:       "None",
		Adjustment1ChangeType: "None",
		Adjustment2Type:       "None",
		Adjustment2ChangeType: "None",
		Adjustment3Type:       "None",
		Adjustment3ChangeType: "None",

		ExitHour:           15,
		ExitMinute:         59,
		LowerTarget:        0,
		StopBasis:          "Trade",
		StopRel:            "None",
		StopRelITM:         0,
		StopRelITMMinutes:  0,
		LongMaxWidth:       50,
		ExitMinutesInTrade: 0,
		Preference:         "Highest",

		ReEnterClose:            0,
		ReEnterStop:             0,
		ReEnterProfitTarget:     0,
		ReEnterDelay:            0,
		ReEnterExpirationHour:   15,
		ReEnterExpirationMinute: 0,
		ReEnterMaxEntries:       0,
		DisableNarrowerLong:     0,
		MinOTM:                  0,

		ShortPutTargetType:  "Delta",
		ShortCallTargetType: "Delta",
		LongPutTargetType:   "Delta",
		LongCallTargetType:  "Delta",
		ExitDTE:             0,
		ExtendedHourStop:    0,

		TargetTypeCall: "Credit",
		TargetMinCall:  defaultTargetMin,
		TargetMaxCall:  0,
		PreferenceCall: "Highest",
		MinOTMCall:     0,
		ExitOrderLimit: 0,
		PutRatio:       1,
		CallRatio:      1,
		LongMinPremium: nil,

		Adjustment1OrderType: "Market",
		Adjustment2OrderType: "Market",
		Adjustment3OrderType: "Market",
	}

	switch side {
	case SidePut:
		t.TradeType = "PutSpread"
		t.Strategy = "Put"
	case SideCall:
		t.TradeType = "CallSpread"
		t.Strategy = "Call"
		t.TargetMax = 0
		t.TargetMaxCall = defaultTargetMax
	}
	return t
}

// EnsureTemplates makes sure a PUT and a CALL template exist for every
// (plan, slot) pair. Existing rows are only touched to clear a soft delete;
// parameter updates belong to the reconciler.
func EnsureTemplates(tx *gorm.DB, plans, slots []string) error {
	logger := log.With().Str("service", "catalog").Str("step", "templates").Logger()
	d := NewDatabase(tx)

	var created, restored int
	for _, plan := range plans {
		for _, slot := range slots {
			for _, side := range Sides {
				record := NewTemplate(side, slot, plan)

				existing, err := d.GetTemplateByName(record.Name)
				if err != nil {
					return fmt.Errorf("lookup template %q: %w", record.Name, err)
				}
				if existing != nil {
					if existing.IsDeleted != 0 {
						if err := d.RestoreTemplate(existing.TradeTemplateID); err != nil {
							return fmt.Errorf("restore template %q: %w", record.Name, err)
						}
						restored++
						logger.Info().Str("template", record.Name).Msg("restored soft-deleted template")
					}
					continue
				}

				if err := d.CreateTemplate(&record); err != nil {
					return fmt.Errorf("insert template %q: %w", record.Name, err)
				}
				created++
			}
		}
	}

	logger.Info().
		Int("plans", len(plans)).
		Int("slots", len(slots)).
		Int("created", created).
		Int("restored", restored).
		Msg("template catalog ready")
	return nil
}
