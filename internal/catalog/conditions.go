package catalog

import (
	"fmt"

	"github.com/ksred/tradeplan/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultRetryUntilExpiration = 0
	DefaultComparisonType       = "Input"

	// InverseSuffix marks the key of a condition that negates another.
	InverseSuffix = "_INV"
)

// ConditionSpec describes one comparison the catalog must contain.
type ConditionSpec struct {
	Key         string
	Description string
	Input       string
	Operator    string
	Comparison  string
}

// Condition is the catalog entry for one key.
type Condition struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
}

// Conditions maps a machine key (EMA520, EMA520_INV, ...) to its stored row.
type Conditions map[string]Condition

// ConditionSpecs is the fixed comparison table. Every strategy has a direct
// entry and an inverse entry.
var ConditionSpecs = []ConditionSpec{
	{Key: "EMA520", Description: "EMA5 > EMA20", Input: "EMA5", Operator: ">", Comparison: "EMA20"},
	{Key: "EMA520_INV", Description: "EMA5 < EMA20", Input: "EMA5", Operator: "<", Comparison: "EMA20"},
	{Key: "EMA540", Description: "EMA5 > EMA40", Input: "EMA5", Operator: ">", Comparison: "EMA40"},
	{Key: "EMA540_INV", Description: "EMA5 < EMA40", Input: "EMA5", Operator: "<", Comparison: "EMA40"},
	{Key: "EMA2040", Description: "EMA20 > EMA40", Input: "EMA20", Operator: ">", Comparison: "EMA40"},
	{Key: "EMA2040_INV", Description: "EMA20 < EMA40", Input: "EMA20", Operator: "<", Comparison: "EMA40"},
}

// Strategies lists the strategy keys a plan may reference.
var Strategies = []string{"EMA520", "EMA540", "EMA2040"}

// IsStrategy reports whether key is one of the supported strategies.
func IsStrategy(key string) bool {
	for _, s := range Strategies {
		if s == key {
			return true
		}
	}
	return false
}

// InverseKey returns the key of the condition negating key.
func InverseKey(key string) string {
	return key + InverseSuffix
}

// EnsureConditions makes sure every ConditionSpec exists, then normalizes the
// engine-controlled fields across all condition rows. Safe to run repeatedly:
// existing ids are reused.
func EnsureConditions(tx *gorm.DB) (Conditions, error) {
	logger := log.With().Str("service", "catalog").Str("step", "conditions").Logger()
	d := NewDatabase(tx)

	conditions := make(Conditions, len(ConditionSpecs))
	created := 0
	for _, spec := range ConditionSpecs {
		existing, err := d.GetConditionByName(spec.Description)
		if err != nil {
			return nil, fmt.Errorf("lookup condition %q: %w", spec.Description, err)
		}
		if existing != nil {
			conditions[spec.Key] = Condition{ID: existing.TradeConditionID, Description: existing.Name}
			continue
		}

		condition := &types.TradeCondition{
			Name:                 spec.Description,
			RetryUntilExpiration: DefaultRetryUntilExpiration,
		}
		detail := &types.TradeConditionDetail{
			Group:          1,
			Input:          spec.Input,
			Operator:       spec.Operator,
			Comparison:     spec.Comparison,
			ComparisonType: DefaultComparisonType,
		}
		if err := d.CreateCondition(condition, detail); err != nil {
			return nil, err
		}
		created++
		logger.Debug().
			Str("key", spec.Key).
			Uint("condition_id", condition.TradeConditionID).
			Msg("created condition")
		conditions[spec.Key] = Condition{ID: condition.TradeConditionID, Description: condition.Name}
	}

	if err := d.NormalizeConditions(); err != nil {
		return nil, err
	}

	logger.Info().Int("created", created).Int("total", len(conditions)).Msg("condition catalog ready")
	return conditions, nil
}

// LookupConditions reads the catalog without writing anything. Keys whose
// description has no row are absent from the result.
func LookupConditions(db *gorm.DB) (Conditions, error) {
	byName, err := NewDatabase(db).ListConditions()
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	conditions := make(Conditions, len(ConditionSpecs))
	for _, spec := range ConditionSpecs {
		if row, ok := byName[spec.Description]; ok {
			conditions[spec.Key] = Condition{ID: row.TradeConditionID, Description: row.Name}
		}
	}
	return conditions, nil
}
