package reconcile

import (
	"fmt"
	"math"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const floatTolerance = 1e-9

// Expected is what a template should hold after an update.
type Expected struct {
	Bound        float64
	LongWidth    string
	StopMultiple float64
}

// VerifyTemplate re-reads a template and compares the side's target bound,
// the long width and the stop multiple with want. Mismatches are logged field
// by field and returned as a *VerificationError alongside false. It never
// writes.
func VerifyTemplate(db *gorm.DB, templateID uint, side catalog.Side, want Expected) (bool, error) {
	mismatches, name, err := compareTemplate(db, templateID, side, want)
	if err != nil {
		return false, err
	}
	if len(mismatches) > 0 {
		return false, &VerificationError{Template: name, Mismatches: mismatches}
	}
	return true, nil
}

func compareTemplate(db *gorm.DB, templateID uint, side catalog.Side, want Expected) ([]Mismatch, string, error) {
	template, err := NewDatabase(db).GetTemplate(templateID)
	if err != nil {
		return nil, "", fmt.Errorf("read back template %d: %w", templateID, err)
	}
	if template == nil {
		return nil, "", fmt.Errorf("read back template %d: %w", templateID, catalog.ErrNotFound)
	}

	bound, boundField := template.TargetMax, "TargetMax"
	if side == catalog.SideCall {
		bound, boundField = template.TargetMaxCall, "TargetMaxCall"
	}

	var mismatches []Mismatch
	if !floatEqual(bound, want.Bound) {
		mismatches = append(mismatches, Mismatch{Field: boundField, Expected: want.Bound, Actual: bound})
	}
	if template.LongWidth != want.LongWidth {
		mismatches = append(mismatches, Mismatch{Field: "LongWidth", Expected: want.LongWidth, Actual: template.LongWidth})
	}
	if !floatEqual(template.StopMultiple, want.StopMultiple) {
		mismatches = append(mismatches, Mismatch{Field: "StopMultiple", Expected: want.StopMultiple, Actual: template.StopMultiple})
	}

	for _, m := range mismatches {
		log.Error().
			Str("service", "reconcile").
			Str("template", template.Name).
			Uint("template_id", templateID).
			Str("field", m.Field).
			Interface("expected", m.Expected).
			Interface("actual", m.Actual).
			Msg("template read back differs from update")
	}
	return mismatches, template.Name, nil
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
