package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/plan"
	"github.com/ksred/tradeplan/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Validate checks doc against the catalog and parses every row. It only
// reads, so a failure here leaves the store exactly as it was.
//
// Checks run in this order: strategy labels, condition coverage for the
// strategies in use, row parsing, template coverage for every (plan, slot).
func (s *Service) Validate(ctx context.Context, doc *plan.Document) (rows []plan.Row, err error) {
	ctx, span := trace.StartSpan(ctx, "reconcile.Validate", attribute.Int("rows", doc.Len()))
	defer func() { trace.End(span, err) }()

	logger := log.With().Str("service", "reconcile").Str("step", "validate").Logger()
	db := s.db.WithContext(ctx)

	used := make([]string, 0, len(catalog.Strategies))
	seen := make(map[string]bool, len(catalog.Strategies))
	for i := 0; i < doc.Len(); i++ {
		strategy := doc.Strategy(i)
		if !catalog.IsStrategy(strategy) {
			return nil, &ValidationError{
				Row:   i + 1,
				Field: plan.ColumnStrategy,
				Err:   fmt.Errorf("%w %q, want one of %s", ErrUnsupportedStrategy, strategy, strings.Join(catalog.Strategies, ", ")),
			}
		}
		if !seen[strategy] {
			seen[strategy] = true
			used = append(used, strategy)
		}
	}

	conditions, err := catalog.LookupConditions(db)
	if err != nil {
		return nil, err
	}
	for _, strategy := range used {
		for _, key := range []string{strategy, catalog.InverseKey(strategy)} {
			if _, ok := conditions[key]; !ok {
				return nil, &ValidationError{
					Field: plan.ColumnStrategy,
					Err:   fmt.Errorf("%w: no condition for %s", ErrMissingConditions, key),
				}
			}
		}
	}

	rows, err = doc.Rows()
	if err != nil {
		var fieldErr *plan.FieldError
		if errors.As(err, &fieldErr) {
			return nil, &ValidationError{Row: fieldErr.Row, Field: fieldErr.Column, Err: err}
		}
		return nil, &ValidationError{Err: err}
	}

	slots := make([]catalog.Slot, 0, len(rows))
	seenSlot := make(map[catalog.Slot]bool, len(rows))
	for _, row := range rows {
		slot := catalog.Slot{Plan: row.Plan, Time: row.Slot}
		if !seenSlot[slot] {
			seenSlot[slot] = true
			slots = append(slots, slot)
		}
	}
	missing, err := catalog.NewResolver(db).MissingTemplates(slots)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &ValidationError{
			Err: fmt.Errorf("%w: missing %s", ErrMissingTemplates, strings.Join(missing, ", ")),
		}
	}

	logger.Info().
		Int("rows", len(rows)).
		Strs("strategies", used).
		Int("slots", len(slots)).
		Msg("plan validated")
	return rows, nil
}
