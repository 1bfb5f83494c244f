package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/plan"
	"github.com/ksred/tradeplan/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Options adjusts a reconciliation run.
type Options struct {
	// QtyOverride, when positive, replaces the quantity of every row.
	QtyOverride int
	// DryRun validates and parses the plan without writing.
	DryRun bool
}

// Result summarizes a run.
type Result struct {
	Rows               int   `json:"rows"`
	TemplatesUpdated   int   `json:"templates_updated"`
	SchedulesActivated int64 `json:"schedules_activated"`
	SchedulesCleared   int64 `json:"schedules_cleared"`
	DryRun             bool  `json:"dry_run"`
}

// Service applies plans to the engine store.
type Service struct {
	db *gorm.DB
}

// NewService creates a reconciler on the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: gormDB}
}

// Reconcile brings the store in line with doc.
//
// The plan is validated first without writing. The apply phase then runs in
// a single transaction: conditions are refreshed, every schedule is
// deactivated, and each row updates, verifies and reactivates its templates.
// Nothing is committed unless every row succeeds.
func (s *Service) Reconcile(ctx context.Context, doc *plan.Document, opts Options) (res *Result, err error) {
	ctx, span := trace.StartSpan(ctx, "reconcile.Reconcile",
		attribute.Int("rows", doc.Len()),
		attribute.Bool("dry_run", opts.DryRun),
	)
	defer func() { trace.End(span, err) }()

	logger := log.With().Str("service", "reconcile").Logger()

	if opts.QtyOverride < 0 {
		return nil, &ValidationError{Field: plan.ColumnQty, Err: fmt.Errorf("quantity override must be positive, got %d", opts.QtyOverride)}
	}

	rows, err := s.Validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	if opts.QtyOverride > 0 {
		for i := range rows {
			rows[i].Qty = opts.QtyOverride
		}
		logger.Info().Int("qty", opts.QtyOverride).Msg("quantity override applied to every row")
	}
	if len(rows) == 0 {
		logger.Warn().Msg("plan has no rows, every schedule will be left inactive")
	}

	res = &Result{Rows: len(rows), DryRun: opts.DryRun}
	if opts.DryRun {
		logger.Info().Int("rows", len(rows)).Msg("dry run, no changes written")
		return res, nil
	}

	if err := s.apply(ctx, rows, res, logger); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, rows []plan.Row, res *Result, logger zerolog.Logger) (err error) {
	ctx, span := trace.StartSpan(ctx, "reconcile.apply", attribute.Int("rows", len(rows)))
	defer func() { trace.End(span, err) }()

	tx := s.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	conditions, err := catalog.EnsureConditions(tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	d := NewDatabase(tx)
	if res.SchedulesCleared, err = d.DeactivateSchedules(); err != nil {
		tx.Rollback()
		return err
	}

	resolver := catalog.NewResolver(tx)
	for _, row := range rows {
		if err := applyRow(tx, d, resolver, conditions, row, res, logger); err != nil {
			tx.Rollback()
			logger.Error().Err(err).Int("row", row.Index).Msg("plan rolled back")
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}

	logger.Info().
		Int("rows", res.Rows).
		Int("templates", res.TemplatesUpdated).
		Int64("schedules_activated", res.SchedulesActivated).
		Int64("schedules_cleared", res.SchedulesCleared).
		Msg("plan committed")
	return nil
}

func applyRow(tx *gorm.DB, d *Database, resolver catalog.TemplateResolver, conditions catalog.Conditions, row plan.Row, res *Result, logger zerolog.Logger) error {
	for _, side := range row.Sides {
		name := catalog.TemplateName(side, row.Slot, row.Plan)

		templateID, err := resolver.Resolve(row.Plan, row.Slot, side)
		if err != nil {
			return fmt.Errorf("row %d: %w", row.Index, err)
		}

		update := TemplateUpdate{
			Side:         side,
			Bound:        row.Premium,
			LongWidth:    row.Spread,
			StopMultiple: row.Stop,
			MinPremium:   row.MinPremium,
			ProfitTarget: row.ProfitTarget,
		}
		if err := d.UpdateTemplate(templateID, update); err != nil {
			return fmt.Errorf("row %d: update %s: %w", row.Index, name, err)
		}

		want := Expected{Bound: row.Premium, LongWidth: row.Spread, StopMultiple: row.Stop}
		if ok, err := VerifyTemplate(tx, templateID, side, want); !ok {
			var verifyErr *VerificationError
			if errors.As(err, &verifyErr) {
				verifyErr.Row = row.Index
				return verifyErr
			}
			return fmt.Errorf("row %d: %w", row.Index, err)
		}
		res.TemplatesUpdated++

		strategy := row.Strategy
		if side == catalog.SideCall {
			strategy = catalog.InverseKey(row.Strategy)
		}
		condition, ok := conditions[strategy]
		if !ok {
			return fmt.Errorf("row %d: condition %q: %w", row.Index, strategy, catalog.ErrNotFound)
		}

		n, err := d.ActivateSchedules(templateID, ScheduleUpdate{Qty: row.Qty, Strategy: strategy, Condition: condition})
		if err != nil {
			return fmt.Errorf("row %d: update schedules for %s: %w", row.Index, name, err)
		}
		if n == 0 {
			logger.Warn().Int("row", row.Index).Str("template", name).Msg("template has no schedules, run init --force to create them")
		}
		res.SchedulesActivated += n

		logger.Debug().
			Int("row", row.Index).
			Str("template", name).
			Float64("bound", row.Premium).
			Str("width", row.Spread).
			Float64("stop", row.Stop).
			Int("qty", row.Qty).
			Str("strategy", strategy).
			Int64("schedules", n).
			Msg("row applied")
	}
	return nil
}
