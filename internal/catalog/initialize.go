package catalog

import (
	"context"
	"fmt"

	"github.com/ksred/tradeplan/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// InitOptions selects between the two initialization modes.
type InitOptions struct {
	// Force wipes schedules, templates and conditions before rebuilding.
	Force bool
	// PlanCount builds plans P1..PlanCount.
	PlanCount int
	// Accounts receive schedules in force mode. Required when Force is set.
	Accounts []string
	// Times defaults to DefaultTimes.
	Times []string
}

// InitResult reports what the initialization left in the store.
type InitResult struct {
	Plans      []string
	Conditions Conditions
	Templates  int64
	Schedules  int64
}

// Service runs catalog operations that need their own transaction.
type Service struct {
	db *gorm.DB
}

// NewService creates a catalog service on the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: gormDB}
}

// Initialize builds the catalog for P1..PlanCount.
//
// Force mode deletes every schedule, template and condition and rebuilds
// them, with schedules created inactive. Otherwise conditions and templates
// are filled in where missing and nothing is deleted. Either way the work is
// one transaction: on error nothing is committed.
func (s *Service) Initialize(ctx context.Context, opts InitOptions) (res *InitResult, err error) {
	ctx, span := trace.StartSpan(ctx, "catalog.Initialize",
		attribute.Bool("force", opts.Force),
		attribute.Int("plan_count", opts.PlanCount),
	)
	defer func() { trace.End(span, err) }()

	logger := log.With().
		Str("service", "catalog").
		Bool("force", opts.Force).
		Int("plan_count", opts.PlanCount).
		Logger()

	if opts.PlanCount < 1 {
		return nil, fmt.Errorf("plan count must be at least 1, got %d", opts.PlanCount)
	}
	if opts.Force && len(opts.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	times := opts.Times
	if len(times) == 0 {
		times = DefaultTimes
	}
	plans := PlanSuffixes(opts.PlanCount)

	logger.Info().Int("slots", len(times)).Int("accounts", len(opts.Accounts)).Msg("starting catalog initialization")

	tx := s.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	d := NewDatabase(tx)
	if opts.Force {
		if err := d.WipeCatalog(); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := d.ResetConditionSequence(); err != nil {
			logger.Warn().Err(err).Msg("could not reset condition id sequence")
		}
		logger.Warn().Msg("existing schedules, templates and conditions deleted")
	}

	conditions, err := EnsureConditions(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := EnsureTemplates(tx, plans, times); err != nil {
		tx.Rollback()
		return nil, err
	}
	if opts.Force {
		if err := EnsureSchedules(tx, plans, times, conditions, opts.Accounts, false); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	res = &InitResult{Plans: plans, Conditions: conditions}
	if res.Templates, res.Schedules, err = d.CountCatalog(); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit initialization: %w", err)
	}

	logger.Info().
		Int64("templates", res.Templates).
		Int64("schedules", res.Schedules).
		Msg("catalog initialization committed")
	return res, nil
}
