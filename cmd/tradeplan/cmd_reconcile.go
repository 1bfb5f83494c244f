package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ksred/tradeplan/internal/database"
	"github.com/ksred/tradeplan/internal/plan"
	"github.com/ksred/tradeplan/internal/reconcile"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type reconcileOptions struct {
	planPath string
	qty      int
	dryRun   bool
}

func bindReconcileFlags(cmd *cobra.Command, opts *reconcileOptions) {
	cmd.Flags().StringVar(&opts.planPath, "plan", "", "Plan CSV (overrides plan_path)")
	cmd.Flags().IntVar(&opts.qty, "qty", 0, "Use this quantity for every row instead of the Qty column")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate the plan against the database without writing")
}

func newReconcileCmd(a *app) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply the trade plan to templates and schedules",
		Long: "Takes a verified snapshot, validates the whole plan, then applies it in one\n" +
			"transaction. Schedules whose time slot is not in the plan end up inactive.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReconcile(cmd, opts)
		},
	}
	bindReconcileFlags(cmd, &opts)
	return cmd
}

func (a *app) runReconcile(cmd *cobra.Command, opts reconcileOptions) error {
	ctx := cmd.Context()
	logger := zlog.With().Str("command", "reconcile").Logger()

	if opts.qty < 0 {
		return withCode(exitUsage, fmt.Errorf("--qty must be positive, got %d", opts.qty))
	}
	planPath := opts.planPath
	if planPath == "" {
		planPath = a.cfg.PlanPath
	}

	doc, err := plan.Read(planPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withCode(exitPrecondition, err)
		}
		return withCode(exitValidation, err)
	}

	var cleanup func()
	if !opts.dryRun {
		snap, err := a.snapshot(ctx)
		if err != nil {
			return err
		}
		cleanup = func() {
			if err := snap.Cleanup(); err != nil {
				logger.Warn().Err(err).Msg("could not remove unzipped backup copy")
			}
		}
		defer func() {
			if cleanup != nil {
				logger.Warn().Str("copy", snap.CopyPath).Str("archive", snap.ArchivePath).Msg("run failed, backup copy kept")
			}
		}()
	}

	db, err := a.openDB(false)
	if err != nil {
		return err
	}
	defer database.Close(db)

	res, err := reconcile.NewService(db).Reconcile(ctx, doc, reconcile.Options{
		QtyOverride: opts.qty,
		DryRun:      opts.dryRun,
	})
	if err != nil {
		return err
	}

	if !opts.dryRun {
		doc.NormalizeSpreads()
		if err := doc.Rewrite(planPath); err != nil {
			logger.Warn().Err(err).Str("plan", planPath).Msg("plan applied but spreads not rewritten")
		}
		cleanup()
		cleanup = nil
	}

	out := cmd.OutOrStdout()
	if res.DryRun {
		fmt.Fprintf(out, "plan OK: %d rows validated, nothing written\n", res.Rows)
		return nil
	}
	fmt.Fprintf(out, "plan applied: %d rows, %d templates updated, %d schedules active\n",
		res.Rows, res.TemplatesUpdated, res.SchedulesActivated)
	return nil
}
