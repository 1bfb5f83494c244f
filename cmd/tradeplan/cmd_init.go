package main

import (
	"fmt"

	"github.com/ksred/tradeplan/internal/backup"
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/database"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type initOptions struct {
	force    bool
	create   bool
	plans    int
	accounts []string
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the condition and template catalog",
		Long: "Without --force, missing conditions and templates for plans P1..Pn are added\n" +
			"and nothing is deleted. With --force, schedules, templates and conditions are\n" +
			"deleted and rebuilt, and inactive schedules are created for every account.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "Delete and rebuild the catalog, creating schedules")
	cmd.Flags().BoolVar(&opts.create, "create", false, "Create the database file if it does not exist")
	cmd.Flags().IntVar(&opts.plans, "plans", 0, "Number of plans to build (overrides plan_count)")
	cmd.Flags().StringSliceVar(&opts.accounts, "account", nil, "Account to schedule for, repeatable (overrides accounts)")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, opts initOptions) error {
	ctx := cmd.Context()
	logger := zlog.With().Str("command", "init").Logger()

	planCount := a.cfg.PlanCount
	if cmd.Flags().Changed("plans") {
		planCount = opts.plans
	}
	if planCount < 1 {
		return withCode(exitUsage, fmt.Errorf("--plans must be at least 1, got %d", planCount))
	}

	rawAccounts := a.cfg.Accounts
	if len(opts.accounts) > 0 {
		rawAccounts = opts.accounts
	}
	accounts, err := catalog.NormalizeAccounts(rawAccounts)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if opts.force && len(accounts) == 0 {
		return withCode(exitUsage, fmt.Errorf("%w: pass --account or set accounts", catalog.ErrNoAccounts))
	}

	times := make([]string, 0, len(a.cfg.Times))
	for _, t := range a.cfg.Times {
		slot, err := catalog.NormalizeSlot(t)
		if err != nil {
			return withCode(exitUsage, err)
		}
		times = append(times, slot)
	}

	var snap *backup.Snapshot
	if !opts.create || fileExists(a.cfg.DBPath) {
		if snap, err = a.snapshot(ctx); err != nil {
			return err
		}
	} else {
		logger.Info().Str("db", a.cfg.DBPath).Msg("creating new database, no snapshot taken")
	}

	db, err := a.openDB(opts.create)
	if err != nil {
		return err
	}
	defer database.Close(db)

	res, err := catalog.NewService(db).Initialize(ctx, catalog.InitOptions{
		Force:     opts.force,
		PlanCount: planCount,
		Accounts:  accounts,
		Times:     times,
	})
	if err != nil {
		if snap != nil {
			logger.Warn().Str("copy", snap.CopyPath).Msg("initialization rolled back, backup copy kept")
		}
		return err
	}
	if err := snap.Cleanup(); err != nil {
		logger.Warn().Err(err).Msg("could not remove unzipped backup copy")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "catalog ready: plans %v, %d conditions, %d templates, %d schedules\n",
		res.Plans, len(res.Conditions), res.Templates, res.Schedules)
	return nil
}
