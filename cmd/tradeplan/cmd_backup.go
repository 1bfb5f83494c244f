package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take a verified snapshot of the database and keep both copies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "archive: %s\ncopy:    %s\n", snap.ArchivePath, snap.CopyPath)
			if snap.MirrorURL != "" {
				fmt.Fprintf(out, "mirror:  %s\n", snap.MirrorURL)
			}
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
