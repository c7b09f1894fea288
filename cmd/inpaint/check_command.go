package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"inpaint/internal/preflight"
	"inpaint/internal/repository"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run readiness checks against the configured repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(commandCtx(cmd), cfg)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Repository: %s (%s)\n", cfg.Repository.Kind, cfg.Repository.DataDir)
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
			}
			if failure, failed := preflight.FirstFailure(results); failed {
				return fmt.Errorf("check failed: %s", failure.Name)
			}
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every source and target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("reset deletes the whole catalog; pass --yes to confirm")
			}
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				resetter, ok := repo.(repository.Resetter)
				if !ok {
					return fmt.Errorf("%T does not support reset", repo)
				}
				if err := resetter.Reset(c); err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "reset", Name: "catalog", Result: "emptied"})
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset")
	return cmd
}
