package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
	"inpaint/internal/image"
	"inpaint/internal/repository"
)

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate TARGET RATING",
		Short: fmt.Sprintf("Rate a target from %d to %d", catalog.MinRating, catalog.MaxRating),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: rating %q is not a number", repository.ErrInvalidArgument, args[1])
			}
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				changed, err := svc.Rate(c, args[0], rating)
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "rate", Name: args[0], Result: changedWord(changed)})
			})
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var samplerFlag, checkpointFlag string
	cmd := &cobra.Command{
		Use:   "render TARGET",
		Short: "Record the sampler and checkpoint a target was rendered with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if samplerFlag == "" && checkpointFlag == "" {
				return errors.New("set --sampler, --checkpoint, or both")
			}
			var sampler image.Sampler
			var checkpoint image.Checkpoint
			var err error
			if samplerFlag != "" {
				if sampler, err = image.ParseSampler(samplerFlag); err != nil {
					return fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
				}
			}
			if checkpointFlag != "" {
				if checkpoint, err = image.ParseCheckpoint(checkpointFlag); err != nil {
					return fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
				}
			}
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				changed := false
				if sampler != "" {
					ok, err := svc.SetSampler(c, args[0], sampler)
					if err != nil {
						return err
					}
					changed = changed || ok
				}
				if checkpoint != "" {
					ok, err := svc.SetCheckpoint(c, args[0], checkpoint)
					if err != nil {
						return err
					}
					changed = changed || ok
				}
				return ctx.report(cmd, mutationResult{Action: "render", Name: args[0], Result: changedWord(changed)})
			})
		},
	}
	cmd.Flags().StringVar(&samplerFlag, "sampler", "", "Sampler name")
	cmd.Flags().StringVar(&checkpointFlag, "checkpoint", "", "Checkpoint name")
	return cmd
}

type enumRow struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func enumRows[T ~string](values []T) []enumRow {
	rows := make([]enumRow, 0, len(values))
	for _, value := range values {
		rows = append(rows, enumRow{Name: string(value), Label: displayName(string(value))})
	}
	return rows
}

func writeEnumRows(ctx *commandContext, cmd *cobra.Command, rows []enumRow) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, rows)
	}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.Name, row.Label})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Name", "Label"}, table, nil, shouldColorize(out)))
	return nil
}

func newSamplersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "samplers",
		Short:       "List supported samplers (the first is the default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeEnumRows(ctx, cmd, enumRows(catalog.Samplers()))
		},
	}
}

func newCheckpointsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "checkpoints",
		Short:       "List supported checkpoints (the first is the default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeEnumRows(ctx, cmd, enumRows(catalog.Checkpoints()))
		},
	}
}
