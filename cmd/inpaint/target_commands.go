package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
	"inpaint/internal/image"
	"inpaint/internal/repository"
)

type targetFlags struct {
	description string
	width       int
	height      int
	rating      int
	sampler     string
	checkpoint  string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Free-text description")
	cmd.Flags().IntVar(&f.width, "width", 0, "Width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 0, "Height in pixels")
	cmd.Flags().IntVar(&f.rating, "rating", 0, fmt.Sprintf("Rating from %d to %d", catalog.MinRating, catalog.MaxRating))
	cmd.Flags().StringVar(&f.sampler, "sampler", "", "Sampler (see `inpaint samplers`)")
	cmd.Flags().StringVar(&f.checkpoint, "checkpoint", "", "Checkpoint (see `inpaint checkpoints`)")
}

// build applies the flags the user set onto b.
func (f *targetFlags) build(cmd *cobra.Command, b *image.TargetBuilder) (*image.Target, error) {
	flags := cmd.Flags()
	if flags.Changed("description") {
		b.Description(f.description)
	}
	if flags.Changed("width") {
		b.Width(f.width)
	}
	if flags.Changed("height") {
		b.Height(f.height)
	}
	if flags.Changed("rating") {
		if f.rating < catalog.MinRating || f.rating > catalog.MaxRating {
			return nil, fmt.Errorf("%w: rating %d outside %d..%d", repository.ErrInvalidArgument, f.rating, catalog.MinRating, catalog.MaxRating)
		}
		b.Rating(f.rating)
	}
	if flags.Changed("sampler") {
		sampler, err := image.ParseSampler(f.sampler)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
		}
		b.Sampler(sampler)
	}
	if flags.Changed("checkpoint") {
		checkpoint, err := image.ParseCheckpoint(f.checkpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
		}
		b.Checkpoint(checkpoint)
	}
	return b.Build(), nil
}

func newTargetCommand(ctx *commandContext) *cobra.Command {
	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Manage target images",
	}
	targetCmd.AddCommand(newTargetAddCommand(ctx))
	targetCmd.AddCommand(newTargetListCommand(ctx))
	targetCmd.AddCommand(newTargetShowCommand(ctx))
	targetCmd.AddCommand(newTargetUpdateCommand(ctx))
	targetCmd.AddCommand(newTargetDeleteCommand(ctx))
	targetCmd.AddCommand(newTargetClearCommand(ctx))
	targetCmd.AddCommand(newTargetOwnerCommand(ctx))
	return targetCmd
}

func newTargetAddCommand(ctx *commandContext) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "add SOURCE NAME",
		Short: "Register a target and append it to a source's list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := flags.build(cmd, image.NewTargetBuilder(args[1]))
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				src, err := repo.ReadSource(c, args[0])
				if err != nil {
					return err
				}
				created, err := repo.CreateTarget(c, src, tgt)
				if err != nil {
					return err
				}
				result := "created"
				if created == nil {
					result = "already present"
				}
				return ctx.report(cmd, mutationResult{Action: "target add", Name: tgt.Name, Result: result, Record: record(created)})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTargetListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list SOURCE",
		Short: "List a source's targets in assignment order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				targets, err := repo.ReadTargets(c, image.NewSourceBuilder(args[0]).Build())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, targets)
				}
				out := cmd.OutOrStdout()
				if len(targets) == 0 {
					fmt.Fprintf(out, "No targets for %s\n", args[0])
					return nil
				}
				fmt.Fprintln(out, renderTable(targetHeaders, targetRows(targets), targetAligns, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newTargetShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				tgt, err := repo.ReadTarget(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tgt)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(targetHeaders, targetRows([]*image.Target{tgt}), targetAligns, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newTargetUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Change fields of a target image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				current, err := repo.ReadTarget(c, args[0])
				if err != nil {
					return err
				}
				tgt, err := flags.build(cmd, image.TargetBuilderFrom(current))
				if err != nil {
					return err
				}
				updated, err := repo.UpdateTarget(c, tgt)
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "target update", Name: current.Name, Result: changedWord(updated != nil), Record: record(updated)})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTargetDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a target and remove it from its source's list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				removed, err := repo.DeleteTarget(c, image.NewTargetBuilder(args[0]).Build())
				if err != nil {
					return err
				}
				result := "deleted"
				if removed == nil {
					result = "not present"
				}
				return ctx.report(cmd, mutationResult{Action: "target delete", Name: args[0], Result: result, Record: record(removed)})
			})
		},
	}
}

func newTargetClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear SOURCE",
		Short: "Delete every target assigned to a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				removed, err := svc.DeassignAll(c, image.NewSourceBuilder(args[0]).Build())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, removed)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "target clear %s: %d deleted\n", args[0], len(removed))
				return nil
			})
		},
	}
}

func newTargetOwnerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "owner NAME",
		Short: "Show the source a target is assigned to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				owner, err := repo.ReadSourceOf(c, image.NewTargetBuilder(args[0]).Build())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, owner)
				}
				fmt.Fprintln(cmd.OutOrStdout(), owner.Name)
				return nil
			})
		},
	}
}
