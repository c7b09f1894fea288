package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inpaint/internal/image"
	"inpaint/internal/repository"
)

type sourceFlags struct {
	description string
	width       int
	height      int
	tags        []string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Free-text description")
	cmd.Flags().IntVar(&f.width, "width", 0, "Width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 0, "Height in pixels")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Tag (repeatable)")
}

// apply copies the flags the user set onto b.
func (f *sourceFlags) apply(cmd *cobra.Command, b *image.SourceBuilder) {
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
	if flags.Changed("tag") {
		b.Tags(f.tags...)
	}
}

func newSourceCommand(ctx *commandContext) *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage source images",
	}
	sourceCmd.AddCommand(newSourceAddCommand(ctx))
	sourceCmd.AddCommand(newSourceListCommand(ctx))
	sourceCmd.AddCommand(newSourceShowCommand(ctx))
	sourceCmd.AddCommand(newSourceUpdateCommand(ctx))
	sourceCmd.AddCommand(newSourceDeleteCommand(ctx))
	return sourceCmd
}

func newSourceAddCommand(ctx *commandContext) *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a source image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder := image.NewSourceBuilder(args[0])
			flags.apply(cmd, builder)
			src := builder.Build()
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				created, err := repo.CreateSource(c, src)
				if err != nil {
					return err
				}
				result := "created"
				if created == nil {
					result = "already present"
				}
				return ctx.report(cmd, mutationResult{Action: "source add", Name: src.Name, Result: result, Record: record(created)})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSourceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List source images by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				sources, err := repo.ReadSources(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sources)
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sources")
					return nil
				}
				counts := make(map[string]int, len(sources))
				for _, src := range sources {
					targets, err := repo.ReadTargets(c, src)
					if err != nil {
						return err
					}
					counts[src.Name] = len(targets)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(sourceHeaders, sourceRows(sources, counts), sourceAligns, shouldColorize(out)))
				return nil
			})
		},
	}
}

type sourceDetail struct {
	*image.Source
	Targets []*image.Target `json:"targets"`
}

func newSourceShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a source and its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				src, err := repo.ReadSource(c, args[0])
				if err != nil {
					return err
				}
				targets, err := repo.ReadTargets(c, src)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sourceDetail{Source: src, Targets: targets})
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				counts := map[string]int{src.Name: len(targets)}
				fmt.Fprintln(out, renderTable(sourceHeaders, sourceRows([]*image.Source{src}, counts), sourceAligns, colorize))
				if len(targets) > 0 {
					fmt.Fprintln(out, renderTable(targetHeaders, targetRows(targets), targetAligns, colorize))
				}
				return nil
			})
		},
	}
}

func newSourceUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Change fields of a source image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				current, err := repo.ReadSource(c, args[0])
				if err != nil {
					return err
				}
				builder := image.SourceBuilderFrom(current)
				flags.apply(cmd, builder)
				updated, err := repo.UpdateSource(c, builder.Build())
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "source update", Name: current.Name, Result: changedWord(updated != nil), Record: record(updated)})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSourceDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a source; its targets stay in the catalog unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				removed, err := repo.DeleteSource(c, image.NewSourceBuilder(args[0]).Build())
				if err != nil {
					return err
				}
				result := "deleted"
				if removed == nil {
					result = "not present"
				}
				return ctx.report(cmd, mutationResult{Action: "source delete", Name: args[0], Result: result, Record: record(removed)})
			})
		},
	}
}
