package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
	"inpaint/internal/image"
)

// resolvePair loads a stored source and target by name.
func resolvePair(ctx context.Context, svc *catalog.Service, sourceName, targetName string) (*image.Source, *image.Target, error) {
	repo := svc.Repository()
	src, err := repo.ReadSource(ctx, sourceName)
	if err != nil {
		return nil, nil, err
	}
	tgt, err := repo.ReadTarget(ctx, targetName)
	if err != nil {
		return nil, nil, err
	}
	return src, tgt, nil
}

func newAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign SOURCE TARGET",
		Short: "Append an unassigned target to a source's list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				src, tgt, err := resolvePair(c, svc, args[0], args[1])
				if err != nil {
					return err
				}
				changed, err := svc.Assign(c, src, tgt)
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "assign", Name: tgt.Name, Result: assignWord(changed, src.Name)})
			})
		},
	}
}

func newReassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reassign SOURCE TARGET",
		Short: "Move a target to another source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				src, tgt, err := resolvePair(c, svc, args[0], args[1])
				if err != nil {
					return err
				}
				changed, err := svc.Reassign(c, src, tgt)
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "reassign", Name: tgt.Name, Result: assignWord(changed, src.Name)})
			})
		},
	}
}

func newDeassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deassign SOURCE TARGET",
		Short: "Delete a target owned by the given source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				src, tgt, err := resolvePair(c, svc, args[0], args[1])
				if err != nil {
					return err
				}
				if err := svc.Deassign(c, src, tgt); err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "deassign", Name: tgt.Name, Result: "deleted"})
			})
		},
	}
}

func assignWord(changed bool, source string) string {
	if changed {
		return "assigned to " + source
	}
	return "already assigned to " + source
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "tag SOURCE TAG...",
		Short: "Replace (or with --add, extend) a source's tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				edit := svc.SetTags
				if add {
					edit = svc.AddTags
				}
				changed, err := edit(c, args[0], args[1:]...)
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "tag", Name: args[0], Result: changedWord(changed)})
			})
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "Keep existing tags and append new ones")
	return cmd
}

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Set the description of a source or target",
	}
	describeCmd.AddCommand(&cobra.Command{
		Use:   "source NAME TEXT...",
		Short: "Describe a source image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				changed, err := svc.DescribeSource(c, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "describe source", Name: args[0], Result: changedWord(changed)})
			})
		},
	})
	describeCmd.AddCommand(&cobra.Command{
		Use:   "target NAME TEXT...",
		Short: "Describe a target image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				changed, err := svc.DescribeTarget(c, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return ctx.report(cmd, mutationResult{Action: "describe target", Name: args[0], Result: changedWord(changed)})
			})
		},
	})
	return describeCmd
}
