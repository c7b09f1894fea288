package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Find sources and targets by name, description, or tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				matches, err := svc.Search(c, query, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if matches == nil {
						matches = []catalog.Match{}
					}
					return writeJSON(cmd, matches)
				}
				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintf(out, "No matches for %q\n", query)
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{m.Kind, m.Name, orDash(m.Source), strconv.FormatFloat(m.Score, 'f', 3, 64)})
				}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}
				fmt.Fprintln(out, renderTable([]string{"Kind", "Name", "Source", "Score"}, rows, aligns, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of matches (0 for all)")
	return cmd
}
