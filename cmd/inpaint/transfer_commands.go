package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"inpaint/internal/catalog"
	"inpaint/internal/codec"
	"inpaint/internal/config"
	"inpaint/internal/fileutil"
	"inpaint/internal/repository"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Register PNG and JPEG files from a directory",
	}
	importCmd.AddCommand(&cobra.Command{
		Use:   "sources DIR",
		Short: "Register every image in DIR as a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				report, err := svc.ImportSources(c, dir)
				if err != nil {
					return err
				}
				return writeImportReport(ctx, cmd, report)
			})
		},
	})
	importCmd.AddCommand(&cobra.Command{
		Use:   "targets SOURCE DIR",
		Short: "Register every image in DIR as a target of SOURCE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *catalog.Service) error {
				report, err := svc.ImportTargets(c, args[0], dir)
				if err != nil {
					return err
				}
				return writeImportReport(ctx, cmd, report)
			})
		},
	})
	return importCmd
}

type importSummary struct {
	Created   []string          `json:"created"`
	Updated   []string          `json:"updated"`
	Unchanged []string          `json:"unchanged"`
	Failures  map[string]string `json:"failures"`
}

func writeImportReport(ctx *commandContext, cmd *cobra.Command, report catalog.ImportReport) error {
	if ctx.jsonOutput() {
		summary := importSummary{
			Created:   nonNil(report.Created),
			Updated:   nonNil(report.Updated),
			Unchanged: nonNil(report.Unchanged),
			Failures:  make(map[string]string, len(report.Failures)),
		}
		for _, failure := range report.Failures {
			summary.Failures[failure.Path] = failure.Err.Error()
		}
		return writeJSON(cmd, summary)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d created, %d updated, %d unchanged, %d skipped\n",
		len(report.Created), len(report.Updated), len(report.Unchanged), len(report.Failures))
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "  skipped %s\n", failure.Error())
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag, outputFlag string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as a JSON or YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := strings.TrimSpace(outputFlag)
			format := codec.FormatForPath(output)
			if formatFlag != "" {
				parsed, err := codec.ParseFormat(formatFlag)
				if err != nil {
					return err
				}
				format = parsed
			}
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				doc, err := codec.Export(c, repo)
				if err != nil {
					return err
				}
				if output == "" {
					return codec.Encode(cmd.OutOrStdout(), doc, format)
				}
				path, err := config.ExpandPath(output)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := codec.Encode(&buf, doc, format); err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d sources to %s\n", len(doc.Sources), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Document format: json or yaml (default from --output extension, else json)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Destination file (default stdout)")
	return cmd
}

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var replace bool
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load an exported catalog document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			format := codec.FormatForPath(path)
			if formatFlag != "" {
				if format, err = codec.ParseFormat(formatFlag); err != nil {
					return err
				}
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open document: %w", err)
			}
			defer file.Close()
			doc, err := codec.Decode(file, format)
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				stats, err := codec.Import(c, repo, doc, codec.ImportOptions{Replace: replace})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sources: %d created, %d updated; targets: %d created, %d updated; %d unchanged\n",
					stats.SourcesCreated, stats.SourcesUpdated, stats.TargetsCreated, stats.TargetsUpdated, stats.Unchanged)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Document format: json or yaml (default from extension)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite records that differ instead of failing")
	return cmd
}

func newBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup DEST",
		Short: "Copy the repository's data file to DEST with checksum verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var source string
			switch cfg.Repository.Kind {
			case config.KindFile:
				source = filepath.Join(cfg.Repository.DataDir, repository.SnapshotFileName)
			case config.KindSQLite:
				source = filepath.Join(cfg.Repository.DataDir, repository.DatabaseFileName)
			default:
				return errors.New("backup needs a file or sqlite repository; the memory backend has nothing on disk")
			}

			// Opening and closing the repository holds the lock while copying
			// and, for SQLite, checkpoints the WAL into the main file on close.
			err = ctx.withRepository(cmd, func(c context.Context, repo repository.Repository) error {
				if cfg.Repository.Kind == config.KindFile {
					return copyBackup(cmd, source, dest)
				}
				return nil
			})
			if err != nil || cfg.Repository.Kind == config.KindFile {
				return err
			}
			return copyBackup(cmd, source, dest)
		},
	}
}

func copyBackup(cmd *cobra.Command, source, dest string) error {
	if _, err := os.Stat(source); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("nothing to back up: %s does not exist yet", source)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(source, dest); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s (%s)\n", source, dest, humanize.IBytes(uint64(info.Size())))
	return nil
}
