package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"inpaint/internal/image"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, colorize bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleRounded
	if colorize {
		style.Color.Header = text.Colors{text.Bold, text.FgBlue}
	}
	tw.SetStyle(style)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const statusLabelWidth = 18

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	word := "OK"
	color := ansiGreen
	if kind == statusError {
		word = "FAIL"
		color = ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", word, message)
	if colorize {
		return color + line + ansiReset
	}
	return strings.TrimRight(line, " ")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var titleCaser = cases.Title(language.English)

// displayName turns an enum constant such as DPM_PP_2M_KARRAS into
// "Dpm Pp 2m Karras".
func displayName(value string) string {
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(value, "_", " ")))
}

func dimensions(width, height int) string {
	if width == 0 && height == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func sourceRows(sources []*image.Source, counts map[string]int) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, []string{
			src.Name,
			dimensions(src.Width, src.Height),
			strconv.Itoa(counts[src.Name]),
			orDash(strings.Join(src.Tags, ", ")),
			orDash(src.Description),
		})
	}
	return rows
}

var sourceHeaders = []string{"Name", "Size", "Targets", "Tags", "Description"}

var sourceAligns = []columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft}

func targetRows(targets []*image.Target) [][]string {
	rows := make([][]string, 0, len(targets))
	for i, tgt := range targets {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			tgt.Name,
			dimensions(tgt.Width, tgt.Height),
			strconv.Itoa(tgt.Rating),
			displayName(string(tgt.Sampler)),
			displayName(string(tgt.Checkpoint)),
			orDash(tgt.Description),
		})
	}
	return rows
}

var targetHeaders = []string{"#", "Name", "Size", "Rating", "Sampler", "Checkpoint", "Description"}

var targetAligns = []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft}
