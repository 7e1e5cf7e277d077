package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"subextract/internal/queue"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
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

// shouldColorize reports whether w is a terminal that accepts ANSI colour.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

var statusColors = map[queue.Status]text.Colors{
	queue.StatusQueued:    {text.FgCyan},
	queue.StatusActive:    {text.FgYellow},
	queue.StatusFinished:  {text.FgGreen},
	queue.StatusFailed:    {text.FgRed, text.Bold},
	queue.StatusCancelled: {text.FgHiBlack},
}

func colorStatus(status queue.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	colors, ok := statusColors[status]
	if !ok {
		return string(status)
	}
	return colors.Sprint(string(status))
}

func passFail(ok, colorize bool) string {
	if !colorize {
		if ok {
			return "ok"
		}
		return "FAIL"
	}
	if ok {
		return text.FgGreen.Sprint("ok")
	}
	return text.Colors{text.FgRed, text.Bold}.Sprint("FAIL")
}
