package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subextract/internal/cues"
)

type validationReport struct {
	Path   string   `json:"path"`
	Cues   int      `json:"cues"`
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate <file.srt>",
		Short:       "Check an SRT file for ordering and timing problems",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open subtitles: %w", err)
			}
			defer f.Close()
			doc, err := cues.ParseSRT(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			issues := cues.Validate(doc)
			report := validationReport{
				Path:   args[0],
				Cues:   doc.Len(),
				Valid:  len(issues) == 0,
				Issues: append([]string{}, issues...),
			}
			if ok, err := ctx.writeStructured(cmd, report); ok {
				if err != nil {
					return err
				}
				return validationError(report)
			}
			out := cmd.OutOrStdout()
			if report.Valid {
				fmt.Fprintf(out, "%s: %d cues, no issues\n", report.Path, report.Cues)
				return nil
			}
			fmt.Fprintf(out, "%s: %d cues, %d issues\n", report.Path, report.Cues, len(report.Issues))
			printLines(out, report.Issues)
			return validationError(report)
		},
	}
}

func validationError(report validationReport) error {
	if report.Valid {
		return nil
	}
	return fmt.Errorf("%s failed validation", report.Path)
}
