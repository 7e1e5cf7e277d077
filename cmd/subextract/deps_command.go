package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subextract/internal/deps"
	"subextract/internal/preflight"
)

type doctorReport struct {
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"deps"},
		Short:   "Check external tools, directories and the notification topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{
				Dependencies: preflight.CheckSystemDeps(cmd.Context(), cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			if ok, err := ctx.writeStructured(cmd, report); ok {
				if err != nil {
					return err
				}
				return doctorError(report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderTable([]string{"Dependency", "State", "Detail"}, dependencyRows(report.Dependencies, colorize), nil))
			rows := make([][]string, 0, len(report.Checks))
			for _, check := range report.Checks {
				rows = append(rows, []string{check.Name, passFail(check.Passed, colorize), truncate(check.Detail, 60)})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil))
			return doctorError(report)
		},
	}
}

func doctorError(report doctorReport) error {
	missing := deps.Missing(report.Dependencies)
	failed := preflight.Failed(report.Checks)
	if len(missing) == 0 && len(failed) == 0 {
		return nil
	}
	return errors.New("environment checks failed")
}
