package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func (c *commandContext) outputFormat() string {
	if c.outputFlag == nil {
		return outputTable
	}
	format := strings.ToLower(strings.TrimSpace(*c.outputFlag))
	if format == "" {
		return outputTable
	}
	return format
}

func (c *commandContext) validateOutput() error {
	switch c.outputFormat() {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use table, json or yaml)", c.outputFormat())
	}
}

// writeStructured encodes v in the selected machine format and reports
// whether it did; table output is left to the caller.
func (c *commandContext) writeStructured(cmd *cobra.Command, v any) (bool, error) {
	switch c.outputFormat() {
	case outputJSON:
		return true, writeJSON(cmd, v)
	case outputYAML:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML round-trips v through JSON so the YAML keys follow the json tags.
func writeYAML(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
