package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sqlconv/sqlconv/internal/config"
	"github.com/sqlconv/sqlconv/internal/platform/sqlexpr"
)

func convertCmd() *cobra.Command {
	var (
		format        string
		pretty        bool
		functionsFile string
	)

	cmd := &cobra.Command{
		Use:   "convert [expression]",
		Short: "Convert an expression and print the JSON tree",
		Long: "Convert a SQL WHERE fragment to its JSON condition tree. The expression\n" +
			"is read from standard input when no argument is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("--format must be json or yaml, got %q", format)
			}

			var expr string
			if len(args) == 1 {
				expr = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				expr = string(data)
			}

			if !cmd.Flags().Changed("functions-file") {
				if cfg, err := config.Load(); err == nil {
					functionsFile = cfg.FunctionsFile
				}
			}
			conv, err := loadConverter(functionsFile)
			if err != nil {
				return err
			}

			group, err := conv.Convert(expr)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), group, format, pretty)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().StringVar(&functionsFile, "functions-file", "", "YAML file with function arities (defaults to FUNCTIONS_FILE)")
	return cmd
}

func writeResult(w io.Writer, group *sqlexpr.Group, format string, pretty bool) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(group); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func functionsCmd() *cobra.Command {
	var functionsFile string

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List supported SQL functions and their parameter counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("functions-file") {
				if cfg, err := config.Load(); err == nil {
					functionsFile = cfg.FunctionsFile
				}
			}
			conv, err := loadConverter(functionsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := conv.Functions()
			fmt.Fprintf(out, "%-12s %s\n", "NAME", "PARAMS")
			fmt.Fprintln(out, strings.Repeat("-", 19))
			for _, name := range table.Names() {
				arity, _ := table.Arity(name)
				fmt.Fprintf(out, "%-12s %d\n", name, arity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&functionsFile, "functions-file", "", "YAML file with function arities (defaults to FUNCTIONS_FILE)")
	return cmd
}
