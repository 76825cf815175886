package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smartgenesis/api/internal/sanitizer"
)

func newSanitizeCmd() *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Strip unsafe constructs from generated code",
		Long:  `Reads code from file (or stdin) and prints the sanitized result.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			clean, removals, err := sanitizer.SanitizeWithReport(string(raw))
			if err != nil {
				return err
			}

			if report {
				rules := make([]string, 0, len(removals))
				for rule := range removals {
					rules = append(rules, rule)
				}
				sort.Strings(rules)
				for _, rule := range rules {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d\n", rule, removals[rule])
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), clean)
			return err
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "Print per-rule removal counts to stderr")
	return cmd
}
