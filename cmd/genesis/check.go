package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartgenesis/api/internal/backend"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configured backend credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			g, err := backend.New(cmd.Context(), backendConfig(cfg))
			if err != nil {
				return err
			}
			if g == nil {
				return errors.New("no API key configured for provider " + cfg.Backend.Provider)
			}

			res, err := backend.Probe(cmd.Context(), g)
			if err != nil {
				return fmt.Errorf("%s check failed: %w", g.Name(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "provider: %s\n", g.Name())
			fmt.Fprintf(out, "model:    %s\n", cfg.Backend.Model)
			fmt.Fprintf(out, "latency:  %s\n", res.Latency)
			fmt.Fprintf(out, "reply:    %s\n", res.Reply)
			return nil
		},
	}
}
