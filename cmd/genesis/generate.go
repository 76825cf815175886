package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartgenesis/api/internal/backend"
	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/orchestration"
	"github.com/smartgenesis/api/internal/resilience"
)

type generateOptions struct {
	name     string
	industry string
	audience string
	color    string
	sections []string
	local    bool
	out      string
	policy   string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate website code for a business",
		Long: `Runs the full generation pipeline and prints the resulting App component.
When the backend is unavailable the locally generated preview is printed and
the degraded notice is written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Business name")
	cmd.Flags().StringVar(&opts.industry, "industry", "", "Industry")
	cmd.Flags().StringVar(&opts.audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&opts.color, "color", "", "Color theme hint")
	cmd.Flags().StringSliceVar(&opts.sections, "sections", nil, "Sections to include (comma separated)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Skip the AI backend")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write code to file instead of stdout")
	cmd.Flags().StringVar(&opts.policy, "fallback", "", "Fallback policy: always or transient (default from config)")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	ctx := cmd.Context()
	logger := root.logger()
	defer logger.Sync()

	cfg, err := root.load()
	if err != nil {
		return err
	}

	policyName := cfg.Generation.FallbackPolicy
	if opts.policy != "" {
		policyName = opts.policy
	}
	policy, err := orchestration.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	var generator backend.Generator
	if !opts.local {
		generator, err = backend.New(ctx, backendConfig(cfg))
		if err != nil {
			return err
		}
	}

	orch := orchestration.New(generator, resilience.NewBreaker("cli", resilience.DefaultSettings), nil,
		orchestration.Config{
			LocalMode: cfg.Generation.LocalMode,
			Policy:    policy,
			Timeout:   cfg.Backend.Timeout,
		}, logger)

	sections := opts.sections
	if sections == nil {
		sections = []string{}
	}
	mode := orchestration.ModeRemote
	if opts.local {
		mode = orchestration.ModeLocal
	}

	result, err := orch.Generate(ctx, models.GenerationRequest{
		Name:     opts.name,
		Industry: opts.industry,
		Audience: opts.audience,
		Color:    opts.color,
		Sections: sections,
	}, orchestration.Options{Mode: mode})
	if err != nil {
		return err
	}

	if result.Degraded {
		fmt.Fprintln(cmd.ErrOrStderr(), result.Notice)
	}

	if opts.out == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Code)
		return err
	}
	if err := os.WriteFile(opts.out, []byte(result.Code+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes (%s) to %s\n", len(result.Code)+1, result.Source, opts.out)
	return nil
}
