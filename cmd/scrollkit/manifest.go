package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/scrollkit/internal/errors"
	"github.com/vango-dev/scrollkit/pkg/manifest"
)

func manifestCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Work with site manifests",
	}
	cmd.AddCommand(manifestValidateCmd(flags))
	return cmd
}

func manifestValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Check a site manifest for errors",
		Long: `Parse and validate a site manifest.

Every problem is reported with its location. The manifest defaults to
manifest.source from the config.

Examples:
  scrollkit manifest validate
  scrollkit manifest validate site.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			return runValidate(cmd.Context(), flags, location)
		},
	}
}

func runValidate(ctx context.Context, flags *globalFlags, location string) error {
	region := ""
	if location == "" {
		cfg, err := flags.loadConfig()
		if err != nil {
			return err
		}
		location, region = cfg.Manifest.Source, cfg.Manifest.Region
	}

	src, err := manifest.OpenSource(ctx, location, region)
	if err != nil {
		return err
	}
	m, err := src.Load(ctx)
	if err != nil {
		var verr *manifest.ValidationError
		if !stderrors.As(err, &verr) {
			return err
		}
		for _, p := range verr.Problems {
			errors.Fprint(os.Stderr, p)
		}
		return fmt.Errorf("%s: %d problems", src, len(verr.Problems))
	}

	sections := 0
	for _, p := range m.Pages {
		sections += len(p.Sections)
	}
	success("%s is valid", src)
	for _, p := range m.Pages {
		info("%s  %s", color.CyanString("%-12s", p.Path), pageSummary(&p))
	}
	info("%d pages, %d sections", len(m.Pages), sections)
	return nil
}

func pageSummary(p *manifest.Page) string {
	return fmt.Sprintf("%d sections, %d themes, %d parallax, %d fade",
		len(p.Sections), len(p.Themes), len(p.Parallax), len(p.Fade))
}
