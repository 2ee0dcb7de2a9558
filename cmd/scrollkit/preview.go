package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/preview"
)

func previewCmd(flags *globalFlags) *cobra.Command {
	var (
		path    string
		source  string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview a page's scroll effects in the terminal",
		Long: `Run a page's effects against a simulated document in the terminal.

Each section fills one screen. Scroll with the mouse wheel, the arrow
keys, PgUp/PgDn or Home/End; q quits. The header shows the active
section, the status line the theme, parallax offsets and fade opacity.

Examples:
  scrollkit preview
  scrollkit preview --path=/pricing --manifest=site.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), flags, source, path, logFile)
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "Page path to preview")
	cmd.Flags().StringVarP(&source, "manifest", "m", "", "Site manifest path or s3:// URL")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}

func runPreview(ctx context.Context, flags *globalFlags, source, path, logFile string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if source == "" {
		source = cfg.Manifest.Source
	}

	// The terminal belongs to the preview; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	src, err := manifest.OpenSource(ctx, source, cfg.Manifest.Region)
	if err != nil {
		return err
	}
	m, err := src.Load(ctx)
	if err != nil {
		return err
	}
	page, ok := m.Page(path)
	if !ok {
		return fmt.Errorf("no page matches %q in %s", path, src)
	}

	return preview.Run(ctx, page,
		preview.WithLogger(logger),
		preview.WithQuietWindow(cfg.Scroll.QuietWindow),
	)
}
