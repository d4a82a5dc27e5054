package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

type renderOptions struct {
	Format      rendering.Format
	OutDir      string
	Concurrency int
}

type renderOutcome struct {
	Input  string
	Output string
	Err    error
}

func renderCmd(serverURL *string) *cobra.Command {
	var (
		formatFlag      string
		outputFlag      string
		concurrencyFlag int
	)

	cmd := &cobra.Command{
		Use:   "render [files...]",
		Short: "Render PlantUML files to SVG or PNG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := rendering.Format(strings.ToLower(formatFlag))
			if format != rendering.FormatSVG && format != rendering.FormatPNG {
				return fmt.Errorf("unsupported format %q", formatFlag)
			}

			cfg, err := loadConfig(*serverURL)
			if err != nil {
				return err
			}
			gw := rendering.NewGateway(rendering.NewHTTPEngine(cfg.Render.ServerURL, cfg.Render.Timeout))

			outcomes, err := renderFiles(cmd.Context(), gw, args, renderOptions{
				Format:      format,
				OutDir:      outputFlag,
				Concurrency: concurrencyFlag,
			})
			if err != nil {
				return err
			}

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", o.Input, o.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s -> %s\n", o.Input, o.Output)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d diagrams failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "svg", "output format: svg, png")
	cmd.Flags().StringVar(&outputFlag, "output", ".", "output directory")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 4, "max parallel render requests")
	return cmd
}

// renderFiles renders every input concurrently. Per-file failures are
// reported in the outcome; only a cancelled context aborts the batch.
func renderFiles(ctx context.Context, r rendering.Renderer, files []string, opt renderOptions) ([]renderOutcome, error) {
	if opt.Concurrency <= 0 {
		opt.Concurrency = 4
	}
	if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	outcomes := make([]renderOutcome, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Concurrency)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := renderFile(ctx, r, file, opt)
			mu.Lock()
			outcomes[i] = renderOutcome{Input: file, Output: out, Err: err}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func renderFile(ctx context.Context, r rendering.Renderer, file string, opt renderOptions) (string, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	var data []byte
	switch opt.Format {
	case rendering.FormatPNG:
		data, err = r.RenderPNG(ctx, string(src))
	default:
		var svg string
		svg, err = r.RenderSVG(ctx, string(src))
		data = []byte(svg)
	}
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	out := filepath.Join(opt.OutDir, base+"."+string(opt.Format))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", err
	}
	return out, nil
}
