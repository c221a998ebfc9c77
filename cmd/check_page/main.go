package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kpauljoseph/consentsort/internal/barcode"
	"github.com/kpauljoseph/consentsort/internal/config"
	"github.com/kpauljoseph/consentsort/internal/page"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/utils"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "check_page <scan>...",
		Short:         "Show what consentsort sees on individual scans",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("error loading config: %w", err)
				}
				cfg = loaded
			}
			return inspect(cfg, args)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a consentsort config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(cfg *config.Config, paths []string) error {
	log := logger.New(logger.WithPrefix("[check_page] "))
	loader := page.NewLoader(cfg.LoadRetryDelay, log)
	extractor := barcode.NewExtractor(cfg.MaxBarcodes, log)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"File", "Size", "Fill", "Empty", "Barcode", "Side", "Rotate", "Pixel sha256"})

	failed := 0
	for _, path := range paths {
		res := loader.Load(path)
		if !res.OK() {
			fmt.Printf("Error reading %s: %v\n", path, res.Err)
			failed++
			continue
		}
		img := res.Image
		bounds := img.Bounds()
		fill := page.Fill(img, cfg.BlackLevel)

		hits := extractor.Extract(img, image.Rectangle{})
		texts, side, rotate := "-", "-", "-"
		if len(hits) > 0 {
			texts = hits[0].Text
			for _, h := range hits[1:] {
				texts += ", " + h.Text
			}
			s := hits[0].Side(bounds.Dx())
			side = fmt.Sprintf("%.3f", s)
			rotate = fmt.Sprintf("%t", page.NeedsRotation(s))
		}

		tw.AppendRow(table.Row{
			filepath.Base(path),
			fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
			fmt.Sprintf("%.4f", fill),
			fill <= cfg.PageEmpty,
			texts,
			side,
			rotate,
			utils.ImageHash(img)[:12],
		})
	}
	tw.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be read", failed, len(paths))
	}
	return nil
}
