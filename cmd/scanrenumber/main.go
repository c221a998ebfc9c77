package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/consentsort/internal/config"
	"github.com/kpauljoseph/consentsort/internal/renumber"
	"github.com/kpauljoseph/consentsort/internal/sorter"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/version"
)

func main() {
	var (
		ext    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:           "scanrenumber <indir>",
		Short:         "Shift the sequence number of every scan up by one",
		Args:          cobra.ExactArgs(1),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext = config.NormalizeExtension(ext)
			log := logger.New(logger.WithPrefix("[scanrenumber] "), logger.WithLevel(logger.LevelInfo))

			paths, err := sorter.ListScans(args[0], ext)
			if err != nil {
				return err
			}
			log.Info("Found %d %s-files in %s", len(paths), ext, args[0])

			moves, unnumbered := renumber.Plan(paths, ext)
			for _, p := range unnumbered {
				log.Warn("Skipping %s: no sequence number", p)
			}
			return renumber.Apply(moves, dryRun, log)
		},
	}
	cmd.Flags().StringVar(&ext, "ext", config.DefaultExtension, "extension of the scan files")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only print the planned moves")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
