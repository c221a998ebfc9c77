package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kpauljoseph/consentsort/internal/config"
	"github.com/kpauljoseph/consentsort/internal/sorter"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/version"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

type runFlags struct {
	configPath string
	debug      bool
	verbose    int
	workers    int
	extension  string
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "consentsort <indir> <outdir>",
		Short: "Sort scanned consent sheets into per-subject folders by their barcode",
		Long: `Pairs front/back scans by their sequence number, reads the Code 128
identifier on each sheet, turns upside-down sheets and files the pages under
<outdir>/processed/<identifier>/. Pages that cannot be identified are copied
unchanged to <outdir>/processed_failed/ for manual review.`,
		Args:          cobra.ExactArgs(2),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd.Context(), args[0], args[1], flags, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(version.GetDetailedVersionInfo())

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "write a decision trace next to every routed page")
	cmd.Flags().CountVarP(&flags.verbose, "verbose", "v", "increase verbosity (-v info, -vv debug)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "number of sheets processed in parallel (overrides config)")
	cmd.Flags().StringVar(&flags.extension, "ext", "", "extension of the scan files (overrides config)")
	return cmd
}

func runSort(ctx context.Context, inDir, outDir string, flags runFlags, stdout, stderr io.Writer) error {
	log := logger.New(
		logger.WithOutput(stderr),
		logger.WithPrefix("[consentsort] "),
		logger.WithLevel(logger.FromVerbosity(flags.verbose)),
	)

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log.Info("%s", version.GetVersionInfo())
	log.Debug("Using config: %+v", *cfg)

	var obs sorter.Observer
	interactive := isTerminal(stderr) && !log.Enabled(logger.LevelInfo)
	if interactive {
		obs = newProgressObserver(stderr)
	}

	s := sorter.New(sorter.Options{Config: cfg, Debug: flags.debug, Observer: obs}, log)
	report, err := s.Run(ctx, inDir, outDir)
	if err != nil {
		if errors.Is(err, sorter.ErrOutputNotEmpty) || errors.Is(err, sorter.ErrOutputLocked) {
			log.Warn("Please clear the output directory manually or provide a different one.")
		}
		return err
	}

	report.Print(log)
	if interactive {
		fmt.Fprintln(stdout, report.Render())
	}
	return nil
}

func loadConfig(flags runFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}
	if flags.workers != 0 {
		cfg.Workers = flags.workers
	}
	if flags.extension != "" {
		cfg.Extension = config.NormalizeExtension(flags.extension)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
