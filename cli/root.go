package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
	"github.com/ankit-chaubey/mat-surgery/core/config"
	"github.com/ankit-chaubey/mat-surgery/core/convert"
	"github.com/ankit-chaubey/mat-surgery/core/factory"
	"github.com/ankit-chaubey/mat-surgery/core/logging"
)

var version = "dev"

// errDirty is returned by check when a file still carries metadata.
var errDirty = errors.New("metadata found")

// app is the state shared by all subcommands, built before each run.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	printer *core.Printer
	deps    factory.Deps
}

type globalFlags struct {
	configPath string
	json       bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var (
		flags globalFlags
		a     = &app{}
	)

	root := &cobra.Command{
		Use:   "mat",
		Short: "Metadata anonymisation toolkit",
		Long: `mat lists and removes identifying metadata from torrents, PDF documents,
JPEG and PNG images, and MP3 and FLAC audio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print machine-readable JSON")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newViewCmd(a),
		newCheckCmd(a),
		newCleanCmd(a),
		newFormatsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, flags globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.printer = core.NewPrinter(flags.json, flags.verbose)
	a.printer.Writer = cmd.OutOrStdout()
	a.printer.ErrOut = cmd.ErrOrStderr()
	a.deps = buildDeps(cfg.Rasterizer, logger)
	return nil
}

// buildDeps wires the rasterize fallback from configuration. Reassembly
// always goes through GraphicsMagick.
func buildDeps(rc config.RasterizerConfig, logger *zap.Logger) factory.Deps {
	runner := convert.NewExecRunner(logger)
	deps := factory.Deps{
		Assembler: convert.NewGMAssembler(runner, rc.Binary, rc.Timeout),
	}
	switch rc.Engine {
	case config.EngineFitz:
		deps.Rasterizer = convert.NewFitzRasterizer(float64(rc.Density), rc.Quality, logger)
	default:
		deps.Rasterizer = convert.NewGMRasterizer(runner, rc.Binary, rc.Density, rc.Timeout)
	}
	return deps
}

func (a *app) options(backup bool) core.Options {
	return core.Options{
		Backup:      backup,
		ShredPasses: a.cfg.Strip.ShredPasses,
		Logger:      a.logger,
	}
}

// open detects the format of path and builds its stripper.
func (a *app) open(path string, opts core.Options) (core.Stripper, core.FormatInfo, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, core.FormatInfo{}, core.IOError(path, "detect format", err)
	}
	s, err := factory.NewFor(id, path, opts, a.deps)
	if err != nil {
		return nil, core.FormatInfo{}, err
	}
	return s, factory.Formats[id], nil
}

// failures reports how many of total files failed, or nil.
func failures(n, total int) error {
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", n, total)
}
