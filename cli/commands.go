package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
	"github.com/ankit-chaubey/mat-surgery/core/factory"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>...",
		Short: "List the harmful metadata of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, info, err := a.open(path, a.options(true))
				if err != nil {
					a.printer.PrintError(err.Error())
					failed++
					continue
				}
				meta, err := s.GetMeta()
				if err != nil {
					a.printer.PrintError(err.Error())
					failed++
					continue
				}
				a.printer.PrintMetadata(core.NewMetadata(path, info.Name, meta))
			}
			return failures(failed, len(args))
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Report whether each file is clean; exits 1 if any is not",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed, dirty := 0, 0
			for _, path := range args {
				s, _, err := a.open(path, a.options(true))
				if err != nil {
					a.printer.PrintError(err.Error())
					failed++
					continue
				}
				clean, err := s.IsClean()
				if err != nil {
					a.printer.PrintError(err.Error())
					failed++
					continue
				}
				if !clean {
					dirty++
				}
				a.printer.PrintCheck(path, clean)
			}
			if err := failures(failed, len(args)); err != nil {
				return err
			}
			if dirty > 0 {
				return errDirty
			}
			return nil
		},
	}
}

func newCleanCmd(a *app) *cobra.Command {
	var (
		backup, ugly bool
		name         string
	)
	cmd := &cobra.Command{
		Use:   "clean <file>...",
		Short: "Remove harmful metadata",
		Long: `Remove harmful metadata from each file. The original is overwritten and
replaced unless --backup is given, in which case the cleaned copy is written
next to it with a .cleaned suffix. With --ugly the rasterized PDF is named
after --name when given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("backup") {
				backup = a.cfg.Strip.Backup
			}
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single file, got %d", len(args))
			}
			opts := a.options(backup)
			opts.RealName = name

			var bar *progressbar.ProgressBar
			if len(args) > 1 && !a.printer.JSON {
				bar = progressbar.NewOptions(len(args),
					progressbar.OptionSetDescription("cleaning"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionClearOnFinish(),
				)
			}

			failed := 0
			for _, path := range args {
				if err := a.clean(cmd, path, opts, ugly); err != nil {
					a.printer.PrintError(err.Error())
					failed++
				} else if bar == nil {
					a.printer.PrintSuccess(path + " cleaned")
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			if bar != nil {
				_ = bar.Finish()
				a.printer.PrintSuccess(fmt.Sprintf("%d of %d files cleaned", len(args)-failed, len(args)))
			}
			return failures(failed, len(args))
		},
	}
	cmd.Flags().BoolVarP(&backup, "backup", "b", false, "keep the original and write a .cleaned copy")
	cmd.Flags().BoolVarP(&ugly, "ugly", "u", false, "rasterize PDFs; loses text and vector content")
	cmd.Flags().StringVar(&name, "name", "", "base name of the --ugly output (default: the input path)")
	return cmd
}

func (a *app) clean(cmd *cobra.Command, path string, opts core.Options, ugly bool) error {
	s, info, err := a.open(path, opts)
	if err != nil {
		return err
	}
	log := a.logger.With(zap.String("file", path), zap.String("format", info.Name))

	if ugly {
		if u, ok := s.(core.UglyStripper); ok {
			log.Debug("using rasterize fallback")
			return u.RemoveAllUgly(cmd.Context())
		}
		log.Debug("no rasterize fallback for format, stripping normally")
	}
	return s.RemoveAll()
}

type formatRow struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	MediaType  string   `json:"media_type"`
	Sensitive  []string `json:"sensitive"`
	Ugly       bool     `json:"ugly"`
	Notes      string   `json:"notes"`
}

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			infos := factory.SortedFormats()
			if a.printer.JSON {
				rows := make([]formatRow, 0, len(infos))
				for _, f := range infos {
					rows = append(rows, formatRow{f.Name, f.Extensions, f.MediaType, f.Sensitive, f.CanUgly, f.Notes})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, f := range infos {
				fmt.Fprintf(out, "%-8s %-14s %s\n", f.Name, strings.Join(f.Extensions, ","), f.Notes)
				if a.printer.Verbose {
					fmt.Fprintf(out, "         sensitive: %s\n", strings.Join(f.Sensitive, ", "))
				}
			}
			return nil
		},
	}
}
