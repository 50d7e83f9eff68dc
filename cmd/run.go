package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distilkit/distil/internal/export"
	"github.com/distilkit/distil/internal/output"
	"github.com/distilkit/distil/internal/pipeline"
	"github.com/distilkit/distil/internal/recipe"
	"github.com/distilkit/distil/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run <recipe> [file...]",
	Short: "Run a recipe over files or stdin",
	Long: `Run a recipe's stage chain over one or more input files.

Files are concatenated into a single line stream in argument order;
without file arguments the stream comes from stdin. With --follow the
command watches a single file instead and distills lines as they are
appended, until interrupted or the --for window elapses.

Examples:
  distil run recipe.yaml boot.log
  distil run recipe.yaml "logs/*.log"
  dmesg | distil run recipe.yaml
  distil run recipe.yaml --follow --for 5m /var/log/app.log
  distil run recipe.yaml boot.log --out samples.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("follow", false, "watch the file and distill lines as they are appended")
	runCmd.Flags().Bool("from-start", false, "with --follow, read existing content before waiting for more")
	runCmd.Flags().Bool("follow-rotate", false, "with --follow, continue through log rotations (reopen when the file is renamed/removed)")
	runCmd.Flags().String("for", "", "with --follow, stop after this long (e.g. '90s', '5m', '1d')")
	runCmd.Flags().Bool("repeat", false, "rerun the chain until the stream is exhausted (overrides the recipe)")
	runCmd.Flags().StringP("out", "o", "", "export samples to a file (.csv, .xlsx, .json, .db)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	recipePath := args[0]
	paths := args[1:]

	follow, _ := cmd.Flags().GetBool("follow")
	fromStart, _ := cmd.Flags().GetBool("from-start")
	rotate, _ := cmd.Flags().GetBool("follow-rotate")
	forStr, _ := cmd.Flags().GetString("for")
	outPath, _ := cmd.Flags().GetString("out")

	rec, err := recipe.Load(recipePath)
	if err != nil {
		return err
	}

	stages, err := rec.Build()
	if err != nil {
		return err
	}

	repeat := rec.Repeat
	if cmd.Flags().Changed("repeat") {
		repeat, _ = cmd.Flags().GetBool("repeat")
	}

	var window time.Duration
	if forStr != "" {
		window, err = recipe.ParseDuration(forStr)
		if err != nil {
			return fmt.Errorf("invalid --for value: %w", err)
		}
	}

	var cur source.Cursor
	if follow {
		if len(paths) != 1 {
			return fmt.Errorf("--follow requires exactly one file argument")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f, err := source.NewFollow(ctx, paths[0], source.FollowOptions{
			FromStart: fromStart,
			Rotate:    rotate,
			Window:    window,
		}, newLogger())
		if err != nil {
			return err
		}
		cur = f

		// A watched stream only ends from the outside, so keep
		// distilling until it does.
		repeat = true
	} else {
		if forStr != "" {
			return fmt.Errorf("--for requires --follow")
		}

		fileCur, cleanup, err := openSource(paths)
		if err != nil {
			return err
		}
		defer cleanup()
		cur = fileCur
	}

	res, err := pipeline.Run(cur, stages, pipeline.Options{Recipe: rec.Name, Repeat: repeat})
	if err != nil {
		return err
	}

	return writeResult(cmd, res, outPath)
}

// openSource opens the file arguments as one concatenated line stream.
// No arguments means stdin. The returned cleanup closes whatever was
// opened.
func openSource(paths []string) (source.Cursor, func(), error) {
	if len(paths) == 0 {
		return source.NewLines(os.Stdin), func() {}, nil
	}

	files, err := source.Expand(paths)
	if err != nil {
		return nil, nil, err
	}

	cursors := make([]source.Cursor, 0, len(files))
	opened := make([]*source.File, 0, len(files))
	for _, path := range files {
		f, err := source.Open(path)
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			return nil, nil, err
		}
		cursors = append(cursors, f)
		opened = append(opened, f)
	}

	cleanup := func() {
		for _, o := range opened {
			_ = o.Close()
		}
	}
	return source.NewMulti(cursors...), cleanup, nil
}

// writeResult renders res in the configured format and optionally
// exports it to a file chosen by extension.
func writeResult(cmd *cobra.Command, res *pipeline.Result, outPath string) error {
	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(viper.GetString("format")))
	if viper.GetBool("no_color") {
		writer.SetColor(output.ColorNever)
	}

	if err := writer.WriteResult(res); err != nil {
		return err
	}

	if outPath == "" {
		return nil
	}
	if err := export.Export(outPath, res); err != nil {
		return err
	}
	if viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Exported samples to", outPath)
	}
	return nil
}
