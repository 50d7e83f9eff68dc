package cmd

import (
	"fmt"
	"strings"

	"github.com/distilkit/distil/internal/pipeline"
	"github.com/distilkit/distil/internal/stage"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <process> [file...]",
	Short: "Run a single stage without a recipe",
	Long: `Run one extraction stage over files or stdin, configured
entirely from flags. Useful for one-off extractions and for trying a
stage out before writing it into a recipe.

Only the flags a stage's schema knows are legal for it; run
'distil stages <process>' to see the schema.

Examples:
  distil extract regex --pattern "uptime (\d+)" boot.log
  distil extract between-tokens --token1 "[" --token2 "]" app.log
  distil extract multi-regex -p "cpu=cpu (\d+)%" -p "mem=mem (\d+)%" top.log
  distil extract block-regex --block-token "====" -p "temp=(\d+)C" sensors.log
  distil extract between-spaces --repeat table.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringArrayP("pattern", "p", nil, "pattern; repeat with id=regex pairs for multi-regex and block-regex")
	extractCmd.Flags().String("stop", "", "stop scanning at the first line containing this token")
	extractCmd.Flags().Bool("stop-on-match", false, "stop scanning at the first matching line")
	extractCmd.Flags().Bool("exclusive", false, "first matching pattern wins per line (multi-regex)")
	extractCmd.Flags().Bool("clean", false, "strip whitespace from lines before matching")
	extractCmd.Flags().String("token1", "", "opening delimiter (between-tokens)")
	extractCmd.Flags().String("token2", "", "closing delimiter, defaults to token1 (between-tokens)")
	extractCmd.Flags().Bool("names", false, "use the word left of each capture as its field name (between-tokens)")
	extractCmd.Flags().Bool("collapse", false, "treat whitespace runs as single separators (between-spaces)")
	extractCmd.Flags().String("block-token", "", "block boundary token (block-regex)")
	extractCmd.Flags().String("name", "", "field name for the sample (read-line)")
	extractCmd.Flags().Bool("newline-only", false, "strip only the line terminator, not other whitespace (read-line)")
	extractCmd.Flags().String("token", "", "token that ends the skip (skip-until)")
	extractCmd.Flags().Bool("repeat", false, "rerun the stage until the stream is exhausted")
	extractCmd.Flags().StringP("out", "o", "", "export samples to a file (.csv, .xlsx, .json, .db)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	process := args[0]
	paths := args[1:]

	st, err := stage.New(process)
	if err != nil {
		return err
	}

	opts, err := stageOptions(cmd, st)
	if err != nil {
		return err
	}
	if err := st.Configure(opts); err != nil {
		return fmt.Errorf("configure %s: %w", process, err)
	}

	repeat, _ := cmd.Flags().GetBool("repeat")
	outPath, _ := cmd.Flags().GetString("out")

	cur, cleanup, err := openSource(paths)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := pipeline.Run(cur, []stage.Stage{st}, pipeline.Options{Repeat: repeat})
	if err != nil {
		return err
	}

	return writeResult(cmd, res, outPath)
}

// stageOptions turns the flags the user actually set into the raw
// option map for the chosen process. The stage's own schema stays the
// authority on what is legal, so unset flags are never forwarded.
func stageOptions(cmd *cobra.Command, st stage.Stage) (map[string]any, error) {
	stringFlags := map[string]string{
		"stop":        "stop_token",
		"token1":      "token1",
		"token2":      "token2",
		"block-token": "block_token",
		"name":        "name",
		"token":       "token",
	}
	boolFlags := map[string]string{
		"stop-on-match": "stop_on_match",
		"exclusive":     "exclusive",
		"clean":         "clean",
		"names":         "names",
		"collapse":      "collapse",
		"newline-only":  "newline_only",
	}

	opts := map[string]any{}
	for flag, opt := range stringFlags {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			opts[opt] = v
		}
	}
	for flag, opt := range boolFlags {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetBool(flag)
			opts[opt] = v
		}
	}

	if cmd.Flags().Changed("pattern") {
		patterns, _ := cmd.Flags().GetStringArray("pattern")
		key, value, err := patternOption(st, patterns)
		if err != nil {
			return nil, err
		}
		opts[key] = value
	}

	return opts, nil
}

// patternOption maps the --pattern flag onto whichever pattern option
// the stage declares: a single regex string, or an identifier/pattern
// pair list built from repeated id=regex values.
func patternOption(st stage.Stage, patterns []string) (string, any, error) {
	for _, opt := range st.Options() {
		switch {
		case opt.Name == "regex" && opt.Kind == stage.KindString:
			if len(patterns) != 1 {
				return "", nil, fmt.Errorf("%s takes exactly one --pattern", st.Name())
			}
			return "regex", patterns[0], nil

		case opt.Name == "patterns" && opt.Kind == stage.KindPairs:
			pairs := make([]string, 0, 2*len(patterns))
			for _, p := range patterns {
				id, rx, ok := strings.Cut(p, "=")
				if !ok || id == "" {
					return "", nil, fmt.Errorf("pattern %q must look like id=regex", p)
				}
				pairs = append(pairs, id, rx)
			}
			return "patterns", pairs, nil
		}
	}
	return "", nil, fmt.Errorf("%s does not take --pattern", st.Name())
}
