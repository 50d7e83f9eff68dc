package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/distilkit/distil/internal/output"
	"github.com/distilkit/distil/internal/stage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var stagesCmd = &cobra.Command{
	Use:   "stages [process]",
	Short: "List the available processes",
	Long: `List every registered process, or show one process in detail
with its option schema.

Examples:
  distil stages
  distil stages multi-regex`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStages,
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

type stageInfo struct {
	Name    string       `json:"name"`
	Help    string       `json:"help"`
	Options []optionInfo `json:"options"`
}

type optionInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

func runStages(cmd *cobra.Command, args []string) error {
	format := output.ParseFormat(viper.GetString("format"))

	if len(args) == 1 {
		return describeStage(cmd, args[0], format)
	}

	if format == output.FormatJSON {
		infos := make([]stageInfo, 0, len(stage.Names()))
		for _, name := range stage.Names() {
			st, err := stage.New(name)
			if err != nil {
				return err
			}
			infos = append(infos, describe(st))
		}
		return output.New(cmd.OutOrStdout(), output.FormatJSON).WriteJSON(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESS\tDESCRIPTION")
	for _, name := range stage.Names() {
		st, err := stage.New(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, st.Help())
	}
	return tw.Flush()
}

func describeStage(cmd *cobra.Command, name string, format output.Format) error {
	st, err := stage.New(name)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return output.New(cmd.OutOrStdout(), output.FormatJSON).WriteJSON(describe(st))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, st.Name())
	fmt.Fprintf(out, "  %s\n", st.Help())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, indent(st.Options().Describe(), "  "))
	return nil
}

func describe(st stage.Stage) stageInfo {
	info := stageInfo{
		Name:    st.Name(),
		Help:    st.Help(),
		Options: []optionInfo{},
	}
	for _, opt := range st.Options() {
		info.Options = append(info.Options, optionInfo{
			Name:     opt.Name,
			Kind:     opt.Kind.String(),
			Required: opt.Required,
		})
	}
	return info
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
