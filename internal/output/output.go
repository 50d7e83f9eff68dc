// Package output renders distillation results for people and machines.
// It supports text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/distilkit/distil/internal/export"
	"github.com/distilkit/distil/internal/pipeline"
	"github.com/distilkit/distil/internal/stage"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  ColorMode
}

// New creates a new output Writer with automatic color detection.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, color: ColorAuto}
}

// SetColor overrides automatic color detection.
func (wr *Writer) SetColor(mode ColorMode) { wr.color = mode }

// WriteResult outputs a run result in the configured format.
func (wr *Writer) WriteResult(res *pipeline.Result) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(res)
	case FormatTable:
		return wr.writeTable(res)
	default:
		return wr.writeText(res)
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (wr *Writer) writeText(res *pipeline.Result) error {
	colorize := shouldColorize(wr.color, wr.w)

	summary := fmt.Sprintf("run %s", res.ID)
	if res.Recipe != "" {
		summary += "  recipe " + res.Recipe
	}
	summary += fmt.Sprintf("  passes %d  duration %s", res.Passes, res.Duration.Round(time.Microsecond))
	fmt.Fprintln(wr.w, summary)

	for pos, sr := range res.Stages {
		heading := fmt.Sprintf("[%d] %s", pos, sr.Name)
		if colorize {
			heading = colorBold + heading + colorReset
		}
		fmt.Fprintln(wr.w, heading)

		if len(sr.Samples) == 0 {
			placeholder := "    (no samples)"
			if colorize {
				placeholder = colorGray + placeholder + colorReset
			}
			fmt.Fprintln(wr.w, placeholder)
			continue
		}
		for _, sample := range sr.Samples {
			fmt.Fprintf(wr.w, "    %s\n", renderSample(sample))
		}
	}
	return nil
}

func (wr *Writer) writeTable(res *pipeline.Result) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tSTAGE\tCALL\tKIND\tKEY\tBLOCK\tVALUE")
	fmt.Fprintln(tw, "---\t-----\t----\t----\t---\t-----\t-----")

	for _, row := range export.Flatten(res) {
		block := ""
		if row.Block >= 0 {
			block = strconv.Itoa(row.Block)
		}
		value := row.Value
		if len(value) > 80 {
			value = value[:77] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n", row.Pos, row.Stage, row.Call, row.Kind, row.Key, block, value)
	}

	return tw.Flush()
}

// renderSample flattens one sample to a single display line.
func renderSample(s stage.Sample) string {
	switch v := s.(type) {
	case stage.Text:
		return string(v)

	case stage.Captures:
		if len(v) == 0 {
			return "(no matches)"
		}
		return strings.Join(v, " | ")

	case stage.Fields:
		if len(v) == 0 {
			return "(no matches)"
		}
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, k+"="+v[k])
		}
		return strings.Join(parts, "  ")

	case stage.Groups:
		if len(v) == 0 {
			return "(no matches)"
		}
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, fmt.Sprintf("%s=[%s]", k, strings.Join(v[k], " ")))
		}
		return strings.Join(parts, "  ")

	case stage.Blocks:
		if len(v) == 0 {
			return "(no matches)"
		}
		var parts []string
		for _, k := range slices.Sorted(maps.Keys(v)) {
			for _, span := range v[k] {
				parts = append(parts, fmt.Sprintf("%s[%d]=[%s]", k, span.Block, strings.Join(span.Captures, " ")))
			}
		}
		return strings.Join(parts, "  ")

	default:
		return fmt.Sprintf("%v", s)
	}
}
