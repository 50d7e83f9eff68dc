// Package export writes distillation results to files. The target
// extension picks the format: CSV, XLSX, JSON or a SQLite database.
// Every tabular format emits the same flattened rows, so downstream
// tooling sees one layout regardless of format.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/distilkit/distil/internal/pipeline"
	"github.com/distilkit/distil/internal/stage"
)

// Row is one flattened sample value. The sample kind decides how key
// and block are filled.
type Row struct {
	Stage string // process name
	Pos   int    // chain position, zero-based
	Call  int    // distill call ordinal within the position
	Kind  string // text, captures, fields, groups or blocks
	Key   string // field name or binding identifier, empty otherwise
	Block int    // block ordinal, -1 outside block samples
	Value string
}

// Flatten turns every sample of a result into rows. Map-backed samples
// emit their keys sorted so output is deterministic; values within a
// key keep their accumulation order.
func Flatten(res *pipeline.Result) []Row {
	var rows []Row
	for pos, sr := range res.Stages {
		for call, sample := range sr.Samples {
			rows = append(rows, flattenSample(sr.Name, pos, call, sample)...)
		}
	}
	return rows
}

func flattenSample(name string, pos, call int, sample stage.Sample) []Row {
	row := func(kind, key string, block int, value string) Row {
		return Row{Stage: name, Pos: pos, Call: call, Kind: kind, Key: key, Block: block, Value: value}
	}

	var rows []Row
	switch s := sample.(type) {
	case stage.Text:
		rows = append(rows, row("text", "", -1, string(s)))
	case stage.Captures:
		for _, v := range s {
			rows = append(rows, row("captures", "", -1, v))
		}
	case stage.Fields:
		for _, k := range slices.Sorted(maps.Keys(s)) {
			rows = append(rows, row("fields", k, -1, s[k]))
		}
	case stage.Groups:
		for _, k := range slices.Sorted(maps.Keys(s)) {
			for _, v := range s[k] {
				rows = append(rows, row("groups", k, -1, v))
			}
		}
	case stage.Blocks:
		for _, k := range slices.Sorted(maps.Keys(s)) {
			for _, span := range s[k] {
				for _, v := range span.Captures {
					rows = append(rows, row("blocks", k, span.Block, v))
				}
			}
		}
	}
	return rows
}

// Export writes the result to path in the format its extension names.
func Export(path string, res *pipeline.Result) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeFile(path, func(w io.Writer) error { return WriteCSV(w, res) })
	case ".xlsx":
		return writeFile(path, func(w io.Writer) error { return WriteXLSX(w, res) })
	case ".json":
		return writeFile(path, func(w io.Writer) error { return WriteJSON(w, res) })
	case ".db", ".sqlite", ".sqlite3":
		return WriteSQLite(path, res)
	default:
		return fmt.Errorf("unsupported export format %q (use .csv, .xlsx, .json, .db, .sqlite or .sqlite3)", ext)
	}
}

// WriteJSON writes the full result envelope, samples nested per stage.
func WriteJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
