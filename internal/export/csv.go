package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/distilkit/distil/internal/pipeline"
)

// header is the column layout shared by the CSV and XLSX writers and
// the samples table.
var header = []string{"run", "recipe", "stage", "pos", "call", "kind", "key", "block", "value"}

// WriteCSV writes one record per flattened sample value.
func WriteCSV(w io.Writer, res *pipeline.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range Flatten(res) {
		rec := []string{
			res.ID.String(),
			res.Recipe,
			row.Stage,
			strconv.Itoa(row.Pos),
			strconv.Itoa(row.Call),
			row.Kind,
			row.Key,
			blockCell(row.Block),
			row.Value,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// blockCell renders the block column, empty for non-block samples.
func blockCell(block int) string {
	if block < 0 {
		return ""
	}
	return strconv.Itoa(block)
}
