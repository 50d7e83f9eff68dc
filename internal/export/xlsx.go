package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/distilkit/distil/internal/pipeline"
)

// WriteXLSX writes the flattened rows to a single-sheet workbook.
func WriteXLSX(w io.Writer, res *pipeline.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Samples"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range Flatten(res) {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, res.ID.String())
		write(2, res.Recipe)
		write(3, row.Stage)
		write(4, row.Pos)
		write(5, row.Call)
		write(6, row.Kind)
		write(7, row.Key)
		if row.Block >= 0 {
			write(8, row.Block)
		}
		write(9, row.Value)
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // run id
	_ = f.SetColWidth(sheet, "I", "I", 48) // value

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}
