package composite

import (
	"bytes"
	"fmt"
)

// decodeRunLength expands the line oriented run-length payload of PG/PC products.
//
// Every line is terminated by LF and starts with a line number byte. It is followed by one or
// more offset bytes (value - 16 cells of no data, continued while the byte is 255) and then by
// run bytes holding the run width in the high and the value in the low nibble. The payload ends
// with EOT. Lines are stored north first, the grid is returned south first like the fixed
// width products.
func decodeRunLength(payload []byte, rows, cols int, missing int32) (*Grid, *Masks, error) {
	lines := make([][]int32, 0, rows)

	rest := payload
	for len(rest) > 0 && rest[0] != eot {
		if len(lines) == rows {
			return nil, nil, &RLEDecodeError{
				Line:   len(lines),
				Reason: fmt.Sprintf("more lines than the %d the header declares", rows),
			}
		}
		end := bytes.IndexByte(rest, lf)
		if end < 0 {
			return nil, nil, &RLEDecodeError{Line: len(lines), Reason: "line not terminated by LF"}
		}
		line, err := decodeRunLengthLine(rest[:end], cols, missing)
		if err != nil {
			return nil, nil, &RLEDecodeError{Line: len(lines), Reason: err.Error()}
		}
		lines = append(lines, line)
		rest = rest[end+1:]
	}

	if len(lines) != rows {
		return nil, nil, &RLEDecodeError{
			Line:   len(lines),
			Reason: fmt.Sprintf("expanded to %d lines, header declares %d", len(lines), rows),
		}
	}

	grid := &Grid{Rows: rows, Cols: cols, Data: make([]int32, 0, rows*cols)}
	for i := len(lines) - 1; i >= 0; i-- {
		grid.Data = append(grid.Data, lines[i]...)
	}

	masks := newMasks()
	for idx, v := range grid.Data {
		if v == missing {
			masks.NoData = append(masks.NoData, idx)
		}
	}

	return grid, masks, nil
}

func decodeRunLengthLine(line []byte, cols int, missing int32) ([]int32, error) {
	row := make([]int32, 0, cols)

	// only the line number: nothing was measured on this line
	if len(line) < 2 {
		for len(row) < cols {
			row = append(row, missing)
		}
		return row, nil
	}

	pos := 1
	b := line[pos]
	offset := int(b) - 16
	for b == 255 {
		pos++
		if pos >= len(line) {
			return nil, fmt.Errorf("offset continues past end of line")
		}
		b = line[pos]
		offset += int(b) - 16
	}
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if offset > cols {
		return nil, fmt.Errorf("offset %d exceeds %d columns", offset, cols)
	}

	for i := 0; i < offset; i++ {
		row = append(row, missing)
	}

	for _, run := range line[pos+1:] {
		width := int(run >> 4)
		value := int32(run & 0x0F)
		if len(row)+width > cols {
			return nil, fmt.Errorf("runs exceed %d columns", cols)
		}
		for i := 0; i < width; i++ {
			row = append(row, value)
		}
	}

	for len(row) < cols {
		row = append(row, missing)
	}
	return row, nil
}
