package composite

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

var (
	byteProducts = map[string]bool{
		"RX": true, // reflectivity, RVP6 units
		"EX": true, // extended European reflectivity
		"WX": true, // extended reflectivity incl. neighbouring countries
	}

	runLengthProducts = map[string]bool{
		"PG": true, // precipitation pictogram
		"PC": true, // precipitation pictogram, extended area
	}

	flaggedProducts = map[string]bool{
		"RY": true, "RZ": true, "RH": true, "RB": true, "RW": true, "RL": true,
		"RU": true, "RD": true, "RQ": true, "RV": true, "EH": true, "EB": true,
		"EW": true, "SQ": true, "SH": true, "SF": true, "YW": true,
		"W1": true, "W2": true, "W3": true, "W4": true,
	}
)

// EncodingFor selects the payload decoder for a product type.
func EncodingFor(productType string) (Encoding, error) {
	switch {
	case byteProducts[productType]:
		return EncodingByte, nil
	case runLengthProducts[productType]:
		return EncodingRunLength, nil
	case flaggedProducts[productType]:
		return EncodingFlagged, nil
	}
	return 0, &UnknownProductTypeError{ProductType: productType}
}

// checkDimensions verifies NRow*NCol against DataSize for fixed width encodings
func checkDimensions(meta *Metadata, enc Encoding) error {
	width := enc.cellWidth()
	if width == 0 {
		return nil
	}
	if meta.NRow*meta.NCol*width != meta.DataSize {
		return &DimensionError{
			NRow:      meta.NRow,
			NCol:      meta.NCol,
			CellWidth: width,
			DataSize:  meta.DataSize,
		}
	}
	return nil
}

// decodeBytes interprets the payload as unsigned bytes. Values stay in RVP6 units.
func decodeBytes(payload []byte, rows, cols int) (*Grid, *Masks) {
	grid := &Grid{Rows: rows, Cols: cols, Data: make([]int32, len(payload))}
	masks := newMasks()

	for idx, b := range payload {
		grid.Data[idx] = int32(b)
		switch b {
		case ByteClutter:
			masks.Clutter = append(masks.Clutter, idx)
		case ByteNoData:
			masks.NoData = append(masks.NoData, idx)
		}
	}
	return grid, masks
}

// decodeFlagged interprets the payload as little-endian uint16 words. Bits 12-15 are flags,
// the low 12 bits are the value.
func decodeFlagged(payload []byte, rows, cols int, productType string) (*Grid, *Masks) {
	cells := len(payload) / 2
	grid := &Grid{Rows: rows, Cols: cols, Data: make([]int32, cells)}
	masks := newMasks()

	for idx := 0; idx < cells; idx++ {
		word := binary.LittleEndian.Uint16(payload[idx*2:])

		if word&flagSecondary != 0 {
			masks.Secondary = append(masks.Secondary, idx)
		}
		if word&flagNoData != 0 {
			masks.NoData = append(masks.NoData, idx)
		}
		if word&flagNegative != 0 {
			masks.Negative = append(masks.Negative, idx)
		}
		if word&flagClutter != 0 {
			masks.Clutter = append(masks.Clutter, idx)
		}

		grid.Data[idx] = int32(word & valueMask)
	}

	// RD holds differences from the gauge adjustment, the only product where the sign bit
	// applies. Not yet verified against real RD files.
	if productType == "RD" && len(masks.Negative) > 0 {
		logrus.Debugf("RD: negating %d cells", len(masks.Negative))
		for _, idx := range masks.Negative {
			grid.Data[idx] = -grid.Data[idx]
		}
	}

	return grid, masks
}
