// Package composite provides functions for decoding DWD RADOLAN composite files.
//
// The documents used and referenced in this package:
//  • RADOLAN/RADVOR-OP Kompositformat, version 2.4 (header tokens and product encodings)
//  • RADOLAN Kurzbeschreibung (product list and units)
//
// A composite is an ASCII header terminated by ETX (0x03) followed by a binary payload. The
// payload layout depends on the product type, see EncodingFor.
package composite

import "time"

const (
	// etx terminates the ASCII header
	etx = 0x03

	// eot terminates a run-length encoded payload
	eot = 0x04

	// lf terminates every line of a run-length encoded payload
	lf = 0x0a

	// prefixLength covers product type, DDHHMM, radar id and MMYY at the start of every header
	prefixLength = 17

	// maxHeaderLength guards against reading a binary file as a header forever
	maxHeaderLength = 8192

	// maxGridSide bounds NRow and NCol, well above the largest DWD grid (2400x1100)
	maxGridSide = 4800

	// maxDataSize bounds the declared payload: a maxGridSide square of 16-bit cells
	maxDataSize = maxGridSide * maxGridSide * 2

	// CompositeRadarID is the radar id every national composite carries
	CompositeRadarID = "10000"

	// ByteClutter marks clutter in the 8-bit family (RVP6 units)
	ByteClutter = 249

	// ByteNoData marks missing cells in the 8-bit family
	ByteNoData = 250

	// flag bits of the 16-bit family
	flagSecondary = 0x1000
	flagNoData    = 0x2000
	flagNegative  = 0x4000
	flagClutter   = 0x8000

	// valueMask keeps the 12 data bits of a 16-bit word
	valueMask = 0x0FFF
)

// Metadata is the parsed composite header. NoDataFlag and Masks are only filled in when the
// payload was decoded.
type Metadata struct {
	ProductType       string    `json:"producttype"`
	DateTime          time.Time `json:"datetime"`
	RadarID           string    `json:"radarid"`
	DataSize          int       `json:"datasize"`
	MaxRange          string    `json:"maxrange,omitempty"`
	RadolanVersion    string    `json:"radolanversion,omitempty"`
	Precision         float64   `json:"precision"`
	IntervalSeconds   int       `json:"intervalseconds,omitempty"`
	IntervalUnit      int       `json:"intervalunit,omitempty"`
	NRow              int       `json:"nrow"`
	NCol              int       `json:"ncol"`
	NLevel            int       `json:"nlevel,omitempty"`
	Levels            []float64 `json:"level,omitempty"`
	RadarLocations    []string  `json:"radarlocations,omitempty"`
	RadarDays         []string  `json:"radardays,omitempty"`
	Indicator         string    `json:"indicator,omitempty"`
	ImageCount        int       `json:"imagecount,omitempty"`
	PredictionTime    int       `json:"predictiontime,omitempty"`
	ModuleFlag        int       `json:"moduleflag,omitempty"`
	Quantification    int       `json:"quantification,omitempty"`
	ReanalysisVersion string    `json:"reanalysisversion,omitempty"`

	NoDataFlag *int32 `json:"nodataflag,omitempty"`
	Masks      *Masks `json:"masks,omitempty"`
}

// Masks holds flat (row-major) positions of flagged cells.
type Masks struct {
	Clutter   []int `json:"cluttermask"`
	NoData    []int `json:"nodatamask"`
	Secondary []int `json:"secondary"`
	Negative  []int `json:"negative"`
}

func newMasks() *Masks {
	return &Masks{
		Clutter:   []int{},
		NoData:    []int{},
		Secondary: []int{},
		Negative:  []int{},
	}
}

// Grid is a row-major Rows x Cols array of raw decoded values.
type Grid struct {
	Rows int     `json:"rows"`
	Cols int     `json:"cols"`
	Data []int32 `json:"data"`
}

// At returns the value at row, col.
func (g *Grid) At(row, col int) int32 {
	return g.Data[row*g.Cols+col]
}

// Row returns a view of a single row.
func (g *Grid) Row(row int) []int32 {
	return g.Data[row*g.Cols : (row+1)*g.Cols]
}

// Encoding is the payload layout selected by the product type.
type Encoding int

const (
	// EncodingByte is one unsigned byte per cell (RX, EX, WX)
	EncodingByte Encoding = iota

	// EncodingFlagged is one little-endian uint16 per cell with flag bits 12-15
	EncodingFlagged

	// EncodingRunLength is the line oriented run-length format of PG/PC
	EncodingRunLength
)

func (e Encoding) String() string {
	switch e {
	case EncodingByte:
		return "8-bit"
	case EncodingFlagged:
		return "16-bit flagged"
	case EncodingRunLength:
		return "run-length"
	}
	return "unknown"
}

// cellWidth is the payload bytes per cell, 0 when the width is not fixed
func (e Encoding) cellWidth() int {
	switch e {
	case EncodingByte:
		return 1
	case EncodingFlagged:
		return 2
	}
	return 0
}
