package composite

import "fmt"

// MalformedHeaderError is returned when a mandatory header token is missing or unparseable.
type MalformedHeaderError struct {
	Token  string
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("malformed RADOLAN header: %s", e.Reason)
	}
	return fmt.Sprintf("malformed RADOLAN header: %s: %s", e.Token, e.Reason)
}

// UnknownProductTypeError is returned when no decoder exists for a product type.
type UnknownProductTypeError struct {
	ProductType string
}

func (e *UnknownProductTypeError) Error() string {
	return fmt.Sprintf("unknown RADOLAN product type %q", e.ProductType)
}

// RLEDecodeError is returned when a run-length payload does not expand to the header's grid.
type RLEDecodeError struct {
	Line   int
	Reason string
}

func (e *RLEDecodeError) Error() string {
	return fmt.Sprintf("run-length decode failed at line %d: %s", e.Line, e.Reason)
}

// TruncatedPayloadError is returned when fewer payload bytes are available than the header declares.
type TruncatedPayloadError struct {
	Want int
	Got  int
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf("truncated RADOLAN payload: want %d bytes, got %d", e.Want, e.Got)
}

// DimensionError is returned when the grid size does not match the declared payload size.
type DimensionError struct {
	NRow, NCol int
	CellWidth  int
	DataSize   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("grid %dx%d with %d byte cells needs %d bytes, header declares %d",
		e.NRow, e.NCol, e.CellWidth, e.NRow*e.NCol*e.CellWidth, e.DataSize)
}

// CompressionError is returned when gzip or bzip2 compressed input is corrupt.
type CompressionError struct {
	Format string
	Err    error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("corrupt %s input: %v", e.Format, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}
