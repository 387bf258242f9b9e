package composite

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// Decode reads a RADOLAN composite from r.
//
// With loadData false only the header is consumed and the returned grid is nil. Otherwise the
// payload is decoded according to the product type, and the metadata additionally carries the
// missing value as NoDataFlag and the flag masks. Values are never rescaled, see Grid.Scaled
// and RVP6ToDBZ.
func Decode(r io.Reader, missing int32, loadData bool) (*Grid, *Metadata, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}

	meta, err := ParseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	logrus.Debugf("RADOLAN %s @ %v (%s, %s bytes)",
		color.CyanString(meta.ProductType),
		meta.DateTime,
		color.CyanString("%dx%d", meta.NRow, meta.NCol),
		color.CyanString("%d", meta.DataSize),
	)

	if !loadData {
		return nil, meta, nil
	}

	if meta.RadarID != CompositeRadarID {
		logrus.Warnf("radar id %s is not a composite, results might not be valid", meta.RadarID)
	}

	enc, err := EncodingFor(meta.ProductType)
	if err != nil {
		return nil, nil, err
	}
	if err := checkDimensions(meta, enc); err != nil {
		return nil, nil, err
	}

	// the buffer grows with the bytes actually present, not with what BY declares
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, int64(meta.DataSize))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, &TruncatedPayloadError{Want: meta.DataSize, Got: int(n)}
		}
		return nil, nil, err
	}
	payload := buf.Bytes()

	logrus.Tracef("  decoding %d bytes as %s", len(payload), enc)

	var grid *Grid
	var masks *Masks
	switch enc {
	case EncodingByte:
		grid, masks = decodeBytes(payload, meta.NRow, meta.NCol)
	case EncodingFlagged:
		grid, masks = decodeFlagged(payload, meta.NRow, meta.NCol, meta.ProductType)
	case EncodingRunLength:
		grid, masks, err = decodeRunLength(payload, meta.NRow, meta.NCol, missing)
		if err != nil {
			return nil, nil, err
		}
	}

	logrus.Debugf("  clutter: %d, no data: %d, secondary: %d, negative: %d",
		len(masks.Clutter), len(masks.NoData), len(masks.Secondary), len(masks.Negative))

	meta.NoDataFlag = &missing
	meta.Masks = masks
	return grid, meta, nil
}

// DecodeFile decodes the named composite. gzip and bzip2 compressed files are recognised by
// their magic bytes.
func DecodeFile(filename string, missing int32, loadData bool) (*Grid, *Metadata, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r, err := Decompress(file)
	if err != nil {
		return nil, nil, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	logrus.Debugf("decoding %s", filename)
	return Decode(r, missing, loadData)
}

// Decompress returns a reader that transparently inflates gzip or bzip2 input. Uncompressed
// input is passed through. Corrupt compressed input surfaces as a *CompressionError, from
// Decompress itself or from later reads.
func Decompress(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)

	// a short read leaves fewer magic bytes, the header parser reports the real problem
	magic, err := buffered.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		logrus.Trace("gzip compressed input")
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, &CompressionError{Format: "gzip", Err: err}
		}
		return newInflater("gzip", gz), nil
	case len(magic) == 3 && string(magic) == "BZh":
		logrus.Trace("bzip2 compressed input")
		bz, err := bzip2.NewReader(buffered, nil)
		if err != nil {
			return nil, &CompressionError{Format: "bzip2", Err: err}
		}
		return newInflater("bzip2", bz), nil
	}
	return buffered, nil
}

// inflater buffers a decompressing reader and tags its failures as *CompressionError. EOF
// and unexpected EOF pass through so truncation is still reported as such.
type inflater struct {
	*bufio.Reader
	closer io.Closer
}

type inflateErrors struct {
	format string
	r      io.Reader
}

func (e *inflateErrors) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		err = &CompressionError{Format: e.format, Err: err}
	}
	return n, err
}

func newInflater(format string, rc io.ReadCloser) *inflater {
	return &inflater{
		Reader: bufio.NewReader(&inflateErrors{format: format, r: rc}),
		closer: rc,
	}
}

func (i *inflater) Close() error {
	return i.closer.Close()
}
