// Package dx decodes DWD DX files, the single site polar reflectivity product.
//
// A DX file is an ASCII header terminated by one or two ETX bytes followed by little-endian
// 16-bit words. Each beam starts with a marker word, followed by azimuth, elevation and 128
// zero-packed range bins.
package dx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jddeal/go-radolan/composite"
	"github.com/sirupsen/logrus"
)

const (
	etx = 0x03

	// Bins is the number of range bins in every beam
	Bins = 128

	beamMarker  = 0x2000 // a word equal to this starts a new beam
	angleMask   = 0x0FFF // azimuth and elevation, tenths of a degree
	zeroFlag    = 0x1000 // the low 12 bits count zero bins
	zeroCount   = 0x0FFF
	clutterFlag = 0x8000
	dataMask    = 0x1FFF

	maxHeaderLen = 4096

	// DDHHMM, MMYY and seconds
	headerTimeLayout = "021504010605"
)

// Header of a DX file
type Header struct {
	ProductType   string    `json:"producttype"`
	DateTime      time.Time `json:"datetime"`
	RadarID       string    `json:"radarid"`
	Bytes         int       `json:"bytes"`
	Version       string    `json:"version"`
	ClutterMap    int       `json:"cluttermap"`
	DopplerFilter int       `json:"dopplerfilter"`
	StatFilter    int       `json:"statfilter"`
	ElevProfile   []float64 `json:"elevprofile"`
	Message       string    `json:"message"`
}

// Scan is a decoded DX file, azimuth x range.
type Scan struct {
	Header     Header     `json:"header"`
	Beams      [][]uint16 `json:"beams"`
	Azimuths   []float64  `json:"azimuths"`
	Elevations []float64  `json:"elevations"`
	Clutter    []int      `json:"clutter"` // flat beam*Bins+bin positions
}

// BeamError is returned when a beam does not unpack to Bins range bins.
type BeamError struct {
	Beam int
	Bins int
}

func (e *BeamError) Error() string {
	return fmt.Sprintf("DX beam %d unpacked to %d bins, expected %d", e.Beam, e.Bins, Bins)
}

// DBZ converts the beams to reflectivity in dBZ.
func (s *Scan) DBZ() [][]float64 {
	out := make([][]float64, len(s.Beams))
	for i, beam := range s.Beams {
		out[i] = make([]float64, len(beam))
		for j, v := range beam {
			out[i][j] = composite.RVP6ToDBZ(float64(v & dataMask))
		}
	}
	return out
}

// DecodeFile decodes the named DX file, compressed or not.
func DecodeFile(filename string) (*Scan, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r, err := composite.Decompress(file)
	if err != nil {
		return nil, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	return Decode(r)
}

// Decode reads a DX file from r.
func Decode(r io.Reader) (*Scan, error) {
	br := bufio.NewReader(r)

	header, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	h, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("DX %s @ %v (%s bytes)", color.CyanString(h.RadarID), h.DateTime, color.CyanString("%d", h.Bytes))

	length := h.Bytes - len(header)
	// products with an even length but a doubled ETX leave one stray byte
	if length%2 != 0 {
		length--
	}
	if length < 0 {
		return nil, &composite.MalformedHeaderError{Token: "BY", Reason: "product length shorter than header"}
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(br, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &composite.TruncatedPayloadError{Want: length, Got: n}
		}
		return nil, err
	}

	raw := make([]uint16, length/2)
	for i := range raw {
		raw[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}

	scan := &Scan{Header: *h}

	var starts []int
	for i, w := range raw {
		if w == beamMarker {
			starts = append(starts, i)
		}
	}
	starts = append(starts, len(raw))

	for i := 0; i < len(starts)-1; i++ {
		start, next := starts[i], starts[i+1]
		if start+3 > next {
			return nil, &BeamError{Beam: i, Bins: 0}
		}

		beam := unpack(raw[start+3 : next])
		if len(beam) != Bins {
			return nil, &BeamError{Beam: i, Bins: len(beam)}
		}

		for bin, v := range beam {
			if v&clutterFlag != 0 {
				scan.Clutter = append(scan.Clutter, i*Bins+bin)
			}
		}

		scan.Beams = append(scan.Beams, beam)
		scan.Azimuths = append(scan.Azimuths, float64(raw[start+1]&angleMask)/10)
		scan.Elevations = append(scan.Elevations, float64(raw[start+2]&angleMask)/10)
	}

	logrus.Debugf("  found %s beams", color.CyanString("%d", len(scan.Beams)))
	return scan, nil
}

// unpack expands the zero packing of a beam
func unpack(raw []uint16) []uint16 {
	beam := make([]uint16, 0, Bins)
	for _, w := range raw {
		if w&zeroFlag != 0 {
			for n := int(w & zeroCount); n > 0; n-- {
				beam = append(beam, 0)
			}
			continue
		}
		beam = append(beam, w)
	}
	return beam
}

// readHeader returns the header including its ETX bytes; a second ETX directly after the first
// still belongs to the header
func readHeader(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	atEnd := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if atEnd {
					return sb.String(), nil
				}
				return "", &composite.MalformedHeaderError{Reason: "unexpected EOF before end of header"}
			}
			return "", err
		}
		if b == etx {
			atEnd = true
		} else if atEnd {
			if err := br.UnreadByte(); err != nil {
				return "", err
			}
			return sb.String(), nil
		}
		if sb.Len() >= maxHeaderLen {
			return "", &composite.MalformedHeaderError{Reason: "no header terminator found"}
		}
		sb.WriteByte(b)
	}
}

func parseHeader(header string) (*Header, error) {
	if len(header) < 17 {
		return nil, &composite.MalformedHeaderError{Reason: "header shorter than fixed prefix"}
	}

	h := &Header{
		ProductType: header[0:2],
		RadarID:     header[8:13],
	}

	dt, err := time.Parse(headerTimeLayout, header[2:8]+header[13:17]+"00")
	if err != nil {
		return nil, &composite.MalformedHeaderError{Token: "datetime", Reason: err.Error()}
	}
	h.DateTime = dt.UTC()

	field := func(token string, length int) (string, error) {
		pos := strings.Index(header, token)
		if pos < 0 {
			return "", &composite.MalformedHeaderError{Token: token, Reason: "missing"}
		}
		start := pos + len(token)
		if start+length > len(header) {
			return "", &composite.MalformedHeaderError{Token: token, Reason: "value truncated"}
		}
		return header[start : start+length], nil
	}
	number := func(token string, length int) (int, error) {
		v, err := field(token, length)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &composite.MalformedHeaderError{Token: token, Reason: "not a number: " + strconv.Quote(v)}
		}
		return n, nil
	}

	if h.Bytes, err = number("BY", 5); err != nil {
		return nil, err
	}

	version, err := field("VS", 2)
	if err != nil {
		return nil, err
	}
	h.Version = strings.TrimSpace(version)

	if h.ClutterMap, err = number("CO", 1); err != nil {
		return nil, err
	}
	if h.DopplerFilter, err = number("CD", 1); err != nil {
		return nil, err
	}
	if h.StatFilter, err = number("CS", 1); err != nil {
		return nil, err
	}

	ep, err := field("EP", 24)
	if err != nil {
		return nil, err
	}
	for i := 0; i < 8; i++ {
		elev, err := strconv.ParseFloat(strings.TrimSpace(ep[i*3:(i+1)*3]), 64)
		if err != nil {
			return nil, &composite.MalformedHeaderError{Token: "EP", Reason: err.Error()}
		}
		h.ElevProfile = append(h.ElevProfile, elev)
	}

	msgLen, err := number("MS", 3)
	if err != nil {
		return nil, err
	}
	msg, err := field("MS", 3+msgLen)
	if err != nil {
		return nil, err
	}
	h.Message = msg[3:]

	return h, nil
}
