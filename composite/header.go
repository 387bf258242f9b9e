package composite

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// headerTimeLayout is DDHHMM followed by MMYY
const headerTimeLayout = "0215040106"

// headerTokens are the keys that may follow the fixed prefix. Each value runs until the
// next token.
var headerTokens = []string{
	"BY", "VS", "SW", "PR", "INT", "U", "GP", "BG", "LV",
	"MS", "ST", "CS", "MX", "VV", "MF", "QN", "VR",
}

var (
	maxRanges = map[int]string{
		0: "100 km and 128 km (mixed)",
		1: "100 km",
		2: "128 km",
		3: "150 km",
	}

	indicators = map[int]string{
		0: "near ground level",
		1: "maximum",
		2: "tops",
	}
)

// ReadHeader reads the ASCII header up to the ETX terminator and returns it without the
// terminator. Bytes are consumed one at a time so r is left at the first payload byte.
func ReadHeader(r io.Reader) (string, error) {
	var sb strings.Builder

	byteReader, isByteReader := r.(io.ByteReader)
	one := make([]byte, 1)

	for {
		var b byte
		var err error
		if isByteReader {
			b, err = byteReader.ReadByte()
		} else {
			_, err = io.ReadFull(r, one)
			b = one[0]
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return "", &MalformedHeaderError{Reason: "unexpected EOF before end of header"}
			}
			return "", err
		}

		if b == etx {
			return sb.String(), nil
		}
		if sb.Len() >= maxHeaderLength {
			return "", &MalformedHeaderError{Reason: "no header terminator found"}
		}
		sb.WriteByte(b)
	}
}

// ParseHeader parses the header text returned by ReadHeader.
func ParseHeader(header string) (*Metadata, error) {
	if len(header) < prefixLength {
		return nil, &MalformedHeaderError{Reason: "header shorter than fixed prefix"}
	}

	meta := &Metadata{
		ProductType: header[0:2],
		RadarID:     header[8:13],
		Precision:   1,
	}

	if strings.TrimSpace(meta.ProductType) == "" {
		return nil, &MalformedHeaderError{Token: "producttype", Reason: "empty"}
	}

	dt, err := time.Parse(headerTimeLayout, header[2:8]+header[13:17])
	if err != nil {
		return nil, &MalformedHeaderError{Token: "datetime", Reason: err.Error()}
	}
	meta.DateTime = dt.UTC()

	values := tokenValues(header)
	logrus.Tracef("RADOLAN header tokens: %v", values)

	by, ok := values["BY"]
	if !ok {
		return nil, &MalformedHeaderError{Token: "BY", Reason: "missing"}
	}
	productLength, err := atoi("BY", by)
	if err != nil {
		return nil, err
	}
	// BY counts the whole product including the header and its ETX
	meta.DataSize = productLength - len(header) - 1
	if meta.DataSize < 0 {
		return nil, &MalformedHeaderError{Token: "BY", Reason: "product length shorter than header"}
	}
	if meta.DataSize > maxDataSize {
		return nil, &MalformedHeaderError{Token: "BY", Reason: fmt.Sprintf("payload of %d bytes exceeds %d", meta.DataSize, maxDataSize)}
	}

	gridToken := "GP"
	switch {
	case values["GP"] != "":
		dims := strings.Split(strings.TrimSpace(values["GP"]), "x")
		if len(dims) != 2 {
			return nil, &MalformedHeaderError{Token: "GP", Reason: "expected rows x cols"}
		}
		if meta.NRow, err = atoi("GP", dims[0]); err != nil {
			return nil, err
		}
		if meta.NCol, err = atoi("GP", dims[1]); err != nil {
			return nil, err
		}
	case values["BG"] != "":
		gridToken = "BG"
		bg := strings.TrimSpace(values["BG"])
		half := len(bg) / 2
		if meta.NRow, err = atoi("BG", bg[:half]); err != nil {
			return nil, err
		}
		if meta.NCol, err = atoi("BG", bg[half:]); err != nil {
			return nil, err
		}
	default:
		return nil, &MalformedHeaderError{Token: "GP", Reason: "missing grid dimensions"}
	}
	if meta.NRow <= 0 || meta.NCol <= 0 {
		return nil, &MalformedHeaderError{Token: "GP", Reason: "grid dimensions must be positive"}
	}
	if meta.NRow > maxGridSide || meta.NCol > maxGridSide {
		return nil, &MalformedHeaderError{Token: gridToken, Reason: fmt.Sprintf("grid %dx%d exceeds %dx%d", meta.NRow, meta.NCol, maxGridSide, maxGridSide)}
	}

	if v, ok := values["VS"]; ok {
		vs, err := atoi("VS", v)
		if err != nil {
			return nil, err
		}
		if r, ok := maxRanges[vs]; ok {
			meta.MaxRange = r
		} else {
			meta.MaxRange = maxRanges[1]
		}
	}

	if v, ok := values["SW"]; ok {
		meta.RadolanVersion = strings.TrimSpace(v)
	}

	if v, ok := values["PR"]; ok {
		meta.Precision, err = strconv.ParseFloat("1"+strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &MalformedHeaderError{Token: "PR", Reason: err.Error()}
		}
	}

	if v, ok := values["INT"]; ok {
		minutes, err := atoi("INT", v)
		if err != nil {
			return nil, err
		}
		meta.IntervalSeconds = minutes * 60
	}

	if v, ok := values["U"]; ok {
		if meta.IntervalUnit, err = atoi("U", v); err != nil {
			return nil, err
		}
		// U1 means INT is given in days
		if meta.IntervalUnit == 1 {
			meta.IntervalSeconds *= 1440
		}
	}

	if v, ok := values["LV"]; ok {
		fields := strings.Fields(v)
		if len(fields) > 0 {
			if meta.NLevel, err = atoi("LV", fields[0]); err != nil {
				return nil, err
			}
			for _, f := range fields[1:] {
				level, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, &MalformedHeaderError{Token: "LV", Reason: err.Error()}
				}
				meta.Levels = append(meta.Levels, level)
			}
		}
	}

	if v, ok := values["MS"]; ok {
		meta.RadarLocations = bracketList(v)
	}
	if v, ok := values["ST"]; ok {
		meta.RadarDays = bracketList(v)
	}

	if v, ok := values["CS"]; ok {
		cs, err := atoi("CS", v)
		if err != nil {
			return nil, err
		}
		meta.Indicator = indicators[cs]
	}

	for token, dst := range map[string]*int{
		"MX": &meta.ImageCount,
		"VV": &meta.PredictionTime,
		"MF": &meta.ModuleFlag,
		"QN": &meta.Quantification,
	} {
		if v, ok := values[token]; ok {
			if *dst, err = atoi(token, v); err != nil {
				return nil, err
			}
		}
	}

	if v, ok := values["VR"]; ok {
		meta.ReanalysisVersion = strings.TrimSpace(v)
	}

	return meta, nil
}

// tokenValues finds every known token after the fixed prefix and returns the raw text up to the
// next token. Text inside <...> lists is never matched as a token.
func tokenValues(header string) map[string]string {
	masked := []byte(header)
	inList := false
	for i := range masked {
		if i < prefixLength {
			masked[i] = ' '
			continue
		}
		switch masked[i] {
		case '<':
			inList = true
		case '>':
			inList = false
			masked[i] = ' '
		}
		if inList {
			masked[i] = ' '
		}
	}
	search := string(masked)

	type found struct {
		token string
		pos   int
	}
	var positions []found
	for _, token := range headerTokens {
		if pos := strings.LastIndex(search, token); pos > -1 {
			positions = append(positions, found{token, pos})
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].pos < positions[j].pos })

	values := make(map[string]string, len(positions))
	for i, f := range positions {
		end := len(header)
		if i+1 < len(positions) {
			end = positions[i+1].pos
		}
		start := f.pos + len(f.token)
		if start > end {
			start = end
		}
		values[f.token] = header[start:end]
	}
	return values
}

// bracketList splits the comma separated list between < and >
func bracketList(v string) []string {
	start := strings.Index(v, "<")
	end := strings.LastIndex(v, ">")
	if start < 0 || end < start {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v[start+1:end], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func atoi(token, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &MalformedHeaderError{Token: token, Reason: "not a number: " + strconv.Quote(v)}
	}
	return n, nil
}
