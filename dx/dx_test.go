package dx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/jddeal/go-radolan/composite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDX assembles a DX product with the given terminator and payload words
func buildDX(terminator string, ws ...uint16) []byte {
	payload := make([]byte, 2*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint16(payload[2*i:], w)
	}

	prefix := "DX" + "041050" + "10132" + "0517"
	rest := "VS 2CO0CD1CS0EP0.50.50.51.01.52.03.04.0MS003ess"
	headerLength := len(prefix) + len("BY00000") + len(rest) + len(terminator)
	header := prefix + fmt.Sprintf("BY%05d", headerLength+len(payload)) + rest + terminator

	return append([]byte(header), payload...)
}

var twoBeams = []uint16{
	0x2000, 900, 5, 16, 0x1000 | 126, 0x8020,
	0x2000, 910, 5, 0x1000 | 128,
}

func TestDecode(t *testing.T) {
	scan, err := Decode(bytes.NewReader(buildDX("\x03", twoBeams...)))
	require.NoError(t, err)

	assert.Equal(t, "DX", scan.Header.ProductType)
	assert.Equal(t, "10132", scan.Header.RadarID)
	assert.Equal(t, time.Date(2017, time.May, 4, 10, 50, 0, 0, time.UTC), scan.Header.DateTime)
	assert.Equal(t, "2", scan.Header.Version)
	assert.Equal(t, 0, scan.Header.ClutterMap)
	assert.Equal(t, 1, scan.Header.DopplerFilter)
	assert.Equal(t, 0, scan.Header.StatFilter)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 1, 1.5, 2, 3, 4}, scan.Header.ElevProfile)
	assert.Equal(t, "ess", scan.Header.Message)

	require.Len(t, scan.Beams, 2)
	assert.Len(t, scan.Beams[0], Bins)
	assert.Equal(t, uint16(16), scan.Beams[0][0])
	assert.Equal(t, uint16(0), scan.Beams[0][1])
	assert.Equal(t, uint16(0x8020), scan.Beams[0][127])
	assert.Equal(t, make([]uint16, Bins), scan.Beams[1])

	assert.Equal(t, []float64{90, 91}, scan.Azimuths)
	assert.Equal(t, []float64{0.5, 0.5}, scan.Elevations)
	assert.Equal(t, []int{127}, scan.Clutter)

	dbz := scan.DBZ()
	assert.InDelta(t, -24.5, dbz[0][0], 1e-9)
	assert.InDelta(t, -16.5, dbz[0][127], 1e-9)
	assert.InDelta(t, -32.5, dbz[1][5], 1e-9)
}

func TestDecode_DoubleETX(t *testing.T) {
	scan, err := Decode(bytes.NewReader(buildDX("\x03\x03", twoBeams...)))
	require.NoError(t, err)
	assert.Len(t, scan.Beams, 2)
	assert.Equal(t, "ess", scan.Header.Message)
}

func TestDecode_ShortBeam(t *testing.T) {
	_, err := Decode(bytes.NewReader(buildDX("\x03", 0x2000, 900, 5, 16)))

	var beamErr *BeamError
	require.ErrorAs(t, err, &beamErr)
	assert.Equal(t, 0, beamErr.Beam)
	assert.Equal(t, 1, beamErr.Bins)
}

func TestDecode_Truncated(t *testing.T) {
	data := buildDX("\x03", twoBeams...)

	_, err := Decode(bytes.NewReader(data[:len(data)-4]))

	var truncated *composite.TruncatedPayloadError
	require.ErrorAs(t, err, &truncated)
	assert.Equal(t, 20, truncated.Want)
	assert.Equal(t, 16, truncated.Got)
}

func TestDecode_MalformedHeader(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("DX0410501013205\x03")))

	var malformed *composite.MalformedHeaderError
	require.ErrorAs(t, err, &malformed)
}
