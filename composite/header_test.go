package composite

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rwHeader = "RW041050100000517BY1620130VS 3SW   2.18.3PR E-01INT  60GP 900x 900" +
	"MS 62<boo,ros,emd,hnr,umd,pro,ess,asd,neu,nhb,oft,tur,isn,fbg,mem>"

func TestReadHeader_LeavesReaderAtPayload(t *testing.T) {
	r := bytes.NewReader(append([]byte(rwHeader+"\x03"), 0xAA, 0xBB))

	header, err := ReadHeader(r)
	require.NoError(t, err)
	assert.Equal(t, rwHeader, header)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, rest)
}

func TestReadHeader_PlainReader(t *testing.T) {
	// hide io.ByteReader to exercise the single byte read path
	r := struct{ io.Reader }{bytes.NewReader([]byte(rwHeader + "\x03\x01"))}

	header, err := ReadHeader(r)
	require.NoError(t, err)
	assert.Equal(t, rwHeader, header)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, rest)
}

func TestReadHeader_MissingTerminator(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte(rwHeader)))

	var malformed *MalformedHeaderError
	require.ErrorAs(t, err, &malformed)
}

func TestParseHeader_RW(t *testing.T) {
	meta, err := ParseHeader(rwHeader)
	require.NoError(t, err)

	assert.Equal(t, "RW", meta.ProductType)
	assert.Equal(t, time.Date(2017, time.May, 4, 10, 50, 0, 0, time.UTC), meta.DateTime)
	assert.Equal(t, "10000", meta.RadarID)
	assert.Equal(t, 1620130-len(rwHeader)-1, meta.DataSize)
	assert.Equal(t, "150 km", meta.MaxRange)
	assert.Equal(t, "2.18.3", meta.RadolanVersion)
	assert.InDelta(t, 0.1, meta.Precision, 1e-12)
	assert.Equal(t, 3600, meta.IntervalSeconds)
	assert.Equal(t, 900, meta.NRow)
	assert.Equal(t, 900, meta.NCol)
	assert.Equal(t, []string{"boo", "ros", "emd", "hnr", "umd", "pro", "ess", "asd",
		"neu", "nhb", "oft", "tur", "isn", "fbg", "mem"}, meta.RadarLocations)
	assert.Nil(t, meta.NoDataFlag)
	assert.Nil(t, meta.Masks)
}

func TestParseHeader_OptionalTokens(t *testing.T) {
	header := "SF041050100000517BY0100000VS 2SW  2.21.0PR E-01INT   1U1BG460460" +
		"LV 6  1.0 19.0 28.0 37.0 46.0 55.0CS0MX 12VV 015MF 00000008QN 001VR2017.002" +
		"ST 92<asb 24,boo 24,ros 23>"

	meta, err := ParseHeader(header)
	require.NoError(t, err)

	assert.Equal(t, "SF", meta.ProductType)
	assert.Equal(t, "128 km", meta.MaxRange)
	assert.Equal(t, "2.21.0", meta.RadolanVersion)
	assert.Equal(t, 1, meta.IntervalUnit)
	assert.Equal(t, 86400, meta.IntervalSeconds)
	assert.Equal(t, 460, meta.NRow)
	assert.Equal(t, 460, meta.NCol)
	assert.Equal(t, 6, meta.NLevel)
	assert.Equal(t, []float64{1, 19, 28, 37, 46, 55}, meta.Levels)
	assert.Equal(t, "near ground level", meta.Indicator)
	assert.Equal(t, 12, meta.ImageCount)
	assert.Equal(t, 15, meta.PredictionTime)
	assert.Equal(t, 8, meta.ModuleFlag)
	assert.Equal(t, 1, meta.Quantification)
	assert.Equal(t, "2017.002", meta.ReanalysisVersion)
	assert.Equal(t, []string{"asb 24", "boo 24", "ros 23"}, meta.RadarDays)
}

func TestParseHeader_ToleratesWhitespace(t *testing.T) {
	header := "RY041050100000517BY  1620130 VS  3  SW 2.18.3  PR  E-02  INT   5 GP  900 x  900  "

	meta, err := ParseHeader(header)
	require.NoError(t, err)

	assert.Equal(t, 900, meta.NRow)
	assert.Equal(t, 900, meta.NCol)
	assert.InDelta(t, 0.01, meta.Precision, 1e-12)
	assert.Equal(t, 300, meta.IntervalSeconds)
}

func TestParseHeader_TokensInsideListsIgnored(t *testing.T) {
	// "BY" and "GP" inside the radar list must not shadow the real tokens
	header := "RW041050100000517BY1620130GP 900x 900MS 10<BY,GP,ros>"

	meta, err := ParseHeader(header)
	require.NoError(t, err)
	assert.Equal(t, 900, meta.NRow)
	assert.Equal(t, []string{"BY", "GP", "ros"}, meta.RadarLocations)
}

func TestParseHeader_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
	}{
		{"short", "RW0410", ""},
		{"bad datetime", "RWxx1050100000517BY1620130GP 900x 900", "datetime"},
		{"missing BY", "RW041050100000517GP 900x 900", "BY"},
		{"non numeric BY", "RW041050100000517BYabcGP 900x 900", "BY"},
		{"missing GP", "RW041050100000517BY1620130", "GP"},
		{"non numeric GP", "RW041050100000517BY1620130GP 9a0x 900", "GP"},
		{"GP without x", "RW041050100000517BY1620130GP 900", "GP"},
		{"zero rows", "RW041050100000517BY1620130GP   0x 900", "GP"},
		{"BY shorter than header", "RW041050100000517BY0000010GP 900x 900", "BY"},
		{"bad PR", "RW041050100000517BY1620130PR xyzGP 900x 900", "PR"},
		{"oversized grid", "RX041050100000517BY0000100GP10000x20000", "GP"},
		{"oversized BG", "SF041050100000517BY1620130BG900050000", "BG"},
		{"overflowing grid", "RW041050100000517BY0000100GP4294967296x2147483648", "GP"},
		{"oversized BY", "RW041050100000517BY999999999GP 900x 900", "BY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.header)

			var malformed *MalformedHeaderError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.token, malformed.Token)
		})
	}
}
