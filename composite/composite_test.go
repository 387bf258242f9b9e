package composite

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeBzip2(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	bz, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	require.NoError(t, err)
	_, err = bz.Write(data)
	require.NoError(t, err)
	require.NoError(t, bz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDecodeFile(t *testing.T) {
	data := buildComposite("RY", 2, 2, 8, "", words(0x0005, 0x9005, 0x2005, 0x1005))
	dir := t.TempDir()

	plain := filepath.Join(dir, "raa01-ry_10000-1705041050-dwd---bin")
	require.NoError(t, os.WriteFile(plain, data, 0o644))

	gz := filepath.Join(dir, "raa01-ry_10000-1705041050-dwd---bin.gz")
	writeGzip(t, gz, data)

	bz := filepath.Join(dir, "raa01-ry_10000-1705041050-dwd---bin.bz2")
	writeBzip2(t, bz, data)

	for _, name := range []string{plain, gz, bz} {
		t.Run(filepath.Base(name), func(t *testing.T) {
			grid, meta, err := DecodeFile(name, 0, true)
			require.NoError(t, err)
			assert.Equal(t, "RY", meta.ProductType)
			assert.Equal(t, []int32{5, 5, 5, 5}, grid.Data)
			assert.Equal(t, []int{1}, meta.Masks.Clutter)
		})
	}
}

func TestDecodeFile_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "composite")
	require.NoError(t, os.WriteFile(path, buildComposite("RW", 2, 2, 8, "", words(1, 2, 3, 4)), 0o644))

	grid, meta, err := DecodeFile(path, 0, false)
	require.NoError(t, err)
	assert.Nil(t, grid)
	assert.Equal(t, "RW", meta.ProductType)
}

func TestDecodeFile_Missing(t *testing.T) {
	_, _, err := DecodeFile(filepath.Join(t.TempDir(), "nope"), 0, true)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDecompress_ShortInput(t *testing.T) {
	r, err := Decompress(bytes.NewReader([]byte{0x1f}))
	require.NoError(t, err)

	_, err = ReadHeader(r)
	var malformed *MalformedHeaderError
	require.ErrorAs(t, err, &malformed)
}

func TestDecompress_CorruptGzipHeader(t *testing.T) {
	// compression method 7 instead of deflate
	_, err := Decompress(bytes.NewReader([]byte{0x1f, 0x8b, 0x07, 0, 0, 0, 0, 0, 0, 0xff, 0x01}))

	var corrupt *CompressionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "gzip", corrupt.Format)
	assert.True(t, errors.Is(err, gzip.ErrHeader))
}

func TestDecode_CorruptGzipStream(t *testing.T) {
	// valid gzip header followed by a deflate block of the reserved type
	r, err := Decompress(bytes.NewReader([]byte{0x1f, 0x8b, 0x08, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0xff}))
	require.NoError(t, err)

	_, _, err = Decode(r, 0, true)

	var corrupt *CompressionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "gzip", corrupt.Format)
}

func TestDecode_CompressedTruncationStaysTruncation(t *testing.T) {
	data := buildComposite("RY", 2, 2, 8, "", words(1, 2, 3))
	path := filepath.Join(t.TempDir(), "raa01-ry_10000-1705041050-dwd---bin.gz")
	writeGzip(t, path, data)

	_, _, err := DecodeFile(path, 0, true)

	var truncated *TruncatedPayloadError
	require.ErrorAs(t, err, &truncated)
	assert.Equal(t, 6, truncated.Got)
}
